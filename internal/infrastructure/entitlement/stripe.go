package entitlement

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/customer"
	"github.com/stripe/stripe-go/v79/subscription"

	"inkmirror-ai/internal/domain/models"
	"inkmirror-ai/internal/domain/repositories"
)

// PriceToProductRef maps the platform's price ids onto the plan table's
// product references. The platform is only an oracle for "which product,
// until when"; credit counts never come from here.
var PriceToProductRef = map[string]string{
	"price_1PkWeeklyInkMirror30":  "inkmirror_weekly",
	"price_1PkMonthlyInkMirror50": "inkmirror_monthly",
	"price_1PkMonthlyInkUnltd":    "inkmirror_monthly_unlimited",
}

type stripeClient struct {
	logger *slog.Logger
}

func NewStripeClient(logger *slog.Logger) repositories.EntitlementClient {
	return &stripeClient{logger: logger}
}

// ActiveEntitlement looks up the customer tagged with this user id and
// returns its first active subscription, or nil when none exists.
func (c *stripeClient) ActiveEntitlement(ctx context.Context, userID string) (*models.Entitlement, error) {
	customerID, err := c.findCustomer(ctx, userID)
	if err != nil {
		return nil, err
	}
	if customerID == "" {
		return nil, nil
	}

	params := &stripe.SubscriptionListParams{
		Customer: stripe.String(customerID),
		Status:   stripe.String(string(stripe.SubscriptionStatusActive)),
	}
	params.Context = ctx

	iter := subscription.List(params)
	for iter.Next() {
		sub := iter.Subscription()
		if len(sub.Items.Data) == 0 {
			continue
		}

		priceID := sub.Items.Data[0].Price.ID
		productRef, ok := PriceToProductRef[priceID]
		if !ok {
			c.logger.Error("active subscription carries unmapped price",
				"user_id", userID, "price_id", priceID)
			continue
		}

		return &models.Entitlement{
			ProductRef: productRef,
			ExpiresAt:  time.Unix(sub.CurrentPeriodEnd, 0).UTC(),
		}, nil
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("failed to list subscriptions: %w", err)
	}

	return nil, nil
}

func (c *stripeClient) findCustomer(ctx context.Context, userID string) (string, error) {
	params := &stripe.CustomerSearchParams{
		SearchParams: stripe.SearchParams{
			Query: fmt.Sprintf("metadata['user_id']:'%s'", userID),
		},
	}
	params.Context = ctx

	iter := customer.Search(params)
	if iter.Next() {
		return iter.Customer().ID, nil
	}
	if err := iter.Err(); err != nil {
		return "", fmt.Errorf("failed to search customer: %w", err)
	}

	return "", nil
}
