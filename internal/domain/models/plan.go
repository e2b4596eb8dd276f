package models

import "time"

// Plan maps an external product reference to its credit allotment and
// renewal period. The table is configuration data, never computed at
// runtime.
type Plan struct {
	ProductRef string
	Status     LedgerStatus
	Credits    int
	Period     time.Duration
	Unlimited  bool
}

type PlanTable map[string]Plan

// DefaultPlanTable holds the store products currently sold by the app.
func DefaultPlanTable() PlanTable {
	return PlanTable{
		"inkmirror_weekly": {
			ProductRef: "inkmirror_weekly",
			Status:     StatusPlanWeekly,
			Credits:    30,
			Period:     7 * 24 * time.Hour,
		},
		"inkmirror_monthly": {
			ProductRef: "inkmirror_monthly",
			Status:     StatusPlanMonthly,
			Credits:    150,
			Period:     30 * 24 * time.Hour,
		},
		"inkmirror_monthly_unlimited": {
			ProductRef: "inkmirror_monthly_unlimited",
			Status:     StatusPlanMonthly,
			Period:     30 * 24 * time.Hour,
			Unlimited:  true,
		},
	}
}

// Lookup returns the plan for a product reference. Unknown references are
// a configuration bug on the caller's side; there is no default plan.
func (t PlanTable) Lookup(productRef string) (Plan, bool) {
	plan, ok := t[productRef]
	return plan, ok
}
