package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"inkmirror-ai/internal/domain/models"
)

func newTestSyncService(repo *fakeLedgerRepo, remote *fakeRemoteStore, entitlements *fakeEntitlementClient) (SyncService, LedgerService) {
	plans := models.DefaultPlanTable()
	ledgers := NewLedgerService(repo, remote, plans, 5, testLogger())
	return NewSyncService(ledgers, remote, entitlements, plans, testLogger()), ledgers
}

func TestPullRemoteNewerRemoteWins(t *testing.T) {
	repo := newFakeLedgerRepo()
	remote := newFakeRemoteStore()
	svc, ledgers := newTestSyncService(repo, remote, &fakeEntitlementClient{})

	local, err := ledgers.GetLedger(context.Background(), "user-1")
	require.NoError(t, err)

	newer := local.Clone()
	newer.FreeCredits = 1
	newer.UpdatedAt = local.UpdatedAt.Add(time.Minute)
	remote.records["user-1"] = newer

	resolved, err := svc.PullRemote(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, 1, resolved.FreeCredits)

	stored, err := repo.GetByUserID(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, 1, stored.FreeCredits)
}

func TestPullRemoteOlderRemoteIsIgnored(t *testing.T) {
	repo := newFakeLedgerRepo()
	remote := newFakeRemoteStore()
	svc, ledgers := newTestSyncService(repo, remote, &fakeEntitlementClient{})

	local, err := ledgers.GetLedger(context.Background(), "user-1")
	require.NoError(t, err)

	older := local.Clone()
	older.FreeCredits = 1
	older.UpdatedAt = local.UpdatedAt.Add(-time.Minute)
	remote.records["user-1"] = older

	resolved, err := svc.PullRemote(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, local.FreeCredits, resolved.FreeCredits)
}

func TestPullRemoteSeedsMissingRecord(t *testing.T) {
	repo := newFakeLedgerRepo()
	remote := newFakeRemoteStore()
	svc, _ := newTestSyncService(repo, remote, &fakeEntitlementClient{})

	resolved, err := svc.PullRemote(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, 5, resolved.FreeCredits)

	seeded, ok := remote.records["user-1"]
	require.True(t, ok, "missing remote record is created from local")
	assert.Equal(t, 5, seeded.FreeCredits)
}

func TestPullRemoteFailureFallsBackToLocal(t *testing.T) {
	repo := newFakeLedgerRepo()
	remote := newFakeRemoteStore()
	remote.fetchErr = assert.AnError
	svc, _ := newTestSyncService(repo, remote, &fakeEntitlementClient{})

	resolved, err := svc.PullRemote(context.Background(), "user-1")
	require.NoError(t, err, "remote failure never surfaces")
	assert.Equal(t, 5, resolved.FreeCredits)
}

func TestSyncEntitlementsActivatesKnownPlan(t *testing.T) {
	repo := newFakeLedgerRepo()
	expires := time.Now().UTC().Add(7 * 24 * time.Hour)
	entitlements := &fakeEntitlementClient{entitlement: &models.Entitlement{
		ProductRef: "inkmirror_weekly",
		ExpiresAt:  expires,
	}}
	svc, _ := newTestSyncService(repo, newFakeRemoteStore(), entitlements)

	resolved, err := svc.SyncEntitlements(context.Background(), "user-1")
	require.NoError(t, err)

	assert.True(t, resolved.IsActive)
	assert.Equal(t, models.StatusPlanWeekly, resolved.Status)
	assert.Equal(t, 30, resolved.SubscriptionCredits)
	require.NotNil(t, resolved.PeriodEnd)
	assert.True(t, resolved.PeriodEnd.Equal(expires))
}

func TestSyncEntitlementsExpiresWhenPlatformShowsNone(t *testing.T) {
	repo := newFakeLedgerRepo()
	now := time.Now().UTC()
	require.NoError(t, repo.Create(context.Background(), activeWeeklyLedger("user-1", now)))
	svc, _ := newTestSyncService(repo, newFakeRemoteStore(), &fakeEntitlementClient{})

	resolved, err := svc.SyncEntitlements(context.Background(), "user-1")
	require.NoError(t, err)

	assert.Equal(t, models.StatusExpired, resolved.Status)
	assert.False(t, resolved.IsActive)
	assert.Equal(t, 0, resolved.SubscriptionCredits)
}

func TestSyncEntitlementsSameProductExtendsWithoutRegrant(t *testing.T) {
	repo := newFakeLedgerRepo()
	now := time.Now().UTC()
	ledger := activeWeeklyLedger("user-1", now)
	ledger.SubscriptionCredits = 7 // partially spent
	require.NoError(t, repo.Create(context.Background(), ledger))

	extended := now.Add(14 * 24 * time.Hour)
	entitlements := &fakeEntitlementClient{entitlement: &models.Entitlement{
		ProductRef: "inkmirror_weekly",
		ExpiresAt:  extended,
	}}
	svc, _ := newTestSyncService(repo, newFakeRemoteStore(), entitlements)

	resolved, err := svc.SyncEntitlements(context.Background(), "user-1")
	require.NoError(t, err)

	assert.Equal(t, 7, resolved.SubscriptionCredits, "unchanged period must not re-grant")
	require.NotNil(t, resolved.PeriodEnd)
	assert.True(t, resolved.PeriodEnd.Equal(extended.UTC()))
}

func TestSyncEntitlementsUnknownProductIsNoop(t *testing.T) {
	repo := newFakeLedgerRepo()
	entitlements := &fakeEntitlementClient{entitlement: &models.Entitlement{
		ProductRef: "inkmirror_legacy_gold",
		ExpiresAt:  time.Now().Add(time.Hour),
	}}
	svc, _ := newTestSyncService(repo, newFakeRemoteStore(), entitlements)

	resolved, err := svc.SyncEntitlements(context.Background(), "user-1")
	require.NoError(t, err)
	assert.False(t, resolved.IsActive)
	assert.Equal(t, models.StatusFree, resolved.Status)
}

func TestSyncEntitlementsFailureFallsBackToLocal(t *testing.T) {
	repo := newFakeLedgerRepo()
	now := time.Now().UTC()
	require.NoError(t, repo.Create(context.Background(), activeWeeklyLedger("user-1", now)))
	entitlements := &fakeEntitlementClient{err: assert.AnError}
	svc, _ := newTestSyncService(repo, newFakeRemoteStore(), entitlements)

	resolved, err := svc.SyncEntitlements(context.Background(), "user-1")
	require.NoError(t, err, "platform failure never surfaces")
	assert.True(t, resolved.IsActive, "local state retained on failure")
}
