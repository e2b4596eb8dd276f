package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"inkmirror-ai/internal/domain/models"
	"inkmirror-ai/internal/domain/repositories"
)

// fakeLedgerRepo mirrors the conditional-decrement semantics of the SQL
// implementation against an in-memory map. Safe for concurrent use.
type fakeLedgerRepo struct {
	mu      sync.Mutex
	ledgers map[string]*models.SubscriptionLedger
	failAll bool

	// beforeUpdate, when set, runs once before the first Update lands;
	// lets a test hold a full-row writer mid-flight.
	beforeUpdate func()
	updateOnce   sync.Once
}

func newFakeLedgerRepo() *fakeLedgerRepo {
	return &fakeLedgerRepo{ledgers: make(map[string]*models.SubscriptionLedger)}
}

func (f *fakeLedgerRepo) GetByUserID(_ context.Context, userID string) (*models.SubscriptionLedger, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAll {
		return nil, errors.New("store unavailable")
	}
	ledger, ok := f.ledgers[userID]
	if !ok {
		return nil, repositories.ErrLedgerNotFound
	}
	return ledger.Clone(), nil
}

func (f *fakeLedgerRepo) Create(_ context.Context, ledger *models.SubscriptionLedger) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAll {
		return errors.New("store unavailable")
	}
	f.ledgers[ledger.UserID] = ledger.Clone()
	return nil
}

func (f *fakeLedgerRepo) Update(_ context.Context, ledger *models.SubscriptionLedger) error {
	if f.beforeUpdate != nil {
		f.updateOnce.Do(f.beforeUpdate)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAll {
		return errors.New("store unavailable")
	}
	if _, ok := f.ledgers[ledger.UserID]; !ok {
		return repositories.ErrLedgerNotFound
	}
	f.ledgers[ledger.UserID] = ledger.Clone()
	return nil
}

func (f *fakeLedgerRepo) ConsumeCredit(_ context.Context, userID string) (*models.SubscriptionLedger, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAll {
		return nil, errors.New("store unavailable")
	}
	ledger, ok := f.ledgers[userID]
	if !ok {
		return nil, repositories.ErrLedgerNotFound
	}
	if ledger.FreeCredits == 0 && ledger.SubscriptionCredits == 0 {
		return nil, repositories.ErrNoCredits
	}
	if ledger.FreeCredits > 0 {
		ledger.FreeCredits--
	} else {
		ledger.SubscriptionCredits--
	}
	ledger.UpdatedAt = time.Now().UTC()
	return ledger.Clone(), nil
}

func (f *fakeLedgerRepo) Delete(_ context.Context, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.ledgers, userID)
	return nil
}

type fakeRemoteStore struct {
	mu        sync.Mutex
	records   map[string]*models.SubscriptionLedger
	fetchErr  error
	upsertErr error
	deleteErr error
	upserts   int
}

func newFakeRemoteStore() *fakeRemoteStore {
	return &fakeRemoteStore{records: make(map[string]*models.SubscriptionLedger)}
}

func (f *fakeRemoteStore) Fetch(_ context.Context, userID string) (*models.SubscriptionLedger, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	ledger, ok := f.records[userID]
	if !ok {
		return nil, nil
	}
	return ledger.Clone(), nil
}

func (f *fakeRemoteStore) Upsert(_ context.Context, ledger *models.SubscriptionLedger) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.upsertErr != nil {
		return f.upsertErr
	}
	f.upserts++
	f.records[ledger.UserID] = ledger.Clone()
	return nil
}

func (f *fakeRemoteStore) Delete(_ context.Context, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deleteErr != nil {
		return f.deleteErr
	}
	delete(f.records, userID)
	return nil
}

type fakeEntitlementClient struct {
	entitlement *models.Entitlement
	err         error
}

func (f *fakeEntitlementClient) ActiveEntitlement(_ context.Context, _ string) (*models.Entitlement, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.entitlement, nil
}

type fakeImageClient struct {
	url   string
	err   error
	calls int
}

func (f *fakeImageClient) Generate(_ context.Context, _ *GenerationRequest) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return f.url, nil
}

type fakeDeviceRepo struct {
	devices map[string]*models.Device
}

func newFakeDeviceRepo() *fakeDeviceRepo {
	return &fakeDeviceRepo{devices: make(map[string]*models.Device)}
}

func (f *fakeDeviceRepo) Get(_ context.Context, userID string) (*models.Device, error) {
	device, ok := f.devices[userID]
	if !ok {
		return nil, repositories.ErrDeviceNotFound
	}
	return device, nil
}

func (f *fakeDeviceRepo) Create(_ context.Context, device *models.Device) error {
	f.devices[device.UserID] = device
	return nil
}

func (f *fakeDeviceRepo) Delete(_ context.Context, userID string) error {
	if _, ok := f.devices[userID]; !ok {
		return repositories.ErrDeviceNotFound
	}
	delete(f.devices, userID)
	return nil
}
