package services

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"inkmirror-ai/internal/domain/repositories"
)

func TestRegisterMintsStableIdentity(t *testing.T) {
	devices := newFakeDeviceRepo()
	ledgers := newFakeLedgerRepo()
	tokens := NewTokenService("test-secret", time.Hour)
	svc := NewIdentityService(devices, ledgers, newFakeRemoteStore(), tokens, testLogger())

	resp, err := svc.Register(context.Background(), "ios")
	require.NoError(t, err)

	_, err = uuid.Parse(resp.UserID)
	assert.NoError(t, err, "user id is a uuid")
	require.NotEmpty(t, resp.Token)

	claims, err := svc.Authenticate(context.Background(), resp.Token)
	require.NoError(t, err)
	assert.Equal(t, resp.UserID, claims.UserID)
}

func TestValidateTokenRejectsForgedToken(t *testing.T) {
	tokens := NewTokenService("secret-a", time.Hour)
	forged := NewTokenService("secret-b", time.Hour)

	forgedToken, err := forged.GenerateToken("user-1")
	require.NoError(t, err)

	_, err = tokens.ValidateToken(forgedToken)
	assert.Error(t, err)
}

func TestAuthenticateRejectsWipedDevice(t *testing.T) {
	devices := newFakeDeviceRepo()
	ledgerRepo := newFakeLedgerRepo()
	tokens := NewTokenService("test-secret", time.Hour)
	svc := NewIdentityService(devices, ledgerRepo, newFakeRemoteStore(), tokens, testLogger())

	resp, err := svc.Register(context.Background(), "ios")
	require.NoError(t, err)
	require.NoError(t, svc.Wipe(context.Background(), resp.UserID))

	// the token is still cryptographically valid, but the identity is gone
	_, err = svc.Authenticate(context.Background(), resp.Token)
	require.Error(t, err)
	assert.ErrorIs(t, err, repositories.ErrDeviceNotFound)
}

func TestWipeRemovesAllRecords(t *testing.T) {
	devices := newFakeDeviceRepo()
	ledgerRepo := newFakeLedgerRepo()
	remote := newFakeRemoteStore()
	tokens := NewTokenService("test-secret", time.Hour)
	svc := NewIdentityService(devices, ledgerRepo, remote, tokens, testLogger())

	resp, err := svc.Register(context.Background(), "android")
	require.NoError(t, err)

	ledgers := newTestLedgerService(ledgerRepo, remote, 5)
	_, err = ledgers.GetLedger(context.Background(), resp.UserID)
	require.NoError(t, err)

	require.NoError(t, svc.Wipe(context.Background(), resp.UserID))

	_, err = ledgerRepo.GetByUserID(context.Background(), resp.UserID)
	assert.ErrorIs(t, err, repositories.ErrLedgerNotFound)
	_, err = devices.Get(context.Background(), resp.UserID)
	assert.ErrorIs(t, err, repositories.ErrDeviceNotFound)
	_, ok := remote.records[resp.UserID]
	assert.False(t, ok)
}

func TestWipeToleratesRemoteFailure(t *testing.T) {
	devices := newFakeDeviceRepo()
	ledgerRepo := newFakeLedgerRepo()
	remote := newFakeRemoteStore()
	tokens := NewTokenService("test-secret", time.Hour)
	svc := NewIdentityService(devices, ledgerRepo, remote, tokens, testLogger())

	resp, err := svc.Register(context.Background(), "ios")
	require.NoError(t, err)

	remote.deleteErr = assert.AnError
	assert.NoError(t, svc.Wipe(context.Background(), resp.UserID))
}
