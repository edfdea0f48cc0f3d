package service

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"parkpay/internal/models"
	"parkpay/internal/repository"
	"parkpay/internal/ws"
)

type sessionFixture struct {
	svc      *SessionService
	sessions *fakeSessionStore
	wallets  *fakeWalletStore
	rule     *models.PricingRule
	events   *recordingPublisher
	entry    time.Time
}

func newSessionFixture(t *testing.T) *sessionFixture {
	t.Helper()

	entry := time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)
	rule := &models.PricingRule{
		ID:                     10,
		LotID:                  1,
		VehicleType:            "CAR",
		BaseRate:               decimal.NewFromInt(5000),
		InitialCharge:          decimal.NewFromInt(10000),
		InitialDurationMinutes: 30,
		FreeMinutes:            15,
		GracePeriodMinutes:     10,
		ValidFrom:              entry.Add(-24 * time.Hour),
		Scope:                  models.RuleScopeLotWide,
		IsActive:               true,
	}

	sessions := newFakeSessionStore()
	wallets := newFakeWalletStore()
	wallets.seed(100, decimal.NewFromInt(100000))
	events := &recordingPublisher{}

	directory := &fakeDirectory{
		lots: map[int64]*models.ParkingLot{
			1: {ID: 1, Name: "Central", IsActive: true},
		},
		vehicles: map[int64]*models.Vehicle{
			5: {ID: 5, UserID: 100, Plate: "51A-123.45", VehicleType: "CAR", IsActive: true},
		},
	}

	svc := NewSessionService(
		sessions, directory, &fakeRuleStore{rule: rule},
		newWalletService(wallets), nil, events, zap.NewNop(),
	)
	return &sessionFixture{
		svc:      svc,
		sessions: sessions,
		wallets:  wallets,
		rule:     rule,
		events:   events,
		entry:    entry,
	}
}

func TestSessionService_Open(t *testing.T) {
	ctx := context.Background()

	t.Run("opens active session with pre-authorized total", func(t *testing.T) {
		f := newSessionFixture(t)

		session, err := f.svc.Open(ctx, OpenSessionInput{LotID: 1, VehicleID: 5, EntryTime: f.entry})
		require.NoError(t, err)
		assert.Equal(t, models.SessionStatusActive, session.Status)
		assert.Equal(t, int64(100), session.UserID)
		assert.True(t, session.TotalAmount.Equal(f.rule.InitialCharge))
		assert.Equal(t, []string{ws.EventSessionOpened}, f.events.types())
	})

	t.Run("unknown vehicle", func(t *testing.T) {
		f := newSessionFixture(t)

		_, err := f.svc.Open(ctx, OpenSessionInput{LotID: 1, VehicleID: 99, EntryTime: f.entry})
		assert.ErrorIs(t, err, repository.ErrVehicleNotFound)
	})

	t.Run("unknown lot", func(t *testing.T) {
		f := newSessionFixture(t)

		_, err := f.svc.Open(ctx, OpenSessionInput{LotID: 42, VehicleID: 5, EntryTime: f.entry})
		assert.ErrorIs(t, err, repository.ErrLotNotFound)
	})
}

func TestSessionService_Close(t *testing.T) {
	ctx := context.Background()

	t.Run("charges the quoted fee on exit", func(t *testing.T) {
		f := newSessionFixture(t)
		session, err := f.svc.Open(ctx, OpenSessionInput{LotID: 1, VehicleID: 5, EntryTime: f.entry})
		require.NoError(t, err)

		// 40 minutes: initial charge 10000 covers 30, one 10-minute block at 5000.
		result, err := f.svc.Close(ctx, CloseSessionInput{
			SessionID: session.ID,
			ExitTime:  f.entry.Add(40 * time.Minute),
		})
		require.NoError(t, err)
		assert.Equal(t, models.SessionStatusCompleted, result.Session.Status)
		assert.True(t, result.Charge.Equal(decimal.NewFromInt(15000)), "charge %s", result.Charge)
		require.NotNil(t, result.Session.DurationMinutes)
		assert.Equal(t, 40, *result.Session.DurationMinutes)
		require.NotNil(t, result.Transaction)
		assert.Equal(t, models.TransactionTypeDeduction, result.Transaction.Type)

		wallet, err := f.wallets.GetByUserID(ctx, 100)
		require.NoError(t, err)
		assert.True(t, wallet.Balance.Equal(decimal.NewFromInt(85000)))
	})

	t.Run("free window exits without a charge", func(t *testing.T) {
		f := newSessionFixture(t)
		session, err := f.svc.Open(ctx, OpenSessionInput{LotID: 1, VehicleID: 5, EntryTime: f.entry})
		require.NoError(t, err)

		result, err := f.svc.Close(ctx, CloseSessionInput{
			SessionID: session.ID,
			ExitTime:  f.entry.Add(12 * time.Minute),
		})
		require.NoError(t, err)
		assert.True(t, result.Charge.IsZero())
		assert.Nil(t, result.Transaction)

		wallet, err := f.wallets.GetByUserID(ctx, 100)
		require.NoError(t, err)
		assert.True(t, wallet.Balance.Equal(decimal.NewFromInt(100000)))
	})

	t.Run("double close is rejected", func(t *testing.T) {
		f := newSessionFixture(t)
		session, err := f.svc.Open(ctx, OpenSessionInput{LotID: 1, VehicleID: 5, EntryTime: f.entry})
		require.NoError(t, err)

		_, err = f.svc.Close(ctx, CloseSessionInput{SessionID: session.ID, ExitTime: f.entry.Add(40 * time.Minute)})
		require.NoError(t, err)

		_, err = f.svc.Close(ctx, CloseSessionInput{SessionID: session.ID, ExitTime: f.entry.Add(50 * time.Minute)})
		assert.ErrorIs(t, err, repository.ErrSessionNotActive)

		// Only one deduction landed.
		wallet, err := f.wallets.GetByUserID(ctx, 100)
		require.NoError(t, err)
		assert.True(t, wallet.Balance.Equal(decimal.NewFromInt(85000)))
	})

	t.Run("failed deduction keeps the session completed", func(t *testing.T) {
		f := newSessionFixture(t)
		session, err := f.svc.Open(ctx, OpenSessionInput{LotID: 1, VehicleID: 5, EntryTime: f.entry})
		require.NoError(t, err)

		// Drain the wallet so the exit fee cannot be covered.
		_, err = newWalletService(f.wallets).Apply(ctx, 100,
			models.TransactionTypeDeduction, decimal.NewFromInt(100000), "", "drain")
		require.NoError(t, err)

		result, err := f.svc.Close(ctx, CloseSessionInput{
			SessionID: session.ID,
			ExitTime:  f.entry.Add(40 * time.Minute),
		})
		require.ErrorIs(t, err, repository.ErrInsufficientBalance)
		require.NotNil(t, result)
		assert.Equal(t, models.SessionStatusCompleted, result.Session.Status)

		stored, err := f.sessions.GetByID(ctx, session.ID)
		require.NoError(t, err)
		assert.Equal(t, models.SessionStatusCompleted, stored.Status)
	})

	t.Run("rule expiry after entry does not block the exit", func(t *testing.T) {
		f := newSessionFixture(t)
		until := f.entry.Add(20 * time.Minute)
		f.rule.ValidUntil = &until

		session, err := f.svc.Open(ctx, OpenSessionInput{LotID: 1, VehicleID: 5, EntryTime: f.entry})
		require.NoError(t, err)

		result, err := f.svc.Close(ctx, CloseSessionInput{
			SessionID: session.ID,
			ExitTime:  f.entry.Add(40 * time.Minute),
		})
		require.NoError(t, err)
		assert.True(t, result.Charge.Equal(decimal.NewFromInt(15000)))
	})
}

func TestSessionService_Cancel(t *testing.T) {
	ctx := context.Background()
	f := newSessionFixture(t)

	session, err := f.svc.Open(ctx, OpenSessionInput{LotID: 1, VehicleID: 5, EntryTime: f.entry})
	require.NoError(t, err)

	require.NoError(t, f.svc.Cancel(ctx, session.ID))

	stored, err := f.sessions.GetByID(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SessionStatusDeleted, stored.Status)

	// Cancelling charges nothing.
	wallet, err := f.wallets.GetByUserID(ctx, 100)
	require.NoError(t, err)
	assert.True(t, wallet.Balance.Equal(decimal.NewFromInt(100000)))

	assert.ErrorIs(t, f.svc.Cancel(ctx, session.ID), repository.ErrSessionNotActive)
}
