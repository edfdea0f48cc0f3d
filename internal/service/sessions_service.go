package service

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"parkpay/internal/models"
	"parkpay/internal/pricing"
	redisstore "parkpay/internal/redis"
	"parkpay/internal/repository"
	"parkpay/internal/ws"
)

// SessionStore is the persistence contract for parking sessions.
type SessionStore interface {
	Create(ctx context.Context, s *models.Session) error
	GetByID(ctx context.Context, id int64) (*models.Session, error)
	Complete(ctx context.Context, id int64, exitTime time.Time, durationMinutes int, total decimal.Decimal, note string) error
	Cancel(ctx context.Context, id int64) error
	ListByUser(ctx context.Context, userID int64, limit int) ([]models.Session, error)
	ListActive(ctx context.Context, limit int) ([]models.Session, error)
}

// Directory serves lot and vehicle existence checks.
type Directory interface {
	GetLot(ctx context.Context, id int64) (*models.ParkingLot, error)
	GetVehicle(ctx context.Context, id int64) (*models.Vehicle, error)
}

// RuleStore resolves effective pricing rules.
type RuleStore interface {
	Resolve(ctx context.Context, lotID int64, vehicleType string, at time.Time) (*models.PricingRule, error)
	GetByID(ctx context.Context, id int64) (*models.PricingRule, error)
}

// FeeCollector applies the exit fee to the driver's wallet.
type FeeCollector interface {
	Apply(ctx context.Context, userID int64, txType string, amount decimal.Decimal, reference, description string) (*repository.ApplyResult, error)
}

// EventPublisher pushes gate events to live subscribers.
type EventPublisher interface {
	Publish(event ws.Event)
}

// SessionService owns the entry/exit state machine for parking stays.
type SessionService struct {
	sessions    SessionStore
	directory   Directory
	rules       RuleStore
	charger     FeeCollector
	activeStore *redisstore.Store
	events      EventPublisher
	logger      *zap.Logger
}

// NewSessionService builds service. The active-session cache and event
// publisher are optional.
func NewSessionService(
	sessions SessionStore,
	directory Directory,
	rules RuleStore,
	charger FeeCollector,
	activeStore *redisstore.Store,
	events EventPublisher,
	logger *zap.Logger,
) *SessionService {
	return &SessionService{
		sessions:    sessions,
		directory:   directory,
		rules:       rules,
		charger:     charger,
		activeStore: activeStore,
		events:      events,
		logger:      logger,
	}
}

// OpenSessionInput is the gate entry event.
type OpenSessionInput struct {
	LotID     int64
	VehicleID int64
	EntryTime time.Time
}

// CloseSessionInput is the gate exit event.
type CloseSessionInput struct {
	SessionID int64
	ExitTime  time.Time
	Note      string
}

// CloseResult carries the completed session and the charge that settled it.
type CloseResult struct {
	Session     *models.Session
	Charge      decimal.Decimal
	Transaction *models.WalletTransaction
}

// Open starts an ACTIVE session at vehicle entry. When the effective rule
// carries an initial charge, that amount is pre-authorized as the running
// total; the wallet is not touched until exit.
func (s *SessionService) Open(ctx context.Context, input OpenSessionInput) (*models.Session, error) {
	if input.EntryTime.IsZero() {
		input.EntryTime = time.Now().UTC()
	}

	lot, err := s.directory.GetLot(ctx, input.LotID)
	if err != nil {
		return nil, err
	}
	vehicle, err := s.directory.GetVehicle(ctx, input.VehicleID)
	if err != nil {
		return nil, err
	}
	rule, err := s.rules.Resolve(ctx, lot.ID, vehicle.VehicleType, input.EntryTime)
	if err != nil {
		return nil, err
	}
	if !rule.EffectiveAt(input.EntryTime) {
		return nil, pricing.ErrRuleNotEffective
	}

	session := &models.Session{
		UserID:        vehicle.UserID,
		VehicleID:     vehicle.ID,
		LotID:         lot.ID,
		PricingRuleID: rule.ID,
		Status:        models.SessionStatusActive,
		EntryTime:     input.EntryTime.UTC(),
		TotalAmount:   rule.InitialCharge,
	}
	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, err
	}

	if s.activeStore != nil {
		cacheErr := s.activeStore.Save(ctx, redisstore.ActiveSession{
			SessionID: session.ID,
			UserID:    session.UserID,
			VehicleID: session.VehicleID,
			LotID:     session.LotID,
			Plate:     vehicle.Plate,
			EntryTime: session.EntryTime,
		})
		if cacheErr != nil {
			s.logger.Warn("failed to cache active session", zap.Error(cacheErr))
		}
	}
	s.publish(ws.EventSessionOpened, session, decimal.Zero)

	s.logger.Info("session opened",
		zap.Int64("session_id", session.ID),
		zap.Int64("lot_id", lot.ID),
		zap.String("plate", vehicle.Plate),
	)
	return session, nil
}

// Close completes an ACTIVE session: computes the final fee, marks the
// session COMPLETED and then deducts the fee from the driver's wallet as a
// separate call. A failed deduction does not reopen the session; the error is
// surfaced alongside the completed session for compensating action.
func (s *SessionService) Close(ctx context.Context, input CloseSessionInput) (*CloseResult, error) {
	session, err := s.sessions.GetByID(ctx, input.SessionID)
	if err != nil {
		return nil, err
	}
	if session.Status != models.SessionStatusActive {
		return nil, repository.ErrSessionNotActive
	}

	if input.ExitTime.IsZero() {
		input.ExitTime = time.Now().UTC()
	}
	exitTime := input.ExitTime.UTC()

	rule, err := s.rules.GetByID(ctx, session.PricingRuleID)
	if err != nil {
		return nil, err
	}

	// The rule was effective when the session opened; later expiry must not
	// strand a car at the gate, so effectiveness is judged at entry.
	charge, err := pricing.Quote(session.EntryTime, exitTime, rule, session.EntryTime)
	if err != nil {
		return nil, err
	}
	duration := pricing.Minutes(session.EntryTime, exitTime)

	if err := s.sessions.Complete(ctx, session.ID, exitTime, duration, charge, input.Note); err != nil {
		return nil, err
	}
	session.Status = models.SessionStatusCompleted
	session.ExitTime = &exitTime
	session.DurationMinutes = &duration
	session.TotalAmount = charge
	if input.Note != "" {
		session.Note = input.Note
	}

	if s.activeStore != nil {
		if err := s.activeStore.Delete(ctx, session.ID); err != nil {
			s.logger.Warn("failed to drop active session cache", zap.Error(err))
		}
	}
	s.publish(ws.EventSessionCompleted, session, charge)

	result := &CloseResult{Session: session, Charge: charge}
	if charge.IsPositive() {
		applied, err := s.charger.Apply(ctx, session.UserID,
			models.TransactionTypeDeduction, charge,
			sessionReference(session.ID), "parking fee")
		if err != nil {
			s.logger.Warn("exit fee deduction failed",
				zap.Int64("session_id", session.ID),
				zap.Int64("user_id", session.UserID),
				zap.String("charge", charge.String()),
				zap.Error(err),
			)
			return result, fmt.Errorf("session %d completed, fee deduction failed: %w", session.ID, err)
		}
		result.Transaction = applied.Transaction
	}

	s.logger.Info("session completed",
		zap.Int64("session_id", session.ID),
		zap.Int("duration_minutes", duration),
		zap.String("charge", charge.String()),
	)
	return result, nil
}

// Cancel voids an ACTIVE session without charging.
func (s *SessionService) Cancel(ctx context.Context, sessionID int64) error {
	session, err := s.sessions.GetByID(ctx, sessionID)
	if err != nil {
		return err
	}
	if err := s.sessions.Cancel(ctx, sessionID); err != nil {
		return err
	}

	if s.activeStore != nil {
		if err := s.activeStore.Delete(ctx, sessionID); err != nil {
			s.logger.Warn("failed to drop active session cache", zap.Error(err))
		}
	}
	s.publish(ws.EventSessionCancelled, session, decimal.Zero)

	s.logger.Info("session cancelled", zap.Int64("session_id", sessionID))
	return nil
}

// SessionsByUser returns the user's session history.
func (s *SessionService) SessionsByUser(ctx context.Context, userID int64, limit int) ([]models.Session, error) {
	return s.sessions.ListByUser(ctx, userID, limit)
}

// ActiveSessions returns currently running sessions.
func (s *SessionService) ActiveSessions(ctx context.Context, limit int) ([]models.Session, error) {
	return s.sessions.ListActive(ctx, limit)
}

func (s *SessionService) publish(eventType string, session *models.Session, amount decimal.Decimal) {
	if s.events == nil {
		return
	}
	event := ws.Event{
		Type:       eventType,
		SessionID:  session.ID,
		LotID:      session.LotID,
		VehicleID:  session.VehicleID,
		OccurredAt: time.Now().UTC(),
	}
	if amount.IsPositive() {
		event.Amount = amount.String()
	}
	s.events.Publish(event)
}

func sessionReference(id int64) string {
	return "session:" + strconv.FormatInt(id, 10)
}
