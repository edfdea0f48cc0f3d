package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"parkpay/internal/gateway"
	"parkpay/internal/models"
	"parkpay/internal/repository"
)

var (
	// ErrSignatureMismatch rejects a callback whose signature does not verify.
	ErrSignatureMismatch = errors.New("payment: callback signature mismatch")
	// ErrGatewayRejected indicates the gateway synchronously refused the payment.
	ErrGatewayRejected = errors.New("payment: rejected by gateway")
	// ErrInvalidCallbackAmount rejects a callback with an unparseable amount.
	ErrInvalidCallbackAmount = errors.New("payment: invalid callback amount")
)

// PaymentStore is the ledger contract for gateway-bound flows.
type PaymentStore interface {
	GetByUserID(ctx context.Context, userID int64) (*models.Wallet, error)
	CreatePending(ctx context.Context, entry *models.WalletTransaction) error
	MarkFailed(ctx context.Context, reference, rawResponse string) error
	Reconcile(ctx context.Context, orderID string, success bool, amount decimal.Decimal, externalID, rawPayload string) (*repository.ReconcileOutcome, error)
}

// GatewayAPI is the outbound payment gateway contract.
type GatewayAPI interface {
	CreatePayment(ctx context.Context, req gateway.CreateRequest) (*gateway.CreateResponse, error)
}

// PaymentIntent is the redirect info returned to the top-up initiator.
type PaymentIntent struct {
	OrderID   string          `json:"order_id"`
	RequestID string          `json:"request_id"`
	Amount    decimal.Decimal `json:"amount"`
	PayURL    string          `json:"pay_url"`
	Deeplink  string          `json:"deeplink,omitempty"`
}

// PaymentService builds signed top-up requests and reconciles the gateway's
// asynchronous callbacks against the wallet ledger.
type PaymentService struct {
	store   PaymentStore
	client  GatewayAPI
	signer  *gateway.Signer
	timeout time.Duration
	logger  *zap.Logger
}

// NewPaymentService builds service.
func NewPaymentService(store PaymentStore, client GatewayAPI, signer *gateway.Signer, timeout time.Duration, logger *zap.Logger) *PaymentService {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &PaymentService{
		store:   store,
		client:  client,
		signer:  signer,
		timeout: timeout,
		logger:  logger,
	}
}

// CreatePayment starts a wallet top-up. The PENDING ledger entry keyed by the
// order id is written before the gateway is called, so a crash mid-call still
// leaves an auditable record for the callback (or an expiry sweep) to resolve.
func (s *PaymentService) CreatePayment(ctx context.Context, userID int64, amount decimal.Decimal, orderInfo string) (*PaymentIntent, error) {
	if !amount.IsPositive() {
		return nil, ErrNonPositiveAmount
	}

	wallet, err := s.store.GetByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}

	requestID := uuid.NewString()
	orderID := uuid.NewString()
	req := s.signer.NewCreateRequest(requestID, orderID, amount.String(), orderInfo, "")

	entry := &models.WalletTransaction{
		UserID:      userID,
		WalletID:    wallet.ID,
		Reference:   orderID,
		Type:        models.TransactionTypeTopUp,
		Amount:      amount,
		Fee:         decimal.Zero,
		Description: orderInfo,
	}
	if err := s.store.CreatePending(ctx, entry); err != nil {
		return nil, err
	}

	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	resp, err := s.client.CreatePayment(callCtx, req)
	if err != nil {
		// Timeout or transport failure: the entry stays PENDING and is
		// settled by the asynchronous callback or an out-of-band sweep.
		s.logger.Warn("gateway call failed, ledger entry left pending",
			zap.String("order_id", orderID),
			zap.Error(err),
		)
		return nil, err
	}

	if resp.ResultCode != 0 {
		raw, _ := json.Marshal(resp)
		if err := s.store.MarkFailed(ctx, orderID, string(raw)); err != nil {
			s.logger.Error("failed to mark rejected payment",
				zap.String("order_id", orderID),
				zap.Error(err),
			)
		}
		return nil, fmt.Errorf("%w: %s (code %d)", ErrGatewayRejected, resp.Message, resp.ResultCode)
	}

	s.logger.Info("payment created",
		zap.Int64("user_id", userID),
		zap.String("order_id", orderID),
		zap.String("amount", amount.String()),
	)
	return &PaymentIntent{
		OrderID:   orderID,
		RequestID: requestID,
		Amount:    amount,
		PayURL:    resp.PayURL,
		Deeplink:  resp.Deeplink,
	}, nil
}

// HandleCallback verifies and idempotently applies the gateway's final result.
// Replays of an already-settled order are acknowledged without re-applying
// any balance change.
func (s *PaymentService) HandleCallback(ctx context.Context, payload gateway.CallbackPayload) (*gateway.CallbackAck, error) {
	if !s.signer.VerifyCallback(payload) {
		s.logger.Warn("callback signature mismatch",
			zap.String("order_id", payload.OrderID),
			zap.String("request_id", payload.RequestID),
		)
		return nil, ErrSignatureMismatch
	}

	amount, err := decimal.NewFromString(payload.Amount)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidCallbackAmount, payload.Amount)
	}

	raw, _ := json.Marshal(payload)
	outcome, err := s.store.Reconcile(ctx, payload.OrderID,
		payload.ResultCode == 0, amount, payload.TransID, string(raw))
	if err != nil {
		return nil, err
	}

	if outcome.Replayed {
		s.logger.Info("callback replay acknowledged",
			zap.String("order_id", payload.OrderID),
			zap.String("status", outcome.Status),
		)
	} else {
		s.logger.Info("callback reconciled",
			zap.String("order_id", payload.OrderID),
			zap.String("status", outcome.Status),
			zap.Int("result_code", payload.ResultCode),
		)
	}

	return &gateway.CallbackAck{
		PartnerCode: payload.PartnerCode,
		RequestID:   payload.RequestID,
		OrderID:     payload.OrderID,
		ResultCode:  0,
		Message:     "ok",
	}, nil
}
