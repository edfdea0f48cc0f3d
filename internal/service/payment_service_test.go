package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"parkpay/internal/gateway"
	"parkpay/internal/models"
	"parkpay/internal/repository"
)

// fakeGateway answers CreatePayment with a canned response or error and
// records the requests it saw.
type fakeGateway struct {
	resp     *gateway.CreateResponse
	err      error
	requests []gateway.CreateRequest
	onCall   func()
}

func (f *fakeGateway) CreatePayment(ctx context.Context, req gateway.CreateRequest) (*gateway.CreateResponse, error) {
	f.requests = append(f.requests, req)
	if f.onCall != nil {
		f.onCall()
	}
	if f.err != nil {
		return nil, f.err
	}
	resp := *f.resp
	resp.RequestID = req.RequestID
	resp.OrderID = req.OrderID
	return &resp, nil
}

func testSigner() *gateway.Signer {
	return gateway.NewSigner(gateway.Config{
		PartnerCode: "PARKPAY",
		AccessKey:   "access-key",
		SecretKey:   "secret-key",
		Endpoint:    "https://gateway.example",
		RedirectURL: "https://parkpay.example/payments/return",
		IPNURL:      "https://parkpay.example/payments/ipn",
	})
}

func newPaymentFixture(gw *fakeGateway) (*PaymentService, *fakeWalletStore) {
	store := newFakeWalletStore()
	store.seed(1, decimal.Zero)
	svc := NewPaymentService(store, gw, testSigner(), 5*time.Second, zap.NewNop())
	return svc, store
}

func signedCallback(t *testing.T, orderID, requestID, amount string, resultCode int) gateway.CallbackPayload {
	t.Helper()
	p := gateway.CallbackPayload{
		PartnerCode:  "PARKPAY",
		OrderID:      orderID,
		RequestID:    requestID,
		Amount:       amount,
		OrderInfo:    "wallet top-up",
		TransID:      "ext-12345",
		ResultCode:   resultCode,
		Message:      "Successful.",
		PayType:      "qr",
		ResponseTime: "1748764800000",
	}
	p.Signature = testSigner().SignCallback(p)
	return p
}

func TestPaymentService_CreatePayment(t *testing.T) {
	ctx := context.Background()

	t.Run("records pending entry before calling the gateway", func(t *testing.T) {
		gw := &fakeGateway{resp: &gateway.CreateResponse{ResultCode: 0, PayURL: "https://pay.example/x"}}
		svc, store := newPaymentFixture(gw)

		var pendingAtCall int
		gw.onCall = func() {
			for _, e := range store.ledger {
				if e.Status == models.TransactionStatusPending {
					pendingAtCall++
				}
			}
		}

		intent, err := svc.CreatePayment(ctx, 1, decimal.NewFromInt(50000), "wallet top-up")
		require.NoError(t, err)
		assert.Equal(t, 1, pendingAtCall, "ledger entry must exist before the gateway call")
		assert.Equal(t, "https://pay.example/x", intent.PayURL)
		assert.NotEmpty(t, intent.OrderID)
		require.Len(t, gw.requests, 1)
		assert.Equal(t, intent.OrderID, gw.requests[0].OrderID)
		assert.NotEmpty(t, gw.requests[0].Signature)
	})

	t.Run("transport failure leaves the entry pending", func(t *testing.T) {
		gw := &fakeGateway{err: errors.New("connection refused")}
		svc, store := newPaymentFixture(gw)

		_, err := svc.CreatePayment(ctx, 1, decimal.NewFromInt(50000), "wallet top-up")
		require.Error(t, err)

		entries, listErr := store.ListTransactions(ctx, 1, 10)
		require.NoError(t, listErr)
		require.Len(t, entries, 1)
		assert.Equal(t, models.TransactionStatusPending, entries[0].Status)
	})

	t.Run("synchronous rejection marks the entry failed", func(t *testing.T) {
		gw := &fakeGateway{resp: &gateway.CreateResponse{ResultCode: 41, Message: "order declined"}}
		svc, store := newPaymentFixture(gw)

		_, err := svc.CreatePayment(ctx, 1, decimal.NewFromInt(50000), "wallet top-up")
		require.ErrorIs(t, err, ErrGatewayRejected)

		entries, listErr := store.ListTransactions(ctx, 1, 10)
		require.NoError(t, listErr)
		require.Len(t, entries, 1)
		assert.Equal(t, models.TransactionStatusFailed, entries[0].Status)
	})

	t.Run("rejects non-positive amount", func(t *testing.T) {
		gw := &fakeGateway{resp: &gateway.CreateResponse{}}
		svc, _ := newPaymentFixture(gw)

		_, err := svc.CreatePayment(ctx, 1, decimal.Zero, "wallet top-up")
		assert.ErrorIs(t, err, ErrNonPositiveAmount)
		assert.Empty(t, gw.requests)
	})

	t.Run("unknown wallet", func(t *testing.T) {
		gw := &fakeGateway{resp: &gateway.CreateResponse{}}
		svc, _ := newPaymentFixture(gw)

		_, err := svc.CreatePayment(ctx, 999, decimal.NewFromInt(100), "wallet top-up")
		assert.ErrorIs(t, err, repository.ErrWalletNotFound)
	})
}

func TestPaymentService_HandleCallback(t *testing.T) {
	ctx := context.Background()

	setup := func(t *testing.T) (*PaymentService, *fakeWalletStore, *PaymentIntent) {
		gw := &fakeGateway{resp: &gateway.CreateResponse{ResultCode: 0, PayURL: "https://pay.example/x"}}
		svc, store := newPaymentFixture(gw)
		intent, err := svc.CreatePayment(ctx, 1, decimal.NewFromInt(50000), "wallet top-up")
		require.NoError(t, err)
		return svc, store, intent
	}

	t.Run("success credits the wallet once", func(t *testing.T) {
		svc, store, intent := setup(t)
		payload := signedCallback(t, intent.OrderID, intent.RequestID, "50000", 0)

		ack, err := svc.HandleCallback(ctx, payload)
		require.NoError(t, err)
		assert.Equal(t, 0, ack.ResultCode)
		assert.Equal(t, intent.OrderID, ack.OrderID)

		wallet, err := store.GetByUserID(ctx, 1)
		require.NoError(t, err)
		assert.True(t, wallet.Balance.Equal(decimal.NewFromInt(50000)))

		// A replayed delivery is acknowledged without a second credit.
		ack, err = svc.HandleCallback(ctx, payload)
		require.NoError(t, err)
		assert.Equal(t, 0, ack.ResultCode)

		wallet, err = store.GetByUserID(ctx, 1)
		require.NoError(t, err)
		assert.True(t, wallet.Balance.Equal(decimal.NewFromInt(50000)), "replay must not credit again")
	})

	t.Run("failure callback marks the entry failed without crediting", func(t *testing.T) {
		svc, store, intent := setup(t)
		payload := signedCallback(t, intent.OrderID, intent.RequestID, "50000", 1006)

		_, err := svc.HandleCallback(ctx, payload)
		require.NoError(t, err)

		wallet, err := store.GetByUserID(ctx, 1)
		require.NoError(t, err)
		assert.True(t, wallet.Balance.IsZero())

		entries, err := store.ListTransactions(ctx, 1, 10)
		require.NoError(t, err)
		require.Len(t, entries, 1)
		assert.Equal(t, models.TransactionStatusFailed, entries[0].Status)
	})

	t.Run("tampered payload is rejected with no state change", func(t *testing.T) {
		svc, store, intent := setup(t)
		payload := signedCallback(t, intent.OrderID, intent.RequestID, "50000", 0)
		payload.Amount = "999999"

		_, err := svc.HandleCallback(ctx, payload)
		assert.ErrorIs(t, err, ErrSignatureMismatch)

		wallet, err := store.GetByUserID(ctx, 1)
		require.NoError(t, err)
		assert.True(t, wallet.Balance.IsZero())

		entries, err := store.ListTransactions(ctx, 1, 10)
		require.NoError(t, err)
		require.Len(t, entries, 1)
		assert.Equal(t, models.TransactionStatusPending, entries[0].Status)
	})

	t.Run("unknown order", func(t *testing.T) {
		svc, _, _ := setup(t)
		payload := signedCallback(t, "no-such-order", "req", "100", 0)

		_, err := svc.HandleCallback(ctx, payload)
		assert.ErrorIs(t, err, repository.ErrTransactionNotFound)
	})
}
