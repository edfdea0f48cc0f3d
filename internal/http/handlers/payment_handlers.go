package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/shopspring/decimal"

	"parkpay/internal/gateway"
	"parkpay/internal/repository"
	"parkpay/internal/service"
)

// NewPaymentCreateHandler handles POST /payments, starting a wallet top-up.
func NewPaymentCreateHandler(svc *service.PaymentService) http.HandlerFunc {
	type request struct {
		Amount    decimal.Decimal `json:"amount"`
		OrderInfo string          `json:"order_info"`
	}

	return func(w http.ResponseWriter, r *http.Request) {
		userID := requireUserID(w, r)
		if userID == 0 {
			return
		}

		var req request
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		if req.OrderInfo == "" {
			req.OrderInfo = "wallet top-up"
		}

		intent, err := svc.CreatePayment(r.Context(), userID, req.Amount, req.OrderInfo)
		if err != nil {
			switch {
			case errors.Is(err, service.ErrNonPositiveAmount):
				writeError(w, http.StatusBadRequest, "amount must be positive")
			case errors.Is(err, repository.ErrWalletNotFound):
				writeError(w, http.StatusNotFound, "wallet not found")
			case errors.Is(err, service.ErrGatewayRejected):
				writeError(w, http.StatusBadGateway, "payment rejected by gateway")
			default:
				writeError(w, http.StatusBadGateway, "failed to reach payment gateway")
			}
			return
		}

		writeJSON(w, http.StatusCreated, intent)
	}
}

// NewPaymentCallbackHandler handles POST /payments/ipn, the gateway's
// server-to-server notification. A signature mismatch gets an empty 403 so
// a forger learns nothing about the order; everything the gateway sent and
// we accepted is acknowledged with result code 0 to stop redelivery.
func NewPaymentCallbackHandler(svc *service.PaymentService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload gateway.CallbackPayload
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}

		ack, err := svc.HandleCallback(r.Context(), payload)
		if err != nil {
			switch {
			case errors.Is(err, service.ErrSignatureMismatch):
				w.WriteHeader(http.StatusForbidden)
			case errors.Is(err, repository.ErrTransactionNotFound):
				writeError(w, http.StatusNotFound, "unknown order")
			case errors.Is(err, service.ErrInvalidCallbackAmount):
				writeError(w, http.StatusBadRequest, "invalid amount")
			default:
				writeError(w, http.StatusInternalServerError, "failed to process callback")
			}
			return
		}

		writeJSON(w, http.StatusOK, ack)
	}
}

// NewPaymentReturnHandler handles GET /payments/return, the browser redirect
// after the hosted payment page. The redirect is informational; the wallet is
// only ever credited through the IPN.
func NewPaymentReturnHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		writeJSON(w, http.StatusOK, map[string]string{
			"order_id":    q.Get("orderId"),
			"result_code": q.Get("resultCode"),
			"message":     q.Get("message"),
		})
	}
}
