package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"parkpay/internal/repository"
	"parkpay/internal/service"
)

// NewWalletCreateHandler handles POST /wallets.
func NewWalletCreateHandler(svc *service.WalletService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := requireUserID(w, r)
		if userID == 0 {
			return
		}

		wallet, err := svc.CreateWallet(r.Context(), userID)
		if err != nil {
			if errors.Is(err, repository.ErrWalletAlreadyExists) {
				writeError(w, http.StatusConflict, "wallet already exists")
				return
			}
			writeError(w, http.StatusInternalServerError, "failed to create wallet")
			return
		}

		writeJSON(w, http.StatusCreated, wallet)
	}
}

// NewWalletMeHandler returns GET /wallets/me handler.
func NewWalletMeHandler(svc *service.WalletService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := requireUserID(w, r)
		if userID == 0 {
			return
		}

		wallet, err := svc.GetBalance(r.Context(), userID)
		if err != nil {
			if errors.Is(err, repository.ErrWalletNotFound) {
				writeError(w, http.StatusNotFound, "wallet not found")
				return
			}
			writeError(w, http.StatusInternalServerError, "failed to fetch wallet")
			return
		}

		writeJSON(w, http.StatusOK, wallet)
	}
}

// NewWalletTransactionsHandler returns GET /wallets/me/transactions handler.
func NewWalletTransactionsHandler(svc *service.WalletService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := requireUserID(w, r)
		if userID == 0 {
			return
		}

		limit := 50
		if raw := r.URL.Query().Get("limit"); raw != "" {
			parsed, err := strconv.Atoi(raw)
			if err != nil || parsed <= 0 || parsed > 200 {
				writeError(w, http.StatusBadRequest, "invalid limit")
				return
			}
			limit = parsed
		}

		entries, err := svc.Transactions(r.Context(), userID, limit)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "failed to fetch transactions")
			return
		}

		writeJSON(w, http.StatusOK, map[string]interface{}{
			"transactions": entries,
		})
	}
}
