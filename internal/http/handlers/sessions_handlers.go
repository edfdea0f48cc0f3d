package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"parkpay/internal/repository"
	"parkpay/internal/service"
)

// NewSessionEntryHandler handles POST /sessions/entry, the gate-in event.
func NewSessionEntryHandler(svc *service.SessionService) http.HandlerFunc {
	type request struct {
		LotID     int64      `json:"lot_id"`
		VehicleID int64      `json:"vehicle_id"`
		EntryTime *time.Time `json:"entry_time,omitempty"`
	}

	return func(w http.ResponseWriter, r *http.Request) {
		var req request
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		if req.LotID <= 0 || req.VehicleID <= 0 {
			writeError(w, http.StatusBadRequest, "lot_id and vehicle_id are required")
			return
		}

		input := service.OpenSessionInput{LotID: req.LotID, VehicleID: req.VehicleID}
		if req.EntryTime != nil {
			input.EntryTime = *req.EntryTime
		}

		session, err := svc.Open(r.Context(), input)
		if err != nil {
			switch {
			case errors.Is(err, repository.ErrLotNotFound),
				errors.Is(err, repository.ErrVehicleNotFound),
				errors.Is(err, repository.ErrPricingRuleNotFound):
				writeError(w, http.StatusNotFound, err.Error())
			default:
				writeError(w, http.StatusInternalServerError, "failed to open session")
			}
			return
		}

		writeJSON(w, http.StatusCreated, session)
	}
}

// NewSessionExitHandler handles POST /sessions/exit, the gate-out event.
// A completed session whose fee could not be collected still returns the
// session; the unpaid charge is flagged in the response.
func NewSessionExitHandler(svc *service.SessionService) http.HandlerFunc {
	type request struct {
		SessionID int64      `json:"session_id"`
		ExitTime  *time.Time `json:"exit_time,omitempty"`
		Note      string     `json:"note,omitempty"`
	}

	return func(w http.ResponseWriter, r *http.Request) {
		var req request
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		if req.SessionID <= 0 {
			writeError(w, http.StatusBadRequest, "session_id is required")
			return
		}

		input := service.CloseSessionInput{SessionID: req.SessionID, Note: req.Note}
		if req.ExitTime != nil {
			input.ExitTime = *req.ExitTime
		}

		result, err := svc.Close(r.Context(), input)
		if err != nil {
			switch {
			case errors.Is(err, repository.ErrSessionNotFound):
				writeError(w, http.StatusNotFound, "session not found")
			case errors.Is(err, repository.ErrSessionNotActive):
				writeError(w, http.StatusConflict, "session is not active")
			case errors.Is(err, repository.ErrInsufficientBalance) && result != nil:
				writeJSON(w, http.StatusPaymentRequired, map[string]interface{}{
					"session": result.Session,
					"charge":  result.Charge,
					"error":   "insufficient balance, fee not collected",
				})
			default:
				writeError(w, http.StatusInternalServerError, "failed to close session")
			}
			return
		}

		writeJSON(w, http.StatusOK, map[string]interface{}{
			"session":     result.Session,
			"charge":      result.Charge,
			"transaction": result.Transaction,
		})
	}
}

// NewSessionCancelHandler handles POST /sessions/cancel.
func NewSessionCancelHandler(svc *service.SessionService) http.HandlerFunc {
	type request struct {
		SessionID int64 `json:"session_id"`
	}

	return func(w http.ResponseWriter, r *http.Request) {
		var req request
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		if req.SessionID <= 0 {
			writeError(w, http.StatusBadRequest, "session_id is required")
			return
		}

		if err := svc.Cancel(r.Context(), req.SessionID); err != nil {
			switch {
			case errors.Is(err, repository.ErrSessionNotFound):
				writeError(w, http.StatusNotFound, "session not found")
			case errors.Is(err, repository.ErrSessionNotActive):
				writeError(w, http.StatusConflict, "session is not active")
			default:
				writeError(w, http.StatusInternalServerError, "failed to cancel session")
			}
			return
		}

		writeJSON(w, http.StatusOK, map[string]string{"status": "cancelled"})
	}
}

// NewSessionsMeHandler returns GET /sessions/me handler.
func NewSessionsMeHandler(svc *service.SessionService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := requireUserID(w, r)
		if userID == 0 {
			return
		}

		sessions, err := svc.SessionsByUser(r.Context(), userID, 50)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "failed to fetch sessions")
			return
		}

		writeJSON(w, http.StatusOK, map[string]interface{}{
			"sessions": sessions,
		})
	}
}

// NewActiveSessionsHandler returns GET /sessions/active handler.
func NewActiveSessionsHandler(svc *service.SessionService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessions, err := svc.ActiveSessions(r.Context(), 50)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "failed to fetch active sessions")
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"sessions": sessions,
		})
	}
}
