package httpserver

import "net/http"

// Routes groups handlers.
type Routes struct {
	Signup http.HandlerFunc
	Login  http.HandlerFunc
	Verify http.HandlerFunc

	SessionEntry   http.HandlerFunc
	SessionExit    http.HandlerFunc
	SessionCancel  http.HandlerFunc
	SessionsMe     http.HandlerFunc
	ActiveSessions http.HandlerFunc

	WalletCreate       http.HandlerFunc
	WalletMe           http.HandlerFunc
	WalletTransactions http.HandlerFunc

	PaymentCreate   http.HandlerFunc
	PaymentCallback http.HandlerFunc
	PaymentReturn   http.HandlerFunc

	Events http.HandlerFunc
	Health http.HandlerFunc
}

// NewRouter registers endpoints.
func NewRouter(routes Routes) http.Handler {
	mux := http.NewServeMux()
	if routes.Signup != nil {
		mux.Handle("/auth/signup", method(http.MethodPost, routes.Signup))
	}
	if routes.Login != nil {
		mux.Handle("/auth/login", method(http.MethodPost, routes.Login))
	}
	if routes.Verify != nil {
		mux.Handle("/auth/verify", method(http.MethodGet, routes.Verify))
	}
	if routes.SessionEntry != nil {
		mux.Handle("/sessions/entry", method(http.MethodPost, routes.SessionEntry))
	}
	if routes.SessionExit != nil {
		mux.Handle("/sessions/exit", method(http.MethodPost, routes.SessionExit))
	}
	if routes.SessionCancel != nil {
		mux.Handle("/sessions/cancel", method(http.MethodPost, routes.SessionCancel))
	}
	if routes.SessionsMe != nil {
		mux.Handle("/sessions/me", method(http.MethodGet, routes.SessionsMe))
	}
	if routes.ActiveSessions != nil {
		mux.Handle("/sessions/active", method(http.MethodGet, routes.ActiveSessions))
	}
	if routes.WalletCreate != nil {
		mux.Handle("/wallets", method(http.MethodPost, routes.WalletCreate))
	}
	if routes.WalletMe != nil {
		mux.Handle("/wallets/me", method(http.MethodGet, routes.WalletMe))
	}
	if routes.WalletTransactions != nil {
		mux.Handle("/wallets/me/transactions", method(http.MethodGet, routes.WalletTransactions))
	}
	if routes.PaymentCreate != nil {
		mux.Handle("/payments", method(http.MethodPost, routes.PaymentCreate))
	}
	if routes.PaymentCallback != nil {
		mux.Handle("/payments/ipn", method(http.MethodPost, routes.PaymentCallback))
	}
	if routes.PaymentReturn != nil {
		mux.Handle("/payments/return", method(http.MethodGet, routes.PaymentReturn))
	}
	if routes.Events != nil {
		mux.Handle("/ws/events", routes.Events)
	}
	if routes.Health != nil {
		mux.Handle("/health", method(http.MethodGet, routes.Health))
	}
	return mux
}

func method(expected string, handler http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != expected {
			w.Header().Set("Allow", expected)
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		handler(w, r)
	}
}
