package httpserver

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/cors"

	"voltswap/internal/http/handlers"
	"voltswap/internal/http/middleware"
)

// RouterDeps groups everything the router mounts.
type RouterDeps struct {
	Auth      *handlers.AuthHandlers
	Walkin    *handlers.WalkinHandlers
	Reference *handlers.ReferenceHandlers
	Payments  *handlers.PaymentHandlers
	Tokens    middleware.TokenValidator
	WSHandler http.HandlerFunc
}

// NewRouter registers all endpoints and wraps them with CORS.
func NewRouter(deps RouterDeps) http.Handler {
	r := mux.NewRouter()

	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	}).Methods(http.MethodGet)

	r.HandleFunc("/api/auth/login", deps.Auth.Login).Methods(http.MethodPost)

	// Gateway callback path; reachable only on the internal network.
	r.HandleFunc("/internal/payments/events", deps.Payments.IngestEvent).Methods(http.MethodPost)

	if deps.WSHandler != nil {
		r.HandleFunc("/ws", deps.WSHandler).Methods(http.MethodGet)
	}

	api := r.PathPrefix("/api").Subrouter()
	api.Use(middleware.Auth(deps.Tokens))

	api.HandleFunc("/users/search", deps.Reference.SearchUsers).Methods(http.MethodGet)
	api.HandleFunc("/stations", deps.Reference.ListStations).Methods(http.MethodGet)
	api.HandleFunc("/stations/{id}/batteries", deps.Reference.ListStationBatteries).Methods(http.MethodGet)

	api.HandleFunc("/payments", deps.Payments.List).Methods(http.MethodGet)
	api.HandleFunc("/payments/{invoiceId}", deps.Payments.GetInvoiceState).Methods(http.MethodGet)

	staff := api.NewRoute().Subrouter()
	staff.Use(middleware.RequireStaff)

	staff.HandleFunc("/walkin/sessions", deps.Walkin.Create).Methods(http.MethodPost)
	staff.HandleFunc("/walkin/sessions", deps.Walkin.List).Methods(http.MethodGet)
	staff.HandleFunc("/walkin/sessions/{id}", deps.Walkin.Get).Methods(http.MethodGet)
	staff.HandleFunc("/walkin/sessions/{id}", deps.Walkin.Update).Methods(http.MethodPatch)
	staff.HandleFunc("/walkin/sessions/{id}", deps.Walkin.Teardown).Methods(http.MethodDelete)
	staff.HandleFunc("/walkin/sessions/{id}/check-in", deps.Walkin.CheckIn).Methods(http.MethodPost)
	staff.HandleFunc("/walkin/sessions/{id}/check-battery", deps.Walkin.CheckBattery).Methods(http.MethodPost)
	staff.HandleFunc("/walkin/sessions/{id}/install", deps.Walkin.Install).Methods(http.MethodPost)
	staff.HandleFunc("/walkin/sessions/{id}/advance", deps.Walkin.Advance).Methods(http.MethodPost)
	staff.HandleFunc("/walkin/sessions/{id}/back", deps.Walkin.Back).Methods(http.MethodPost)
	staff.HandleFunc("/transactions/{id}/confirm", deps.Payments.ConfirmTransaction).Methods(http.MethodPatch)

	c := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Authorization", "Content-Type"},
	})
	return c.Handler(r)
}
