package handlers

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"voltswap/internal/models"
)

// UserSearcher looks customers up by phone.
type UserSearcher interface {
	SearchByPhone(ctx context.Context, phone string) ([]models.User, error)
}

// StationLister lists swap stations.
type StationLister interface {
	List(ctx context.Context) ([]models.Station, error)
}

// BatteryLister lists batteries at a station.
type BatteryLister interface {
	ListByStation(ctx context.Context, stationID string) ([]models.Battery, error)
}

// ReferenceHandlers serves read-only reference entities consumed by the
// wizard's forms.
type ReferenceHandlers struct {
	users     UserSearcher
	stations  StationLister
	batteries BatteryLister
	logger    *zap.Logger
}

// NewReferenceHandlers builds handlers.
func NewReferenceHandlers(users UserSearcher, stations StationLister, batteries BatteryLister, logger *zap.Logger) *ReferenceHandlers {
	return &ReferenceHandlers{users: users, stations: stations, batteries: batteries, logger: logger}
}

// SearchUsers handles GET /api/users/search?phone=.
func (h *ReferenceHandlers) SearchUsers(w http.ResponseWriter, r *http.Request) {
	phone := r.URL.Query().Get("phone")
	if phone == "" {
		writeError(w, http.StatusBadRequest, "phone query parameter is required")
		return
	}
	users, err := h.users.SearchByPhone(r.Context(), phone)
	if err != nil {
		h.logger.Error("user search failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "search failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"users": users,
		"total": len(users),
	})
}

// ListStations handles GET /api/stations.
func (h *ReferenceHandlers) ListStations(w http.ResponseWriter, r *http.Request) {
	stations, err := h.stations.List(r.Context())
	if err != nil {
		h.logger.Error("station list failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to list stations")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"stations": stations,
	})
}

// ListStationBatteries handles GET /api/stations/{id}/batteries.
func (h *ReferenceHandlers) ListStationBatteries(w http.ResponseWriter, r *http.Request) {
	stationID := mux.Vars(r)["id"]
	batteries, err := h.batteries.ListByStation(r.Context(), stationID)
	if err != nil {
		h.logger.Error("battery list failed", zap.String("station_id", stationID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to list batteries")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"batteries": batteries,
	})
}
