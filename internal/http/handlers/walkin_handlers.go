package handlers

import (
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"voltswap/internal/repository"
	"voltswap/internal/session"
	"voltswap/internal/wizard"
)

// WalkinHandlers serves the walk-in swap wizard endpoints.
type WalkinHandlers struct {
	wizard *wizard.Service
	logger *zap.Logger
}

// NewWalkinHandlers builds handlers.
func NewWalkinHandlers(svc *wizard.Service, logger *zap.Logger) *WalkinHandlers {
	return &WalkinHandlers{wizard: svc, logger: logger}
}

// Create handles POST /api/walkin/sessions.
func (h *WalkinHandlers) Create(w http.ResponseWriter, r *http.Request) {
	sess := h.wizard.Start(r.Context())
	writeJSON(w, http.StatusCreated, sess)
}

// List handles GET /api/walkin/sessions.
func (h *WalkinHandlers) List(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"sessions": h.wizard.List(),
	})
}

// Get handles GET /api/walkin/sessions/{id}.
func (h *WalkinHandlers) Get(w http.ResponseWriter, r *http.Request) {
	sess, err := h.wizard.Get(mux.Vars(r)["id"])
	if err != nil {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

type updateRequest struct {
	Key   string      `json:"key"`
	Value interface{} `json:"value"`
}

// Update handles PATCH /api/walkin/sessions/{id}: one-field merge on behalf of
// the active step.
func (h *WalkinHandlers) Update(w http.ResponseWriter, r *http.Request) {
	var req updateRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	sess, err := h.wizard.Update(r.Context(), mux.Vars(r)["id"], req.Key, req.Value)
	if err != nil {
		h.writeWizardError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

type checkInRequest struct {
	Phone     string `json:"phone"`
	VehicleID string `json:"vehicle_id"`
	StationID string `json:"station_id"`
}

// CheckIn handles POST /api/walkin/sessions/{id}/check-in.
func (h *WalkinHandlers) CheckIn(w http.ResponseWriter, r *http.Request) {
	var req checkInRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Phone == "" || req.StationID == "" {
		writeError(w, http.StatusBadRequest, "phone and station_id are required")
		return
	}

	result, err := h.wizard.CheckIn(r.Context(), mux.Vars(r)["id"], wizard.CheckInInput{
		Phone:     req.Phone,
		VehicleID: req.VehicleID,
		StationID: req.StationID,
	})
	if err != nil {
		h.writeWizardError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

type checkBatteryRequest struct {
	OldBatteryID string `json:"old_battery_id"`
}

// CheckBattery handles POST /api/walkin/sessions/{id}/check-battery.
func (h *WalkinHandlers) CheckBattery(w http.ResponseWriter, r *http.Request) {
	var req checkBatteryRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.OldBatteryID == "" {
		writeError(w, http.StatusBadRequest, "old_battery_id is required")
		return
	}
	sess, err := h.wizard.CheckBattery(r.Context(), mux.Vars(r)["id"], req.OldBatteryID)
	if err != nil {
		h.writeWizardError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

type installRequest struct {
	NewBatteryID string  `json:"new_battery_id"`
	TotalAmount  float64 `json:"total_amount"`
}

// Install handles POST /api/walkin/sessions/{id}/install.
func (h *WalkinHandlers) Install(w http.ResponseWriter, r *http.Request) {
	var req installRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.NewBatteryID == "" {
		writeError(w, http.StatusBadRequest, "new_battery_id is required")
		return
	}
	sess, err := h.wizard.Install(r.Context(), mux.Vars(r)["id"], wizard.InstallInput{
		NewBatteryID: req.NewBatteryID,
		TotalAmount:  req.TotalAmount,
	})
	if err != nil {
		h.writeWizardError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

// Advance handles POST /api/walkin/sessions/{id}/advance.
func (h *WalkinHandlers) Advance(w http.ResponseWriter, r *http.Request) {
	sess, err := h.wizard.Advance(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		h.writeWizardError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

// Back handles POST /api/walkin/sessions/{id}/back.
func (h *WalkinHandlers) Back(w http.ResponseWriter, r *http.Request) {
	sess, err := h.wizard.Back(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		h.writeWizardError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

// Teardown handles DELETE /api/walkin/sessions/{id}.
func (h *WalkinHandlers) Teardown(w http.ResponseWriter, r *http.Request) {
	h.wizard.Teardown(r.Context(), mux.Vars(r)["id"])
	writeJSON(w, http.StatusNoContent, nil)
}

// writeWizardError maps wizard errors onto user-visible notices. Every branch
// leaves the session at its current step; nothing here crashes the wizard.
func (h *WalkinHandlers) writeWizardError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, session.ErrSessionNotFound):
		writeError(w, http.StatusNotFound, "session not found")
	case errors.Is(err, session.ErrUnknownField),
		errors.Is(err, session.ErrInvalidValue):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, wizard.ErrUserNotFound),
		errors.Is(err, wizard.ErrNoActiveVehicle),
		errors.Is(err, wizard.ErrVehicleNotOwned),
		errors.Is(err, repository.ErrStationNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, wizard.ErrCheckInIncomplete),
		errors.Is(err, wizard.ErrNotCompatible),
		errors.Is(err, wizard.ErrBatteryUnchecked),
		errors.Is(err, wizard.ErrInstallIncomplete),
		errors.Is(err, wizard.ErrTerminalStep),
		errors.Is(err, wizard.ErrFirstStep):
		writeError(w, http.StatusConflict, err.Error())
	default:
		h.logger.Error("wizard request failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "request failed")
	}
}
