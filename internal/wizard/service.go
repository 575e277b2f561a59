package wizard

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"voltswap/internal/models"
	"voltswap/internal/session"
)

// Lookup errors surfaced as user-visible notices. The sequencer stays at its
// current step when any of them occurs.
var (
	ErrUserNotFound    = errors.New("wizard: no user matches that phone number")
	ErrNoActiveVehicle = errors.New("wizard: user has no active vehicle")
	ErrVehicleNotOwned = errors.New("wizard: vehicle does not belong to user")
)

// UserDirectory resolves customers during check-in.
type UserDirectory interface {
	SearchByPhone(ctx context.Context, phone string) ([]models.User, error)
}

// VehicleDirectory lists a customer's active vehicles.
type VehicleDirectory interface {
	ListActiveByUser(ctx context.Context, userID string) ([]models.Vehicle, error)
}

// StationDirectory resolves the selected station.
type StationDirectory interface {
	GetByID(ctx context.Context, id string) (*models.Station, error)
}

// BatteryDirectory lists batteries held at a station.
type BatteryDirectory interface {
	ListByStation(ctx context.Context, stationID string) ([]models.Battery, error)
}

// InvoiceCreator persists the invoice created at the install step.
type InvoiceCreator interface {
	Create(ctx context.Context, invoice *models.Invoice) error
}

// BatteryUpdater records the physical swap (old battery back on the rack, new
// one out). Best effort; failures are logged, not propagated.
type BatteryUpdater interface {
	UpdateStatus(ctx context.Context, id, status string) error
}

// PaymentWatcher binds the session's invoice to the realtime reconciler when
// the wizard reaches the payment step, and releases it on teardown.
type PaymentWatcher interface {
	Watch(invoiceID, sessionID string)
	UnwatchSession(sessionID string)
}

// SessionCache mirrors active walk-in sessions for dashboards. Best effort.
type SessionCache interface {
	Save(ctx context.Context, sess *session.SwapSession) error
	Delete(ctx context.Context, sessionID string) error
}

// Service drives the walk-in swap wizard: it owns session creation and
// teardown, runs the step handlers, and enforces the step gates on Advance.
type Service struct {
	store    *session.Store
	users    UserDirectory
	vehicles VehicleDirectory
	stations StationDirectory
	batts    BatteryDirectory
	invoices InvoiceCreator
	updater  BatteryUpdater
	watcher  PaymentWatcher
	cache    SessionCache
	logger   *zap.Logger
}

// NewService builds wizard service.
func NewService(
	store *session.Store,
	users UserDirectory,
	vehicles VehicleDirectory,
	stations StationDirectory,
	batts BatteryDirectory,
	invoices InvoiceCreator,
	updater BatteryUpdater,
	watcher PaymentWatcher,
	cache SessionCache,
	logger *zap.Logger,
) *Service {
	return &Service{
		store:    store,
		users:    users,
		vehicles: vehicles,
		stations: stations,
		batts:    batts,
		invoices: invoices,
		updater:  updater,
		watcher:  watcher,
		cache:    cache,
		logger:   logger,
	}
}

// Start creates a fresh walk-in session at the check-in step.
func (s *Service) Start(ctx context.Context) *session.SwapSession {
	sess := s.store.Create()
	s.mirror(ctx, sess)
	s.logger.Info("walk-in session started", zap.String("session_id", sess.ID))
	return sess
}

// Get returns the accumulated record.
func (s *Service) Get(id string) (*session.SwapSession, error) {
	return s.store.Get(id)
}

// List returns all in-progress sessions.
func (s *Service) List() []*session.SwapSession {
	return s.store.List()
}

// Update merges one field into the session, on behalf of the active step.
func (s *Service) Update(ctx context.Context, id, key string, value interface{}) (*session.SwapSession, error) {
	sess, err := s.store.Update(id, key, value)
	if err != nil {
		return nil, err
	}
	s.mirror(ctx, sess)
	return sess, nil
}

// CheckInInput carries the staff-entered check-in form.
type CheckInInput struct {
	Phone     string
	VehicleID string // optional; first active vehicle is picked when empty
	StationID string
}

// CheckInResult reports what check-in resolved, including how many users
// matched the phone search so the caller can disambiguate.
type CheckInResult struct {
	Session    *session.SwapSession `json:"session"`
	User       models.User          `json:"user"`
	Vehicle    models.Vehicle       `json:"vehicle"`
	MatchCount int                  `json:"match_count"`
	Compatible bool                 `json:"compatible"`
}

// CheckIn resolves the customer, picks the vehicle, selects the station and
// runs the compatibility check, accumulating everything into the session. An
// incompatible station is not an error: the result says so and the sequencer
// will refuse to advance until a compatible station is selected.
func (s *Service) CheckIn(ctx context.Context, sessionID string, input CheckInInput) (*CheckInResult, error) {
	if _, err := s.store.Get(sessionID); err != nil {
		return nil, err
	}

	users, err := s.users.SearchByPhone(ctx, input.Phone)
	if err != nil {
		return nil, err
	}
	if len(users) == 0 {
		return nil, ErrUserNotFound
	}
	user := users[0]

	vehicles, err := s.vehicles.ListActiveByUser(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	if len(vehicles) == 0 {
		return nil, ErrNoActiveVehicle
	}
	vehicle := vehicles[0]
	if input.VehicleID != "" {
		found := false
		for _, v := range vehicles {
			if v.ID == input.VehicleID {
				vehicle = v
				found = true
				break
			}
		}
		if !found {
			return nil, ErrVehicleNotOwned
		}
	}

	station, err := s.stations.GetByID(ctx, input.StationID)
	if err != nil {
		return nil, err
	}

	batteries, err := s.batts.ListByStation(ctx, station.ID)
	if err != nil {
		return nil, err
	}
	compatible := Compatible(vehicle.BatteryTypeID, batteries)

	checkStatus := session.CheckIncompatible
	if compatible {
		checkStatus = session.CheckCompatible
	}

	sess, err := s.store.Apply(sessionID, func(rec *session.SwapSession) error {
		rec.UserID = user.ID
		rec.VehicleID = vehicle.ID
		rec.StationID = station.ID
		rec.BatteryCheckStatus = checkStatus
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.mirror(ctx, sess)

	if !compatible {
		s.logger.Info("check-in found no compatible battery",
			zap.String("session_id", sessionID),
			zap.String("station_id", station.ID),
			zap.String("battery_type_id", vehicle.BatteryTypeID))
	}

	return &CheckInResult{
		Session:    sess,
		User:       user,
		Vehicle:    vehicle,
		MatchCount: len(users),
		Compatible: compatible,
	}, nil
}

// CheckBattery records the result of inspecting the customer's old battery.
func (s *Service) CheckBattery(ctx context.Context, sessionID, oldBatteryID string) (*session.SwapSession, error) {
	sess, err := s.store.Apply(sessionID, func(rec *session.SwapSession) error {
		rec.OldBatteryID = oldBatteryID
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.mirror(ctx, sess)
	return sess, nil
}

// InstallInput carries the install-step form.
type InstallInput struct {
	NewBatteryID string
	TotalAmount  float64
}

// Install records the physical swap and creates the invoice. The invoice id
// lands in the session so the payment step can watch it.
func (s *Service) Install(ctx context.Context, sessionID string, input InstallInput) (*session.SwapSession, error) {
	current, err := s.store.Get(sessionID)
	if err != nil {
		return nil, err
	}

	invoice := &models.Invoice{
		ID:          uuid.NewString(),
		UserID:      current.UserID,
		StationID:   current.StationID,
		SwapID:      current.ID,
		TotalAmount: input.TotalAmount,
		Status:      models.InvoiceUnpaid,
	}
	if err := s.invoices.Create(ctx, invoice); err != nil {
		return nil, err
	}

	if current.OldBatteryID != "" {
		if err := s.updater.UpdateStatus(ctx, current.OldBatteryID, models.BatteryCharging); err != nil {
			s.logger.Warn("failed to rack old battery", zap.String("battery_id", current.OldBatteryID), zap.Error(err))
		}
	}
	if err := s.updater.UpdateStatus(ctx, input.NewBatteryID, models.BatteryInUse); err != nil {
		s.logger.Warn("failed to release new battery", zap.String("battery_id", input.NewBatteryID), zap.Error(err))
	}

	sess, err := s.store.Apply(sessionID, func(rec *session.SwapSession) error {
		rec.NewBatteryID = input.NewBatteryID
		rec.InvoiceID = invoice.ID
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.mirror(ctx, sess)

	s.logger.Info("swap installed",
		zap.String("session_id", sessionID),
		zap.String("invoice_id", invoice.ID))
	return sess, nil
}

// Advance moves the session to the next step if the current step's gate
// passes. Entering the payment step activates the realtime reconciler for the
// session's invoice.
func (s *Service) Advance(ctx context.Context, sessionID string) (*session.SwapSession, error) {
	sess, err := s.store.Apply(sessionID, advance)
	if err != nil {
		return nil, err
	}
	if sess.Step == session.StepPayment {
		s.watcher.Watch(sess.InvoiceID, sess.ID)
		s.logger.Info("payment step activated",
			zap.String("session_id", sess.ID),
			zap.String("invoice_id", sess.InvoiceID))
	}
	s.mirror(ctx, sess)
	return sess, nil
}

// Back moves the session one step back. Leaving the payment step detaches the
// reconciler binding so stale events cannot touch the session.
func (s *Service) Back(ctx context.Context, sessionID string) (*session.SwapSession, error) {
	current, err := s.store.Get(sessionID)
	if err != nil {
		return nil, err
	}
	wasPayment := current.Step == session.StepPayment

	sess, err := s.store.Apply(sessionID, retreat)
	if err != nil {
		return nil, err
	}
	if wasPayment {
		s.watcher.UnwatchSession(sessionID)
	}
	s.mirror(ctx, sess)
	return sess, nil
}

// Teardown discards the session and detaches any reconciler binding. After it
// returns, no event delivery may mutate the session.
func (s *Service) Teardown(ctx context.Context, sessionID string) {
	s.watcher.UnwatchSession(sessionID)
	s.store.Delete(sessionID)
	if s.cache != nil {
		if err := s.cache.Delete(ctx, sessionID); err != nil {
			s.logger.Warn("failed to drop cached session", zap.String("session_id", sessionID), zap.Error(err))
		}
	}
	s.logger.Info("walk-in session torn down", zap.String("session_id", sessionID))
}

func (s *Service) mirror(ctx context.Context, sess *session.SwapSession) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Save(ctx, sess); err != nil {
		s.logger.Warn("failed to cache session", zap.String("session_id", sess.ID), zap.Error(err))
	}
}
