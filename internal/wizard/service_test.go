package wizard

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"

	"voltswap/internal/models"
	"voltswap/internal/repository"
	"voltswap/internal/session"
)

type stubDirectory struct {
	users     map[string][]models.User
	vehicles  map[string][]models.Vehicle
	stations  map[string]*models.Station
	batteries map[string][]models.Battery

	invoices       []*models.Invoice
	statusChanges  map[string]string
	createInvoice  error
	watched        map[string]string
	unwatchedCount int
}

func newStubDirectory() *stubDirectory {
	return &stubDirectory{
		users:         make(map[string][]models.User),
		vehicles:      make(map[string][]models.Vehicle),
		stations:      make(map[string]*models.Station),
		batteries:     make(map[string][]models.Battery),
		statusChanges: make(map[string]string),
		watched:       make(map[string]string),
	}
}

func (d *stubDirectory) SearchByPhone(ctx context.Context, phone string) ([]models.User, error) {
	return d.users[phone], nil
}

func (d *stubDirectory) ListActiveByUser(ctx context.Context, userID string) ([]models.Vehicle, error) {
	return d.vehicles[userID], nil
}

func (d *stubDirectory) GetByID(ctx context.Context, id string) (*models.Station, error) {
	station, ok := d.stations[id]
	if !ok {
		return nil, repository.ErrStationNotFound
	}
	return station, nil
}

func (d *stubDirectory) ListByStation(ctx context.Context, stationID string) ([]models.Battery, error) {
	return d.batteries[stationID], nil
}

func (d *stubDirectory) Create(ctx context.Context, invoice *models.Invoice) error {
	if d.createInvoice != nil {
		return d.createInvoice
	}
	d.invoices = append(d.invoices, invoice)
	return nil
}

func (d *stubDirectory) UpdateStatus(ctx context.Context, id, status string) error {
	d.statusChanges[id] = status
	return nil
}

func (d *stubDirectory) Watch(invoiceID, sessionID string) {
	d.watched[invoiceID] = sessionID
}

func (d *stubDirectory) UnwatchSession(sessionID string) {
	d.unwatchedCount++
	for invoiceID, sid := range d.watched {
		if sid == sessionID {
			delete(d.watched, invoiceID)
		}
	}
}

func newTestService(dir *stubDirectory) (*Service, *session.Store) {
	store := session.NewStore()
	svc := NewService(store, dir, dir, dir, dir, dir, dir, dir, nil, zap.NewNop())
	return svc, store
}

// Scenario: phone lookup finds one user with one active vehicle, the station
// holds an available battery of the right type, and the wizard advances.
func TestCheckInCompatibleFlow(t *testing.T) {
	dir := newStubDirectory()
	dir.users["0901234567"] = []models.User{{ID: "U1", Phone: "0901234567"}}
	dir.vehicles["U1"] = []models.Vehicle{{ID: "V1", UserID: "U1", BatteryTypeID: "T1", Status: models.VehicleActive}}
	dir.stations["S001"] = &models.Station{ID: "S001", Name: "District 1"}
	dir.batteries["S001"] = []models.Battery{{ID: "B1", BatteryTypeID: "T1", Status: models.BatteryAvailable}}

	svc, _ := newTestService(dir)
	ctx := context.Background()
	sess := svc.Start(ctx)

	result, err := svc.CheckIn(ctx, sess.ID, CheckInInput{Phone: "0901234567", StationID: "S001"})
	if err != nil {
		t.Fatalf("check-in: %v", err)
	}
	if !result.Compatible {
		t.Fatal("expected compatible result")
	}
	if result.MatchCount != 1 {
		t.Fatalf("expected 1 match, got %d", result.MatchCount)
	}
	if result.Session.UserID != "U1" || result.Session.VehicleID != "V1" || result.Session.StationID != "S001" {
		t.Fatalf("session not accumulated: %+v", result.Session)
	}
	if result.Session.BatteryCheckStatus != session.CheckCompatible {
		t.Fatalf("expected compatible check status, got %s", result.Session.BatteryCheckStatus)
	}

	advanced, err := svc.Advance(ctx, sess.ID)
	if err != nil {
		t.Fatalf("advance: %v", err)
	}
	if advanced.Step != session.StepCheckPin {
		t.Fatalf("expected check-pin, got %s", advanced.Step)
	}
}

// Scenario: the only matching battery is in use, so the check records
// incompatible and the sequencer refuses to advance.
func TestCheckInIncompatibleBlocksAdvance(t *testing.T) {
	dir := newStubDirectory()
	dir.users["0901234567"] = []models.User{{ID: "U1"}}
	dir.vehicles["U1"] = []models.Vehicle{{ID: "V1", BatteryTypeID: "T1", Status: models.VehicleActive}}
	dir.stations["S001"] = &models.Station{ID: "S001"}
	dir.batteries["S001"] = []models.Battery{{ID: "B1", BatteryTypeID: "T1", Status: models.BatteryInUse}}

	svc, _ := newTestService(dir)
	ctx := context.Background()
	sess := svc.Start(ctx)

	result, err := svc.CheckIn(ctx, sess.ID, CheckInInput{Phone: "0901234567", StationID: "S001"})
	if err != nil {
		t.Fatalf("check-in: %v", err)
	}
	if result.Compatible {
		t.Fatal("expected incompatible result")
	}
	if result.Session.BatteryCheckStatus != session.CheckIncompatible {
		t.Fatalf("expected incompatible check status, got %s", result.Session.BatteryCheckStatus)
	}

	if _, err := svc.Advance(ctx, sess.ID); !errors.Is(err, ErrNotCompatible) {
		t.Fatalf("expected ErrNotCompatible, got %v", err)
	}

	// Re-selecting a compatible station repairs the attempt.
	dir.stations["S002"] = &models.Station{ID: "S002"}
	dir.batteries["S002"] = []models.Battery{{ID: "B2", BatteryTypeID: "T1", Status: models.BatteryAvailable}}
	result, err = svc.CheckIn(ctx, sess.ID, CheckInInput{Phone: "0901234567", StationID: "S002"})
	if err != nil {
		t.Fatalf("second check-in: %v", err)
	}
	if !result.Compatible {
		t.Fatal("expected compatible result after station change")
	}
	if _, err := svc.Advance(ctx, sess.ID); err != nil {
		t.Fatalf("advance after repair: %v", err)
	}
}

func TestCheckInUserNotFound(t *testing.T) {
	dir := newStubDirectory()
	svc, _ := newTestService(dir)
	ctx := context.Background()
	sess := svc.Start(ctx)

	if _, err := svc.CheckIn(ctx, sess.ID, CheckInInput{Phone: "000", StationID: "S001"}); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}

	got, err := svc.Get(sess.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Step != session.StepCheckIn || got.UserID != "" {
		t.Fatalf("failed lookup must leave session untouched: %+v", got)
	}
}

func TestCheckInFirstMatchWinsButCountSurfaces(t *testing.T) {
	dir := newStubDirectory()
	dir.users["0901234567"] = []models.User{{ID: "U1"}, {ID: "U2"}}
	dir.vehicles["U1"] = []models.Vehicle{{ID: "V1", BatteryTypeID: "T1", Status: models.VehicleActive}}
	dir.stations["S001"] = &models.Station{ID: "S001"}
	dir.batteries["S001"] = []models.Battery{{ID: "B1", BatteryTypeID: "T1", Status: models.BatteryAvailable}}

	svc, _ := newTestService(dir)
	ctx := context.Background()
	sess := svc.Start(ctx)

	result, err := svc.CheckIn(ctx, sess.ID, CheckInInput{Phone: "0901234567", StationID: "S001"})
	if err != nil {
		t.Fatalf("check-in: %v", err)
	}
	if result.User.ID != "U1" {
		t.Fatalf("expected first match selected, got %s", result.User.ID)
	}
	if result.MatchCount != 2 {
		t.Fatalf("expected match count 2, got %d", result.MatchCount)
	}
}

func TestInstallCreatesInvoiceAndPaymentWatch(t *testing.T) {
	dir := newStubDirectory()
	dir.users["0901234567"] = []models.User{{ID: "U1"}}
	dir.vehicles["U1"] = []models.Vehicle{{ID: "V1", BatteryTypeID: "T1", Status: models.VehicleActive}}
	dir.stations["S001"] = &models.Station{ID: "S001"}
	dir.batteries["S001"] = []models.Battery{{ID: "B1", BatteryTypeID: "T1", Status: models.BatteryAvailable}}

	svc, _ := newTestService(dir)
	ctx := context.Background()
	sess := svc.Start(ctx)

	if _, err := svc.CheckIn(ctx, sess.ID, CheckInInput{Phone: "0901234567", StationID: "S001"}); err != nil {
		t.Fatalf("check-in: %v", err)
	}
	if _, err := svc.Advance(ctx, sess.ID); err != nil {
		t.Fatalf("advance to check-pin: %v", err)
	}
	if _, err := svc.CheckBattery(ctx, sess.ID, "B-old"); err != nil {
		t.Fatalf("check battery: %v", err)
	}
	if _, err := svc.Advance(ctx, sess.ID); err != nil {
		t.Fatalf("advance to install: %v", err)
	}

	installed, err := svc.Install(ctx, sess.ID, InstallInput{NewBatteryID: "B1", TotalAmount: 45000})
	if err != nil {
		t.Fatalf("install: %v", err)
	}
	if installed.InvoiceID == "" {
		t.Fatal("install must set invoice id")
	}
	if len(dir.invoices) != 1 {
		t.Fatalf("expected one invoice, got %d", len(dir.invoices))
	}
	if dir.invoices[0].Status != models.InvoiceUnpaid {
		t.Fatalf("expected unpaid invoice, got %s", dir.invoices[0].Status)
	}
	if dir.statusChanges["B-old"] != models.BatteryCharging {
		t.Fatal("old battery must go back to charging")
	}
	if dir.statusChanges["B1"] != models.BatteryInUse {
		t.Fatal("new battery must be marked in use")
	}

	advanced, err := svc.Advance(ctx, sess.ID)
	if err != nil {
		t.Fatalf("advance to payment: %v", err)
	}
	if advanced.Step != session.StepPayment {
		t.Fatalf("expected payment step, got %s", advanced.Step)
	}
	if dir.watched[installed.InvoiceID] != sess.ID {
		t.Fatal("entering payment must watch the invoice")
	}
}

func TestTeardownDetachesWatches(t *testing.T) {
	dir := newStubDirectory()
	svc, store := newTestService(dir)
	ctx := context.Background()
	sess := svc.Start(ctx)

	svc.Teardown(ctx, sess.ID)

	if dir.unwatchedCount != 1 {
		t.Fatalf("expected one unwatch call, got %d", dir.unwatchedCount)
	}
	if _, err := store.Get(sess.ID); !errors.Is(err, session.ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
}
