package wizard

import (
	"errors"
	"testing"

	"voltswap/internal/session"
)

func TestAdvanceBlockedWithoutCheckIn(t *testing.T) {
	cases := []struct {
		name string
		sess session.SwapSession
	}{
		{"empty", session.SwapSession{Step: session.StepCheckIn}},
		{"missing user", session.SwapSession{Step: session.StepCheckIn, VehicleID: "V1", StationID: "S1", BatteryCheckStatus: session.CheckCompatible}},
		{"missing vehicle", session.SwapSession{Step: session.StepCheckIn, UserID: "U1", StationID: "S1", BatteryCheckStatus: session.CheckCompatible}},
		{"missing station", session.SwapSession{Step: session.StepCheckIn, UserID: "U1", VehicleID: "V1", BatteryCheckStatus: session.CheckCompatible}},
	}
	for _, tc := range cases {
		sess := tc.sess
		if err := advance(&sess); !errors.Is(err, ErrCheckInIncomplete) {
			t.Fatalf("%s: expected ErrCheckInIncomplete, got %v", tc.name, err)
		}
		if sess.Step != session.StepCheckIn {
			t.Fatalf("%s: failed advance must not move the step", tc.name)
		}
	}
}

func TestAdvanceBlockedWhenIncompatible(t *testing.T) {
	sess := session.SwapSession{
		Step:               session.StepCheckIn,
		UserID:             "U1",
		VehicleID:          "V1",
		StationID:          "S1",
		BatteryCheckStatus: session.CheckIncompatible,
	}
	if err := advance(&sess); !errors.Is(err, ErrNotCompatible) {
		t.Fatalf("expected ErrNotCompatible, got %v", err)
	}
	if sess.Step != session.StepCheckIn {
		t.Fatal("failed advance must not move the step")
	}
}

func TestAdvanceFullPath(t *testing.T) {
	sess := session.SwapSession{
		Step:               session.StepCheckIn,
		UserID:             "U1",
		VehicleID:          "V1",
		StationID:          "S1",
		BatteryCheckStatus: session.CheckCompatible,
	}

	if err := advance(&sess); err != nil {
		t.Fatalf("check-in advance: %v", err)
	}
	if sess.Step != session.StepCheckPin {
		t.Fatalf("expected check-pin, got %s", sess.Step)
	}

	if err := advance(&sess); !errors.Is(err, ErrBatteryUnchecked) {
		t.Fatalf("expected ErrBatteryUnchecked, got %v", err)
	}
	sess.OldBatteryID = "B-old"
	if err := advance(&sess); err != nil {
		t.Fatalf("check-pin advance: %v", err)
	}
	if sess.Step != session.StepInstall {
		t.Fatalf("expected install, got %s", sess.Step)
	}

	if err := advance(&sess); !errors.Is(err, ErrInstallIncomplete) {
		t.Fatalf("expected ErrInstallIncomplete, got %v", err)
	}
	sess.NewBatteryID = "B-new"
	sess.InvoiceID = "I1"
	if err := advance(&sess); err != nil {
		t.Fatalf("install advance: %v", err)
	}
	if sess.Step != session.StepPayment {
		t.Fatalf("expected payment, got %s", sess.Step)
	}

	if err := advance(&sess); !errors.Is(err, ErrTerminalStep) {
		t.Fatalf("expected ErrTerminalStep, got %v", err)
	}

	// Accumulated fields survive the whole walk.
	if sess.UserID != "U1" || sess.VehicleID != "V1" || sess.StationID != "S1" ||
		sess.OldBatteryID != "B-old" || sess.NewBatteryID != "B-new" || sess.InvoiceID != "I1" {
		t.Fatalf("accumulated fields were mutated: %+v", sess)
	}
}

func TestRetreatPreservesFields(t *testing.T) {
	sess := session.SwapSession{
		Step:      session.StepInstall,
		UserID:    "U1",
		VehicleID: "V1",
		StationID: "S1",
	}
	if err := retreat(&sess); err != nil {
		t.Fatalf("retreat: %v", err)
	}
	if sess.Step != session.StepCheckPin {
		t.Fatalf("expected check-pin, got %s", sess.Step)
	}
	if sess.UserID != "U1" || sess.VehicleID != "V1" || sess.StationID != "S1" {
		t.Fatal("retreat must not touch accumulated fields")
	}

	sess.Step = session.StepCheckIn
	if err := retreat(&sess); !errors.Is(err, ErrFirstStep) {
		t.Fatalf("expected ErrFirstStep, got %v", err)
	}
}
