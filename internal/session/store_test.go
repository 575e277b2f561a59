package session

import (
	"errors"
	"testing"
)

func TestStoreCreateDefaults(t *testing.T) {
	store := NewStore()
	sess := store.Create()

	if sess.ID == "" {
		t.Fatal("expected generated session id")
	}
	if !sess.IsWalkin {
		t.Fatal("walk-in sessions start with the walk-in flag set")
	}
	if sess.Step != StepCheckIn {
		t.Fatalf("expected check-in step, got %s", sess.Step)
	}
	if sess.BatteryCheckStatus != CheckUnchecked {
		t.Fatalf("expected unchecked, got %s", sess.BatteryCheckStatus)
	}
}

func TestStoreGetReturnsSnapshot(t *testing.T) {
	store := NewStore()
	created := store.Create()

	first, err := store.Get(created.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	first.UserID = "mutated"

	second, err := store.Get(created.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if second.UserID != "" {
		t.Fatal("mutating a snapshot must not touch the stored record")
	}
}

func TestStoreUpdateMergesSingleField(t *testing.T) {
	store := NewStore()
	created := store.Create()

	sess, err := store.Update(created.ID, FieldUserID, "U1")
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if sess.UserID != "U1" {
		t.Fatalf("expected U1, got %s", sess.UserID)
	}

	sess, err = store.Update(created.ID, FieldStationID, "S1")
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if sess.UserID != "U1" || sess.StationID != "S1" {
		t.Fatalf("shallow merge lost a field: %+v", sess)
	}
}

func TestStoreUpdateRejectsUnknownKey(t *testing.T) {
	store := NewStore()
	created := store.Create()
	if _, err := store.Update(created.ID, "nope", "x"); !errors.Is(err, ErrUnknownField) {
		t.Fatalf("expected ErrUnknownField, got %v", err)
	}
}

func TestStoreUpdateRejectsWrongType(t *testing.T) {
	store := NewStore()
	created := store.Create()
	if _, err := store.Update(created.ID, FieldUserID, 7); !errors.Is(err, ErrInvalidValue) {
		t.Fatalf("expected ErrInvalidValue, got %v", err)
	}
	if _, err := store.Update(created.ID, FieldIsWalkin, "yes"); !errors.Is(err, ErrInvalidValue) {
		t.Fatalf("expected ErrInvalidValue, got %v", err)
	}
}

func TestStoreMissingSession(t *testing.T) {
	store := NewStore()
	if _, err := store.Get("missing"); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
	if _, err := store.Update("missing", FieldUserID, "U1"); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestSetPaymentOutcomeGuardsPaid(t *testing.T) {
	store := NewStore()
	created := store.Create()

	// Paid without a compatible check and invoice is refused.
	store.SetPaymentOutcome(created.ID, OutcomePaid)
	sess, _ := store.Get(created.ID)
	if sess.PaymentOutcome == OutcomePaid {
		t.Fatal("paid requires compatible check and invoice")
	}

	// Weaker outcomes are always recordable.
	store.SetPaymentOutcome(created.ID, OutcomeAwaitingMethod)
	sess, _ = store.Get(created.ID)
	if sess.PaymentOutcome != OutcomeAwaitingMethod {
		t.Fatalf("expected awaiting-method, got %s", sess.PaymentOutcome)
	}

	if _, err := store.Apply(created.ID, func(rec *SwapSession) error {
		rec.BatteryCheckStatus = CheckCompatible
		rec.InvoiceID = "I1"
		return nil
	}); err != nil {
		t.Fatalf("apply: %v", err)
	}

	store.SetPaymentOutcome(created.ID, OutcomePaid)
	sess, _ = store.Get(created.ID)
	if sess.PaymentOutcome != OutcomePaid {
		t.Fatalf("expected paid, got %s", sess.PaymentOutcome)
	}

	// Paid never regresses.
	store.SetPaymentOutcome(created.ID, OutcomeAwaitingMethod)
	sess, _ = store.Get(created.ID)
	if sess.PaymentOutcome != OutcomePaid {
		t.Fatal("paid must not regress")
	}
}

func TestSetPaymentOutcomeOnDeletedSessionIsNoOp(t *testing.T) {
	store := NewStore()
	created := store.Create()
	store.Delete(created.ID)

	// Must not panic or resurrect the session.
	store.SetPaymentOutcome(created.ID, OutcomeAwaitingMethod)
	if _, err := store.Get(created.ID); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
}
