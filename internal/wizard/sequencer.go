package wizard

import (
	"errors"
	"fmt"

	"voltswap/internal/session"
)

// Sequencer errors. All of them leave the session at its current step.
var (
	ErrCheckInIncomplete = errors.New("wizard: check-in requires user, vehicle and station")
	ErrNotCompatible     = errors.New("wizard: no compatible battery at selected station")
	ErrBatteryUnchecked  = errors.New("wizard: old battery has not been checked")
	ErrInstallIncomplete = errors.New("wizard: install requires new battery and invoice")
	ErrTerminalStep      = errors.New("wizard: payment is the final step")
	ErrFirstStep         = errors.New("wizard: already at the first step")
)

// nextStep maps each step to its successor. Strictly linear, no skipping.
var nextStep = map[string]string{
	session.StepCheckIn:  session.StepCheckPin,
	session.StepCheckPin: session.StepInstall,
	session.StepInstall:  session.StepPayment,
}

var prevStep = map[string]string{
	session.StepCheckPin: session.StepCheckIn,
	session.StepInstall:  session.StepCheckPin,
	session.StepPayment:  session.StepInstall,
}

// gate returns nil when the session may leave its current step. Gates only
// read already-accumulated fields; they never mutate.
func gate(s *session.SwapSession) error {
	switch s.Step {
	case session.StepCheckIn:
		if s.UserID == "" || s.VehicleID == "" || s.StationID == "" {
			return ErrCheckInIncomplete
		}
		if s.BatteryCheckStatus != session.CheckCompatible {
			return ErrNotCompatible
		}
		return nil
	case session.StepCheckPin:
		if s.OldBatteryID == "" {
			return ErrBatteryUnchecked
		}
		return nil
	case session.StepInstall:
		if s.NewBatteryID == "" || s.InvoiceID == "" {
			return ErrInstallIncomplete
		}
		return nil
	case session.StepPayment:
		return ErrTerminalStep
	default:
		return fmt.Errorf("wizard: unknown step %q", s.Step)
	}
}

// advance moves the live record one step forward if its gate passes.
// Accumulated fields are never touched.
func advance(s *session.SwapSession) error {
	if err := gate(s); err != nil {
		return err
	}
	next, ok := nextStep[s.Step]
	if !ok {
		return ErrTerminalStep
	}
	s.Step = next
	return nil
}

// retreat moves the live record one step back, preserving accumulated fields.
func retreat(s *session.SwapSession) error {
	prev, ok := prevStep[s.Step]
	if !ok {
		return ErrFirstStep
	}
	s.Step = prev
	return nil
}
