package session

// Wizard steps, in order. The sequencer in internal/wizard owns the
// transitions; the step name itself travels with the session record.
const (
	StepCheckIn  = "check-in"
	StepCheckPin = "check-pin"
	StepInstall  = "install"
	StepPayment  = "payment"
)

// StepOrder lists the steps in wizard order.
var StepOrder = []string{StepCheckIn, StepCheckPin, StepInstall, StepPayment}
