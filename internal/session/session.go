package session

import (
	"errors"
	"fmt"
	"time"
)

// Set rejections. Both are caller mistakes, not internal failures.
var (
	ErrUnknownField = errors.New("session: unknown field")
	ErrInvalidValue = errors.New("session: invalid field value")
)

// Battery check statuses accumulated during check-in.
const (
	CheckUnchecked    = "unchecked"
	CheckCompatible   = "compatible"
	CheckIncompatible = "incompatible"
)

// Payment outcomes derived during the payment step.
const (
	OutcomeAwaitingMethod      = "awaiting-method"
	OutcomePendingConfirmation = "pending-confirmation"
	OutcomePaid                = "paid"
)

// SwapSession is the record built up across walk-in wizard steps. It is
// ephemeral: held in memory for the lifetime of the wizard and discarded on
// teardown. Each step's REST calls commit their own durable side effects.
type SwapSession struct {
	ID                 string    `json:"id"`
	UserID             string    `json:"user_id"`
	VehicleID          string    `json:"vehicle_id"`
	StationID          string    `json:"station_id"`
	IsWalkin           bool      `json:"is_walkin"`
	BatteryCheckStatus string    `json:"battery_check_status"`
	OldBatteryID       string    `json:"old_battery_id"`
	NewBatteryID       string    `json:"new_battery_id"`
	InvoiceID          string    `json:"invoice_id"`
	PaymentOutcome     string    `json:"payment_outcome"`
	Step               string    `json:"step"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// Field keys accepted by Set. Steps validate values before writing; the
// accumulator itself only knows how to place them.
const (
	FieldUserID             = "userId"
	FieldVehicleID          = "vehicleId"
	FieldStationID          = "stationId"
	FieldIsWalkin           = "isWalkin"
	FieldBatteryCheckStatus = "batteryCheckStatus"
	FieldOldBatteryID       = "oldBatteryId"
	FieldNewBatteryID       = "newBatteryId"
	FieldInvoiceID          = "invoiceId"
	FieldPaymentOutcome     = "paymentOutcome"
)

// Set shallow-overwrites one field identified by its key. Unknown keys are
// rejected so a typo in a caller never silently drops data.
func (s *SwapSession) Set(key string, value interface{}) error {
	switch key {
	case FieldUserID:
		return setString(&s.UserID, key, value)
	case FieldVehicleID:
		return setString(&s.VehicleID, key, value)
	case FieldStationID:
		return setString(&s.StationID, key, value)
	case FieldIsWalkin:
		b, ok := value.(bool)
		if !ok {
			return fmt.Errorf("%w: field %s expects bool, got %T", ErrInvalidValue, key, value)
		}
		s.IsWalkin = b
		return nil
	case FieldBatteryCheckStatus:
		return setString(&s.BatteryCheckStatus, key, value)
	case FieldOldBatteryID:
		return setString(&s.OldBatteryID, key, value)
	case FieldNewBatteryID:
		return setString(&s.NewBatteryID, key, value)
	case FieldInvoiceID:
		return setString(&s.InvoiceID, key, value)
	case FieldPaymentOutcome:
		return setString(&s.PaymentOutcome, key, value)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownField, key)
	}
}

func setString(dst *string, key string, value interface{}) error {
	str, ok := value.(string)
	if !ok {
		return fmt.Errorf("%w: field %s expects string, got %T", ErrInvalidValue, key, value)
	}
	*dst = str
	return nil
}
