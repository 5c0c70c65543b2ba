package provision

import (
	"errors"

	"github.com/muurk/espcfg/internal/device"
)

var (
	// ErrInFlight rejects an operation while the same operation is running.
	ErrInFlight = errors.New("operation already in progress")

	// ErrSessionReset is reported by an operation whose session was reset
	// while it ran. Its result is discarded.
	ErrSessionReset = errors.New("session was reset")

	// ErrStepLocked rejects a wizard transition or a step operation that the
	// current verification state does not allow.
	ErrStepLocked = device.NewValidationError("step is locked until the current step is verified")

	// ErrQueryChanged discards a search whose query was edited before the
	// device answered.
	ErrQueryChanged = device.NewValidationError("the search text changed while searching; search again")

	// ErrSessionComplete rejects any wizard transition out of the final step.
	ErrSessionComplete = device.NewValidationError("provisioning is complete; reset to start over")
)

// Outcome is the normalized result of a protocol step.
type Outcome struct {
	Success bool        `json:"success"`
	Kind    device.Kind `json:"kind"`
	Message string      `json:"message"`
	Err     error       `json:"-"`
}

func succeeded(message string) Outcome {
	return Outcome{Success: true, Kind: device.KindNone, Message: message}
}

// failed builds an Outcome from err, classifying it with the device taxonomy.
func failed(err error) Outcome {
	kind := device.KindOf(err)
	if errors.Is(err, ErrInFlight) || errors.Is(err, ErrSessionReset) {
		kind = device.KindValidation
	}
	return Outcome{
		Success: false,
		Kind:    kind,
		Message: device.GetShortErrorMessage(err),
		Err:     err,
	}
}
