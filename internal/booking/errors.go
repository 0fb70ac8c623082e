package booking

import (
	"errors"
	"fmt"

	"github.com/fisiohome/booking-engine/internal/gateway"
)

var (
	ErrSeriesBusy = errors.New("series is being updated, please retry")
)

// Error type tags surfaced in update results and API error payloads.
const (
	TypeMissingParameter = "MissingParameter"
	TypeTimeCollision    = "TimeCollision"
	TypeRecordInvalid    = "RecordInvalid"
	TypeGateway          = "BookingGatewayError"
)

// MissingParameterError means a required input group was absent. Fatal,
// surfaced immediately.
type MissingParameterError struct {
	Param string
}

func (e *MissingParameterError) Error() string {
	return fmt.Sprintf("param is missing or the value is empty: %s", e.Param)
}

// TimeCollisionError means a candidate slot window overlaps a sibling visit
// in the same series. Recoverable; surfaced to the caller as a validation
// style error.
type TimeCollisionError struct {
	CandidateVisit int
	SiblingVisit   int
}

func (e *TimeCollisionError) Error() string {
	return fmt.Sprintf(
		"schedule conflict: visit %d overlaps the slot window of visit %d in the same booking series",
		e.CandidateVisit, e.SiblingVisit,
	)
}

// RecordInvalidError is a domain validation failure, e.g. an out-of-enum
// gender value.
type RecordInvalidError struct {
	Reason string
}

func (e *RecordInvalidError) Error() string {
	return "record invalid: " + e.Reason
}

// errorType maps a domain error to its result tag; empty for unknown errors.
func errorType(err error) string {
	var (
		mp *MissingParameterError
		tc *TimeCollisionError
		ri *RecordInvalidError
		ge *gateway.ResponseError
	)
	switch {
	case errors.As(err, &mp):
		return TypeMissingParameter
	case errors.As(err, &tc):
		return TypeTimeCollision
	case errors.As(err, &ri):
		return TypeRecordInvalid
	case errors.As(err, &ge):
		return TypeGateway
	}
	return ""
}
