package commands

import (
	"errors"

	"reservatec-core/internal/pkg/errs"
)

// Validation errors: malformed input, rejected before the lock is touched.
var (
	ErrSpaceNotFound       = errs.New("space not found")
	ErrTimeslotNotFound    = errs.New("timeslot not found")
	ErrReservationNotFound = errs.New("reservation not found")
)

// Transient conflicts: the caller may retry once circumstances change.
var (
	ErrSlotBeingClaimed          = errs.New("slot is being claimed by another user")
	ErrConfirmationWindowExpired = errs.New("confirmation window expired")
)

// Invariant violation: the store-level uniqueness check fired despite a
// passing lock. Surfaced as a conflict; logged as an integrity warning.
var ErrSlotAlreadyReserved = errs.New("slot already reserved")

var ErrStoreFailure = errs.New("reservation store failure")

// RejectReason names the eligibility rule that failed.
type RejectReason string

const (
	ReasonSundayClosed      RejectReason = "SUNDAY_CLOSED"
	ReasonSpaceInactive     RejectReason = "SPACE_INACTIVE"
	ReasonDateBlocked       RejectReason = "DATE_BLOCKED"
	ReasonSlotEnding        RejectReason = "SLOT_ENDING"
	ReasonSlotTaken         RejectReason = "SLOT_TAKEN"
	ReasonActiveReservation RejectReason = "ACTIVE_RESERVATION_EXISTS"
	ReasonCooldown          RejectReason = "COOLDOWN"
	ReasonCohortAdjacency   RejectReason = "COHORT_ADJACENCY"
)

// EligibilityError is a user-facing rejection. Not retryable without
// changed circumstances.
type EligibilityError struct {
	Reason RejectReason
	Detail string
}

func (e *EligibilityError) Error() string {
	if e.Detail == "" {
		return "eligibility rejected: " + string(e.Reason)
	}
	return "eligibility rejected: " + string(e.Reason) + ": " + e.Detail
}

func reject(reason RejectReason, detail string) error {
	return &EligibilityError{Reason: reason, Detail: detail}
}

func AsEligibilityError(err error) (*EligibilityError, bool) {
	var e *EligibilityError
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}
