package reservation

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrInvalidTransition          = errors.New("invalid state transition")
	ErrSlotNotStarted             = errors.New("slot has not started yet")
	ErrSlotNotFinished            = errors.New("slot has not finished yet")
	ErrCancelTooLate              = errors.New("cancellation lead time not met")
	ErrAttendanceAlreadyConfirmed = errors.New("attendance is already confirmed")
	ErrAttendanceWindowClosed     = errors.New("attendance confirmation window has closed")
	ErrAttendanceNotAllowed       = errors.New("attendance can only be confirmed for active or in-progress reservations")
)

// Reservation is one user's claim on one slot-instance
// (space × timeslot × date).
type Reservation struct {
	id                  uuid.UUID
	spaceID             uuid.UUID
	timeslotID          uuid.UUID
	date                time.Time
	startsAt            time.Time
	endsAt              time.Time
	userID              uuid.UUID
	userCareer          string
	status              Status
	active              bool
	attendanceConfirmed bool
	adminCreated        bool
	createdAt           time.Time
	updatedAt           time.Time
}

// NewClaim creates a reservation for the given slot window. User claims
// start PENDING and must be confirmed inside the lock TTL; admin claims and
// no-show replacements are committed directly as ACTIVE.
func NewClaim(
	spaceID, timeslotID uuid.UUID,
	date, startsAt, endsAt time.Time,
	userID uuid.UUID,
	userCareer string,
	adminCreated bool,
	directActive bool,
	now time.Time,
) *Reservation {
	status := StatusPending
	if adminCreated || directActive {
		status = StatusActive
	}
	return &Reservation{
		id:           uuid.New(),
		spaceID:      spaceID,
		timeslotID:   timeslotID,
		date:         date,
		startsAt:     startsAt,
		endsAt:       endsAt,
		userID:       userID,
		userCareer:   userCareer,
		status:       status,
		active:       true,
		adminCreated: adminCreated,
		createdAt:    now,
		updatedAt:    now,
	}
}

func Reconstruct(
	id, spaceID, timeslotID uuid.UUID,
	date, startsAt, endsAt time.Time,
	userID uuid.UUID,
	userCareer string,
	status Status,
	active, attendanceConfirmed, adminCreated bool,
	createdAt, updatedAt time.Time,
) *Reservation {
	return &Reservation{
		id:                  id,
		spaceID:             spaceID,
		timeslotID:          timeslotID,
		date:                date,
		startsAt:            startsAt,
		endsAt:              endsAt,
		userID:              userID,
		userCareer:          userCareer,
		status:              status,
		active:              active,
		attendanceConfirmed: attendanceConfirmed,
		adminCreated:        adminCreated,
		createdAt:           createdAt,
		updatedAt:           updatedAt,
	}
}

func (r *Reservation) transitionTo(next Status, now time.Time) error {
	if !r.status.CanTransitionTo(next) {
		return ErrInvalidTransition
	}
	r.status = next
	r.updatedAt = now
	return nil
}

// Confirm moves a pending claim to ACTIVE. The caller is responsible for
// checking that the confirmation lock entry still exists.
func (r *Reservation) Confirm(now time.Time) error {
	if r.status != StatusPending {
		return ErrInvalidTransition
	}
	return r.transitionTo(StatusActive, now)
}

// Begin moves an active reservation to IN_PROGRESS once the slot window has
// opened. Driven by reconciliation, never by the user.
func (r *Reservation) Begin(now time.Time) error {
	if r.status != StatusActive {
		return ErrInvalidTransition
	}
	if now.Before(r.startsAt) {
		return ErrSlotNotStarted
	}
	return r.transitionTo(StatusInProgress, now)
}

// Complete closes an in-progress reservation after the slot window ends.
func (r *Reservation) Complete(now time.Time) error {
	if r.status != StatusInProgress {
		return ErrInvalidTransition
	}
	if !now.After(r.endsAt) {
		return ErrSlotNotFinished
	}
	return r.transitionTo(StatusCompleted, now)
}

// Cancel is the user/admin initiated cancellation. It requires at least
// lead time remaining before the slot starts.
func (r *Reservation) Cancel(now time.Time, lead time.Duration) error {
	if r.status != StatusActive && r.status != StatusInProgress {
		return ErrInvalidTransition
	}
	if r.startsAt.Sub(now) < lead {
		return ErrCancelTooLate
	}
	return r.transitionTo(StatusCancelled, now)
}

// CancelNoShow force-cancels regardless of lead time. Used by the no-show
// reconciliation job.
func (r *Reservation) CancelNoShow(now time.Time) error {
	if r.status != StatusActive && r.status != StatusInProgress {
		return ErrInvalidTransition
	}
	return r.transitionTo(StatusCancelled, now)
}

// AttendanceDeadline is the instant after which attendance can no longer be
// confirmed: the grace window measured from slot start, or from creation
// when the reservation was created mid-slot.
func (r *Reservation) AttendanceDeadline(grace time.Duration) time.Time {
	base := r.startsAt
	if r.createdAt.After(base) {
		base = r.createdAt
	}
	return base.Add(grace)
}

func (r *Reservation) ConfirmAttendance(now time.Time, grace time.Duration) error {
	if r.status != StatusActive && r.status != StatusInProgress {
		return ErrAttendanceNotAllowed
	}
	if r.attendanceConfirmed {
		return ErrAttendanceAlreadyConfirmed
	}
	if now.After(r.AttendanceDeadline(grace)) {
		return ErrAttendanceWindowClosed
	}
	r.attendanceConfirmed = true
	r.updatedAt = now
	return nil
}

// IsNoShow reports whether the reservation should be force-cancelled for
// unconfirmed attendance.
func (r *Reservation) IsNoShow(now time.Time, grace time.Duration) bool {
	if r.attendanceConfirmed {
		return false
	}
	if r.status != StatusActive && r.status != StatusInProgress {
		return false
	}
	return now.After(r.AttendanceDeadline(grace))
}

// NoShowCancelled reports a cancellation with attendance never confirmed;
// such slots are eligible for replacement by another user.
func (r *Reservation) NoShowCancelled() bool {
	return r.status == StatusCancelled && !r.attendanceConfirmed
}

func (r *Reservation) Deactivate(now time.Time) {
	r.active = false
	r.updatedAt = now
}

func (r *Reservation) ID() uuid.UUID             { return r.id }
func (r *Reservation) SpaceID() uuid.UUID        { return r.spaceID }
func (r *Reservation) TimeslotID() uuid.UUID     { return r.timeslotID }
func (r *Reservation) Date() time.Time           { return r.date }
func (r *Reservation) StartsAt() time.Time       { return r.startsAt }
func (r *Reservation) EndsAt() time.Time         { return r.endsAt }
func (r *Reservation) UserID() uuid.UUID         { return r.userID }
func (r *Reservation) UserCareer() string        { return r.userCareer }
func (r *Reservation) Status() Status            { return r.status }
func (r *Reservation) IsActive() bool            { return r.active }
func (r *Reservation) AttendanceConfirmed() bool { return r.attendanceConfirmed }
func (r *Reservation) AdminCreated() bool        { return r.adminCreated }
func (r *Reservation) CreatedAt() time.Time      { return r.createdAt }
func (r *Reservation) UpdatedAt() time.Time      { return r.updatedAt }
