package commands

import (
	"context"
	"time"

	"reservatec-core/internal/domain/reservation"
	"reservatec-core/internal/domain/schedule"
	"reservatec-core/internal/infra/repository"

	"github.com/google/uuid"
)

// UserRef is the caller identity the lifecycle core needs: a stable id and
// the career/cohort attribute used by the adjacency rule.
type UserRef struct {
	ID     uuid.UUID
	Career string
}

type ClaimParams struct {
	SpaceID      uuid.UUID
	TimeslotID   uuid.UUID
	Date         time.Time
	User         UserRef
	AdminCreated bool
}

type ReservationRepository interface {
	Create(ctx context.Context, db repository.DBTX, res *reservation.Reservation) error
	Save(ctx context.Context, db repository.DBTX, res *reservation.Reservation, expected reservation.Status) error
	Purge(ctx context.Context, db repository.DBTX, id uuid.UUID) error
	FindByID(ctx context.Context, db repository.DBTX, id uuid.UUID) (*reservation.Reservation, error)
	FindOccupant(ctx context.Context, db repository.DBTX, spaceID, timeslotID uuid.UUID, date time.Time) (*reservation.Reservation, error)
	FindPendingByUser(ctx context.Context, db repository.DBTX, userID uuid.UUID) ([]*reservation.Reservation, error)
	HasNonTerminalByUser(ctx context.Context, db repository.DBTX, userID uuid.UUID, statuses ...reservation.Status) (bool, error)
	LastFinishedDate(ctx context.Context, db repository.DBTX, userID uuid.UUID, statuses ...reservation.Status) (*time.Time, error)
	ListBySpaceAndDate(ctx context.Context, db repository.DBTX, spaceID uuid.UUID, date time.Time) ([]*reservation.Reservation, error)
	ListByStatus(ctx context.Context, db repository.DBTX, statuses ...reservation.Status) ([]*reservation.Reservation, error)
}

type ExpiredAttemptRepository interface {
	Log(ctx context.Context, db repository.DBTX, attempt reservation.ExpiredAttempt) error
}

type ScheduleReadStore interface {
	FindSpace(ctx context.Context, id uuid.UUID) (*schedule.Space, error)
	FindTimeslot(ctx context.Context, id uuid.UUID) (*schedule.Timeslot, error)
	ListTimeslots(ctx context.Context) ([]*schedule.Timeslot, error)
	FindBlocking(ctx context.Context, date time.Time, spaceID, timeslotID uuid.UUID) (*schedule.BlockedDate, error)
}

// SlotLock is the short-lived distributed lock arbitrating concurrent
// claims. Acquire is single-attempt and non-blocking; Release and Renew are
// conditional on ownership. A store outage surfaces as an error, never as
// "lock free".
type SlotLock interface {
	Acquire(ctx context.Context, key, owner string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, key, owner string) (bool, error)
	Renew(ctx context.Context, key, owner string, ttl time.Duration) (bool, error)
	Owner(ctx context.Context, key string) (string, time.Duration, error)
}

// Event is published to the per-user topic consumed by real-time delivery.
type Event struct {
	Kind          string    `json:"kind"` // "updated" or "countdown"
	State         string    `json:"state,omitempty"`
	Message       string    `json:"message,omitempty"`
	Seconds       int64     `json:"seconds"`
	ReservationID uuid.UUID `json:"reservation_id,omitempty"`
}

const (
	EventKindUpdated   = "updated"
	EventKindCountdown = "countdown"
)

type Notifier interface {
	Publish(ctx context.Context, userID uuid.UUID, event Event) error
}

// TxRunner runs fn inside a database transaction.
type TxRunner interface {
	Within(ctx context.Context, fn func(ctx context.Context, tx repository.DBTX) error) error
}
