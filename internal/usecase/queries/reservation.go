package queries

import (
	"context"
	"time"

	"reservatec-core/internal/domain/reservation"
	"reservatec-core/internal/domain/schedule"
	"reservatec-core/internal/infra/lock"
	"reservatec-core/internal/pkg/clock"

	"github.com/google/uuid"
)

type ReservationReadStore interface {
	FindByID(ctx context.Context, id uuid.UUID) (*ReservationView, error)
	ListVisibleByUser(ctx context.Context, userID uuid.UUID) ([]*ReservationView, error)
	ListCountdownCandidates(ctx context.Context, userID uuid.UUID) ([]*ReservationView, error)
	ListBySpaceAndDate(ctx context.Context, spaceID uuid.UUID, date time.Time) ([]*ReservationView, error)
	FullyBookedDates(ctx context.Context, spaceID uuid.UUID, slotCount int64) ([]time.Time, error)
	CountByStatusOnDate(ctx context.Context, status string, date time.Time) (int64, error)
	CountByStatusBetween(ctx context.Context, status string, from, to time.Time) (int64, error)
	CountExpiredBetween(ctx context.Context, from, to time.Time) (int64, error)
	UsageBetween(ctx context.Context, from, to time.Time) ([]*SpaceUsageView, error)
}

type TimeslotReadStore interface {
	ListTimeslots(ctx context.Context) ([]*schedule.Timeslot, error)
	CountTimeslots(ctx context.Context) (int64, error)
}

// LockReader exposes the read half of the slot lock so availability queries
// can surface claims that are mid-confirmation.
type LockReader interface {
	Owner(ctx context.Context, key string) (string, time.Duration, error)
}

type ReservationQueries interface {
	GetByID(ctx context.Context, id uuid.UUID) (*ReservationView, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*ReservationView, error)
	Countdown(ctx context.Context, userID uuid.UUID) (*CountdownView, error)
	OccupiedTimeslots(ctx context.Context, spaceID uuid.UUID, date time.Time, requesterID uuid.UUID) ([]uuid.UUID, error)
	FullyBookedDates(ctx context.Context, spaceID uuid.UUID) ([]time.Time, error)
	MonthlyStats(ctx context.Context) (*MonthlyStatsView, error)
	SpaceUsage(ctx context.Context) ([]*SpaceUsageView, error)
}

type reservationQueriesImpl struct {
	reads     ReservationReadStore
	timeslots TimeslotReadStore
	locks     LockReader
	clock     clock.Clock
}

func NewReservationQueries(
	reads ReservationReadStore,
	timeslots TimeslotReadStore,
	locks LockReader,
	clk clock.Clock,
) ReservationQueries {
	return &reservationQueriesImpl{
		reads:     reads,
		timeslots: timeslots,
		locks:     locks,
		clock:     clk,
	}
}

func (q *reservationQueriesImpl) GetByID(ctx context.Context, id uuid.UUID) (*ReservationView, error) {
	return q.reads.FindByID(ctx, id)
}

func (q *reservationQueriesImpl) ListByUser(ctx context.Context, userID uuid.UUID) ([]*ReservationView, error) {
	return q.reads.ListVisibleByUser(ctx, userID)
}

// Countdown reports the state of the user's attendance clock based on their
// next (or current) confirmed reservation.
func (q *reservationQueriesImpl) Countdown(ctx context.Context, userID uuid.UUID) (*CountdownView, error) {
	candidates, err := q.reads.ListCountdownCandidates(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return &CountdownView{State: CountdownNone, Message: "no active reservations"}, nil
	}

	next := candidates[0]
	now := q.clock.Now()

	switch {
	case next.Status == reservation.StatusInProgress.String() && now.After(next.EndsAt):
		return &CountdownView{State: CountdownCompleted, Message: "reservation finished"}, nil
	case next.Status == reservation.StatusInProgress.String():
		elapsed := int64(now.Sub(next.StartsAt).Seconds())
		return &CountdownView{State: CountdownInProgress, Message: "reservation in progress", Seconds: elapsed}, nil
	case next.Status == reservation.StatusActive.String():
		remaining := int64(next.StartsAt.Sub(now).Seconds())
		if remaining < 0 {
			remaining = 0
		}
		return &CountdownView{State: CountdownActive, Message: "next reservation starts in", Seconds: remaining}, nil
	}

	return &CountdownView{State: CountdownNone, Message: "no active reservations"}, nil
}

// OccupiedTimeslots lists timeslot ids unavailable to the requester on a
// space and date: committed occupancy from the store plus slots whose lock
// is currently held by someone else mid-claim.
func (q *reservationQueriesImpl) OccupiedTimeslots(ctx context.Context, spaceID uuid.UUID, date time.Time, requesterID uuid.UUID) ([]uuid.UUID, error) {
	views, err := q.reads.ListBySpaceAndDate(ctx, spaceID, date)
	if err != nil {
		return nil, err
	}

	occupied := make(map[uuid.UUID]struct{})
	for _, v := range views {
		if v.UserID != requesterID {
			switch reservation.Status(v.Status) {
			case reservation.StatusPending, reservation.StatusActive, reservation.StatusInProgress:
				occupied[v.TimeslotID] = struct{}{}
			case reservation.StatusCancelled:
				if v.AttendanceConfirmed {
					occupied[v.TimeslotID] = struct{}{}
				}
			}
		}
		// Own confirmed slots stay blocked so the client cannot re-book them.
		s := reservation.Status(v.Status)
		if (s == reservation.StatusActive || s == reservation.StatusInProgress) && v.AttendanceConfirmed {
			occupied[v.TimeslotID] = struct{}{}
		}
	}

	slots, err := q.timeslots.ListTimeslots(ctx)
	if err != nil {
		return nil, err
	}
	for _, slot := range slots {
		owner, _, err := q.locks.Owner(ctx, lock.KeyFor(spaceID, slot.ID, date))
		if err != nil {
			return nil, err
		}
		if owner != "" && owner != requesterID.String() {
			occupied[slot.ID] = struct{}{}
		}
	}

	ids := make([]uuid.UUID, 0, len(occupied))
	for id := range occupied {
		ids = append(ids, id)
	}
	return ids, nil
}

// FullyBookedDates lists dates on which every active timeslot of the space
// is already taken by a PENDING or ACTIVE reservation.
func (q *reservationQueriesImpl) FullyBookedDates(ctx context.Context, spaceID uuid.UUID) ([]time.Time, error) {
	slotCount, err := q.timeslots.CountTimeslots(ctx)
	if err != nil {
		return nil, err
	}
	if slotCount == 0 {
		return nil, nil
	}
	return q.reads.FullyBookedDates(ctx, spaceID, slotCount)
}

func (q *reservationQueriesImpl) MonthlyStats(ctx context.Context) (*MonthlyStatsView, error) {
	now := q.clock.Now()
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	monthEnd := monthStart.AddDate(0, 1, -1)

	stats := &MonthlyStatsView{}
	var err error
	// Active is a point-in-time figure (today's confirmed reservations);
	// the rest accumulate over the month.
	if stats.ActiveCount, err = q.reads.CountByStatusOnDate(ctx, reservation.StatusActive.String(), schedule.DateOf(now)); err != nil {
		return nil, err
	}
	if stats.CompletedCount, err = q.reads.CountByStatusBetween(ctx, reservation.StatusCompleted.String(), monthStart, monthEnd); err != nil {
		return nil, err
	}
	if stats.CancelledCount, err = q.reads.CountByStatusBetween(ctx, reservation.StatusCancelled.String(), monthStart, monthEnd); err != nil {
		return nil, err
	}
	if stats.ExpiredAttempts, err = q.reads.CountExpiredBetween(ctx, monthStart, schedule.DateOf(now)); err != nil {
		return nil, err
	}
	return stats, nil
}

// SpaceUsage aggregates reserved hours per weekday for the current month up
// to today.
func (q *reservationQueriesImpl) SpaceUsage(ctx context.Context) ([]*SpaceUsageView, error) {
	now := q.clock.Now()
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	return q.reads.UsageBetween(ctx, monthStart, schedule.DateOf(now))
}
