//go:build unit

package queries_test

import (
	"context"
	"testing"
	"time"

	"reservatec-core/internal/domain/reservation"
	"reservatec-core/internal/domain/schedule"
	"reservatec-core/internal/infra/lock"
	"reservatec-core/internal/pkg/clock"
	"reservatec-core/internal/usecase/queries"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeReads struct {
	views      []*queries.ReservationView
	candidates []*queries.ReservationView
	booked     []time.Time
}

func (f *fakeReads) FindByID(_ context.Context, id uuid.UUID) (*queries.ReservationView, error) {
	for _, v := range f.views {
		if v.ID == id {
			return v, nil
		}
	}
	return nil, nil
}

func (f *fakeReads) ListVisibleByUser(_ context.Context, userID uuid.UUID) ([]*queries.ReservationView, error) {
	var out []*queries.ReservationView
	for _, v := range f.views {
		if v.UserID == userID {
			out = append(out, v)
		}
	}
	return out, nil
}

func (f *fakeReads) ListCountdownCandidates(_ context.Context, userID uuid.UUID) ([]*queries.ReservationView, error) {
	var out []*queries.ReservationView
	for _, v := range f.candidates {
		if v.UserID == userID {
			out = append(out, v)
		}
	}
	return out, nil
}

func (f *fakeReads) ListBySpaceAndDate(_ context.Context, spaceID uuid.UUID, date time.Time) ([]*queries.ReservationView, error) {
	var out []*queries.ReservationView
	for _, v := range f.views {
		if v.SpaceID == spaceID && schedule.SameDate(v.Date, date) {
			out = append(out, v)
		}
	}
	return out, nil
}

func (f *fakeReads) FullyBookedDates(_ context.Context, _ uuid.UUID, _ int64) ([]time.Time, error) {
	return f.booked, nil
}

func (f *fakeReads) CountByStatusOnDate(_ context.Context, _ string, _ time.Time) (int64, error) {
	return 0, nil
}

func (f *fakeReads) CountByStatusBetween(_ context.Context, _ string, _, _ time.Time) (int64, error) {
	return 0, nil
}

func (f *fakeReads) CountExpiredBetween(_ context.Context, _, _ time.Time) (int64, error) {
	return 0, nil
}

func (f *fakeReads) UsageBetween(_ context.Context, _, _ time.Time) ([]*queries.SpaceUsageView, error) {
	return nil, nil
}

type fakeTimeslots struct {
	slots []*schedule.Timeslot
}

func (f *fakeTimeslots) ListTimeslots(_ context.Context) ([]*schedule.Timeslot, error) {
	return f.slots, nil
}

func (f *fakeTimeslots) CountTimeslots(_ context.Context) (int64, error) {
	return int64(len(f.slots)), nil
}

type fakeLockReader struct {
	owners map[string]string
}

func (f *fakeLockReader) Owner(_ context.Context, key string) (string, time.Duration, error) {
	return f.owners[key], 0, nil
}

var now = time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

func candidateView(userID uuid.UUID, status string, startsAt, endsAt time.Time) *queries.ReservationView {
	return &queries.ReservationView{
		ID:       uuid.New(),
		SpaceID:  uuid.New(),
		UserID:   userID,
		Status:   status,
		Date:     schedule.DateOf(startsAt),
		StartsAt: startsAt,
		EndsAt:   endsAt,
	}
}

func newQueries(reads *fakeReads, slots *fakeTimeslots, locks *fakeLockReader) queries.ReservationQueries {
	if slots == nil {
		slots = &fakeTimeslots{}
	}
	if locks == nil {
		locks = &fakeLockReader{owners: map[string]string{}}
	}
	return queries.NewReservationQueries(reads, slots, locks, clock.NewMockClock(now))
}

func TestCountdown(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()

	cases := []struct {
		name       string
		candidates []*queries.ReservationView
		want       *queries.CountdownView
	}{
		{
			name: "no candidates",
			want: &queries.CountdownView{State: queries.CountdownNone, Message: "no active reservations"},
		},
		{
			name: "active reservation counts down to start",
			candidates: []*queries.ReservationView{
				candidateView(userID, reservation.StatusActive.String(), now.Add(90*time.Second), now.Add(2*time.Hour)),
			},
			want: &queries.CountdownView{State: queries.CountdownActive, Message: "next reservation starts in", Seconds: 90},
		},
		{
			name: "active reservation already past start clamps to zero",
			candidates: []*queries.ReservationView{
				candidateView(userID, reservation.StatusActive.String(), now.Add(-time.Minute), now.Add(2*time.Hour)),
			},
			want: &queries.CountdownView{State: queries.CountdownActive, Message: "next reservation starts in", Seconds: 0},
		},
		{
			name: "in progress reports elapsed seconds",
			candidates: []*queries.ReservationView{
				candidateView(userID, reservation.StatusInProgress.String(), now.Add(-5*time.Minute), now.Add(time.Hour)),
			},
			want: &queries.CountdownView{State: queries.CountdownInProgress, Message: "reservation in progress", Seconds: 300},
		},
		{
			name: "in progress past end reports completed",
			candidates: []*queries.ReservationView{
				candidateView(userID, reservation.StatusInProgress.String(), now.Add(-3*time.Hour), now.Add(-time.Minute)),
			},
			want: &queries.CountdownView{State: queries.CountdownCompleted, Message: "reservation finished"},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			q := newQueries(&fakeReads{candidates: tc.candidates}, nil, nil)

			view, err := q.Countdown(ctx, userID)
			require.NoError(t, err)
			if diff := cmp.Diff(tc.want, view); diff != "" {
				t.Errorf("countdown view mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestOccupiedTimeslots(t *testing.T) {
	ctx := context.Background()

	requester := uuid.New()
	other := uuid.New()
	spaceID := uuid.New()
	date := schedule.DateOf(now)

	slotA := &schedule.Timeslot{ID: uuid.New(), Start: schedule.NewTimeOfDay(8, 0), End: schedule.NewTimeOfDay(10, 0), Active: true}
	slotB := &schedule.Timeslot{ID: uuid.New(), Start: schedule.NewTimeOfDay(10, 0), End: schedule.NewTimeOfDay(12, 0), Active: true}

	view := func(userID, timeslotID uuid.UUID, status string, attendance bool) *queries.ReservationView {
		return &queries.ReservationView{
			ID: uuid.New(), SpaceID: spaceID, TimeslotID: timeslotID,
			UserID: userID, Status: status, AttendanceConfirmed: attendance, Date: date,
		}
	}

	t.Run("another user's active reservation occupies the slot", func(t *testing.T) {
		reads := &fakeReads{views: []*queries.ReservationView{
			view(other, slotA.ID, reservation.StatusActive.String(), false),
		}}
		q := newQueries(reads, &fakeTimeslots{slots: []*schedule.Timeslot{slotA, slotB}}, nil)

		ids, err := q.OccupiedTimeslots(ctx, spaceID, date, requester)
		require.NoError(t, err)
		assert.ElementsMatch(t, []uuid.UUID{slotA.ID}, ids)
	})

	t.Run("another user's no-show cancellation frees the slot", func(t *testing.T) {
		reads := &fakeReads{views: []*queries.ReservationView{
			view(other, slotA.ID, reservation.StatusCancelled.String(), false),
		}}
		q := newQueries(reads, &fakeTimeslots{slots: []*schedule.Timeslot{slotA, slotB}}, nil)

		ids, err := q.OccupiedTimeslots(ctx, spaceID, date, requester)
		require.NoError(t, err)
		assert.Empty(t, ids)
	})

	t.Run("a foreign lock marks the slot as mid-claim", func(t *testing.T) {
		locks := &fakeLockReader{owners: map[string]string{
			lock.KeyFor(spaceID, slotB.ID, date): other.String(),
		}}
		q := newQueries(&fakeReads{}, &fakeTimeslots{slots: []*schedule.Timeslot{slotA, slotB}}, locks)

		ids, err := q.OccupiedTimeslots(ctx, spaceID, date, requester)
		require.NoError(t, err)
		assert.ElementsMatch(t, []uuid.UUID{slotB.ID}, ids)
	})

	t.Run("the requester's own lock does not occupy", func(t *testing.T) {
		locks := &fakeLockReader{owners: map[string]string{
			lock.KeyFor(spaceID, slotB.ID, date): requester.String(),
		}}
		q := newQueries(&fakeReads{}, &fakeTimeslots{slots: []*schedule.Timeslot{slotA, slotB}}, locks)

		ids, err := q.OccupiedTimeslots(ctx, spaceID, date, requester)
		require.NoError(t, err)
		assert.Empty(t, ids)
	})
}

func TestFullyBookedDates(t *testing.T) {
	ctx := context.Background()

	t.Run("no active timeslots means no fully booked dates", func(t *testing.T) {
		q := newQueries(&fakeReads{booked: []time.Time{now}}, &fakeTimeslots{}, nil)

		dates, err := q.FullyBookedDates(ctx, uuid.New())
		require.NoError(t, err)
		assert.Empty(t, dates)
	})

	t.Run("delegates to the read store when slots exist", func(t *testing.T) {
		want := []time.Time{schedule.DateOf(now)}
		slots := &fakeTimeslots{slots: []*schedule.Timeslot{
			{ID: uuid.New(), Start: schedule.NewTimeOfDay(8, 0), End: schedule.NewTimeOfDay(10, 0), Active: true},
		}}
		q := newQueries(&fakeReads{booked: want}, slots, nil)

		dates, err := q.FullyBookedDates(ctx, uuid.New())
		require.NoError(t, err)
		assert.Equal(t, want, dates)
	})
}
