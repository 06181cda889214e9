//go:build unit

package commands_test

import (
	"context"
	"sort"
	"sync"
	"time"

	"reservatec-core/internal/domain/reservation"
	"reservatec-core/internal/domain/schedule"
	"reservatec-core/internal/infra"
	"reservatec-core/internal/infra/repository"
	"reservatec-core/internal/usecase/commands"

	"github.com/google/uuid"
)

// In-memory doubles mirroring the store semantics the lifecycle manager
// relies on: the partial unique index, compare-and-write saves, and the
// conditional lock operations.

func cloneRes(r *reservation.Reservation) *reservation.Reservation {
	return reservation.Reconstruct(
		r.ID(), r.SpaceID(), r.TimeslotID(), r.Date(), r.StartsAt(), r.EndsAt(),
		r.UserID(), r.UserCareer(), r.Status(),
		r.IsActive(), r.AttendanceConfirmed(), r.AdminCreated(),
		r.CreatedAt(), r.UpdatedAt(),
	)
}

type fakeReservationRepo struct {
	mu   sync.Mutex
	rows map[uuid.UUID]*reservation.Reservation
}

func newFakeReservationRepo() *fakeReservationRepo {
	return &fakeReservationRepo{rows: make(map[uuid.UUID]*reservation.Reservation)}
}

func (f *fakeReservationRepo) Create(_ context.Context, _ repository.DBTX, res *reservation.Reservation) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, row := range f.rows {
		if row.SpaceID() == res.SpaceID() && row.TimeslotID() == res.TimeslotID() &&
			schedule.SameDate(row.Date(), res.Date()) && !row.Status().IsTerminal() {
			return infra.NewRepoErr(infra.KindDuplicateKey, "duplicate slot instance")
		}
	}
	f.rows[res.ID()] = cloneRes(res)
	return nil
}

func (f *fakeReservationRepo) Save(_ context.Context, _ repository.DBTX, res *reservation.Reservation, expected reservation.Status) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	row, ok := f.rows[res.ID()]
	if !ok || row.Status() != expected {
		return infra.NewRepoErr(infra.KindNotFound, "reservation was mutated concurrently or no longer exists")
	}
	f.rows[res.ID()] = cloneRes(res)
	return nil
}

func (f *fakeReservationRepo) Purge(_ context.Context, _ repository.DBTX, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	row, ok := f.rows[id]
	if !ok || row.Status() != reservation.StatusPending {
		return infra.NewRepoErr(infra.KindNotFound, "pending reservation not found")
	}
	delete(f.rows, id)
	return nil
}

func (f *fakeReservationRepo) FindByID(_ context.Context, _ repository.DBTX, id uuid.UUID) (*reservation.Reservation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	row, ok := f.rows[id]
	if !ok {
		return nil, infra.NewRepoErr(infra.KindNotFound, "reservation not found")
	}
	return cloneRes(row), nil
}

func (f *fakeReservationRepo) FindOccupant(_ context.Context, _ repository.DBTX, spaceID, timeslotID uuid.UUID, date time.Time) (*reservation.Reservation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var latest *reservation.Reservation
	for _, row := range f.rows {
		if row.SpaceID() != spaceID || row.TimeslotID() != timeslotID || !schedule.SameDate(row.Date(), date) {
			continue
		}
		if latest == nil || row.CreatedAt().After(latest.CreatedAt()) {
			latest = row
		}
	}
	if latest == nil {
		return nil, nil
	}
	return cloneRes(latest), nil
}

func (f *fakeReservationRepo) FindPendingByUser(_ context.Context, _ repository.DBTX, userID uuid.UUID) ([]*reservation.Reservation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []*reservation.Reservation
	for _, row := range f.rows {
		if row.UserID() == userID && row.Status() == reservation.StatusPending {
			out = append(out, cloneRes(row))
		}
	}
	return out, nil
}

func (f *fakeReservationRepo) HasNonTerminalByUser(_ context.Context, _ repository.DBTX, userID uuid.UUID, statuses ...reservation.Status) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, row := range f.rows {
		if row.UserID() != userID || !row.IsActive() {
			continue
		}
		for _, s := range statuses {
			if row.Status() == s {
				return true, nil
			}
		}
	}
	return false, nil
}

func (f *fakeReservationRepo) LastFinishedDate(_ context.Context, _ repository.DBTX, userID uuid.UUID, statuses ...reservation.Status) (*time.Time, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var latest *time.Time
	for _, row := range f.rows {
		if row.UserID() != userID {
			continue
		}
		match := false
		for _, s := range statuses {
			if row.Status() == s {
				match = true
				break
			}
		}
		if !match {
			continue
		}
		d := row.Date()
		if latest == nil || d.After(*latest) {
			latest = &d
		}
	}
	return latest, nil
}

func (f *fakeReservationRepo) ListBySpaceAndDate(_ context.Context, _ repository.DBTX, spaceID uuid.UUID, date time.Time) ([]*reservation.Reservation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []*reservation.Reservation
	for _, row := range f.rows {
		if row.SpaceID() == spaceID && schedule.SameDate(row.Date(), date) && row.IsActive() {
			out = append(out, cloneRes(row))
		}
	}
	return out, nil
}

func (f *fakeReservationRepo) ListByStatus(_ context.Context, _ repository.DBTX, statuses ...reservation.Status) ([]*reservation.Reservation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []*reservation.Reservation
	for _, row := range f.rows {
		for _, s := range statuses {
			if row.Status() == s {
				out = append(out, cloneRes(row))
				break
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartsAt().Before(out[j].StartsAt()) })
	return out, nil
}

func (f *fakeReservationRepo) get(id uuid.UUID) *reservation.Reservation {
	f.mu.Lock()
	defer f.mu.Unlock()
	row, ok := f.rows[id]
	if !ok {
		return nil
	}
	return cloneRes(row)
}

func (f *fakeReservationRepo) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.rows)
}

type fakeAttemptLog struct {
	mu       sync.Mutex
	attempts []reservation.ExpiredAttempt
}

func (f *fakeAttemptLog) Log(_ context.Context, _ repository.DBTX, attempt reservation.ExpiredAttempt) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.attempts = append(f.attempts, attempt)
	return nil
}

func (f *fakeAttemptLog) logged() []reservation.ExpiredAttempt {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]reservation.ExpiredAttempt(nil), f.attempts...)
}

// fakeSlotLock keeps entries until explicitly released or expired via
// expire(), standing in for TTL lapse.
type fakeSlotLock struct {
	mu      sync.Mutex
	entries map[string]string
}

func newFakeSlotLock() *fakeSlotLock {
	return &fakeSlotLock{entries: make(map[string]string)}
}

func (f *fakeSlotLock) Acquire(_ context.Context, key, owner string, _ time.Duration) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	current, ok := f.entries[key]
	if ok && current != owner {
		return false, nil
	}
	f.entries[key] = owner
	return true, nil
}

func (f *fakeSlotLock) Release(_ context.Context, key, owner string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.entries[key] != owner {
		return false, nil
	}
	delete(f.entries, key)
	return true, nil
}

func (f *fakeSlotLock) Renew(_ context.Context, key, owner string, _ time.Duration) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.entries[key] != owner {
		return false, nil
	}
	return true, nil
}

func (f *fakeSlotLock) Owner(_ context.Context, key string) (string, time.Duration, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.entries[key], 0, nil
}

func (f *fakeSlotLock) expire(key string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.entries, key)
}

func (f *fakeSlotLock) held() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.entries)
}

type fakeScheduleReads struct {
	spaces map[uuid.UUID]*schedule.Space
	slots  []*schedule.Timeslot
	blocks []*schedule.BlockedDate
}

func (f *fakeScheduleReads) FindSpace(_ context.Context, id uuid.UUID) (*schedule.Space, error) {
	sp, ok := f.spaces[id]
	if !ok {
		return nil, infra.NewRepoErr(infra.KindNotFound, "space not found")
	}
	cp := *sp
	return &cp, nil
}

func (f *fakeScheduleReads) FindTimeslot(_ context.Context, id uuid.UUID) (*schedule.Timeslot, error) {
	for _, s := range f.slots {
		if s.ID == id {
			cp := *s
			return &cp, nil
		}
	}
	return nil, infra.NewRepoErr(infra.KindNotFound, "timeslot not found")
}

func (f *fakeScheduleReads) ListTimeslots(_ context.Context) ([]*schedule.Timeslot, error) {
	out := make([]*schedule.Timeslot, len(f.slots))
	for i, s := range f.slots {
		cp := *s
		out[i] = &cp
	}
	return out, nil
}

func (f *fakeScheduleReads) FindBlocking(_ context.Context, date time.Time, spaceID, timeslotID uuid.UUID) (*schedule.BlockedDate, error) {
	for _, b := range f.blocks {
		if b.AppliesTo(date, spaceID, timeslotID) {
			cp := *b
			return &cp, nil
		}
	}
	return nil, nil
}

type fakeNotifier struct {
	mu     sync.Mutex
	events []publishedEvent
}

type publishedEvent struct {
	UserID uuid.UUID
	Event  commands.Event
}

func (f *fakeNotifier) Publish(_ context.Context, userID uuid.UUID, event commands.Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, publishedEvent{UserID: userID, Event: event})
	return nil
}

func (f *fakeNotifier) published() []publishedEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]publishedEvent(nil), f.events...)
}

type fakeTxRunner struct{}

func (fakeTxRunner) Within(ctx context.Context, fn func(ctx context.Context, tx repository.DBTX) error) error {
	return fn(ctx, nil)
}
