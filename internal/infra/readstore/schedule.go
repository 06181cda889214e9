package readstore

import (
	"context"
	"errors"
	"time"

	"reservatec-core/internal/domain/schedule"
	"reservatec-core/internal/infra"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ScheduleReadStore reads the reference data owned by the administrative
// side: spaces, timeslots and blocked-date rules.
type ScheduleReadStore struct {
	pool *pgxpool.Pool
}

func NewScheduleReadStore(pool *pgxpool.Pool) *ScheduleReadStore {
	return &ScheduleReadStore{pool: pool}
}

func (s *ScheduleReadStore) FindSpace(ctx context.Context, id uuid.UUID) (*schedule.Space, error) {
	const q = `SELECT id, name, active FROM spaces WHERE id = $1`

	var sp schedule.Space
	err := s.pool.QueryRow(ctx, q, id).Scan(&sp.ID, &sp.Name, &sp.Active)
	if err != nil {
		return nil, infra.WrapRepoErr("failed to find space", err)
	}
	return &sp, nil
}

func (s *ScheduleReadStore) FindTimeslot(ctx context.Context, id uuid.UUID) (*schedule.Timeslot, error) {
	const q = `SELECT id, start_time, end_time, active FROM timeslots WHERE id = $1`

	return scanTimeslot(s.pool.QueryRow(ctx, q, id))
}

func (s *ScheduleReadStore) ListTimeslots(ctx context.Context) ([]*schedule.Timeslot, error) {
	const q = `SELECT id, start_time, end_time, active FROM timeslots ORDER BY start_time`

	rows, err := s.pool.Query(ctx, q)
	if err != nil {
		return nil, infra.WrapRepoErr("failed to list timeslots", err)
	}
	defer rows.Close()

	var slots []*schedule.Timeslot
	for rows.Next() {
		slot, scanErr := scanTimeslot(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		slots = append(slots, slot)
	}
	if err := rows.Err(); err != nil {
		return nil, infra.WrapRepoErr("failed to iterate timeslots", err)
	}
	return slots, nil
}

func (s *ScheduleReadStore) CountTimeslots(ctx context.Context) (int64, error) {
	var count int64
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM timeslots WHERE active`).Scan(&count); err != nil {
		return 0, infra.WrapRepoErr("failed to count timeslots", err)
	}
	return count, nil
}

// FindBlocking returns the first applicable blocked-date rule covering the
// slot-instance, or nil when none applies. A rule applies when it is active,
// not ignored, covers the date, and targets all spaces/timeslots or the
// specific ones given.
func (s *ScheduleReadStore) FindBlocking(ctx context.Context, date time.Time, spaceID, timeslotID uuid.UUID) (*schedule.BlockedDate, error) {
	const q = `
		SELECT id, reason, kind, space_id, timeslot_id,
		       all_spaces, all_timeslots, date_from, date_to, active, ignored
		FROM blocked_dates
		WHERE active AND NOT ignored
		  AND date_from <= $1 AND date_to >= $1
		  AND (all_spaces OR space_id = $2)
		  AND (all_timeslots OR timeslot_id = $3)
		LIMIT 1`

	var b schedule.BlockedDate
	err := s.pool.QueryRow(ctx, q, date, spaceID, timeslotID).Scan(
		&b.ID, &b.Reason, &b.Kind, &b.SpaceID, &b.TimeslotID,
		&b.AllSpaces, &b.AllTimeslots, &b.From, &b.To, &b.Active, &b.Ignored,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, infra.WrapRepoErr("failed to look up blocked dates", err)
	}
	return &b, nil
}

func scanTimeslot(row pgx.Row) (*schedule.Timeslot, error) {
	var (
		slot       schedule.Timeslot
		start, end pgtype.Time
	)
	if err := row.Scan(&slot.ID, &start, &end, &slot.Active); err != nil {
		return nil, infra.WrapRepoErr("failed to scan timeslot", err)
	}
	slot.Start = schedule.TimeOfDay(time.Duration(start.Microseconds) * time.Microsecond)
	slot.End = schedule.TimeOfDay(time.Duration(end.Microseconds) * time.Microsecond)
	return &slot, nil
}
