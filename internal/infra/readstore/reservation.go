package readstore

import (
	"context"
	"time"

	"reservatec-core/internal/domain/reservation"
	"reservatec-core/internal/infra"
	"reservatec-core/internal/usecase/queries"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const reservationViewColumns = `
	r.id, r.space_id, s.name, r.timeslot_id, r.date, r.starts_at, r.ends_at,
	r.user_id, r.status, r.attendance_confirmed, r.admin_created, r.created_at`

type ReservationReadStore struct {
	pool *pgxpool.Pool
}

func NewReservationReadStore(pool *pgxpool.Pool) *ReservationReadStore {
	return &ReservationReadStore{pool: pool}
}

func (s *ReservationReadStore) FindByID(ctx context.Context, id uuid.UUID) (*queries.ReservationView, error) {
	const q = `
		SELECT ` + reservationViewColumns + `
		FROM reservations r
		JOIN spaces s ON s.id = r.space_id
		WHERE r.id = $1`

	return scanReservationView(s.pool.QueryRow(ctx, q, id))
}

// ListVisibleByUser returns the user's reservations in client-visible
// states, excluding soft-deactivated rows and pending claims.
func (s *ReservationReadStore) ListVisibleByUser(ctx context.Context, userID uuid.UUID) ([]*queries.ReservationView, error) {
	const q = `
		SELECT ` + reservationViewColumns + `
		FROM reservations r
		JOIN spaces s ON s.id = r.space_id
		WHERE r.user_id = $1 AND r.active
		  AND r.status = ANY($2)
		ORDER BY r.starts_at DESC`

	visible := []string{
		reservation.StatusActive.String(),
		reservation.StatusInProgress.String(),
		reservation.StatusCompleted.String(),
		reservation.StatusCancelled.String(),
	}
	return s.list(ctx, q, userID, visible)
}

// ListCountdownCandidates returns the user's confirmed reservations ordered
// by start, soonest first.
func (s *ReservationReadStore) ListCountdownCandidates(ctx context.Context, userID uuid.UUID) ([]*queries.ReservationView, error) {
	const q = `
		SELECT ` + reservationViewColumns + `
		FROM reservations r
		JOIN spaces s ON s.id = r.space_id
		WHERE r.user_id = $1 AND r.active
		  AND r.status = ANY($2)
		ORDER BY r.starts_at`

	countdown := []string{
		reservation.StatusActive.String(),
		reservation.StatusInProgress.String(),
	}
	return s.list(ctx, q, userID, countdown)
}

func (s *ReservationReadStore) ListBySpaceAndDate(ctx context.Context, spaceID uuid.UUID, date time.Time) ([]*queries.ReservationView, error) {
	const q = `
		SELECT ` + reservationViewColumns + `
		FROM reservations r
		JOIN spaces s ON s.id = r.space_id
		WHERE r.space_id = $1 AND r.date = $2 AND r.active`

	return s.list(ctx, q, spaceID, date)
}

// FullyBookedDates returns dates where PENDING plus ACTIVE reservations
// cover every active timeslot of the space.
func (s *ReservationReadStore) FullyBookedDates(ctx context.Context, spaceID uuid.UUID, slotCount int64) ([]time.Time, error) {
	const q = `
		SELECT date
		FROM reservations
		WHERE space_id = $1 AND active AND status = ANY($2)
		GROUP BY date
		HAVING COUNT(*) >= $3
		ORDER BY date`

	blocking := []string{
		reservation.StatusPending.String(),
		reservation.StatusActive.String(),
	}
	rows, err := s.pool.Query(ctx, q, spaceID, blocking, slotCount)
	if err != nil {
		return nil, infra.WrapRepoErr("failed to list fully booked dates", err)
	}
	defer rows.Close()

	var dates []time.Time
	for rows.Next() {
		var d time.Time
		if err := rows.Scan(&d); err != nil {
			return nil, infra.WrapRepoErr("failed to scan date", err)
		}
		dates = append(dates, d)
	}
	if err := rows.Err(); err != nil {
		return nil, infra.WrapRepoErr("failed to iterate dates", err)
	}
	return dates, nil
}

func (s *ReservationReadStore) CountByStatusOnDate(ctx context.Context, status string, date time.Time) (int64, error) {
	const q = `SELECT COUNT(*) FROM reservations WHERE status = $1 AND date = $2`

	var count int64
	if err := s.pool.QueryRow(ctx, q, status, date).Scan(&count); err != nil {
		return 0, infra.WrapRepoErr("failed to count reservations by status and date", err)
	}
	return count, nil
}

func (s *ReservationReadStore) CountByStatusBetween(ctx context.Context, status string, from, to time.Time) (int64, error) {
	const q = `SELECT COUNT(*) FROM reservations WHERE status = $1 AND date BETWEEN $2 AND $3`

	var count int64
	if err := s.pool.QueryRow(ctx, q, status, from, to).Scan(&count); err != nil {
		return 0, infra.WrapRepoErr("failed to count reservations by status", err)
	}
	return count, nil
}

func (s *ReservationReadStore) CountExpiredBetween(ctx context.Context, from, to time.Time) (int64, error) {
	const q = `SELECT COUNT(*) FROM expired_attempt_log WHERE date BETWEEN $1 AND $2`

	var count int64
	if err := s.pool.QueryRow(ctx, q, from, to).Scan(&count); err != nil {
		return 0, infra.WrapRepoErr("failed to count expired attempts", err)
	}
	return count, nil
}

var weekdayNames = map[int]string{
	1: "Monday",
	2: "Tuesday",
	3: "Wednesday",
	4: "Thursday",
	5: "Friday",
}

// UsageBetween sums reserved hours per weekday (Monday..Friday) per space.
func (s *ReservationReadStore) UsageBetween(ctx context.Context, from, to time.Time) ([]*queries.SpaceUsageView, error) {
	const q = `
		SELECT s.name,
		       EXTRACT(ISODOW FROM r.date)::int AS dow,
		       COALESCE(SUM(EXTRACT(EPOCH FROM (r.ends_at - r.starts_at)) / 3600), 0)::int AS hours
		FROM reservations r
		JOIN spaces s ON s.id = r.space_id
		WHERE r.date BETWEEN $1 AND $2
		  AND EXTRACT(ISODOW FROM r.date) <= 5
		GROUP BY s.name, dow
		ORDER BY s.name, dow`

	rows, err := s.pool.Query(ctx, q, from, to)
	if err != nil {
		return nil, infra.WrapRepoErr("failed to aggregate space usage", err)
	}
	defer rows.Close()

	byName := make(map[string]*queries.SpaceUsageView)
	var order []string
	for rows.Next() {
		var (
			name  string
			dow   int
			hours int
		)
		if err := rows.Scan(&name, &dow, &hours); err != nil {
			return nil, infra.WrapRepoErr("failed to scan usage row", err)
		}
		view, ok := byName[name]
		if !ok {
			view = &queries.SpaceUsageView{SpaceName: name, Hours: make(map[string]int, len(weekdayNames))}
			for _, day := range weekdayNames {
				view.Hours[day] = 0
			}
			byName[name] = view
			order = append(order, name)
		}
		if day, ok := weekdayNames[dow]; ok {
			view.Hours[day] += hours
		}
	}
	if err := rows.Err(); err != nil {
		return nil, infra.WrapRepoErr("failed to iterate usage rows", err)
	}

	result := make([]*queries.SpaceUsageView, 0, len(order))
	for _, name := range order {
		result = append(result, byName[name])
	}
	return result, nil
}

func (s *ReservationReadStore) list(ctx context.Context, q string, args ...any) ([]*queries.ReservationView, error) {
	rows, err := s.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, infra.WrapRepoErr("failed to list reservations", err)
	}
	defer rows.Close()

	var views []*queries.ReservationView
	for rows.Next() {
		view, scanErr := scanReservationView(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		views = append(views, view)
	}
	if err := rows.Err(); err != nil {
		return nil, infra.WrapRepoErr("failed to iterate reservations", err)
	}
	return views, nil
}

func scanReservationView(row pgx.Row) (*queries.ReservationView, error) {
	var v queries.ReservationView
	err := row.Scan(
		&v.ID, &v.SpaceID, &v.SpaceName, &v.TimeslotID, &v.Date, &v.StartsAt, &v.EndsAt,
		&v.UserID, &v.Status, &v.AttendanceConfirmed, &v.AdminCreated, &v.CreatedAt,
	)
	if err != nil {
		return nil, infra.WrapRepoErr("failed to scan reservation view", err)
	}
	return &v, nil
}
