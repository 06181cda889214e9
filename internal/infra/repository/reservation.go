package repository

import (
	"context"
	"errors"
	"time"

	"reservatec-core/internal/domain/reservation"
	"reservatec-core/internal/infra"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const reservationColumns = `
	id, space_id, timeslot_id, date, starts_at, ends_at,
	user_id, user_career, status, active, attendance_confirmed,
	admin_created, created_at, updated_at`

type ReservationRepository struct{}

func NewReservationRepository() *ReservationRepository {
	return &ReservationRepository{}
}

// Create inserts a new claim. The partial unique index over non-terminal
// statuses on (space_id, timeslot_id, date) is the last line of defense
// against races the slot lock failed to prevent; a trip surfaces as
// KindDuplicateKey.
func (r *ReservationRepository) Create(ctx context.Context, db DBTX, res *reservation.Reservation) error {
	const q = `
		INSERT INTO reservations (` + reservationColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`

	_, err := db.Exec(ctx, q,
		res.ID(), res.SpaceID(), res.TimeslotID(), res.Date(), res.StartsAt(), res.EndsAt(),
		res.UserID(), res.UserCareer(), res.Status().String(), res.IsActive(), res.AttendanceConfirmed(),
		res.AdminCreated(), res.CreatedAt(), res.UpdatedAt(),
	)
	if err != nil {
		return infra.WrapRepoErr("failed to create reservation", err)
	}
	return nil
}

// Save persists a mutated reservation with single-row compare-and-write
// semantics: the update applies only while the row still carries the status
// the caller loaded. A lost race surfaces as KindNotFound and the caller
// skips the row.
func (r *ReservationRepository) Save(ctx context.Context, db DBTX, res *reservation.Reservation, expected reservation.Status) error {
	const q = `
		UPDATE reservations
		SET status = $2, active = $3, attendance_confirmed = $4, updated_at = $5
		WHERE id = $1 AND status = $6`

	tag, err := db.Exec(ctx, q,
		res.ID(), res.Status().String(), res.IsActive(), res.AttendanceConfirmed(), res.UpdatedAt(),
		expected.String(),
	)
	if err != nil {
		return infra.WrapRepoErr("failed to save reservation", err)
	}
	if tag.RowsAffected() == 0 {
		return infra.NewRepoErr(infra.KindNotFound, "reservation was mutated concurrently or no longer exists")
	}
	return nil
}

// Purge hard-deletes a row. Only expired or abandoned PENDING claims are
// ever purged; everything else is soft-deactivated.
func (r *ReservationRepository) Purge(ctx context.Context, db DBTX, id uuid.UUID) error {
	tag, err := db.Exec(ctx, `DELETE FROM reservations WHERE id = $1 AND status = $2`,
		id, reservation.StatusPending.String())
	if err != nil {
		return infra.WrapRepoErr("failed to purge reservation", err)
	}
	if tag.RowsAffected() == 0 {
		return infra.NewRepoErr(infra.KindNotFound, "pending reservation not found")
	}
	return nil
}

func (r *ReservationRepository) FindByID(ctx context.Context, db DBTX, id uuid.UUID) (*reservation.Reservation, error) {
	const q = `SELECT ` + reservationColumns + ` FROM reservations WHERE id = $1`
	return r.scanOne(db.QueryRow(ctx, q, id))
}

// FindOccupant returns the most recent reservation row for the tuple, or
// nil when the slot-instance has never been claimed.
func (r *ReservationRepository) FindOccupant(ctx context.Context, db DBTX, spaceID, timeslotID uuid.UUID, date time.Time) (*reservation.Reservation, error) {
	const q = `
		SELECT ` + reservationColumns + `
		FROM reservations
		WHERE space_id = $1 AND timeslot_id = $2 AND date = $3
		ORDER BY created_at DESC
		LIMIT 1`

	res, err := r.scanOne(db.QueryRow(ctx, q, spaceID, timeslotID, date))
	if err != nil {
		if infra.IsKind(err, infra.KindNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return res, nil
}

func (r *ReservationRepository) FindPendingByUser(ctx context.Context, db DBTX, userID uuid.UUID) ([]*reservation.Reservation, error) {
	const q = `
		SELECT ` + reservationColumns + `
		FROM reservations
		WHERE user_id = $1 AND status = $2`

	rows, err := db.Query(ctx, q, userID, reservation.StatusPending.String())
	if err != nil {
		return nil, infra.WrapRepoErr("failed to list pending reservations", err)
	}
	return r.scanAll(rows)
}

// HasNonTerminalByUser reports whether the user currently holds an ACTIVE
// or IN_PROGRESS reservation.
func (r *ReservationRepository) HasNonTerminalByUser(ctx context.Context, db DBTX, userID uuid.UUID, statuses ...reservation.Status) (bool, error) {
	const q = `
		SELECT EXISTS (
			SELECT 1 FROM reservations
			WHERE user_id = $1 AND active AND status = ANY($2)
		)`

	var exists bool
	if err := db.QueryRow(ctx, q, userID, statusStrings(statuses)).Scan(&exists); err != nil {
		return false, infra.WrapRepoErr("failed to check user reservations", err)
	}
	return exists, nil
}

// LastFinishedDate returns the date of the user's most recent reservation in
// any of the given statuses, or nil when there is none. Drives the cooldown
// rule.
func (r *ReservationRepository) LastFinishedDate(ctx context.Context, db DBTX, userID uuid.UUID, statuses ...reservation.Status) (*time.Time, error) {
	const q = `
		SELECT date FROM reservations
		WHERE user_id = $1 AND status = ANY($2)
		ORDER BY date DESC
		LIMIT 1`

	var date time.Time
	err := db.QueryRow(ctx, q, userID, statusStrings(statuses)).Scan(&date)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, infra.WrapRepoErr("failed to find last finished reservation", err)
	}
	return &date, nil
}

// ListBySpaceAndDate returns the active reservations of a space on a date.
// Used by the adjacency rule and the occupancy query.
func (r *ReservationRepository) ListBySpaceAndDate(ctx context.Context, db DBTX, spaceID uuid.UUID, date time.Time) ([]*reservation.Reservation, error) {
	const q = `
		SELECT ` + reservationColumns + `
		FROM reservations
		WHERE space_id = $1 AND date = $2 AND active`

	rows, err := db.Query(ctx, q, spaceID, date)
	if err != nil {
		return nil, infra.WrapRepoErr("failed to list reservations for space and date", err)
	}
	return r.scanAll(rows)
}

// ListByStatus returns every reservation in the given statuses. Used by the
// reconciliation jobs, which read broad slices of non-terminal rows.
func (r *ReservationRepository) ListByStatus(ctx context.Context, db DBTX, statuses ...reservation.Status) ([]*reservation.Reservation, error) {
	const q = `
		SELECT ` + reservationColumns + `
		FROM reservations
		WHERE status = ANY($1)
		ORDER BY starts_at`

	rows, err := db.Query(ctx, q, statusStrings(statuses))
	if err != nil {
		return nil, infra.WrapRepoErr("failed to list reservations by status", err)
	}
	return r.scanAll(rows)
}

func (r *ReservationRepository) scanOne(row pgx.Row) (*reservation.Reservation, error) {
	var (
		id, spaceID, timeslotID, userID               uuid.UUID
		date, startsAt, endsAt, createdAt, updatedAt  time.Time
		userCareer, status                            string
		active, attendanceConfirmed, adminCreated     bool
	)
	err := row.Scan(
		&id, &spaceID, &timeslotID, &date, &startsAt, &endsAt,
		&userID, &userCareer, &status, &active, &attendanceConfirmed,
		&adminCreated, &createdAt, &updatedAt,
	)
	if err != nil {
		return nil, infra.WrapRepoErr("failed to scan reservation", err)
	}
	return reservation.Reconstruct(
		id, spaceID, timeslotID, date, startsAt, endsAt,
		userID, userCareer, reservation.Status(status),
		active, attendanceConfirmed, adminCreated,
		createdAt, updatedAt,
	), nil
}

func (r *ReservationRepository) scanAll(rows pgx.Rows) ([]*reservation.Reservation, error) {
	defer rows.Close()

	var result []*reservation.Reservation
	for rows.Next() {
		res, err := r.scanOne(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, res)
	}
	if err := rows.Err(); err != nil {
		return nil, infra.WrapRepoErr("failed to iterate reservations", err)
	}
	return result, nil
}

func statusStrings(statuses []reservation.Status) []string {
	out := make([]string, len(statuses))
	for i, s := range statuses {
		out[i] = s.String()
	}
	return out
}
