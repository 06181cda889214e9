package repository

import (
	"context"

	"reservatec-core/internal/domain/reservation"
	"reservatec-core/internal/infra"
)

type ExpiredAttemptRepository struct{}

func NewExpiredAttemptRepository() *ExpiredAttemptRepository {
	return &ExpiredAttemptRepository{}
}

func (r *ExpiredAttemptRepository) Log(ctx context.Context, db DBTX, attempt reservation.ExpiredAttempt) error {
	const q = `
		INSERT INTO expired_attempt_log
			(id, reservation_id, user_id, space_id, timeslot_id, date, expired_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := db.Exec(ctx, q,
		attempt.ID, attempt.ReservationID, attempt.UserID,
		attempt.SpaceID, attempt.TimeslotID, attempt.Date, attempt.ExpiredAt,
	)
	if err != nil {
		return infra.WrapRepoErr("failed to log expired attempt", err)
	}
	return nil
}
