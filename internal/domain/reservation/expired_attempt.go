package reservation

import (
	"time"

	"github.com/google/uuid"
)

// ExpiredAttempt is the audit record written when a PENDING claim is purged
// without confirmation, either by the expiry reconciliation job or while a
// new claim sweeps the caller's stale claims. Owned exclusively by the
// lifecycle manager.
type ExpiredAttempt struct {
	ID            uuid.UUID
	ReservationID uuid.UUID
	UserID        uuid.UUID
	SpaceID       uuid.UUID
	TimeslotID    uuid.UUID
	Date          time.Time
	ExpiredAt     time.Time
}

func NewExpiredAttempt(r *Reservation, now time.Time) ExpiredAttempt {
	return ExpiredAttempt{
		ID:            uuid.New(),
		ReservationID: r.ID(),
		UserID:        r.UserID(),
		SpaceID:       r.SpaceID(),
		TimeslotID:    r.TimeslotID(),
		Date:          r.Date(),
		ExpiredAt:     now,
	}
}
