package request

import (
	"time"

	"reservatec-core/internal/usecase/commands"

	"github.com/google/uuid"
)

const dateLayout = "2006-01-02"

type ClaimRequest struct {
	SpaceID    uuid.UUID `json:"space_id" binding:"required"`
	TimeslotID uuid.UUID `json:"timeslot_id" binding:"required"`
	Date       string    `json:"date" binding:"required"`
}

func (r ClaimRequest) ParseDate(loc *time.Location) (time.Time, error) {
	return time.ParseInLocation(dateLayout, r.Date, loc)
}

func (r ClaimRequest) ToParams(user commands.UserRef, date time.Time, admin bool) commands.ClaimParams {
	return commands.ClaimParams{
		SpaceID:      r.SpaceID,
		TimeslotID:   r.TimeslotID,
		Date:         date,
		User:         user,
		AdminCreated: admin,
	}
}

type AvailabilityQuery struct {
	SpaceID uuid.UUID `form:"space_id" binding:"required"`
	Date    string    `form:"date" binding:"required"`
}

func (q AvailabilityQuery) ParseDate(loc *time.Location) (time.Time, error) {
	return time.ParseInLocation(dateLayout, q.Date, loc)
}
