package response

import (
	"time"

	"reservatec-core/internal/domain/reservation"
	"reservatec-core/internal/usecase/queries"

	"github.com/google/uuid"
)

type ReservationResponse struct {
	ID                  uuid.UUID `json:"id"`
	SpaceID             uuid.UUID `json:"space_id"`
	SpaceName           string    `json:"space_name,omitempty"`
	TimeslotID          uuid.UUID `json:"timeslot_id"`
	Date                string    `json:"date"`
	StartsAt            time.Time `json:"starts_at"`
	EndsAt              time.Time `json:"ends_at"`
	Status              string    `json:"status"`
	AttendanceConfirmed bool      `json:"attendance_confirmed"`
	AdminCreated        bool      `json:"admin_created"`
	CreatedAt           time.Time `json:"created_at"`
}

func FromEntity(r *reservation.Reservation) *ReservationResponse {
	return &ReservationResponse{
		ID:                  r.ID(),
		SpaceID:             r.SpaceID(),
		TimeslotID:          r.TimeslotID(),
		Date:                r.Date().Format("2006-01-02"),
		StartsAt:            r.StartsAt(),
		EndsAt:              r.EndsAt(),
		Status:              r.Status().String(),
		AttendanceConfirmed: r.AttendanceConfirmed(),
		AdminCreated:        r.AdminCreated(),
		CreatedAt:           r.CreatedAt(),
	}
}

func FromView(v *queries.ReservationView) *ReservationResponse {
	return &ReservationResponse{
		ID:                  v.ID,
		SpaceID:             v.SpaceID,
		SpaceName:           v.SpaceName,
		TimeslotID:          v.TimeslotID,
		Date:                v.Date.Format("2006-01-02"),
		StartsAt:            v.StartsAt,
		EndsAt:              v.EndsAt,
		Status:              v.Status,
		AttendanceConfirmed: v.AttendanceConfirmed,
		AdminCreated:        v.AdminCreated,
		CreatedAt:           v.CreatedAt,
	}
}

func FromViews(views []*queries.ReservationView) []*ReservationResponse {
	out := make([]*ReservationResponse, len(views))
	for i, v := range views {
		out[i] = FromView(v)
	}
	return out
}

type OccupiedTimeslotsResponse struct {
	TimeslotIDs []uuid.UUID `json:"timeslot_ids"`
}

type FullyBookedDatesResponse struct {
	Dates []string `json:"dates"`
}

func FromDates(dates []time.Time) FullyBookedDatesResponse {
	out := make([]string, len(dates))
	for i, d := range dates {
		out[i] = d.Format("2006-01-02")
	}
	return FullyBookedDatesResponse{Dates: out}
}
