package queries

import (
	"time"

	"github.com/google/uuid"
)

// Read models (DTO for read side)

type ReservationView struct {
	ID                  uuid.UUID `json:"id"`
	SpaceID             uuid.UUID `json:"space_id"`
	SpaceName           string    `json:"space_name"`
	TimeslotID          uuid.UUID `json:"timeslot_id"`
	Date                time.Time `json:"date"`
	StartsAt            time.Time `json:"starts_at"`
	EndsAt              time.Time `json:"ends_at"`
	UserID              uuid.UUID `json:"user_id"`
	Status              string    `json:"status"`
	AttendanceConfirmed bool      `json:"attendance_confirmed"`
	AdminCreated        bool      `json:"admin_created"`
	CreatedAt           time.Time `json:"created_at"`
}

// Countdown state tags published to the client clock.
const (
	CountdownActive     = "ACTIVE"
	CountdownInProgress = "IN_PROGRESS"
	CountdownCompleted  = "COMPLETED"
	CountdownNone       = "NONE"
)

// CountdownView drives the attendance clock shown to clients: seconds until
// start while ACTIVE, seconds elapsed while IN_PROGRESS.
type CountdownView struct {
	State   string `json:"state"`
	Message string `json:"message"`
	Seconds int64  `json:"seconds"`
}

// SpaceUsageView aggregates reserved hours per weekday (Monday..Friday) for
// one space over a month.
type SpaceUsageView struct {
	SpaceName string         `json:"space_name"`
	Hours     map[string]int `json:"hours_by_weekday"`
}

type MonthlyStatsView struct {
	ActiveCount     int64 `json:"active_count"`
	CompletedCount  int64 `json:"completed_count"`
	CancelledCount  int64 `json:"cancelled_count"`
	ExpiredAttempts int64 `json:"expired_attempts"`
}
