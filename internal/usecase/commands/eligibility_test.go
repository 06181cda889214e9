//go:build unit

package commands_test

import (
	"testing"
	"time"

	"reservatec-core/internal/domain/reservation"
	"reservatec-core/internal/domain/schedule"
	"reservatec-core/internal/usecase/commands"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	closingMargin = 30 * time.Minute
	cooldown      = 7 * 24 * time.Hour
)

// Tuesday in Lima-style fixed offset; weekday math only needs the location
// to be consistent.
var (
	claimDate = time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	dayBefore = time.Date(2026, 3, 9, 8, 0, 0, 0, time.UTC)
)

func baseCheck() commands.ClaimCheck {
	return commands.ClaimCheck{
		User: commands.UserRef{ID: uuid.New(), Career: "SOFTWARE"},
		Space: &schedule.Space{
			ID:     uuid.New(),
			Name:   "Court A",
			Active: true,
		},
		Timeslot: &schedule.Timeslot{
			ID:     uuid.New(),
			Start:  schedule.NewTimeOfDay(10, 0),
			End:    schedule.NewTimeOfDay(12, 0),
			Active: true,
		},
		Date:          claimDate,
		Now:           dayBefore,
		ClosingMargin: closingMargin,
		Cooldown:      cooldown,
	}
}

func occupantWith(check commands.ClaimCheck, userID uuid.UUID, career string, status reservation.Status, attendance bool) *reservation.Reservation {
	start, end := check.Timeslot.WindowOn(check.Date)
	created := start.Add(-3 * time.Hour)
	r := reservation.Reconstruct(
		uuid.New(), check.Space.ID, check.Timeslot.ID, check.Date, start, end,
		userID, career, status, true, attendance, false, created, created,
	)
	return r
}

func rejectedWith(t *testing.T, err error, reason commands.RejectReason) {
	t.Helper()
	require.Error(t, err)
	elig, ok := commands.AsEligibilityError(err)
	require.True(t, ok, "expected an eligibility rejection, got %v", err)
	assert.Equal(t, reason, elig.Reason)
}

func TestEvaluateClaim(t *testing.T) {
	t.Run("clean claim passes", func(t *testing.T) {
		require.NoError(t, commands.EvaluateClaim(baseCheck()))
	})

	t.Run("sunday is closed", func(t *testing.T) {
		check := baseCheck()
		check.Date = time.Date(2026, 3, 8, 0, 0, 0, 0, time.UTC)
		rejectedWith(t, commands.EvaluateClaim(check), commands.ReasonSundayClosed)
	})

	t.Run("inactive space", func(t *testing.T) {
		check := baseCheck()
		check.Space.Active = false
		rejectedWith(t, commands.EvaluateClaim(check), commands.ReasonSpaceInactive)
	})

	t.Run("blocked date", func(t *testing.T) {
		check := baseCheck()
		check.Block = &schedule.BlockedDate{
			ID:           uuid.New(),
			Reason:       "maintenance",
			AllSpaces:    true,
			AllTimeslots: true,
			From:         claimDate,
			To:           claimDate,
			Active:       true,
		}
		rejectedWith(t, commands.EvaluateClaim(check), commands.ReasonDateBlocked)
	})

	t.Run("rule order: sunday wins over inactive space", func(t *testing.T) {
		check := baseCheck()
		check.Date = time.Date(2026, 3, 8, 0, 0, 0, 0, time.UTC)
		check.Space.Active = false
		rejectedWith(t, commands.EvaluateClaim(check), commands.ReasonSundayClosed)
	})
}

func TestEvaluateClaimSameDay(t *testing.T) {
	start := schedule.NewTimeOfDay(10, 0).On(claimDate)
	end := schedule.NewTimeOfDay(12, 0).On(claimDate)

	t.Run("before slot start is allowed", func(t *testing.T) {
		check := baseCheck()
		check.Now = start.Add(-time.Minute)
		require.NoError(t, commands.EvaluateClaim(check))
	})

	t.Run("after start with empty slot is allowed while time remains", func(t *testing.T) {
		check := baseCheck()
		check.Now = start.Add(time.Minute)
		require.NoError(t, commands.EvaluateClaim(check))
	})

	t.Run("after start with empty slot inside the closing margin is rejected", func(t *testing.T) {
		check := baseCheck()
		check.Now = end.Add(-closingMargin + time.Second)
		rejectedWith(t, commands.EvaluateClaim(check), commands.ReasonSlotEnding)
	})

	t.Run("after start replacing a no-show is allowed", func(t *testing.T) {
		check := baseCheck()
		check.Now = start.Add(time.Minute)
		check.Occupant = occupantWith(check, uuid.New(), "MEDICINE", reservation.StatusCancelled, false)
		require.NoError(t, commands.EvaluateClaim(check))
	})

	t.Run("after start replacing an unconfirmed active occupant is allowed", func(t *testing.T) {
		check := baseCheck()
		check.Now = start.Add(time.Minute)
		check.Occupant = occupantWith(check, check.User.ID, "SOFTWARE", reservation.StatusActive, false)
		require.NoError(t, commands.EvaluateClaim(check))
	})

	t.Run("after start with confirmed occupant is rejected", func(t *testing.T) {
		check := baseCheck()
		check.Now = start.Add(time.Minute)
		check.Occupant = occupantWith(check, uuid.New(), "MEDICINE", reservation.StatusInProgress, true)
		rejectedWith(t, commands.EvaluateClaim(check), commands.ReasonSlotEnding)
	})

	t.Run("less than the closing margin remains", func(t *testing.T) {
		check := baseCheck()
		check.Now = end.Add(-closingMargin + time.Second)
		check.Occupant = occupantWith(check, uuid.New(), "MEDICINE", reservation.StatusCancelled, false)
		rejectedWith(t, commands.EvaluateClaim(check), commands.ReasonSlotEnding)
	})

	t.Run("exactly the closing margin remains", func(t *testing.T) {
		check := baseCheck()
		check.Now = end.Add(-closingMargin)
		check.Occupant = occupantWith(check, uuid.New(), "MEDICINE", reservation.StatusCancelled, false)
		require.NoError(t, commands.EvaluateClaim(check))
	})
}

func TestEvaluateClaimHistory(t *testing.T) {
	t.Run("existing current reservation", func(t *testing.T) {
		check := baseCheck()
		check.HasCurrentReservation = true
		rejectedWith(t, commands.EvaluateClaim(check), commands.ReasonActiveReservation)
	})

	t.Run("cooldown not yet elapsed", func(t *testing.T) {
		check := baseCheck()
		last := claimDate.AddDate(0, 0, -6)
		check.LastFinishedDate = &last
		rejectedWith(t, commands.EvaluateClaim(check), commands.ReasonCooldown)
	})

	t.Run("exactly seven days later succeeds", func(t *testing.T) {
		check := baseCheck()
		last := claimDate.AddDate(0, 0, -7)
		check.LastFinishedDate = &last
		require.NoError(t, commands.EvaluateClaim(check))
	})
}

func TestEvaluateClaimOccupancy(t *testing.T) {
	t.Run("non-terminal occupant blocks", func(t *testing.T) {
		check := baseCheck()
		check.Occupant = occupantWith(check, uuid.New(), "MEDICINE", reservation.StatusPending, false)
		rejectedWith(t, commands.EvaluateClaim(check), commands.ReasonSlotTaken)
	})

	t.Run("active occupant blocks", func(t *testing.T) {
		check := baseCheck()
		check.Occupant = occupantWith(check, uuid.New(), "MEDICINE", reservation.StatusActive, false)
		rejectedWith(t, commands.EvaluateClaim(check), commands.ReasonSlotTaken)
	})

	t.Run("no-show cancelled occupant is replaceable", func(t *testing.T) {
		check := baseCheck()
		check.Occupant = occupantWith(check, uuid.New(), "MEDICINE", reservation.StatusCancelled, false)
		require.NoError(t, commands.EvaluateClaim(check))
	})

	t.Run("cancelled occupant with confirmed attendance does not block", func(t *testing.T) {
		check := baseCheck()
		check.Occupant = occupantWith(check, uuid.New(), "MEDICINE", reservation.StatusCancelled, true)
		require.NoError(t, commands.EvaluateClaim(check))
	})

	t.Run("completed occupant does not block", func(t *testing.T) {
		check := baseCheck()
		check.Occupant = occupantWith(check, uuid.New(), "MEDICINE", reservation.StatusCompleted, true)
		require.NoError(t, commands.EvaluateClaim(check))
	})
}

func TestEvaluateClaimAdjacency(t *testing.T) {
	t.Run("same career in preceding slot blocks", func(t *testing.T) {
		check := baseCheck()
		check.PrecedingNeighbors = []*reservation.Reservation{
			occupantWith(check, uuid.New(), "SOFTWARE", reservation.StatusActive, false),
		}
		rejectedWith(t, commands.EvaluateClaim(check), commands.ReasonCohortAdjacency)
	})

	t.Run("different career in preceding slot passes", func(t *testing.T) {
		check := baseCheck()
		check.PrecedingNeighbors = []*reservation.Reservation{
			occupantWith(check, uuid.New(), "MEDICINE", reservation.StatusActive, false),
		}
		require.NoError(t, commands.EvaluateClaim(check))
	})

	t.Run("own reservation in preceding slot passes", func(t *testing.T) {
		check := baseCheck()
		check.PrecedingNeighbors = []*reservation.Reservation{
			occupantWith(check, check.User.ID, "SOFTWARE", reservation.StatusActive, false),
		}
		require.NoError(t, commands.EvaluateClaim(check))
	})

	t.Run("terminal neighbor passes", func(t *testing.T) {
		check := baseCheck()
		check.PrecedingNeighbors = []*reservation.Reservation{
			occupantWith(check, uuid.New(), "SOFTWARE", reservation.StatusCompleted, true),
		}
		require.NoError(t, commands.EvaluateClaim(check))
	})
}
