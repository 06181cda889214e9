package commands

import (
	"fmt"
	"time"

	"reservatec-core/internal/domain/reservation"
	"reservatec-core/internal/domain/schedule"
)

// ClaimCheck carries everything EvaluateClaim needs, prefetched by the
// lifecycle manager inside the claim transaction. Keeping the evaluation
// pure lets the rules be tested without a store.
type ClaimCheck struct {
	User     UserRef
	Space    *schedule.Space
	Timeslot *schedule.Timeslot
	Date     time.Time
	Now      time.Time

	// Block is the first non-ignored blocked-date rule covering the slot,
	// nil when none applies.
	Block *schedule.BlockedDate

	// Occupant is the latest reservation on the tuple, nil when the slot
	// has never been taken.
	Occupant *reservation.Reservation

	// HasCurrentReservation reports an ACTIVE or IN_PROGRESS reservation
	// held by the user anywhere.
	HasCurrentReservation bool

	// LastFinishedDate is the slot date of the user's most recent
	// COMPLETED or CANCELLED reservation, nil when there is none.
	LastFinishedDate *time.Time

	// PrecedingNeighbors are the non-terminal reservations occupying the
	// timeslot immediately before this one on the same space and date.
	PrecedingNeighbors []*reservation.Reservation

	ClosingMargin time.Duration
	Cooldown      time.Duration
}

// EvaluateClaim applies the booking rules in order, short-circuiting on the
// first violation. A nil return means the user may claim the slot.
func EvaluateClaim(check ClaimCheck) error {
	if check.Date.Weekday() == time.Sunday {
		return reject(ReasonSundayClosed, "reservations are closed on Sundays")
	}

	if !check.Space.Active {
		return reject(ReasonSpaceInactive, fmt.Sprintf("space %q is not available", check.Space.Name))
	}

	if check.Block != nil {
		return reject(ReasonDateBlocked, check.Block.Reason)
	}

	if err := checkSameDayWindow(check); err != nil {
		return err
	}

	if check.HasCurrentReservation {
		return reject(ReasonActiveReservation, "user already holds a reservation")
	}

	if check.LastFinishedDate != nil {
		eligibleFrom := schedule.DateOf(*check.LastFinishedDate).Add(check.Cooldown)
		if schedule.DateOf(check.Date).Before(eligibleFrom) {
			return reject(ReasonCooldown,
				fmt.Sprintf("next reservation allowed from %s", eligibleFrom.Format("2006-01-02")))
		}
	}

	if occ := check.Occupant; occ != nil && occ.UserID() != check.User.ID {
		if !occ.Status().IsTerminal() {
			return reject(ReasonSlotTaken, "slot is already reserved")
		}
	}

	for _, neighbor := range check.PrecedingNeighbors {
		if neighbor.UserID() == check.User.ID {
			continue
		}
		if neighbor.Status().IsTerminal() {
			continue
		}
		if neighbor.UserCareer() == check.User.Career {
			return reject(ReasonCohortAdjacency, "adjacent slot held by the same career")
		}
	}

	return nil
}

// checkSameDayWindow guards same-day claims once the slot has started: an
// empty slot stays claimable while enough of the window remains; an occupied
// slot only when the occupant is a no-show candidate (attendance never
// confirmed), under the same margin.
func checkSameDayWindow(check ClaimCheck) error {
	if !schedule.SameDate(check.Date, check.Now) {
		return nil
	}

	start, end := check.Timeslot.WindowOn(check.Date)
	if check.Now.Before(start) {
		return nil
	}

	if occ := check.Occupant; occ != nil {
		replaceable := !occ.AttendanceConfirmed() &&
			(occ.Status() == reservation.StatusActive ||
				occ.Status() == reservation.StatusInProgress ||
				occ.NoShowCancelled())
		if !replaceable {
			return reject(ReasonSlotEnding, "slot has already started")
		}
	}
	if end.Sub(check.Now) < check.ClosingMargin {
		return reject(ReasonSlotEnding, "not enough time remains in the slot")
	}
	return nil
}
