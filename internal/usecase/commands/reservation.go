package commands

import (
	"context"
	"log/slog"
	"time"

	"reservatec-core/internal/domain/reservation"
	"reservatec-core/internal/domain/schedule"
	"reservatec-core/internal/infra"
	"reservatec-core/internal/infra/lock"
	"reservatec-core/internal/infra/repository"
	"reservatec-core/internal/pkg/clock"
	"reservatec-core/internal/pkg/config"
	"reservatec-core/internal/pkg/errs"

	"github.com/google/uuid"
)

type ReservationCommands interface {
	Claim(ctx context.Context, params ClaimParams) (*reservation.Reservation, error)
	Confirm(ctx context.Context, id uuid.UUID, user UserRef) error
	Cancel(ctx context.Context, id uuid.UUID, user UserRef) error
	CancelTemporary(ctx context.Context, id uuid.UUID, user UserRef) error
	ConfirmAttendance(ctx context.Context, id uuid.UUID, user UserRef) error
	Deactivate(ctx context.Context, id uuid.UUID) error

	AdvanceStates(ctx context.Context) error
	ReleaseExpiredClaims(ctx context.Context) error
	CancelNoShows(ctx context.Context) error
}

type reservationCommandsImpl struct {
	repo     ReservationRepository
	attempts ExpiredAttemptRepository
	schedule ScheduleReadStore
	locks    SlotLock
	notifier Notifier
	tx       TxRunner
	clock    clock.Clock
	policy   config.ReservationConfig
}

func NewReservationCommands(
	repo ReservationRepository,
	attempts ExpiredAttemptRepository,
	scheduleReads ScheduleReadStore,
	locks SlotLock,
	notifier Notifier,
	tx TxRunner,
	clk clock.Clock,
	policy config.ReservationConfig,
) ReservationCommands {
	return &reservationCommandsImpl{
		repo:     repo,
		attempts: attempts,
		schedule: scheduleReads,
		locks:    locks,
		notifier: notifier,
		tx:       tx,
		clock:    clk,
		policy:   policy,
	}
}

// Claim creates a PENDING reservation for the slot after passing the booking
// rules and acquiring the slot lock. The claim must be confirmed before the
// lock TTL lapses or reconciliation purges it. Admin claims and no-show
// replacements skip the confirmation round trip and are committed ACTIVE.
func (c *reservationCommandsImpl) Claim(ctx context.Context, params ClaimParams) (*reservation.Reservation, error) {
	now := c.clock.Now()
	date := schedule.DateOf(params.Date)

	space, err := c.schedule.FindSpace(ctx, params.SpaceID)
	if err != nil {
		if infra.IsKind(err, infra.KindNotFound) {
			return nil, ErrSpaceNotFound
		}
		return nil, errs.Mark(err, ErrStoreFailure)
	}
	slot, err := c.schedule.FindTimeslot(ctx, params.TimeslotID)
	if err != nil {
		if infra.IsKind(err, infra.KindNotFound) {
			return nil, ErrTimeslotNotFound
		}
		return nil, errs.Mark(err, ErrStoreFailure)
	}

	var created *reservation.Reservation
	err = c.tx.Within(ctx, func(ctx context.Context, tx repository.DBTX) error {
		if err := c.purgeOwnPending(ctx, tx, params.User.ID, now); err != nil {
			return err
		}

		check, err := c.gatherClaimCheck(ctx, tx, params, space, slot, date, now)
		if err != nil {
			return err
		}
		if err := EvaluateClaim(check); err != nil {
			return err
		}

		key := lock.KeyFor(params.SpaceID, params.TimeslotID, date)
		if !params.AdminCreated {
			acquired, err := c.locks.Acquire(ctx, key, params.User.ID.String(), c.policy.LockTTL)
			if err != nil {
				return errs.Mark(err, ErrStoreFailure)
			}
			if !acquired {
				return ErrSlotBeingClaimed
			}
		}

		directActive := check.Occupant != nil && check.Occupant.NoShowCancelled()
		startsAt, endsAt := slot.WindowOn(date)
		res := reservation.NewClaim(
			params.SpaceID, params.TimeslotID, date, startsAt, endsAt,
			params.User.ID, params.User.Career,
			params.AdminCreated, directActive, now,
		)

		if err := c.repo.Create(ctx, tx, res); err != nil {
			if !params.AdminCreated {
				if _, relErr := c.locks.Release(ctx, key, params.User.ID.String()); relErr != nil {
					slog.Warn("failed to release slot lock after create failure",
						"key", key, "error", relErr.Error())
				}
			}
			if infra.IsKind(err, infra.KindDuplicateKey) {
				slog.Warn("slot uniqueness index tripped despite lock",
					"space_id", params.SpaceID,
					"timeslot_id", params.TimeslotID,
					"date", date.Format("2006-01-02"))
				return ErrSlotAlreadyReserved
			}
			return errs.Mark(err, ErrStoreFailure)
		}

		created = res
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// purgeOwnPending removes the user's stale PENDING claims before a new claim
// is evaluated, logging each as an expired attempt and dropping any lock the
// user still holds on the abandoned slot.
func (c *reservationCommandsImpl) purgeOwnPending(ctx context.Context, tx repository.DBTX, userID uuid.UUID, now time.Time) error {
	pending, err := c.repo.FindPendingByUser(ctx, tx, userID)
	if err != nil {
		return errs.Mark(err, ErrStoreFailure)
	}
	for _, p := range pending {
		if err := c.attempts.Log(ctx, tx, reservation.NewExpiredAttempt(p, now)); err != nil {
			return errs.Mark(err, ErrStoreFailure)
		}
		if err := c.repo.Purge(ctx, tx, p.ID()); err != nil {
			if infra.IsKind(err, infra.KindNotFound) {
				continue
			}
			return errs.Mark(err, ErrStoreFailure)
		}
		key := lock.KeyFor(p.SpaceID(), p.TimeslotID(), p.Date())
		if _, err := c.locks.Release(ctx, key, userID.String()); err != nil {
			slog.Warn("failed to release lock of purged claim", "key", key, "error", err.Error())
		}
	}
	return nil
}

func (c *reservationCommandsImpl) gatherClaimCheck(
	ctx context.Context,
	tx repository.DBTX,
	params ClaimParams,
	space *schedule.Space,
	slot *schedule.Timeslot,
	date time.Time,
	now time.Time,
) (ClaimCheck, error) {
	check := ClaimCheck{
		User:          params.User,
		Space:         space,
		Timeslot:      slot,
		Date:          date,
		Now:           now,
		ClosingMargin: c.policy.ClosingMargin,
		Cooldown:      c.policy.Cooldown,
	}

	block, err := c.schedule.FindBlocking(ctx, date, params.SpaceID, params.TimeslotID)
	if err != nil {
		return check, errs.Mark(err, ErrStoreFailure)
	}
	check.Block = block

	occupant, err := c.repo.FindOccupant(ctx, tx, params.SpaceID, params.TimeslotID, date)
	if err != nil {
		return check, errs.Mark(err, ErrStoreFailure)
	}
	check.Occupant = occupant

	hasCurrent, err := c.repo.HasNonTerminalByUser(ctx, tx, params.User.ID,
		reservation.StatusActive, reservation.StatusInProgress)
	if err != nil {
		return check, errs.Mark(err, ErrStoreFailure)
	}
	check.HasCurrentReservation = hasCurrent

	lastFinished, err := c.repo.LastFinishedDate(ctx, tx, params.User.ID,
		reservation.StatusCompleted, reservation.StatusCancelled)
	if err != nil {
		return check, errs.Mark(err, ErrStoreFailure)
	}
	check.LastFinishedDate = lastFinished

	neighbors, err := c.precedingNeighbors(ctx, tx, params.SpaceID, slot, date)
	if err != nil {
		return check, err
	}
	check.PrecedingNeighbors = neighbors

	return check, nil
}

// precedingNeighbors returns the reservations occupying the timeslot
// contiguous with the target slot's start on the same space and date. A slot
// separated by a gap is not a neighbor.
func (c *reservationCommandsImpl) precedingNeighbors(
	ctx context.Context,
	tx repository.DBTX,
	spaceID uuid.UUID,
	slot *schedule.Timeslot,
	date time.Time,
) ([]*reservation.Reservation, error) {
	slots, err := c.schedule.ListTimeslots(ctx)
	if err != nil {
		return nil, errs.Mark(err, ErrStoreFailure)
	}

	var preceding *schedule.Timeslot
	for _, s := range slots {
		if s.ID == slot.ID {
			continue
		}
		if s.End == slot.Start {
			preceding = s
			break
		}
	}
	if preceding == nil {
		return nil, nil
	}

	sameDay, err := c.repo.ListBySpaceAndDate(ctx, tx, spaceID, date)
	if err != nil {
		return nil, errs.Mark(err, ErrStoreFailure)
	}
	var neighbors []*reservation.Reservation
	for _, r := range sameDay {
		if r.TimeslotID() == preceding.ID {
			neighbors = append(neighbors, r)
		}
	}
	return neighbors, nil
}

// Confirm promotes the user's PENDING claim to ACTIVE. The slot lock must
// still exist and be owned by the user; its absence means the confirmation
// window lapsed and reconciliation has already purged or is about to purge
// the claim.
func (c *reservationCommandsImpl) Confirm(ctx context.Context, id uuid.UUID, user UserRef) error {
	now := c.clock.Now()

	var confirmed *reservation.Reservation
	err := c.tx.Within(ctx, func(ctx context.Context, tx repository.DBTX) error {
		res, err := c.findOwned(ctx, tx, id, user.ID)
		if err != nil {
			return err
		}

		hasCurrent, err := c.repo.HasNonTerminalByUser(ctx, tx, user.ID,
			reservation.StatusActive, reservation.StatusInProgress)
		if err != nil {
			return errs.Mark(err, ErrStoreFailure)
		}
		if hasCurrent {
			return reject(ReasonActiveReservation, "user already holds a reservation")
		}

		lastFinished, err := c.repo.LastFinishedDate(ctx, tx, user.ID,
			reservation.StatusCompleted, reservation.StatusCancelled)
		if err != nil {
			return errs.Mark(err, ErrStoreFailure)
		}
		if lastFinished != nil {
			eligibleFrom := schedule.DateOf(*lastFinished).Add(c.policy.Cooldown)
			if schedule.DateOf(res.Date()).Before(eligibleFrom) {
				return reject(ReasonCooldown, "cooldown window has not elapsed")
			}
		}

		key := lock.KeyFor(res.SpaceID(), res.TimeslotID(), res.Date())
		owner, _, err := c.locks.Owner(ctx, key)
		if err != nil {
			return errs.Mark(err, ErrStoreFailure)
		}
		if owner != user.ID.String() {
			return ErrConfirmationWindowExpired
		}

		if err := res.Confirm(now); err != nil {
			return err
		}
		if err := c.repo.Save(ctx, tx, res, reservation.StatusPending); err != nil {
			if infra.IsKind(err, infra.KindNotFound) {
				return ErrConfirmationWindowExpired
			}
			return errs.Mark(err, ErrStoreFailure)
		}

		if _, err := c.locks.Release(ctx, key, user.ID.String()); err != nil {
			slog.Warn("failed to release lock after confirmation", "key", key, "error", err.Error())
		}
		confirmed = res
		return nil
	})
	if err != nil {
		return err
	}

	c.publish(ctx, user.ID, Event{
		Kind:          EventKindUpdated,
		State:         confirmed.Status().String(),
		ReservationID: confirmed.ID(),
	})
	return nil
}

// Cancel is the user-initiated cancellation. It needs the lead time before
// the slot start and tells the client's countdown to stop immediately.
func (c *reservationCommandsImpl) Cancel(ctx context.Context, id uuid.UUID, user UserRef) error {
	now := c.clock.Now()

	var cancelled *reservation.Reservation
	err := c.tx.Within(ctx, func(ctx context.Context, tx repository.DBTX) error {
		res, err := c.findOwned(ctx, tx, id, user.ID)
		if err != nil {
			return err
		}

		expected := res.Status()
		if err := res.Cancel(now, c.policy.CancelLead); err != nil {
			return err
		}
		if err := c.repo.Save(ctx, tx, res, expected); err != nil {
			return errs.Mark(err, ErrStoreFailure)
		}
		cancelled = res
		return nil
	})
	if err != nil {
		return err
	}

	c.publish(ctx, user.ID, Event{
		Kind:    EventKindCountdown,
		State:   reservation.StatusCancelled.String(),
		Message: "reservation cancelled",
	})
	c.publish(ctx, user.ID, Event{
		Kind:          EventKindUpdated,
		State:         cancelled.Status().String(),
		ReservationID: cancelled.ID(),
	})
	return nil
}

// CancelTemporary abandons a PENDING claim before confirmation. Silent and
// always allowed; already-gone claims are not an error.
func (c *reservationCommandsImpl) CancelTemporary(ctx context.Context, id uuid.UUID, user UserRef) error {
	return c.tx.Within(ctx, func(ctx context.Context, tx repository.DBTX) error {
		res, err := c.repo.FindByID(ctx, tx, id)
		if err != nil {
			if infra.IsKind(err, infra.KindNotFound) {
				return nil
			}
			return errs.Mark(err, ErrStoreFailure)
		}
		if res.UserID() != user.ID || res.Status() != reservation.StatusPending {
			return nil
		}

		if err := c.repo.Purge(ctx, tx, res.ID()); err != nil {
			if infra.IsKind(err, infra.KindNotFound) {
				return nil
			}
			return errs.Mark(err, ErrStoreFailure)
		}

		key := lock.KeyFor(res.SpaceID(), res.TimeslotID(), res.Date())
		if _, err := c.locks.Release(ctx, key, user.ID.String()); err != nil {
			slog.Warn("failed to release lock of abandoned claim", "key", key, "error", err.Error())
		}
		return nil
	})
}

// ConfirmAttendance marks the user as present, once, within the grace window
// measured from the later of slot start and reservation creation.
func (c *reservationCommandsImpl) ConfirmAttendance(ctx context.Context, id uuid.UUID, user UserRef) error {
	now := c.clock.Now()

	var updated *reservation.Reservation
	err := c.tx.Within(ctx, func(ctx context.Context, tx repository.DBTX) error {
		res, err := c.findOwned(ctx, tx, id, user.ID)
		if err != nil {
			return err
		}
		expected := res.Status()
		if err := res.ConfirmAttendance(now, c.policy.AttendanceGrace); err != nil {
			return err
		}
		if err := c.repo.Save(ctx, tx, res, expected); err != nil {
			return errs.Mark(err, ErrStoreFailure)
		}
		updated = res
		return nil
	})
	if err != nil {
		return err
	}

	c.publish(ctx, user.ID, Event{
		Kind:          EventKindUpdated,
		State:         updated.Status().String(),
		ReservationID: updated.ID(),
	})
	return nil
}

// Deactivate soft-deletes a reservation. Administrative operation; the row
// stays for auditing and statistics but disappears from user-facing listings.
func (c *reservationCommandsImpl) Deactivate(ctx context.Context, id uuid.UUID) error {
	now := c.clock.Now()

	return c.tx.Within(ctx, func(ctx context.Context, tx repository.DBTX) error {
		res, err := c.repo.FindByID(ctx, tx, id)
		if err != nil {
			if infra.IsKind(err, infra.KindNotFound) {
				return ErrReservationNotFound
			}
			return errs.Mark(err, ErrStoreFailure)
		}
		res.Deactivate(now)
		if err := c.repo.Save(ctx, tx, res, res.Status()); err != nil {
			return errs.Mark(err, ErrStoreFailure)
		}
		return nil
	})
}

// AdvanceStates moves confirmed reservations through the time-driven part of
// the lifecycle: ACTIVE to IN_PROGRESS at slot start, IN_PROGRESS to
// COMPLETED past slot end. Rows that fail are logged and skipped so one bad
// row cannot stall the sweep.
func (c *reservationCommandsImpl) AdvanceStates(ctx context.Context) error {
	now := c.clock.Now()

	var candidates []*reservation.Reservation
	err := c.tx.Within(ctx, func(ctx context.Context, tx repository.DBTX) error {
		var err error
		candidates, err = c.repo.ListByStatus(ctx, tx,
			reservation.StatusActive, reservation.StatusInProgress)
		return err
	})
	if err != nil {
		return errs.Mark(err, ErrStoreFailure)
	}

	for _, res := range candidates {
		expected := res.Status()

		var transitionErr error
		switch expected {
		case reservation.StatusActive:
			if now.Before(res.StartsAt()) {
				continue
			}
			transitionErr = res.Begin(now)
		case reservation.StatusInProgress:
			if !now.After(res.EndsAt()) {
				continue
			}
			transitionErr = res.Complete(now)
		default:
			continue
		}
		if transitionErr != nil {
			slog.Warn("state advance rejected", "reservation_id", res.ID(), "error", transitionErr.Error())
			continue
		}

		err := c.tx.Within(ctx, func(ctx context.Context, tx repository.DBTX) error {
			return c.repo.Save(ctx, tx, res, expected)
		})
		if err != nil {
			if !infra.IsKind(err, infra.KindNotFound) {
				slog.Warn("failed to advance reservation", "reservation_id", res.ID(), "error", err.Error())
			}
			continue
		}

		c.publish(ctx, res.UserID(), Event{
			Kind:          EventKindUpdated,
			State:         res.Status().String(),
			ReservationID: res.ID(),
		})
	}
	return nil
}

// ReleaseExpiredClaims purges PENDING claims whose slot lock has lapsed: the
// user never confirmed inside the TTL. Each expiry writes exactly one
// expired-attempt row alongside the purge.
func (c *reservationCommandsImpl) ReleaseExpiredClaims(ctx context.Context) error {
	now := c.clock.Now()

	var pending []*reservation.Reservation
	err := c.tx.Within(ctx, func(ctx context.Context, tx repository.DBTX) error {
		var err error
		pending, err = c.repo.ListByStatus(ctx, tx, reservation.StatusPending)
		return err
	})
	if err != nil {
		return errs.Mark(err, ErrStoreFailure)
	}

	for _, res := range pending {
		key := lock.KeyFor(res.SpaceID(), res.TimeslotID(), res.Date())
		owner, _, err := c.locks.Owner(ctx, key)
		if err != nil {
			slog.Warn("failed to inspect slot lock", "key", key, "error", err.Error())
			continue
		}
		if owner != "" {
			// Claim window still open.
			continue
		}

		err = c.tx.Within(ctx, func(ctx context.Context, tx repository.DBTX) error {
			if err := c.attempts.Log(ctx, tx, reservation.NewExpiredAttempt(res, now)); err != nil {
				return err
			}
			return c.repo.Purge(ctx, tx, res.ID())
		})
		if err != nil {
			if !infra.IsKind(err, infra.KindNotFound) {
				slog.Warn("failed to purge expired claim", "reservation_id", res.ID(), "error", err.Error())
			}
			continue
		}

		slog.Info("purged expired claim",
			"reservation_id", res.ID(),
			"user_id", res.UserID(),
			"date", res.Date().Format("2006-01-02"))
	}
	return nil
}

// CancelNoShows force-cancels reservations whose attendance was never
// confirmed inside the grace window. The cancelled row keeps attendance
// unconfirmed, which marks the slot as replaceable.
func (c *reservationCommandsImpl) CancelNoShows(ctx context.Context) error {
	now := c.clock.Now()

	var candidates []*reservation.Reservation
	err := c.tx.Within(ctx, func(ctx context.Context, tx repository.DBTX) error {
		var err error
		candidates, err = c.repo.ListByStatus(ctx, tx,
			reservation.StatusActive, reservation.StatusInProgress)
		return err
	})
	if err != nil {
		return errs.Mark(err, ErrStoreFailure)
	}

	for _, res := range candidates {
		if !res.IsNoShow(now, c.policy.AttendanceGrace) {
			continue
		}

		expected := res.Status()
		if err := res.CancelNoShow(now); err != nil {
			slog.Warn("no-show cancel rejected", "reservation_id", res.ID(), "error", err.Error())
			continue
		}

		err := c.tx.Within(ctx, func(ctx context.Context, tx repository.DBTX) error {
			return c.repo.Save(ctx, tx, res, expected)
		})
		if err != nil {
			if !infra.IsKind(err, infra.KindNotFound) {
				slog.Warn("failed to cancel no-show", "reservation_id", res.ID(), "error", err.Error())
			}
			continue
		}

		slog.Info("cancelled no-show reservation", "reservation_id", res.ID(), "user_id", res.UserID())
		c.publish(ctx, res.UserID(), Event{
			Kind:    EventKindCountdown,
			State:   reservation.StatusCancelled.String(),
			Message: "reservation cancelled for no-show",
		})
		c.publish(ctx, res.UserID(), Event{
			Kind:          EventKindUpdated,
			State:         res.Status().String(),
			ReservationID: res.ID(),
		})
	}
	return nil
}

func (c *reservationCommandsImpl) findOwned(ctx context.Context, tx repository.DBTX, id, userID uuid.UUID) (*reservation.Reservation, error) {
	res, err := c.repo.FindByID(ctx, tx, id)
	if err != nil {
		if infra.IsKind(err, infra.KindNotFound) {
			return nil, ErrReservationNotFound
		}
		return nil, errs.Mark(err, ErrStoreFailure)
	}
	if res.UserID() != userID {
		return nil, ErrReservationNotFound
	}
	return res, nil
}

// Notification failures never fail the command; the store is the source of
// truth and clients re-sync on reconnect.
func (c *reservationCommandsImpl) publish(ctx context.Context, userID uuid.UUID, event Event) {
	if err := c.notifier.Publish(ctx, userID, event); err != nil {
		slog.Warn("failed to publish reservation event",
			"user_id", userID, "kind", event.Kind, "error", err.Error())
	}
}
