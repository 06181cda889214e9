package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"reservatec-core/internal/domain/reservation"
	reqdto "reservatec-core/internal/handler/dto/request"
	resdto "reservatec-core/internal/handler/dto/response"
	"reservatec-core/internal/handler/middleware"
	"reservatec-core/internal/infra"
	"reservatec-core/internal/usecase/commands"
	"reservatec-core/internal/usecase/queries"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type ReservationHandler struct {
	commands commands.ReservationCommands
	queries  queries.ReservationQueries
	loc      *time.Location
}

func NewReservationHandler(
	cmds commands.ReservationCommands,
	qrs queries.ReservationQueries,
	loc *time.Location,
) *ReservationHandler {
	return &ReservationHandler{
		commands: cmds,
		queries:  qrs,
		loc:      loc,
	}
}

// Claim creates a PENDING claim on a slot. The client must confirm it within
// the lock TTL or the claim is purged by reconciliation.
func (h *ReservationHandler) Claim(c *gin.Context) {
	user, ok := middleware.GetUserRef(c)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	var req reqdto.ClaimRequest
	if bindErr := c.ShouldBindJSON(&req); bindErr != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}
	date, err := req.ParseDate(h.loc)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid date format, expected YYYY-MM-DD"})
		return
	}

	role, _ := middleware.GetUserRole(c)
	admin := role == middleware.RoleAdmin

	res, err := h.commands.Claim(c.Request.Context(), req.ToParams(user, date, admin))
	if err != nil {
		h.respondCommandError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resdto.FromEntity(res))
}

// Confirm promotes the caller's PENDING claim to ACTIVE while the claim
// window is still open.
func (h *ReservationHandler) Confirm(c *gin.Context) {
	h.withOwned(c, h.commands.Confirm)
}

func (h *ReservationHandler) Cancel(c *gin.Context) {
	h.withOwned(c, h.commands.Cancel)
}

// AbandonClaim drops a PENDING claim before confirmation. Always succeeds.
func (h *ReservationHandler) AbandonClaim(c *gin.Context) {
	h.withOwned(c, h.commands.CancelTemporary)
}

func (h *ReservationHandler) ConfirmAttendance(c *gin.Context) {
	h.withOwned(c, h.commands.ConfirmAttendance)
}

// Deactivate soft-deletes a reservation. Admin only.
func (h *ReservationHandler) Deactivate(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid reservation ID format"})
		return
	}

	if err := h.commands.Deactivate(c.Request.Context(), id); err != nil {
		h.respondCommandError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *ReservationHandler) GetReservation(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid reservation ID format"})
		return
	}

	view, err := h.queries.GetByID(c.Request.Context(), id)
	if err != nil {
		h.respondQueryError(c, err)
		return
	}
	c.JSON(http.StatusOK, resdto.FromView(view))
}

func (h *ReservationHandler) GetUserReservations(c *gin.Context) {
	user, ok := middleware.GetUserRef(c)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	views, err := h.queries.ListByUser(c.Request.Context(), user.ID)
	if err != nil {
		h.respondQueryError(c, err)
		return
	}
	c.JSON(http.StatusOK, resdto.FromViews(views))
}

// Countdown reports the state of the caller's attendance clock.
func (h *ReservationHandler) Countdown(c *gin.Context) {
	user, ok := middleware.GetUserRef(c)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	view, err := h.queries.Countdown(c.Request.Context(), user.ID)
	if err != nil {
		h.respondQueryError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// OccupiedTimeslots lists the timeslots unavailable to the caller on a space
// and date, including slots locked by claims still awaiting confirmation.
func (h *ReservationHandler) OccupiedTimeslots(c *gin.Context) {
	user, ok := middleware.GetUserRef(c)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	var q reqdto.AvailabilityQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "space_id and date are required"})
		return
	}
	date, err := q.ParseDate(h.loc)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid date format, expected YYYY-MM-DD"})
		return
	}

	ids, err := h.queries.OccupiedTimeslots(c.Request.Context(), q.SpaceID, date, user.ID)
	if err != nil {
		h.respondQueryError(c, err)
		return
	}
	if ids == nil {
		ids = []uuid.UUID{}
	}
	c.JSON(http.StatusOK, resdto.OccupiedTimeslotsResponse{TimeslotIDs: ids})
}

func (h *ReservationHandler) FullyBookedDates(c *gin.Context) {
	spaceID, err := uuid.Parse(c.Query("space_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "space_id is required"})
		return
	}

	dates, err := h.queries.FullyBookedDates(c.Request.Context(), spaceID)
	if err != nil {
		h.respondQueryError(c, err)
		return
	}
	c.JSON(http.StatusOK, resdto.FromDates(dates))
}

// MonthlyStats aggregates this month's reservation counts. Admin only.
func (h *ReservationHandler) MonthlyStats(c *gin.Context) {
	stats, err := h.queries.MonthlyStats(c.Request.Context())
	if err != nil {
		h.respondQueryError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

// SpaceUsage aggregates reserved hours per weekday per space. Admin only.
func (h *ReservationHandler) SpaceUsage(c *gin.Context) {
	usage, err := h.queries.SpaceUsage(c.Request.Context())
	if err != nil {
		h.respondQueryError(c, err)
		return
	}
	c.JSON(http.StatusOK, usage)
}

// withOwned runs an id-plus-identity command and maps its outcome.
func (h *ReservationHandler) withOwned(c *gin.Context, fn func(ctx context.Context, id uuid.UUID, user commands.UserRef) error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid reservation ID format"})
		return
	}
	user, ok := middleware.GetUserRef(c)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	if err := fn(c.Request.Context(), id, user); err != nil {
		h.respondCommandError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *ReservationHandler) respondCommandError(c *gin.Context, err error) {
	if elig, ok := commands.AsEligibilityError(err); ok {
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error":  "Reservation not allowed",
			"reason": string(elig.Reason),
			"detail": elig.Detail,
		})
		return
	}

	switch {
	case errors.Is(err, commands.ErrSpaceNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Space not found"})
	case errors.Is(err, commands.ErrTimeslotNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Timeslot not found"})
	case errors.Is(err, commands.ErrReservationNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Reservation not found"})
	case errors.Is(err, commands.ErrSlotBeingClaimed):
		c.JSON(http.StatusConflict, gin.H{"error": "Slot is being claimed by another user"})
	case errors.Is(err, commands.ErrSlotAlreadyReserved):
		c.JSON(http.StatusConflict, gin.H{"error": "Slot is already reserved"})
	case errors.Is(err, commands.ErrConfirmationWindowExpired):
		c.JSON(http.StatusConflict, gin.H{"error": "Confirmation window expired"})
	case errors.Is(err, reservation.ErrCancelTooLate):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "Cancellation lead time not met"})
	case errors.Is(err, reservation.ErrAttendanceAlreadyConfirmed):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "Attendance already confirmed"})
	case errors.Is(err, reservation.ErrAttendanceWindowClosed):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "Attendance confirmation window has closed"})
	case errors.Is(err, reservation.ErrAttendanceNotAllowed):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "Attendance cannot be confirmed in the current state"})
	case errors.Is(err, reservation.ErrInvalidTransition):
		c.JSON(http.StatusConflict, gin.H{"error": "Reservation is not in a state that allows this operation"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}

func (h *ReservationHandler) respondQueryError(c *gin.Context, err error) {
	switch {
	case infra.IsKind(err, infra.KindNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Reservation not found"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}
