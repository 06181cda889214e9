package schedule

import (
	"time"

	"github.com/google/uuid"
)

// BlockedDate is an administrative blackout rule. A rule may target every
// space and/or every timeslot, a specific space, a specific timeslot, or an
// exact space+timeslot pair. Rules marked ignored are kept for history but
// never applied.
type BlockedDate struct {
	ID           uuid.UUID
	Reason       string
	Kind         string
	SpaceID      *uuid.UUID
	TimeslotID   *uuid.UUID
	AllSpaces    bool
	AllTimeslots bool
	From         time.Time
	To           time.Time
	Active       bool
	Ignored      bool
}

// AppliesTo reports whether the rule blocks the given slot-instance.
func (b BlockedDate) AppliesTo(date time.Time, spaceID, timeslotID uuid.UUID) bool {
	if !b.Active || b.Ignored {
		return false
	}
	d := DateOf(date)
	if d.Before(DateOf(b.From)) || d.After(DateOf(b.To)) {
		return false
	}
	spaceMatch := b.AllSpaces || (b.SpaceID != nil && *b.SpaceID == spaceID)
	slotMatch := b.AllTimeslots || (b.TimeslotID != nil && *b.TimeslotID == timeslotID)
	return spaceMatch && slotMatch
}
