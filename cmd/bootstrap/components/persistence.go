package components

import (
	"reservatec-core/internal/infra/db"
	"reservatec-core/internal/infra/lock"
	"reservatec-core/internal/infra/readstore"
	"reservatec-core/internal/infra/repository"
	"reservatec-core/internal/usecase/commands"
	"reservatec-core/internal/usecase/queries"

	"go.uber.org/fx"
)

var PersistenceModule = fx.Module("persistence",
	fx.Provide(
		// Write side
		fx.Annotate(
			repository.NewReservationRepository,
			fx.As(new(commands.ReservationRepository)),
		),
		fx.Annotate(
			repository.NewExpiredAttemptRepository,
			fx.As(new(commands.ExpiredAttemptRepository)),
		),
		fx.Annotate(
			db.NewTxRunner,
			fx.As(new(commands.TxRunner)),
		),

		// Read side
		fx.Annotate(
			readstore.NewScheduleReadStore,
			fx.As(new(commands.ScheduleReadStore)),
			fx.As(new(queries.TimeslotReadStore)),
		),
		fx.Annotate(
			readstore.NewReservationReadStore,
			fx.As(new(queries.ReservationReadStore)),
		),

		// Slot lock
		fx.Annotate(
			lock.NewRedisSlotLock,
			fx.As(new(commands.SlotLock)),
			fx.As(new(queries.LockReader)),
		),
	),
)
