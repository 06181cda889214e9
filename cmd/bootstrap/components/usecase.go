package components

import (
	"reservatec-core/internal/pkg/clock"
	"reservatec-core/internal/usecase/commands"
	"reservatec-core/internal/usecase/queries"

	"go.uber.org/fx"
)

var UseCaseModule = fx.Module("usecase",
	fx.Provide(
		clock.NewRealClock,
	),
	fx.Module("usecase/commands",
		fx.Provide(
			commands.NewReservationCommands,
		),
	),
	fx.Module("usecase/queries",
		fx.Provide(
			queries.NewReservationQueries,
		),
	),
)
