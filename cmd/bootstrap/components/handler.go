package components

import (
	"time"

	"reservatec-core/internal/handler"
	"reservatec-core/internal/handler/api"
	"reservatec-core/internal/pkg/config"

	"go.uber.org/fx"
)

var HandlerModule = fx.Module("handler",
	fx.Provide(
		NewLocation,
		api.NewReservationHandler,
	),
	fx.Invoke(handler.NewRouter),
)

// NewLocation resolves the deployment timezone, which anchors civil dates
// for claims and availability queries.
func NewLocation(cfg config.Config) (*time.Location, error) {
	return time.LoadLocation(cfg.DB.TimeZone)
}
