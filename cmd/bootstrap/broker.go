package bootstrap

import (
	"context"

	"reservatec-core/internal/infra/notifier"
	"reservatec-core/internal/pkg/config"
	"reservatec-core/internal/usecase/commands"

	"go.uber.org/fx"
)

var BrokerModule = fx.Module("broker",
	fx.Provide(
		fx.Annotate(
			NewNotifier,
			fx.As(new(commands.Notifier)),
		),
	),
)

func NewNotifier(lc fx.Lifecycle, cfg config.Config) (*notifier.AMQPNotifier, error) {
	n, err := notifier.NewAMQPNotifier(cfg.Broker)
	if err != nil {
		return nil, err
	}

	lc.Append(fx.Hook{
		OnStop: func(_ context.Context) error {
			return n.Close()
		},
	})

	return n, nil
}
