// Command scheduler runs the scheduled-order sweep worker. It shares the
// database with the API server and may run alongside multiple replicas of
// itself: claims on scheduled_orders keep executions exactly-once.
package main

import (
	"context"

	"github.com/go-faster/sdk/app"
	"go.uber.org/zap"

	appkg "github.com/freshlane/grocer-orders/internal/app"
)

func main() {
	app.Run(func(ctx context.Context, lg *zap.Logger, m *app.Telemetry) error {
		cfg, err := appkg.LoadConfig()
		if err != nil {
			return err
		}
		return appkg.RunScheduler(ctx, lg, m, cfg)
	})
}
