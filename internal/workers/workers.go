package workers

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/angelmondragon/pharmalink-backend/internal/cron"
	"github.com/angelmondragon/pharmalink-backend/internal/notifications"
	"github.com/angelmondragon/pharmalink-backend/pkg/config"
	"github.com/angelmondragon/pharmalink-backend/pkg/db"
	"github.com/angelmondragon/pharmalink-backend/pkg/enums"
	"github.com/angelmondragon/pharmalink-backend/pkg/logger"
	"github.com/angelmondragon/pharmalink-backend/pkg/metrics"
	"github.com/angelmondragon/pharmalink-backend/pkg/outbox"
	"github.com/angelmondragon/pharmalink-backend/pkg/outbox/idempotency"
	"github.com/angelmondragon/pharmalink-backend/pkg/outbox/registry"
	"github.com/angelmondragon/pharmalink-backend/pkg/outbox/relay"
	"github.com/angelmondragon/pharmalink-backend/pkg/redis"
)

const cronLockKeyFormat = "pl:cron:lock:%s"

// Params carries the shared clients background work is built from. Metrics
// are created once per process because registration is not repeatable.
type Params struct {
	Config   *config.Config
	Logger   *logger.Logger
	DB       *db.Client
	Redis    *redis.Client
	Workflow *metrics.WorkflowMetrics
	Relay    *metrics.RelayMetrics
	Jobs     *metrics.JobMetrics
}

func (p Params) validate() error {
	switch {
	case p.Config == nil:
		return errors.New("config is required")
	case p.Logger == nil:
		return errors.New("logger is required")
	case p.DB == nil:
		return errors.New("database client is required")
	case p.Redis == nil:
		return errors.New("redis client is required")
	}
	return nil
}

// NewNotificationRelay wires the outbox relay to the notification fanout.
func NewNotificationRelay(p Params) (*relay.Relay, error) {
	if err := p.validate(); err != nil {
		return nil, err
	}

	tracker, err := idempotency.NewManager(p.Redis, p.Config.Eventing.ConsumerIdempotencyTTL)
	if err != nil {
		return nil, fmt.Errorf("event idempotency: %w", err)
	}
	fanout := notifications.NewFanout(notifications.NewRepository(p.DB.DB()), p.Logger, p.Workflow)
	consumer, err := notifications.NewConsumer(fanout, tracker, p.Logger)
	if err != nil {
		return nil, fmt.Errorf("notification consumer: %w", err)
	}

	return relay.New(relay.Params{
		Config:        p.Config.Outbox,
		Logger:        p.Logger,
		DB:            p.DB,
		Repository:    outbox.NewRepository(p.DB.DB()),
		DLQRepository: outbox.NewDLQRepository(p.DB.DB()),
		Registry:      registry.NewEventRegistry(),
		Handlers: map[enums.OutboxEventType]relay.Handler{
			enums.EventNotificationRequested: consumer,
		},
		Metrics: p.Relay,
	})
}

// NewCronService registers the retention jobs behind a Redis lock so only one
// replica prunes at a time.
func NewCronService(p Params) (*cron.Service, error) {
	if err := p.validate(); err != nil {
		return nil, err
	}

	cleanup, err := cron.NewNotificationCleanupJob(cron.NotificationCleanupJobParams{
		Logger:     p.Logger,
		DB:         p.DB,
		Repository: notifications.NewRepository(p.DB.DB()),
		Retention:  p.Config.Notifications.RetentionDays,
	})
	if err != nil {
		return nil, err
	}
	retention, err := cron.NewOutboxRetentionJob(cron.OutboxRetentionJobParams{
		Logger:     p.Logger,
		DB:         p.DB,
		Repository: outbox.NewRepository(p.DB.DB()),
	})
	if err != nil {
		return nil, err
	}

	lock, err := cron.NewRedisLock(p.Redis, lockKey(p.Config.App.Env), 0)
	if err != nil {
		return nil, err
	}

	return cron.NewService(cron.ServiceParams{
		Logger:   p.Logger,
		Registry: cron.NewRegistry(cleanup, retention),
		Lock:     lock,
		Metrics:  p.Jobs,
		Interval: p.Config.Notifications.CleanupEvery,
	})
}

func lockKey(env string) string {
	if env == "" {
		env = "local"
	}
	return fmt.Sprintf(cronLockKeyFormat, env)
}

// Runner is a long-lived loop stopped by context cancellation.
type Runner interface {
	Run(ctx context.Context) error
}

// RunAll starts every runner and returns when ctx ends or the first runner
// fails. A canceled context is not reported as an error.
func RunAll(ctx context.Context, logg *logger.Logger, runners map[string]Runner) error {
	if len(runners) == 0 {
		<-ctx.Done()
		return nil
	}

	type result struct {
		name string
		err  error
	}
	errCh := make(chan result, len(runners))
	for name, runner := range runners {
		go func(name string, runner Runner) {
			errCh <- result{name: name, err: runner.Run(ctx)}
		}(name, runner)
	}

	heartbeat := time.NewTicker(time.Minute)
	defer heartbeat.Stop()

	for {
		select {
		case <-ctx.Done():
			logg.Info(ctx, "workers stopping")
			return nil
		case res := <-errCh:
			if res.err == nil || errors.Is(res.err, context.Canceled) {
				if ctx.Err() != nil {
					return nil
				}
				return fmt.Errorf("%s stopped", res.name)
			}
			logg.Error(ctx, fmt.Sprintf("%s stopped unexpectedly", res.name), res.err)
			return fmt.Errorf("%s: %w", res.name, res.err)
		case <-heartbeat.C:
			logg.Debug(ctx, "workers heartbeat")
		}
	}
}
