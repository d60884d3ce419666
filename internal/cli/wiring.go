package cli

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"quizsphere/internal/app"
	"quizsphere/internal/config"
	"quizsphere/internal/infra/events"
	"quizsphere/internal/infra/memory"
	"quizsphere/internal/infra/opentdb"
	"quizsphere/internal/infra/postgres"
	redisstore "quizsphere/internal/infra/redis"
	"quizsphere/internal/infra/sqlite"
)

// runtime holds the wired service and the resources to release on exit.
type runtime struct {
	service *app.AssessmentService
	closers []func()
}

func (r *runtime) Close() {
	if r.service != nil {
		r.service.Shutdown()
	}
	for i := len(r.closers) - 1; i >= 0; i-- {
		r.closers[i]()
	}
}

func buildRuntime(ctx context.Context, cfg config.Config) (*runtime, error) {
	rt := &runtime{}
	settings, err := cfg.Settings()
	if err != nil {
		return nil, err
	}

	provider, err := buildProvider(cfg)
	if err != nil {
		return nil, err
	}

	var sessions app.SessionRepository = memory.NewSessionStore()
	var records app.RecordStore = memory.NewRecordStore()
	if cfg.Redis.Addr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		rt.closers = append(rt.closers, func() { _ = client.Close() })
		ttl := config.TTLDuration(cfg.Redis.TTL, 24*time.Hour)
		sessions = redisstore.NewSessionStore(client, ttl)
		records = redisstore.NewRecordStore(client, ttl)
	}

	opts := []app.Option{}
	archive, err := openArchive(ctx, cfg, rt)
	if err != nil {
		rt.Close()
		return nil, err
	}
	if archive != nil {
		opts = append(opts, app.WithArchive(archive))
	}

	if cfg.Events.AMQPURL != "" {
		publisher, err := events.NewPublisher(cfg.Events.AMQPURL, cfg.Events.Exchange)
		if err != nil {
			rt.Close()
			return nil, err
		}
		rt.closers = append(rt.closers, publisher.Close)
		opts = append(opts, app.WithEvents(publisher))
	} else {
		opts = append(opts, app.WithEvents(events.LogPublisher{}))
	}

	service, err := app.NewAssessmentService(sessions, records, provider, settings, opts...)
	if err != nil {
		rt.Close()
		return nil, err
	}
	rt.service = service
	return rt, nil
}

func buildProvider(cfg config.Config) (app.QuestionProvider, error) {
	switch cfg.Provider.Source {
	case config.SourceStatic:
		if cfg.Provider.File != "" {
			provider, err := memory.LoadQuestionFile(cfg.Provider.File)
			if err != nil {
				return nil, err
			}
			return provider, nil
		}
		return memory.NewStaticQuestionProvider(memory.SampleQuestions()), nil
	case config.SourceOpenTDB:
		timeout := config.TTLDuration(cfg.Provider.Timeout, 10*time.Second)
		return opentdb.NewClient(&http.Client{Timeout: timeout}, opentdb.Options{
			BaseURL:    cfg.Provider.BaseURL,
			Type:       cfg.Provider.Type,
			Category:   cfg.Provider.Category,
			Difficulty: cfg.Provider.Difficulty,
			Timeout:    timeout,
			UseToken:   cfg.Provider.UseToken,
		}), nil
	default:
		return nil, fmt.Errorf("unknown provider source %q", cfg.Provider.Source)
	}
}

// openArchive returns nil when no archive driver is configured.
func openArchive(ctx context.Context, cfg config.Config, rt *runtime) (app.ReportArchive, error) {
	switch cfg.Archive.Driver {
	case "":
		return nil, nil
	case config.DriverSQLite:
		archive, err := sqlite.Open(ctx, cfg.Archive.DSN)
		if err != nil {
			return nil, err
		}
		rt.closers = append(rt.closers, func() { _ = archive.Close() })
		return archive, nil
	case config.DriverPostgres:
		if cfg.Archive.DSN == "" {
			return nil, fmt.Errorf("postgres archive dsn not configured")
		}
		if err := runMigrationsWithConfig(ctx, cfg); err != nil {
			return nil, err
		}
		pool, err := pgxpool.Connect(ctx, cfg.Archive.DSN)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		rt.closers = append(rt.closers, pool.Close)
		log.Printf("archiving reports in postgres")
		return postgres.NewReportArchive(pool), nil
	default:
		return nil, fmt.Errorf("unknown archive driver %q", cfg.Archive.Driver)
	}
}
