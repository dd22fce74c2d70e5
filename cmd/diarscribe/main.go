// Command diarscribe serves the transcription web app.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/kbukum/diarscribe/bootstrap"
	"github.com/kbukum/diarscribe/component"
	"github.com/kbukum/diarscribe/config"
	"github.com/kbukum/diarscribe/job"
	"github.com/kbukum/diarscribe/observability"
	"github.com/kbukum/diarscribe/redis"
	"github.com/kbukum/diarscribe/sse"
	"github.com/kbukum/diarscribe/storage"
	_ "github.com/kbukum/diarscribe/storage/local"
	_ "github.com/kbukum/diarscribe/storage/s3"
	"github.com/kbukum/diarscribe/version"
)

const serviceName = "diarscribe"

func main() {
	configFile := flag.String("config", "", "path to config.yml")
	envFile := flag.String("env", "", "path to .env")
	subject := flag.String("issue-token", "", "print an API token for this subject and exit")
	quiet := flag.Bool("quiet", false, "skip the startup summary")
	flag.Parse()

	if err := run(*configFile, *envFile, *subject, *quiet); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(configFile, envFile, subject string, quiet bool) error {
	var cfg AppConfig
	if err := config.LoadConfig(serviceName, &cfg, config.WithConfigFile(configFile), config.WithEnvFile(envFile)); err != nil {
		return err
	}
	if cfg.Version == "" {
		cfg.Version = version.Version
	}

	if subject != "" {
		cfg.ApplyDefaults()
		token, err := issueToken(&cfg.Auth.JWT, subject)
		if err != nil {
			return err
		}
		fmt.Println(token)
		return nil
	}

	opts := []bootstrap.Option{bootstrap.WithGracefulTimeout(cfg.Jobs.ShutdownTimeout)}
	if quiet {
		opts = append(opts, bootstrap.WithSummaryOutput(nil))
	}
	app, err := bootstrap.NewApp(&cfg, opts...)
	if err != nil {
		return err
	}
	app.OnStart(logBuild(app.Logger))

	// Infrastructure starts before the configure phase; the job runner and the
	// HTTP server are registered there once storage and redis are connected.
	obs := observability.NewComponent(observability.Identity{
		ServiceName:    cfg.Name,
		ServiceVersion: cfg.Version,
		Environment:    cfg.Environment,
	}, cfg.Observability)
	store := storage.NewComponent(cfg.Storage)
	events := sse.NewComponent(eventsPath)

	infra := []component.Component{obs, store}
	var rdb *redis.Component
	if cfg.Jobs.Store == job.StoreRedis {
		rdb = redis.NewComponent(cfg.Redis)
		infra = append(infra, rdb)
	}
	infra = append(infra, events)
	for _, c := range infra {
		if err := app.RegisterComponent(c); err != nil {
			return err
		}
	}

	app.OnConfigure(func(ctx context.Context, app *bootstrap.App[*AppConfig]) error {
		return wire(ctx, app, wiring{storage: store, redis: rdb, hub: events.Hub()})
	})

	return app.Run(context.Background())
}
