package main

import (
	"context"
	"fmt"

	gojwt "github.com/golang-jwt/jwt/v5"

	"github.com/kbukum/diarscribe/api"
	"github.com/kbukum/diarscribe/auth"
	"github.com/kbukum/diarscribe/auth/jwt"
	"github.com/kbukum/diarscribe/bootstrap"
	"github.com/kbukum/diarscribe/component"
	"github.com/kbukum/diarscribe/diarization"
	"github.com/kbukum/diarscribe/diarization/pyannote"
	"github.com/kbukum/diarscribe/job"
	"github.com/kbukum/diarscribe/logger"
	"github.com/kbukum/diarscribe/observability"
	"github.com/kbukum/diarscribe/redis"
	"github.com/kbukum/diarscribe/server"
	"github.com/kbukum/diarscribe/sse"
	"github.com/kbukum/diarscribe/storage"
	"github.com/kbukum/diarscribe/transcription"
	"github.com/kbukum/diarscribe/transcription/whisper"
	"github.com/kbukum/diarscribe/transcription/whisperx"
)

const eventsPath = "/api/v1/transcriptions/:id/events"

// wiring carries the infrastructure components started before configure.
type wiring struct {
	storage *storage.Component
	redis   *redis.Component
	hub     *sse.Hub
}

// wire builds the backends, the job runner and the HTTP server, then
// registers the runner and the server so they start after configure.
func wire(ctx context.Context, app *bootstrap.App[*AppConfig], w wiring) error {
	cfg := app.Cfg

	transcriber, err := newTranscriber(ctx, cfg.Transcription)
	if err != nil {
		return err
	}
	var diarizer diarization.Provider
	if cfg.Diarization.Enabled {
		if diarizer, err = newDiarizer(ctx, cfg.Diarization); err != nil {
			return err
		}
	} else {
		app.Logger.Warn("diarization disabled, transcripts will not name speakers")
	}

	var store job.Store = job.NewMemoryStore(cfg.Jobs.TTL)
	if w.redis != nil {
		store = job.NewRedisStore(w.redis.Client(), cfg.Jobs.TTL)
	}
	metrics, err := observability.NewGlobalMetrics()
	if err != nil {
		return fmt.Errorf("create metrics: %w", err)
	}

	runner, err := job.NewRunner(cfg.Jobs, cfg.Transcription, cfg.Diarization, job.Deps{
		Transcriber: transcriber,
		Diarizer:    diarizer,
		Storage:     w.storage.Storage(),
		Store:       store,
		Events:      w.hub,
		Metrics:     metrics,
	})
	if err != nil {
		return err
	}

	srv := server.New(&cfg.Server, logger.GetGlobalLogger())
	srv.ApplyDefaults(cfg.Name, app.Components.HealthAll, func(context.Context) (string, any) {
		return "jobs", runner.Stats()
	})
	srv.OnShutdown(w.hub.Stop)

	opts := []api.Option{
		api.WithRateLimit(cfg.Server.RateLimit),
		api.WithUploadLimit(cfg.Server.MaxBodySize),
	}
	if cfg.Auth.Enabled {
		validator, err := newTokenValidator(&cfg.Auth.JWT)
		if err != nil {
			return err
		}
		opts = append(opts, api.WithAuth(validator))
	}
	api.NewHandler(runner, w.hub, opts...).Register(srv.GinEngine())

	for _, c := range []component.Component{runner, server.NewComponent(srv)} {
		if err := app.RegisterComponent(c); err != nil {
			return err
		}
	}
	app.OnReady(logReady(app.Logger, srv.Addr))
	app.OnStop(logDraining(app.Logger, runner.Stats))
	return nil
}

func newTranscriber(ctx context.Context, cfg transcription.Config) (transcription.Provider, error) {
	reg := transcription.NewRegistry()
	reg.RegisterFactory(whisper.ProviderName, whisper.Factory)
	reg.RegisterFactory(whisperx.ProviderName, whisperx.Factory)

	mgr := transcription.NewManager(reg, cfg.Provider)
	if err := mgr.Initialize(ctx, cfg.Provider, cfg); err != nil {
		return nil, err
	}
	return mgr.GetByName(cfg.Provider)
}

func newDiarizer(ctx context.Context, cfg diarization.Config) (diarization.Provider, error) {
	reg := diarization.NewRegistry()
	reg.RegisterFactory(pyannote.ProviderName, pyannote.Factory)

	mgr := diarization.NewManager(reg, cfg.Provider)
	if err := mgr.Initialize(ctx, cfg.Provider, cfg); err != nil {
		return nil, err
	}
	return mgr.GetByName(cfg.Provider)
}

func newTokenValidator(cfg *jwt.Config) (auth.TokenValidator, error) {
	svc, err := jwt.NewService(cfg, jwt.NewClaims)
	if err != nil {
		return nil, fmt.Errorf("create token service: %w", err)
	}
	return auth.NewValidator(svc.ValidatorFunc()), nil
}

// issueToken signs an access token for subject with the configured secret.
func issueToken(cfg *jwt.Config, subject string) (string, error) {
	if err := cfg.Validate(); err != nil {
		return "", fmt.Errorf("auth.jwt: %w", err)
	}
	svc, err := jwt.NewService(cfg, jwt.NewClaims)
	if err != nil {
		return "", err
	}
	return svc.GenerateAccess(&jwt.Claims{
		RegisteredClaims: gojwt.RegisteredClaims{Subject: subject},
		Scope:            "transcribe",
	})
}
