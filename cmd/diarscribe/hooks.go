package main

import (
	"context"

	"github.com/kbukum/diarscribe/bootstrap"
	"github.com/kbukum/diarscribe/job"
	"github.com/kbukum/diarscribe/logger"
	"github.com/kbukum/diarscribe/version"
)

// logBuild records which build is starting.
func logBuild(log *logger.Logger) bootstrap.Hook {
	return func(context.Context) error {
		log.Info("Build", logger.Fields("build", version.Get().String()))
		return nil
	}
}

// logReady records the address the web app answers on.
func logReady(log *logger.Logger, addr func() string) bootstrap.Hook {
	return func(context.Context) error {
		log.Info("Ready to accept uploads", logger.Fields("addr", addr()))
		return nil
	}
}

// logDraining warns when shutdown has to wait for jobs still holding a slot.
func logDraining(log *logger.Logger, stats func() job.Stats) bootstrap.Hook {
	return func(context.Context) error {
		if s := stats(); s.Running > 0 {
			log.Warn("Waiting for running jobs to finish", logger.Fields("running", s.Running))
		}
		return nil
	}
}
