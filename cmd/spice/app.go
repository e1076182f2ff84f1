package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Veraticus/spice-capture/internal/archive"
	"github.com/Veraticus/spice-capture/internal/capture"
	"github.com/Veraticus/spice-capture/internal/config"
	"github.com/Veraticus/spice-capture/internal/events"
	"github.com/Veraticus/spice-capture/internal/ledger"
	"github.com/Veraticus/spice-capture/internal/llm"
	"github.com/Veraticus/spice-capture/internal/media"
	"github.com/Veraticus/spice-capture/internal/metrics"
	"github.com/Veraticus/spice-capture/internal/storage"
	"github.com/spf13/viper"
)

// app holds the collaborators shared by the commands.
type app struct {
	store      *storage.SQLiteStorage
	classifier capture.Classifier
	finalizer  *ledger.Finalizer
	publisher  *events.Publisher
	archive    archive.Store
	metrics    *metrics.Metrics
	logger     *slog.Logger
	cfg        config.Config
}

type appOptions struct {
	classify bool
	metrics  bool
}

// newApp loads the configuration and opens the storage. The classifier is
// only built for commands that capture, so listing works without an API key.
func newApp(ctx context.Context, opts appOptions) (*app, error) {
	cfg, err := config.Load(viper.GetViper())
	if err != nil {
		return nil, err
	}

	a := &app{cfg: cfg, logger: slog.Default()}
	if opts.metrics {
		a.metrics = metrics.New()
	}

	a.store, err = storage.Open(ctx, cfg.StoragePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open storage: %w", err)
	}

	if opts.classify {
		if err := a.initCapture(ctx); err != nil {
			_ = a.Close()
			return nil, err
		}
	}
	return a, nil
}

func (a *app) initCapture(ctx context.Context) error {
	if err := a.cfg.RequireAPIKey(); err != nil {
		return err
	}

	var classifierOpts []llm.ClassifierOption
	var publisherOpts []events.Option
	if a.metrics != nil {
		classifierOpts = append(classifierOpts, llm.WithObserver(a.metrics))
		publisherOpts = append(publisherOpts, events.WithRecorder(a.metrics))
	}

	classifier, err := llm.NewClassifier(ctx, a.cfg.LLM, a.logger, classifierOpts...)
	if err != nil {
		return err
	}
	a.classifier = classifier

	a.publisher = events.New(&a.cfg.Events, append(publisherOpts, events.WithLogger(a.logger))...)

	a.archive, err = archive.New(ctx, a.cfg.Archive)
	if err != nil {
		return fmt.Errorf("failed to open archive: %w", err)
	}

	finalizerOpts := []ledger.Option{
		ledger.WithLogger(a.logger),
		ledger.WithNotifier(a.publisher),
	}
	if a.archive != nil {
		finalizerOpts = append(finalizerOpts, ledger.WithArchiver(a.archive))
	}
	a.finalizer = ledger.NewFinalizer(a.store, a.cfg.OwnerID, finalizerOpts...)
	return nil
}

// newSession opens a capture session. mic may be nil when audio capture is
// not wanted.
func (a *app) newSession(mic media.Microphone) *capture.Session {
	deps := capture.Deps{
		Classifier: a.classifier,
		Finalizer:  a.finalizer,
		Logger:     a.logger,
	}
	if mic != nil {
		deps.Recorder = media.NewAudioRecorder(mic, media.WithMaxRecordingBytes(a.cfg.Capture.MaxRecordingBytes))
	}
	if a.metrics != nil {
		deps.Observer = a.metrics
	}
	return capture.New(deps)
}

// Close releases everything newApp opened.
func (a *app) Close() error {
	var firstErr error
	keep := func(err error) {
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if a.publisher != nil {
		keep(a.publisher.Close())
	}
	if a.archive != nil {
		keep(a.archive.Close())
	}
	if a.store != nil {
		keep(a.store.Close())
	}
	return firstErr
}
