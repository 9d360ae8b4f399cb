package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/GriffinCanCode/screenlog/internal/config"
	apperrors "github.com/GriffinCanCode/screenlog/internal/errors"
	"github.com/GriffinCanCode/screenlog/internal/logging"
	"github.com/GriffinCanCode/screenlog/internal/ocr"
	"github.com/GriffinCanCode/screenlog/internal/orchestrator"
	"github.com/GriffinCanCode/screenlog/internal/orchestrator/history"
	"github.com/GriffinCanCode/screenlog/internal/orchestrator/output"
	"github.com/GriffinCanCode/screenlog/internal/orchestrator/pause"
	ocrproc "github.com/GriffinCanCode/screenlog/internal/orchestrator/screen"
	"github.com/GriffinCanCode/screenlog/internal/screen"
	"github.com/GriffinCanCode/screenlog/internal/server"
	"github.com/GriffinCanCode/screenlog/internal/trace"
	"github.com/GriffinCanCode/screenlog/internal/ui"
	"github.com/GriffinCanCode/screenlog/internal/video"
)

const shutdownTimeout = 5 * time.Second

func newRunCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Start recording until interrupted",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), opts.configPath)
		},
	}
}

func run(ctx context.Context, configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(cfg.OutputDir, 0o755); err != nil {
		return apperrors.Wrapf(err, apperrors.CodeOutputDirFailed, "create output directory %s", cfg.OutputDir)
	}

	logCloser := logging.Setup(cfg.Log, cfg.OutputDir, os.Stderr)
	defer func() { _ = logCloser.Close() }()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, _ = trace.EnsureContext(ctx)
	log := trace.Logger(ctx)

	ffmpeg := video.NewFFmpeg(cfg.FFmpegPath)
	if err := ffmpeg.Available(); err != nil {
		log.Warn("ffmpeg not found, video writers will stay empty", "path", cfg.FFmpegPath, "error", err)
	}

	extractor, closeOCR, err := ocr.Open(cfg.OCR)
	if err != nil {
		return err
	}
	defer func() { _ = closeOCR() }()

	displays := screen.NewDisplays()
	writer := output.NewWriter(displays, ffmpeg, output.Options{
		Dir:         cfg.OutputDir,
		FPS:         cfg.VideoFPS,
		Rotation:    cfg.RotationInterval(),
		DedupeScope: cfg.DedupeScope,
	})

	recent := history.NewStore(history.DefaultMaxEntries, history.DefaultEventBuffer)
	proc := ocrproc.NewProcessor(displays, extractor, writer, cfg.DiffThreshold).WithHistory(recent)
	writer.OnRefresh(proc.Reset)

	sinks := &ui.Multi{}
	pauser := pause.New(writer, sinks, cfg.PauseDuration())

	mgr := orchestrator.New(orchestrator.Deps{
		Capture:  displays,
		Output:   writer,
		OCR:      proc,
		Pause:    pauser,
		Topology: displays,
	}, orchestrator.Options{
		TickInterval: cfg.OCRInterval(),
		PollInterval: cfg.ReconfigPollInterval(),
	})

	var httpServer *http.Server
	if cfg.Control.Enabled {
		srv := server.New(server.Deps{
			Recorder: mgr,
			Slots:    writer,
			Pause:    pauser,
			OCR:      extractor,
			History:  recent,
			Quit:     stop,
		})
		*sinks = append(*sinks, srv)
		httpServer = &http.Server{
			Addr:              cfg.Control.Addr,
			Handler:           srv.Handler(),
			ReadHeaderTimeout: 10 * time.Second,
		}
	} else {
		*sinks = append(*sinks, ui.NewState())
	}

	if err := mgr.Start(ctx); err != nil {
		return err
	}

	if httpServer != nil {
		go func() {
			log.Info("control server starting", "addr", httpServer.Addr)
			if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error("control server error", "error", err)
			}
		}()
	}

	log.Info("screenlog running", "output", cfg.OutputDir, "ocr", cfg.OCR.Backend, "version", version)
	<-ctx.Done()
	log.Info("shutting down...")

	if httpServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			log.Error("control server shutdown error", "error", err)
		}
	}

	mgr.Stop()
	log.Info("shutdown complete")
	return nil
}
