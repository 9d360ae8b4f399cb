package main

import (
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/GriffinCanCode/screenlog/internal/config"
	"github.com/GriffinCanCode/screenlog/internal/logging"
	"github.com/GriffinCanCode/screenlog/internal/ocr"
	"github.com/GriffinCanCode/screenlog/internal/trace"
)

func newOCRServeCmd(opts *rootOptions) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "ocr-serve",
		Short: "Serve the local OCR engine over gRPC",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(opts.configPath)
			if err != nil {
				return err
			}
			logging.Setup(config.LogConfig{Level: cfg.Log.Level}, "", os.Stderr)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			log := trace.Logger(ctx)

			ext, closeEngine, err := ocr.NewLocal(cfg.OCR)
			if err != nil {
				return err
			}
			defer func() { _ = closeEngine() }()

			lis, err := net.Listen("tcp", addr)
			if err != nil {
				return err
			}
			srv := ocr.NewServer(ocr.WithTimeout(ext, cfg.OCRTimeout()))

			go func() {
				<-ctx.Done()
				log.Info("ocr server stopping")
				srv.GracefulStop()
			}()

			log.Info("ocr server listening", "addr", lis.Addr().String(), "engine", ocr.LocalEngine)
			return srv.Serve(lis)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:50051", "listen address")
	return cmd
}
