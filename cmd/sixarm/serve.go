package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/buzzauk/sixarm"
	httpAdapter "github.com/buzzauk/sixarm/pkg/adapters/http"
	"github.com/buzzauk/sixarm/internal/logging"
	"github.com/buzzauk/sixarm/pkg/domain"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the rig and its HTTP API",
	Long: `Starts the control loop against the configured driver and storage
backend and exposes the command, status and step surfaces as a JSON API.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := loadConfig(cmd)
		if err != nil {
			fmt.Printf("Error loading configuration: %v\n", err)
			os.Exit(1)
		}
		if listen, _ := cmd.Flags().GetString("listen"); listen != "" {
			cfg.Listen = listen
		}

		level, _ := cfg.SlogLevel()
		log := logging.New(level)

		blob, err := openBlob(cfg)
		if err != nil {
			fmt.Printf("Error opening storage: %v\n", err)
			os.Exit(1)
		}

		drivers, parker, err := openDrivers(cfg)
		if err != nil {
			fmt.Printf("Error opening driver: %v\n", err)
			os.Exit(1)
		}

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		rig, err := sixarm.New(ctx,
			sixarm.WithLogger(log),
			sixarm.WithRegisterer(prometheus.DefaultRegisterer),
			sixarm.WithBlob(blob),
			sixarm.WithDrivers(drivers),
			sixarm.WithPulseRange(cfg.PulseRange()),
			sixarm.WithTick(cfg.Tick.Std()),
			sixarm.WithDeadzone(cfg.Motion.Deadzone),
			sixarm.WithStepDelay(cfg.Timing.StepDelay.Std()),
			sixarm.WithGestureTiming(
				cfg.Timing.Debounce.Std(),
				cfg.Timing.DoubleWindow.Std(),
				cfg.Timing.Hold.Std(),
			),
		)
		if err != nil {
			// Storage that cannot be made consistent is the one hard
			// halt: the rig must not start over a corrupt step bank.
			// Show the fault on the panel before giving up.
			if drivers.Indicator != nil {
				_ = drivers.Indicator.Set(ctx, domain.ColorRed)
			}
			fmt.Printf("Error initializing rig: %v\n", err)
			os.Exit(1)
		}

		loopDone := make(chan error, 1)
		go func() { loopDone <- rig.Run(ctx) }()

		srv := &http.Server{
			Addr:    cfg.Listen,
			Handler: httpAdapter.NewHandler(rig, log),
		}

		// Channel to listen for errors coming from the listener.
		serverErrors := make(chan error, 1)

		go func() {
			log.Info("sixarm API listening", "addr", cfg.Listen)
			serverErrors <- srv.ListenAndServe()
		}()

		// Channel to listen for interrupt or terminate signals.
		shutdown := make(chan os.Signal, 1)
		signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

		select {
		case err := <-serverErrors:
			if !errors.Is(err, http.ErrServerClosed) {
				// The remote surface died underneath the rig. Halt
				// motion and latch the transport fault until restart.
				log.Error("server error, faulting rig", "err", err)
				rig.Fault(ctx, domain.TriggerFaultTransport)
				<-shutdown
			}

		case sig := <-shutdown:
			log.Info("shutdown requested", "signal", sig.String())

			// Give outstanding requests a deadline for completion.
			shutCtx, shutCancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer shutCancel()
			if err := srv.Shutdown(shutCtx); err != nil {
				log.Warn("graceful shutdown did not complete", "err", err)
				if err := srv.Close(); err != nil {
					log.Error("error killing server", "err", err)
				}
			}
		}

		// Stop the loop, then park and release the hardware.
		cancel()
		<-loopDone
		if parker != nil {
			if err := parker.Close(); err != nil {
				log.Warn("driver close failed", "err", err)
			}
		}
		if err := rig.Close(); err != nil {
			log.Warn("storage close failed", "err", err)
		}
		log.Info("sixarm stopped")
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringP("listen", "l", "", "Listen address, overriding the configuration")
}
