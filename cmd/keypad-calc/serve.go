package main

import (
	"context"
	"fmt"
	"log"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/lemonberrylabs/keypad-calc/pkg/api"
	grpcapi "github.com/lemonberrylabs/keypad-calc/pkg/api/grpc"
	"github.com/lemonberrylabs/keypad-calc/pkg/store"
	"github.com/lemonberrylabs/keypad-calc/web"
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API, web keypad and gRPC service",
		Args:  cobra.NoArgs,
		RunE:  runServe,
	}
	cmd.Flags().Int("port", 0, "HTTP server port (default 8787, env PORT)")
	cmd.Flags().Int("grpc-port", -1, "gRPC server port, 0 disables it (default 8788, env GRPC_PORT)")
	cmd.Flags().String("host", "", "Bind address (default 0.0.0.0, env HOST)")
	cmd.Flags().String("tapes-dir", "", "Directory of tapes to replay into sessions at startup (env TAPES_DIR)")
	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if v, _ := cmd.Flags().GetInt("port"); v != 0 {
		cfg.Server.Port = v
	}
	if v, _ := cmd.Flags().GetInt("grpc-port"); v >= 0 {
		cfg.Server.GRPCPort = v
	}
	if v, _ := cmd.Flags().GetString("host"); v != "" {
		cfg.Server.Host = v
	}
	if v, _ := cmd.Flags().GetString("tapes-dir"); v != "" {
		cfg.TapesDir = v
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	s := store.New(cfg.StoreOptions()...)
	server := api.New(s, api.WithFormatter(cfg.Formatter()))

	if cfg.TapesDir != "" {
		log.Printf("Loading tapes from %s", cfg.TapesDir)
		if err := server.LoadTapes(cfg.TapesDir); err != nil {
			log.Printf("Warning: failed to load tapes: %v", err)
		}
	}

	// Register the web UI (non-fatal if template parsing fails)
	func() {
		defer func() {
			if r := recover(); r != nil {
				log.Printf("Warning: web UI disabled due to template error: %v", r)
			}
		}()
		ui := web.New(s, cfg.Formatter())
		ui.Register(server.App())
	}()

	log.Printf("keypad-calc listening on %s (max length %d, precision %d)",
		cfg.Addr(), cfg.Calculator.MaxExpressionLength, cfg.Calculator.Precision)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	g, ctx := errgroup.WithContext(ctx)

	var grpcServer *grpcapi.Server
	if cfg.Server.GRPCPort != 0 {
		grpcServer = grpcapi.New(s, grpcapi.WithFormatter(cfg.Formatter()))
		g.Go(func() error {
			log.Printf("gRPC server listening on %s", cfg.GRPCAddr())
			if err := grpcServer.Serve(cfg.GRPCAddr()); err != nil {
				return fmt.Errorf("gRPC server: %w", err)
			}
			return nil
		})
	}
	g.Go(func() error {
		return server.Listen(cfg.Addr())
	})

	// Graceful shutdown on a signal or when either server fails.
	g.Go(func() error {
		<-ctx.Done()
		log.Println("Shutting down keypad-calc...")
		if grpcServer != nil {
			grpcServer.GracefulStop()
		}
		if err := server.Shutdown(); err != nil {
			log.Printf("Error during shutdown: %v", err)
		}
		return nil
	})

	return g.Wait()
}
