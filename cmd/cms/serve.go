package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/cobra"
	"github.com/tendant/simple-cms/pkg/simplecms/api"
	"github.com/tendant/simple-cms/pkg/simplecms/system"
)

var flagSeedDefaults bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().BoolVar(&flagSeedDefaults, "seed-defaults", true, "store the default date formats when they are missing")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	svc, err := serverCfg.BuildServices(ctx, logger)
	if err != nil {
		return fmt.Errorf("failed to build services: %w", err)
	}
	defer svc.Close()

	if flagSeedDefaults {
		for _, f := range system.DefaultDateFormats() {
			if _, err := svc.Config.Get(ctx, f.ConfigName()); err == nil {
				continue
			}
			if err := svc.Config.Save(ctx, f.ConfigName(), f.ToConfig()); err != nil {
				return fmt.Errorf("failed to seed date format %s: %w", f.FormatID, err)
			}
		}
	}

	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Mount("/", api.NewRouter(api.Deps{
		Config:   svc.Config,
		Blocks:   svc.Blocks,
		Styles:   svc.Styles,
		Wrappers: svc.Wrappers,
		JWTAuth:  svc.JWTAuth,
		Logger:   logger,
	}))

	httpServer := &http.Server{
		Addr:    fmt.Sprintf(":%s", serverCfg.Port),
		Handler: r,
	}

	go func() {
		log.Printf("CMS server starting on port %s (env: %s)", serverCfg.Port, serverCfg.Environment)
		log.Printf("Config store: %s, strict schema: %t", serverCfg.ConfigStore, serverCfg.StrictSchema)
		log.Printf("Stream wrappers: %v", svc.Wrappers.Schemes())

		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	log.Println("Server exiting")
	return nil
}
