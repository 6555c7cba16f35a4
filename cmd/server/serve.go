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
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"pokebattle/internal/battle"
	"pokebattle/internal/server"
	"pokebattle/internal/session"
)

const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the battle server",
	RunE:  runServe,
}

func init() {
	f := serveCmd.Flags()
	f.Int("port", 0, "listen port")
	f.Duration("turn-timeout", 0, "forfeit a player whose turn is pending longer than this (0 disables)")
	f.Bool("verify-teams", false, "check declared creatures against the roster")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, log, err := loadConfig()
	if err != nil {
		return err
	}
	defer log.Sync()

	store, err := openRoster(cfg, log)
	if err != nil {
		log.Error("open roster", zap.Error(err))
		return err
	}
	defer store.Close()

	catalog := loadCatalog(cfg, log)
	var opts []session.Option
	if cfg.VerifyTeams {
		opts = append(opts, session.WithVerifier(store))
	}
	mgr := session.NewManager(battle.NewService(catalog, battle.NewTimeSeededRand()), log, opts...)

	httpSrv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           server.New(mgr, catalog, store, log, cfg.SendBuffer),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info("listening", zap.String("addr", httpSrv.Addr), zap.Int("moves", catalog.Len()))
		if err := httpSrv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return httpSrv.Shutdown(shutdownCtx)
	})
	if cfg.TurnTimeout > 0 {
		g.Go(func() error {
			return mgr.ExpireLoop(ctx, cfg.SweepInterval, cfg.TurnTimeout)
		})
	}

	if err := g.Wait(); err != nil {
		log.Error("server stopped", zap.Error(err))
		return err
	}
	return nil
}
