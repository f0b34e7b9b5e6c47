package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/lead-intake/internal/analysis"
	"github.com/sells-group/lead-intake/internal/config"
	"github.com/sells-group/lead-intake/internal/crm"
	"github.com/sells-group/lead-intake/internal/notify"
	"github.com/sells-group/lead-intake/internal/ratelimit"
	"github.com/sells-group/lead-intake/internal/server"
	"github.com/sells-group/lead-intake/internal/store"
	"github.com/sells-group/lead-intake/internal/tasks"
	"github.com/sells-group/lead-intake/pkg/anthropic"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the intake HTTP server",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		st, err := store.Open(ctx, cfg.Store)
		if err != nil {
			return err
		}
		defer st.Close()

		if err := st.Migrate(ctx); err != nil {
			return err
		}

		var aiClient anthropic.Client
		if cfg.Anthropic.Key != "" {
			aiClient = anthropic.NewClient(cfg.Anthropic.Key)
		} else {
			zap.L().Warn("no Anthropic API key configured, submissions will fail analysis")
		}
		analyzer := analysis.New(aiClient, cfg.Anthropic)

		limiter := ratelimit.New(cfg.Notify.MaxPerWindow, time.Duration(cfg.Notify.WindowSecs)*time.Second)
		dispatcher := notify.NewDispatcher(cfg.SendGrid, limiter)
		crmSync := crm.New(cfg.Notion.Token, cfg.Notion.LeadsDB)
		if crmSync == nil {
			zap.L().Info("Notion sync disabled")
		}

		runner := tasks.NewRunner(0)
		srv := server.New(st, analyzer, dispatcher, crmSync, runner, cfg.Server, cfg.Admin)

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		httpSrv := &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: srv.Router(),
		}

		// Graceful shutdown: stop accepting, then drain background jobs so
		// pending store writes and emails finish.
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			httpSrv.Shutdown(shutdownCtx)
		}()

		zap.L().Info("starting server",
			zap.Int("port", port),
			zap.String("store_driver", storeDriver(cfg.Store)),
		)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}

		runner.Wait()
		return nil
	},
}

func storeDriver(cfg config.StoreConfig) string {
	if cfg.Driver == "" {
		return "sqlite"
	}
	return cfg.Driver
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
