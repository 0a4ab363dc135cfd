package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/agchaparroh/noticias-pipeline/internal/jobs"
	"github.com/agchaparroh/noticias-pipeline/internal/model"
	"github.com/agchaparroh/noticias-pipeline/internal/resilience"
	"github.com/agchaparroh/noticias-pipeline/internal/worker"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the job submission and status API",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if err := cfg.Validate("serve"); err != nil {
			return err
		}

		e, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer e.Close()

		if err := e.Store.Migrate(ctx); err != nil {
			return eris.Wrap(err, "migrate store")
		}

		tracker := jobs.NewTracker(jobs.Config{
			Retention:     time.Duration(cfg.Jobs.RetentionMins) * time.Minute,
			MaxTracked:    cfg.Jobs.MaxTracked,
			SweepInterval: time.Duration(cfg.Jobs.SweepIntervalSecs) * time.Second,
		})
		go tracker.Start(ctx)

		pool := worker.New(e.Coordinator, tracker, cfg.Jobs.Workers, cfg.Jobs.QueueDepth)
		go func() {
			if err := pool.Run(ctx); err != nil && ctx.Err() == nil {
				zap.L().Error("worker pool stopped", zap.Error(err))
			}
		}()

		r := chi.NewRouter()
		r.Use(middleware.RequestID)
		r.Use(middleware.Recoverer)
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: []string{"*"},
			AllowedMethods: []string{"GET", "POST"},
			AllowedHeaders: []string{"Content-Type"},
		}))

		r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
		})

		r.Post("/jobs", func(w http.ResponseWriter, req *http.Request) {
			var unit model.ProcessingUnit
			if err := json.NewDecoder(req.Body).Decode(&unit); err != nil {
				writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
				return
			}
			if unit.Kind == "" {
				unit.Kind = model.UnitKindArticle
			}

			jobID, err := pool.Submit(unit)
			if err != nil {
				if resilience.KindOf(err) == resilience.KindServiceUnavailable {
					writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "queue at capacity"})
					return
				}
				writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "submission failed"})
				return
			}
			writeJSON(w, http.StatusAccepted, map[string]string{"job_id": jobID})
		})

		r.Get("/jobs/{id}", func(w http.ResponseWriter, req *http.Request) {
			job, ok := tracker.Get(chi.URLParam(req, "id"))
			if !ok {
				writeJSON(w, http.StatusNotFound, map[string]string{"error": "job not found"})
				return
			}
			writeJSON(w, http.StatusOK, job)
		})

		r.Get("/metrics", func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, http.StatusOK, e.Metrics.Snapshot())
		})

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: r,
		}

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
