package cli

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"bulletbot/internal/bullet"
	"bulletbot/internal/chat"
	"bulletbot/internal/db"
	"bulletbot/internal/digest"
	httpx "bulletbot/internal/http"
	"bulletbot/internal/jobs"
	"bulletbot/internal/logging"
	"bulletbot/internal/store"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

func newServeCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the daily digest worker",
		Long: `Run the HTTP API and, unless DIGEST_ENABLED=false, the worker that
sends the digest every day at DIGEST_AT in DIGEST_TIMEZONE.

The schema is migrated on startup. SIGINT or SIGTERM shuts down gracefully.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), opts)
		},
	}
}

func runServe(parent context.Context, opts *RootOptions) error {
	cfg := opts.Config
	level := cfg.LogLevel
	if opts.Verbose {
		level = "debug"
	}
	log := logging.New(os.Stdout, cfg.LogFormat, level)

	gdb, err := opts.openDB()
	if err != nil {
		return err
	}
	if err := db.AutoMigrateAndIndexes(gdb); err != nil {
		return WrapExitError(ExitFailure, "migration failed", err)
	}

	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	st := store.New(gdb)
	svc := bullet.NewService(st, log)
	compiler := digest.NewCompiler(st, log)
	sink, err := opts.sink(ctx, log)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to set up digest delivery", err)
	}

	r := httpx.NewRouter(cfg, httpx.Deps{
		Bullets: svc,
		Chat:    chat.NewRouter(svc, log),
		Digest:  compiler,
		Sink:    sink,
		Log:     log,
	})

	// worker
	if cfg.DigestEnabled {
		worker := &jobs.Worker{
			ID:       "worker-" + uuid.NewString(),
			Queue:    &jobs.Repo{DB: gdb},
			Log:      log.With("component", "worker"),
			Digest:   compiler,
			Sink:     sink,
			At:       cfg.DigestAt,
			Loc:      cfg.DigestLocation,
			Interval: cfg.WorkerPollInterval,
		}
		if err := worker.Schedule(ctx); err != nil {
			return WrapExitError(ExitFailure, "failed to schedule digest", err)
		}
		go worker.Run(ctx)
	}

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info(ctx, "listening", "addr", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	// graceful shutdown
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(ch)

	select {
	case sig := <-ch:
		log.Info(ctx, "shutting down", "signal", sig.String())
	case <-ctx.Done():
		log.Info(ctx, "shutting down", "reason", ctx.Err())
	case err := <-errCh:
		return WrapExitError(ExitFailure, "http server failed", err)
	}

	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	return srv.Shutdown(shutdownCtx)
}
