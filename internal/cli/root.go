// Package cli is the bulletbot command line: the server, schema migration,
// and one-shot commands that call the bullet engine directly.
package cli

import (
	"context"
	"io"

	"bulletbot/internal/bullet"
	"bulletbot/internal/config"
	"bulletbot/internal/db"
	"bulletbot/internal/deliver"
	"bulletbot/internal/digest"
	"bulletbot/internal/logging"
	"bulletbot/internal/store"

	"github.com/spf13/cobra"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// RootOptions holds global flags and shared wiring for all commands.
type RootOptions struct {
	Verbose     bool
	DatabaseURL string

	Config config.Config

	// OpenDB opens the database. Defaults to Postgres at DatabaseURL.
	OpenDB func(dsn string) (*gorm.DB, error)
	// NewSink builds the digest delivery sink. Defaults to BuildSink.
	NewSink func(ctx context.Context, cfg config.Config, log logging.Logger) (deliver.Sink, error)
}

// NewRootCommand creates the bulletbot root command.
func NewRootCommand(cfg config.Config) *cobra.Command {
	return newRootCommand(&RootOptions{Config: cfg})
}

func newRootCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bulletbot",
		Short: "Collect daily bullets and send them as one digest",
		Long: `bulletbot collects short status bullets from each user during the day
and sends every unsent bullet out as one plain-text digest.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.DatabaseURL, "db", "", "Postgres connection URL (default $DATABASE_URL)")

	cmd.AddCommand(newServeCommand(opts))
	cmd.AddCommand(newMigrateCommand(opts))
	cmd.AddCommand(newAddCommand(opts))
	cmd.AddCommand(newListCommand(opts))
	cmd.AddCommand(newDeleteCommand(opts))
	cmd.AddCommand(newRegisterCommand(opts))
	cmd.AddCommand(newRecipientsCommand(opts))
	cmd.AddCommand(newDigestCommand(opts))

	return cmd
}

func (o *RootOptions) openDB() (*gorm.DB, error) {
	dsn := o.DatabaseURL
	if dsn == "" {
		dsn = o.Config.DatabaseURL
	}
	if dsn == "" {
		return nil, WrapExitError(ExitCommandError, "no database", config.ErrMissingDatabaseURL)
	}
	open := o.OpenDB
	if open == nil {
		open = func(dsn string) (*gorm.DB, error) {
			level := logger.Warn
			if o.Verbose {
				level = logger.Info
			}
			return db.Connect(dsn, level)
		}
	}
	gdb, err := open(dsn)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}
	return gdb, nil
}

// cliLogger writes text logs to w. Engine chatter is hidden unless
// --verbose is set.
func (o *RootOptions) cliLogger(w io.Writer) logging.Logger {
	level := "warn"
	if o.Verbose {
		level = "debug"
	}
	return logging.New(w, "text", level)
}

func (o *RootOptions) sink(ctx context.Context, log logging.Logger) (deliver.Sink, error) {
	build := o.NewSink
	if build == nil {
		build = BuildSink
	}
	return build(ctx, o.Config, log)
}

// BuildSink returns the log sink, fanned out to the S3 archive when a
// bucket is configured.
func BuildSink(ctx context.Context, cfg config.Config, log logging.Logger) (deliver.Sink, error) {
	logSink := deliver.LogSink{Log: log}
	if cfg.DigestS3Bucket == "" {
		return logSink, nil
	}
	s3Sink, err := deliver.NewS3Sink(ctx, deliver.S3Options{
		Bucket:    cfg.DigestS3Bucket,
		Region:    cfg.DigestS3Region,
		Endpoint:  cfg.DigestS3Endpoint,
		AccessKey: cfg.DigestS3AccessKey,
		SecretKey: cfg.DigestS3SecretKey,
	})
	if err != nil {
		return nil, err
	}
	return deliver.Multi{logSink, s3Sink}, nil
}

// engine is what the one-shot commands work with.
type engine struct {
	store    *store.Store
	bullets  *bullet.Service
	compiler *digest.Compiler
	log      logging.Logger
}

func (o *RootOptions) engine(cmd *cobra.Command) (*engine, error) {
	gdb, err := o.openDB()
	if err != nil {
		return nil, err
	}
	log := o.cliLogger(cmd.ErrOrStderr())
	st := store.New(gdb)
	return &engine{
		store:    st,
		bullets:  bullet.NewService(st, log),
		compiler: digest.NewCompiler(st, log),
		log:      log,
	}, nil
}
