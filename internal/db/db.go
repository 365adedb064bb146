package db

import (
	"fmt"

	"bulletbot/internal/jobs"
	"bulletbot/internal/store"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func Connect(dsn string, logLevel logger.LogLevel) (*gorm.DB, error) {
	gdb, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logLevel),
	})
	if err != nil {
		return nil, err
	}
	return gdb, nil
}

func AutoMigrateAndIndexes(gdb *gorm.DB) error {
	// Tables
	models := append(store.Models(), &jobs.Job{})
	if err := gdb.AutoMigrate(models...); err != nil {
		return err
	}

	for _, s := range bootstrapDDL {
		if err := gdb.Exec(s).Error; err != nil {
			return fmt.Errorf("index exec failed: %w (sql=%s)", err, s)
		}
	}

	return nil
}

// bootstrapDDL runs after AutoMigrate, in order.
var bootstrapDDL = []string{
	// every note names a user row; deleting a user never deletes notes
	`do $$ begin
  if exists (select 1 from pg_constraint where conname = 'fk_notes_user' and confdeltype <> 'a') then
    alter table notes drop constraint fk_notes_user;
  end if;
  if not exists (select 1 from pg_constraint where conname = 'fk_notes_user') then
    alter table notes add constraint fk_notes_user foreign key (nick) references users(nick);
  end if;
end $$;`,
	// at most one queued digest; EnsureDigest relies on it
	`create unique index if not exists uq_jobs_pending_type on jobs(type) where status = 'PENDING';`,
	`create index if not exists idx_jobs_due on jobs(status, run_at);`,
	`create index if not exists idx_jobs_lock on jobs(status, locked_at);`,
}
