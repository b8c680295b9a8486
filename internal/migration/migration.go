package migration

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/smallbiznis/talentflow/internal/events"
	interviewdomain "github.com/smallbiznis/talentflow/internal/interview/domain"
	passdomain "github.com/smallbiznis/talentflow/internal/pass/domain"
	pipelinedomain "github.com/smallbiznis/talentflow/internal/pipeline/domain"
	positiondomain "github.com/smallbiznis/talentflow/internal/position/domain"
	"gorm.io/gorm"
)

const migrationsDir = "migrations"

//go:embed migrations/*.sql
var embeddedMigrations embed.FS

const bookedSlotIndex = `CREATE UNIQUE INDEX IF NOT EXISTS ux_interview_slots_candidate_round_booked
	ON interview_slots (candidate_id, round_number) WHERE status = 'booked'`

// Run brings the schema up to date. Postgres uses the versioned SQL
// migrations; other dialects are auto-migrated from the models.
func Run(conn *gorm.DB, dialect string) error {
	if conn == nil {
		return errors.New("migration database handle is required")
	}
	if dialect == "postgres" {
		sqlDB, err := conn.DB()
		if err != nil {
			return err
		}
		return RunMigrations(sqlDB)
	}
	return AutoMigrate(conn, dialect)
}

func RunMigrations(db *sql.DB) error {
	if db == nil {
		return errors.New("migration database handle is required")
	}

	sub, err := fs.Sub(embeddedMigrations, migrationsDir)
	if err != nil {
		return fmt.Errorf("open migrations: %w", err)
	}

	source, err := iofs.New(sub, ".")
	if err != nil {
		return fmt.Errorf("create migration source: %w", err)
	}

	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("create migration driver: %w", err)
	}

	migrator, err := migrate.NewWithInstance("iofs", source, "postgres", driver)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}

	upErr := migrator.Up()
	if upErr != nil && !errors.Is(upErr, migrate.ErrNoChange) {
		return fmt.Errorf("apply migrations: %w", upErr)
	}
	// Do not call migrator.Close here because it would close the shared *sql.DB.

	return nil
}

// AutoMigrate creates the tables from the gorm models. MySQL has no
// partial indexes, so the one-booking-per-round rule rests on the
// conditional booking update there.
func AutoMigrate(conn *gorm.DB, dialect string) error {
	err := conn.AutoMigrate(
		&positiondomain.Position{},
		&pipelinedomain.Candidate{},
		&pipelinedomain.ActivityLogEntry{},
		&interviewdomain.Setup{},
		&interviewdomain.Slot{},
		&interviewdomain.Feedback{},
		&passdomain.Pass{},
		&events.Event{},
	)
	if err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	if dialect == "mysql" {
		return nil
	}
	if err := conn.Exec(bookedSlotIndex).Error; err != nil {
		return fmt.Errorf("create booked slot index: %w", err)
	}
	return nil
}
