// Package dbtest opens throwaway SQLite databases carrying the recruitment
// schema for repository and service tests.
package dbtest

import (
	"fmt"
	"strings"
	"testing"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const PositionsTable = `CREATE TABLE positions (
	id INTEGER PRIMARY KEY,
	reference_number TEXT NOT NULL UNIQUE,
	title TEXT NOT NULL,
	department TEXT,
	status TEXT NOT NULL,
	headcount INTEGER NOT NULL,
	sla_days INTEGER NOT NULL DEFAULT 0,
	manager_id TEXT NOT NULL,
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL
)`

const CandidatesTable = `CREATE TABLE candidates (
	id INTEGER PRIMARY KEY,
	position_id INTEGER NOT NULL,
	candidate_number TEXT NOT NULL UNIQUE,
	full_name TEXT NOT NULL,
	email TEXT NOT NULL,
	phone TEXT,
	source TEXT,
	current_stage TEXT NOT NULL,
	current_status TEXT NOT NULL,
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL
)`

const ActivityLogsTable = `CREATE TABLE candidate_activity_logs (
	id INTEGER PRIMARY KEY,
	candidate_id INTEGER NOT NULL,
	stage TEXT NOT NULL,
	status TEXT NOT NULL,
	action_type TEXT NOT NULL,
	description TEXT NOT NULL,
	performed_by TEXT NOT NULL,
	actor_role TEXT NOT NULL,
	visibility TEXT NOT NULL,
	metadata TEXT,
	created_at DATETIME NOT NULL
)`

const InterviewSetupsTable = `CREATE TABLE interview_setups (
	id INTEGER PRIMARY KEY,
	position_id INTEGER NOT NULL UNIQUE,
	round_number INTEGER NOT NULL DEFAULT 1,
	interview_format TEXT NOT NULL,
	interview_rounds INTEGER NOT NULL,
	technical_assessment_required BOOLEAN NOT NULL DEFAULT 0,
	additional_interviewers TEXT,
	notes TEXT,
	created_by TEXT NOT NULL,
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL
)`

const InterviewSlotsTable = `CREATE TABLE interview_slots (
	id INTEGER PRIMARY KEY,
	setup_id INTEGER NOT NULL,
	position_id INTEGER NOT NULL,
	slot_date TEXT NOT NULL,
	start_time TEXT NOT NULL,
	end_time TEXT NOT NULL,
	round_number INTEGER NOT NULL,
	status TEXT NOT NULL,
	candidate_id INTEGER,
	candidate_confirmed BOOLEAN NOT NULL DEFAULT 0,
	booked_at DATETIME,
	confirmed_at DATETIME,
	cancelled_at DATETIME,
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL
)`

const InterviewSlotsBookedIndex = `CREATE UNIQUE INDEX ux_interview_slots_candidate_round_booked
	ON interview_slots (candidate_id, round_number) WHERE status = 'booked'`

const InterviewFeedbackTable = `CREATE TABLE interview_feedback (
	id INTEGER PRIMARY KEY,
	slot_id INTEGER NOT NULL UNIQUE,
	candidate_id INTEGER NOT NULL,
	position_id INTEGER NOT NULL,
	round_number INTEGER NOT NULL,
	reviewer_id TEXT NOT NULL,
	recommendation TEXT NOT NULL,
	notes TEXT,
	created_at DATETIME NOT NULL
)`

const PassesTable = `CREATE TABLE passes (
	id INTEGER PRIMARY KEY,
	pass_number TEXT NOT NULL UNIQUE,
	pass_type TEXT NOT NULL,
	candidate_id INTEGER,
	position_id INTEGER NOT NULL,
	manager_id TEXT,
	token_hash TEXT NOT NULL UNIQUE,
	valid_from DATETIME NOT NULL,
	valid_until DATETIME NOT NULL,
	revoked_at DATETIME,
	created_by TEXT NOT NULL,
	created_at DATETIME NOT NULL
)`

const RecruitmentEventsTable = `CREATE TABLE recruitment_events (
	id INTEGER PRIMARY KEY,
	event_type TEXT NOT NULL,
	aggregate_id TEXT NOT NULL,
	payload TEXT NOT NULL,
	published BOOLEAN NOT NULL DEFAULT 0,
	published_at DATETIME,
	created_at DATETIME NOT NULL
)`

// All lists every table and index in dependency order.
var All = []string{
	PositionsTable,
	CandidatesTable,
	ActivityLogsTable,
	InterviewSetupsTable,
	InterviewSlotsTable,
	InterviewSlotsBookedIndex,
	InterviewFeedbackTable,
	PassesTable,
	RecruitmentEventsTable,
}

// Open returns a shared-cache in-memory database private to the test. With
// no schema arguments every table in All is created.
func Open(t testing.TB, schema ...string) *gorm.DB {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := db.Exec("PRAGMA busy_timeout = 5000").Error; err != nil {
		t.Fatalf("busy timeout: %v", err)
	}

	if len(schema) == 0 {
		schema = All
	}
	for _, stmt := range schema {
		if err := db.Exec(stmt).Error; err != nil {
			t.Fatalf("create schema: %v", err)
		}
	}
	return db
}
