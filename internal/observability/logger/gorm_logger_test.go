package logger

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	gormlogger "gorm.io/gorm/logger"
)

func TestDescribeSQL(t *testing.T) {
	cases := []struct {
		sql   string
		op    string
		table string
	}{
		{`SELECT * FROM "interview_slots" WHERE id = $1`, "SELECT", "interview_slots"},
		{`INSERT INTO candidates (id) VALUES (?)`, "INSERT", "candidates"},
		{`UPDATE interview_slots SET status = 'booked' WHERE status = 'open'`, "UPDATE", "interview_slots"},
		{`DELETE FROM passes WHERE id = ?`, "DELETE", "passes"},
		{`WITH x AS (SELECT 1) SELECT * FROM x`, "UNKNOWN", "x"},
		{``, "UNKNOWN", ""},
	}
	for _, tc := range cases {
		op, table := describeSQL(tc.sql)
		assert.Equal(t, tc.op, op, tc.sql)
		assert.Equal(t, tc.table, table, tc.sql)
	}
}

func TestGormLoggerTrace(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	restore := zap.ReplaceGlobals(zap.New(core))
	t.Cleanup(restore)

	l := NewGormLogger(50 * time.Millisecond)
	query := func() (string, int64) { return "SELECT * FROM positions", 1 }

	l.Trace(context.Background(), time.Now(), query, nil)
	assert.Zero(t, logs.Len())

	l.Trace(context.Background(), time.Now(), query, gormlogger.ErrRecordNotFound)
	assert.Zero(t, logs.Len())

	l.Trace(context.Background(), time.Now().Add(-time.Second), query, nil)
	require.Equal(t, 1, logs.Len())
	assert.Equal(t, zap.WarnLevel, logs.All()[0].Level)
	assert.Equal(t, "positions", logs.All()[0].ContextMap()["table"])

	l.Trace(context.Background(), time.Now(), query, errors.New("boom"))
	require.Equal(t, 2, logs.Len())
	assert.Equal(t, zap.ErrorLevel, logs.All()[1].Level)

	l.LogMode(gormlogger.Silent).Trace(context.Background(), time.Now(), query, errors.New("boom"))
	assert.Equal(t, 2, logs.Len())
}
