package audit

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

// setupTestLogger creates a test logger with an observer to capture log entries.
func setupTestLogger(t *testing.T) (*zap.Logger, *observer.ObservedLogs) {
	t.Helper()
	core, recorded := observer.New(zapcore.DebugLevel)
	logger := zap.New(core)
	return logger, recorded
}

func TestNewSecurityAuditor(t *testing.T) {
	logger, _ := setupTestLogger(t)
	auditor := NewSecurityAuditor(logger)

	assert.NotNil(t, auditor)
	assert.NotNil(t, auditor.logger)
}

func TestLogDestructiveRejection(t *testing.T) {
	logger, recorded := setupTestLogger(t)
	auditor := NewSecurityAuditor(logger)

	auditor.LogDestructiveRejection(context.Background(), "sess-1", "DROP",
		"DROP TABLE employee")

	logs := recorded.All()
	require.Len(t, logs, 1, "Expected exactly one log entry")

	entry := logs[0]
	assert.Equal(t, zapcore.ErrorLevel, entry.Level, "Should log at ERROR level")
	assert.Equal(t, "Destructive statement rejected", entry.Message)

	fields := entry.ContextMap()
	assert.Equal(t, "sess-1", fields["session_id"])
	assert.Equal(t, "DROP", fields["keyword"])
	assert.Equal(t, "critical", fields["severity"])

	eventJSON, ok := fields["event_json"].(string)
	require.True(t, ok, "event_json should be a string")

	var event SecurityEvent
	require.NoError(t, json.Unmarshal([]byte(eventJSON), &event))
	assert.Equal(t, EventDestructiveStatement, event.EventType)
	assert.Equal(t, "critical", event.Severity)
	assert.Equal(t, "sess-1", event.SessionID)
}

func TestLogInjectionAttempt(t *testing.T) {
	logger, recorded := setupTestLogger(t)
	auditor := NewSecurityAuditor(logger)

	auditor.LogInjectionAttempt(context.Background(), "sess-2",
		"1' OR '1'='1", "s&s", "SELECT * FROM employee WHERE name = '1'' OR ''1''=''1'")

	logs := recorded.All()
	require.Len(t, logs, 1)

	entry := logs[0]
	assert.Equal(t, zapcore.ErrorLevel, entry.Level)
	assert.Equal(t, "SQL injection attempt detected", entry.Message)

	fields := entry.ContextMap()
	assert.Equal(t, "sess-2", fields["session_id"])
	assert.Equal(t, "s&s", fields["fingerprint"])

	eventJSON, ok := fields["event_json"].(string)
	require.True(t, ok)

	var event SecurityEvent
	require.NoError(t, json.Unmarshal([]byte(eventJSON), &event))
	assert.Equal(t, EventSQLInjectionAttempt, event.EventType)
}

func TestLogQueryExecution(t *testing.T) {
	logger, recorded := setupTestLogger(t)
	auditor := NewSecurityAuditor(logger)

	auditor.LogQueryExecution(context.Background(), "sess-3",
		"SELECT * FROM employee LIMIT 80", 12)

	logs := recorded.All()
	require.Len(t, logs, 1)

	entry := logs[0]
	assert.Equal(t, zapcore.InfoLevel, entry.Level, "Executions are routine, not alerts")

	fields := entry.ContextMap()
	assert.Equal(t, "sess-3", fields["session_id"])
	assert.Equal(t, int64(12), fields["row_count"])
	assert.Equal(t, "info", fields["severity"])
}

func TestLogInjectionAttempt_TruncatesLongStatements(t *testing.T) {
	logger, recorded := setupTestLogger(t)
	auditor := NewSecurityAuditor(logger)

	long := "SELECT * FROM employee WHERE note = '"
	for i := 0; i < 50; i++ {
		long += "padding padding padding "
	}
	long += "'"

	auditor.LogInjectionAttempt(context.Background(), "sess-4", "x", "f", long)

	logs := recorded.All()
	require.Len(t, logs, 1)

	eventJSON := logs[0].ContextMap()["event_json"].(string)
	var event SecurityEvent
	require.NoError(t, json.Unmarshal([]byte(eventJSON), &event))

	details, ok := event.Details.(map[string]any)
	require.True(t, ok)
	stmt, _ := details["statement"].(string)
	assert.LessOrEqual(t, len(stmt), 200, "statement should be truncated for logging")
}
