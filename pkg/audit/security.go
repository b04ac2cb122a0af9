// Package audit provides security audit logging for SIEM consumption.
// Generated SQL comes from a language model fed user text, so every
// rejection (destructive keyword, injection fingerprint) and every execution
// is logged in structured JSON with its session for later analysis.
package audit

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"github.com/richipal/tmsagent/pkg/logging"
)

// SecurityEventType categorizes security-relevant events for filtering and alerting.
type SecurityEventType string

const (
	// EventDestructiveStatement is logged when a generated statement contains
	// a write/DDL keyword and is rejected before reaching the warehouse.
	EventDestructiveStatement SecurityEventType = "destructive_statement_rejected"
	// EventSQLInjectionAttempt is logged when libinjection flags a string
	// literal in a generated statement.
	EventSQLInjectionAttempt SecurityEventType = "sql_injection_attempt"
	// EventQueryExecution is logged for successful query execution.
	EventQueryExecution SecurityEventType = "query_execution"
)

// SecurityEvent represents an auditable security event with all relevant
// context for SIEM ingestion and analysis.
type SecurityEvent struct {
	Timestamp time.Time         `json:"timestamp"`
	EventType SecurityEventType `json:"event_type"`
	SessionID string            `json:"session_id,omitempty"`
	Details   any               `json:"details"`
	Severity  string            `json:"severity"` // info, warning, critical
}

// InjectionDetails contains specifics of a flagged string literal.
type InjectionDetails struct {
	Literal     string `json:"literal"`
	Fingerprint string `json:"fingerprint"` // libinjection fingerprint for pattern analysis
	Statement   string `json:"statement"`   // sanitized/truncated
}

// DestructiveDetails contains specifics of a rejected write statement.
type DestructiveDetails struct {
	Keyword   string `json:"keyword"`
	Statement string `json:"statement"` // sanitized/truncated
}

// SecurityAuditor logs security events for SIEM consumption.
// Events are logged in structured JSON format with appropriate severity levels.
type SecurityAuditor struct {
	logger *zap.Logger
}

// NewSecurityAuditor creates a new security auditor with a dedicated logger
// namespace ("security_audit") for easy filtering in SIEM systems.
func NewSecurityAuditor(logger *zap.Logger) *SecurityAuditor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SecurityAuditor{logger: logger.Named("security_audit")}
}

// LogDestructiveRejection records a generated statement rejected for
// containing a destructive keyword. Logged at ERROR level with "critical"
// severity: either the model went off the rails or someone is steering it.
func (a *SecurityAuditor) LogDestructiveRejection(ctx context.Context, sessionID, keyword, statement string) {
	details := DestructiveDetails{
		Keyword:   keyword,
		Statement: logging.SanitizeSQL(statement),
	}

	event := SecurityEvent{
		Timestamp: time.Now().UTC(),
		EventType: EventDestructiveStatement,
		SessionID: sessionID,
		Details:   details,
		Severity:  "critical",
	}

	// Marshaling known types should never fail
	eventJSON, _ := json.Marshal(event)

	a.logger.Error("Destructive statement rejected",
		zap.String("event_json", string(eventJSON)),
		zap.String("session_id", sessionID),
		zap.String("keyword", keyword),
		zap.String("severity", "critical"),
	)
}

// LogInjectionAttempt records a string literal that matched an injection
// fingerprint. Logged at ERROR level with "critical" severity for immediate
// alerting.
func (a *SecurityAuditor) LogInjectionAttempt(ctx context.Context, sessionID string, literal, fingerprint, statement string) {
	details := InjectionDetails{
		Literal:     logging.TruncateString(literal, 200),
		Fingerprint: fingerprint,
		Statement:   logging.SanitizeSQL(statement),
	}

	event := SecurityEvent{
		Timestamp: time.Now().UTC(),
		EventType: EventSQLInjectionAttempt,
		SessionID: sessionID,
		Details:   details,
		Severity:  "critical",
	}

	eventJSON, _ := json.Marshal(event)

	a.logger.Error("SQL injection attempt detected",
		zap.String("event_json", string(eventJSON)),
		zap.String("session_id", sessionID),
		zap.String("fingerprint", fingerprint),
		zap.String("severity", "critical"),
	)
}

// LogQueryExecution records a successful query execution for the audit
// trail. Logged at INFO level; one event per answered question.
func (a *SecurityAuditor) LogQueryExecution(ctx context.Context, sessionID, statement string, rowCount int) {
	event := SecurityEvent{
		Timestamp: time.Now().UTC(),
		EventType: EventQueryExecution,
		SessionID: sessionID,
		Details: map[string]any{
			"statement": logging.SanitizeSQL(statement),
			"row_count": rowCount,
		},
		Severity: "info",
	}

	eventJSON, _ := json.Marshal(event)

	a.logger.Info("Query executed",
		zap.String("event_json", string(eventJSON)),
		zap.String("session_id", sessionID),
		zap.Int("row_count", rowCount),
		zap.String("severity", "info"),
	)
}
