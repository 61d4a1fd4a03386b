package audit

import "time"

// Event is an immutable, append-only record of one dispatched invocation.
//
// Invariants:
// - Events are never updated or deleted.
// - request_name and outcome are required.
// - Recording is best-effort; never block an invocation on audit failures.
//
// Storage (Postgres): table invocation_audit, INSERT only.

type Event struct {
	ID          string  `json:"id" db:"id"`
	RequestName string  `json:"request_name" db:"request_name"`
	Outcome     Outcome `json:"outcome" db:"outcome"`

	// ContactID is the Amazon Connect contact the flow was handling.
	ContactID string `json:"contact_id,omitempty" db:"contact_id"`
	// AWSRequestID is set for Lambda invocations.
	AWSRequestID string `json:"aws_request_id,omitempty" db:"aws_request_id"`
	// IPAddress is the gateway client address; empty for Lambda invocations.
	IPAddress string `json:"ip_address,omitempty" db:"ip_address"`

	LambdaResult  bool   `json:"lambda_result" db:"lambda_result"`
	FailureReason string `json:"failure_reason,omitempty" db:"failure_reason"`
	StatusCode    int    `json:"status_code,omitempty" db:"status_code"`

	DurationMS int64     `json:"duration_ms" db:"duration_ms"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
}

// Outcome is how the dispatcher disposed of an invocation.
type Outcome string

const (
	OutcomeHandled     Outcome = "handled"
	OutcomeUnavailable Outcome = "unavailable"
	OutcomeUnknown     Outcome = "unknown_request"
	OutcomeError       Outcome = "error"
)
