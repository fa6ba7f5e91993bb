package assist

import "errors"

// Failure taxonomy of a data-query turn. None of these reach the client
// directly; the processor maps them onto fixed user-safe messages and keeps
// the detail in logs.
var (
	// ErrModelTransport marks a failed model call (network, auth, refusal).
	ErrModelTransport = errors.New("model call failed")
	// ErrNoSQL marks a parsed response whose sql field is empty: the model
	// declined the question.
	ErrNoSQL = errors.New("no sql produced")
	// ErrExecution marks a statement the database rejected or timed out on.
	ErrExecution = errors.New("query execution failed")
	// ErrEmptyResult marks a statement that ran fine but matched no rows.
	ErrEmptyResult = errors.New("query matched no rows")
)

// userMessage maps a turn failure onto the fixed client-facing string.
func userMessage(err error) string {
	switch {
	case errors.Is(err, ErrNoSQL), errors.Is(err, ErrParseFailure):
		return msgNoValidQuery
	case errors.Is(err, ErrEmptyResult):
		return msgNoData
	default:
		return msgCouldNotProcess
	}
}
