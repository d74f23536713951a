package intake

import (
	"net/http"
	"time"
)

// Kind is the terminal state of one intake request. Exactly one Kind is
// produced per request; there are no retries.
type Kind string

const (
	KindAppended      Kind = "appended"
	KindThrottled     Kind = "throttled"
	KindRejected      Kind = "rejected"
	KindDuplicate     Kind = "duplicate"
	KindMisconfigured Kind = "misconfigured"
	KindWriteFailed   Kind = "write_failed"
)

// Outcome is the pipeline's answer for one request. Message is safe to show
// to the submitter; Err carries operator detail and is only logged.
type Outcome struct {
	Kind          Kind
	Message       string
	MissingFields []string
	RetryAfter    time.Duration
	Err           error
}

// Success reports whether the record reached the ledger.
func (o Outcome) Success() bool { return o.Kind == KindAppended }

// HTTPStatus maps the outcome onto its status class: client faults are
// 4xx, service faults 5xx.
func (o Outcome) HTTPStatus() int {
	switch o.Kind {
	case KindAppended:
		return http.StatusOK
	case KindThrottled:
		return http.StatusTooManyRequests
	case KindRejected:
		return http.StatusBadRequest
	case KindDuplicate:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
