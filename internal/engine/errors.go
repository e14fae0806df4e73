package engine

import "fmt"

// Kind classifies engine failures so callers can map them to a response
// without inspecting messages.
type Kind string

const (
	KindValidation  Kind = "validation"
	KindDataQuality Kind = "data_quality"
	KindNumerical   Kind = "numerical"
)

// Error is a training- or scoring-time failure. Training errors are fatal to
// the call; a weight model is never partially trained.
type Error struct {
	Kind Kind
	Code string
	msg  string
}

func (e *Error) Error() string {
	return e.msg
}

// Is matches on Code so callers can use errors.Is against the exported
// sentinels below regardless of the formatted message.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

// Sentinel values for errors.Is checks. The constructors below carry the
// contextual message; these carry only the identity.
var (
	ErrMissingValue             = &Error{Kind: KindDataQuality, Code: "missing_value"}
	ErrInsufficientData         = &Error{Kind: KindDataQuality, Code: "insufficient_data"}
	ErrDegenerateIndicator      = &Error{Kind: KindDataQuality, Code: "degenerate_indicator"}
	ErrUniformIndicators        = &Error{Kind: KindDataQuality, Code: "uniform_indicators"}
	ErrInsufficientObservations = &Error{Kind: KindDataQuality, Code: "insufficient_observations"}
	ErrEigenDivergence          = &Error{Kind: KindNumerical, Code: "eigen_divergence"}
	ErrMissingMapping           = &Error{Kind: KindValidation, Code: "missing_mapping"}
	ErrInvalidInput             = &Error{Kind: KindValidation, Code: "invalid_input"}
)

func errf(sentinel *Error, format string, args ...interface{}) *Error {
	return &Error{Kind: sentinel.Kind, Code: sentinel.Code, msg: fmt.Sprintf(format, args...)}
}

// RowFailure records one skipped observation during aggregation. Row failures
// are accumulated on the result set instead of aborting the run.
type RowFailure struct {
	Entity       string `json:"entity"`
	Year         int    `json:"year"`
	IndicatorKey string `json:"indicator_key,omitempty"`
	Code         string `json:"code"`
	Reason       string `json:"reason"`
}
