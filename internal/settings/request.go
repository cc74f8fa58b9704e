package settings

import (
	"strconv"
	"strings"
	"time"
)

// UpdateRequest carries the raw textual fields of an update. A nil field
// means the parameter was absent.
type UpdateRequest struct {
	Debug     *string
	WorkDelay *string
	RestDelay *string
}

// Parse validates the request and produces a normalized Config. All three
// fields are required. Debug follows strconv.ParseBool and anything it does
// not accept reads as false. Delays are base-10 milliseconds; zero and
// negative values are coerced to SafeDelay.
func (r UpdateRequest) Parse() (Config, error) {
	if r.Debug == nil {
		return Config{}, &ValidationError{Field: "debug", Err: ErrMissingField}
	}
	if r.WorkDelay == nil {
		return Config{}, &ValidationError{Field: "work_delay", Err: ErrMissingField}
	}
	if r.RestDelay == nil {
		return Config{}, &ValidationError{Field: "rest_delay", Err: ErrMissingField}
	}

	work, err := parseDelay("work_delay", *r.WorkDelay)
	if err != nil {
		return Config{}, err
	}
	rest, err := parseDelay("rest_delay", *r.RestDelay)
	if err != nil {
		return Config{}, err
	}

	return Config{
		Debug:     parseDebug(*r.Debug),
		WorkDelay: work,
		RestDelay: rest,
	}.Normalize(), nil
}

// NewUpdateRequest builds a request from present values, mainly for callers
// that already hold strings (CLI flags, NATS payloads).
func NewUpdateRequest(debug, workDelay, restDelay string) UpdateRequest {
	return UpdateRequest{Debug: &debug, WorkDelay: &workDelay, RestDelay: &restDelay}
}

func parseDebug(s string) bool {
	v, err := strconv.ParseBool(strings.TrimSpace(s))
	return err == nil && v
}

func parseDelay(field, s string) (time.Duration, error) {
	ms, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0, &ValidationError{Field: field, Err: ErrInvalidValue}
	}
	if ms > MaxDelay.Milliseconds() {
		return 0, &ValidationError{Field: field, Err: ErrInvalidValue}
	}
	return DelayFromMillis(ms), nil
}
