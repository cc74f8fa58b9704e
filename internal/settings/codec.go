package settings

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// document is the persisted JSON shape. Delays are milliseconds.
type document struct {
	Debug     bool  `json:"debug"`
	WorkDelay int64 `json:"work_delay"`
	RestDelay int64 `json:"rest_delay"`
}

// Encode serializes cfg into the persisted blob.
func Encode(cfg Config) ([]byte, error) {
	cfg = cfg.Normalize()
	data, err := json.Marshal(document{
		Debug:     cfg.Debug,
		WorkDelay: cfg.WorkDelay.Milliseconds(),
		RestDelay: cfg.RestDelay.Milliseconds(),
	})
	if err != nil {
		return nil, err
	}
	if len(data) > MaxBlobSize {
		return nil, fmt.Errorf("%w: %d bytes", ErrTooLarge, len(data))
	}
	return data, nil
}

// Decode parses a persisted blob. Missing keys read as zero values, so a
// missing delay is coerced to SafeDelay and a missing debug flag is false.
func Decode(data []byte) (Config, error) {
	if len(data) > MaxBlobSize {
		return Config{}, fmt.Errorf("%w: %d bytes", ErrTooLarge, len(data))
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return Config{}, fmt.Errorf("%w: empty document", ErrMalformed)
	}

	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return Config{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if doc.WorkDelay > MaxDelay.Milliseconds() || doc.RestDelay > MaxDelay.Milliseconds() {
		return Config{}, fmt.Errorf("%w: delay out of range", ErrMalformed)
	}

	return Config{
		Debug:     doc.Debug,
		WorkDelay: DelayFromMillis(doc.WorkDelay),
		RestDelay: DelayFromMillis(doc.RestDelay),
	}.Normalize(), nil
}
