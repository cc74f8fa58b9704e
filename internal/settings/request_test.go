package settings

import (
	"errors"
	"testing"
	"time"
)

func strPtr(s string) *string { return &s }

func TestUpdateRequestParse(t *testing.T) {
	tests := []struct {
		name    string
		req     UpdateRequest
		want    Config
		field   string
		wantErr error
	}{
		{
			name: "valid",
			req:  NewUpdateRequest("true", "1000", "5000"),
			want: Config{Debug: true, WorkDelay: time.Second, RestDelay: 5 * time.Second},
		},
		{
			name: "debug false",
			req:  NewUpdateRequest("false", "20000", "5000"),
			want: Config{Debug: false, WorkDelay: 20 * time.Second, RestDelay: 5 * time.Second},
		},
		{
			name: "unrecognized debug reads false",
			req:  NewUpdateRequest("yes", "1", "1"),
			want: Config{Debug: false, WorkDelay: time.Millisecond, RestDelay: time.Millisecond},
		},
		{
			name: "zero coerced",
			req:  NewUpdateRequest("1", "0", "0"),
			want: Config{Debug: true, WorkDelay: SafeDelay, RestDelay: SafeDelay},
		},
		{
			name: "negative coerced",
			req:  NewUpdateRequest("true", "-5", "-100"),
			want: Config{Debug: true, WorkDelay: SafeDelay, RestDelay: SafeDelay},
		},
		{
			name: "large negative does not wrap",
			req:  NewUpdateRequest("true", "-9223372036855", "-288230376151710744"),
			want: Config{Debug: true, WorkDelay: SafeDelay, RestDelay: SafeDelay},
		},
		{
			name: "min int64 coerced",
			req:  NewUpdateRequest("true", "-9223372036854775808", "1000"),
			want: Config{Debug: true, WorkDelay: SafeDelay, RestDelay: time.Second},
		},
		{
			name: "whitespace trimmed",
			req:  NewUpdateRequest(" true ", " 750 ", "900\n"),
			want: Config{Debug: true, WorkDelay: 750 * time.Millisecond, RestDelay: 900 * time.Millisecond},
		},
		{
			name:    "missing debug",
			req:     UpdateRequest{WorkDelay: strPtr("1"), RestDelay: strPtr("1")},
			field:   "debug",
			wantErr: ErrMissingField,
		},
		{
			name:    "missing work delay",
			req:     UpdateRequest{Debug: strPtr("true"), RestDelay: strPtr("1")},
			field:   "work_delay",
			wantErr: ErrMissingField,
		},
		{
			name:    "missing rest delay",
			req:     UpdateRequest{Debug: strPtr("true"), WorkDelay: strPtr("1")},
			field:   "rest_delay",
			wantErr: ErrMissingField,
		},
		{
			name:    "non-numeric delay",
			req:     NewUpdateRequest("true", "abc", "1"),
			field:   "work_delay",
			wantErr: ErrInvalidValue,
		},
		{
			name:    "delay beyond uint32",
			req:     NewUpdateRequest("true", "1", "4294967296"),
			field:   "rest_delay",
			wantErr: ErrInvalidValue,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.req.Parse()
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Parse() error = %v, want %v", err, tt.wantErr)
				}
				var verr *ValidationError
				if !errors.As(err, &verr) || verr.Field != tt.field {
					t.Errorf("Parse() error field = %v, want %s", err, tt.field)
				}
				return
			}
			if err != nil {
				t.Fatalf("Parse() unexpected error = %v", err)
			}
			if got != tt.want {
				t.Errorf("Parse() = %+v, want %+v", got, tt.want)
			}
		})
	}
}
