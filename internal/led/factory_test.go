package led

import (
	"io"
	"log/slog"
	"testing"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		driver  string
		wantErr bool
	}{
		{"memory", DriverMemory, false},
		{"noop", DriverNoop, false},
		{"auto", DriverAuto, false},
		{"empty means auto", "", false},
		{"unknown", "ws2812-bitbang", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := New(Config{Driver: tt.driver}, testLogger())
			if tt.wantErr {
				if err == nil {
					t.Error("New() expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("New() error = %v", err)
			}
			if r == nil {
				t.Fatal("New() returned nil renderer")
			}
		})
	}
}

func TestStatusLEDFor(t *testing.T) {
	tests := []struct {
		model  string
		want   string
		wantOK bool
	}{
		{"FriendlyElec NanoPC-T6", "usr_led", true},
		{"Orange Pi 5 Plus", "green_led", true},
		{"Raspberry Pi 4 Model B Rev 1.4", "ACT", true},
		{"unknown", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.model, func(t *testing.T) {
			got, ok := statusLEDFor(tt.model)
			if got != tt.want || ok != tt.wantOK {
				t.Errorf("statusLEDFor(%q) = %q, %v; want %q, %v", tt.model, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestDetectBoard(t *testing.T) {
	if model := detectBoard(); model == "" {
		t.Error("detectBoard() returned empty string")
	}
}
