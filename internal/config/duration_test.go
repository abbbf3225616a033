package config

import (
	"testing"
	"time"
)

func TestParseDurationField(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		raw     string
		want    time.Duration
		wantErr bool
	}{
		{name: "empty is unset", raw: "", want: 0},
		{name: "whitespace is unset", raw: "   ", want: 0},
		{name: "seconds", raw: "25s", want: 25 * time.Second},
		{name: "compound", raw: "1m30s", want: 90 * time.Second},
		{name: "garbage", raw: "soon", wantErr: true},
		{name: "negative", raw: "-5s", wantErr: true},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := ParseDurationField("broadcast.send_timeout", tt.raw)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("ParseDurationField(%q) = %v, want error", tt.raw, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseDurationField(%q): %v", tt.raw, err)
			}
			if got != tt.want {
				t.Fatalf("ParseDurationField(%q) = %v, want %v", tt.raw, got, tt.want)
			}
		})
	}
}

func TestParseDurationOrDefault(t *testing.T) {
	t.Parallel()

	if got, err := ParseDurationOrDefault("telegram.poll_timeout", "", 10*time.Second); err != nil || got != 10*time.Second {
		t.Fatalf("unset field = %v, %v", got, err)
	}
	if got, err := ParseDurationOrDefault("telegram.poll_timeout", "3s", 10*time.Second); err != nil || got != 3*time.Second {
		t.Fatalf("set field = %v, %v", got, err)
	}
	if _, err := ParseDurationOrDefault("telegram.poll_timeout", "-3s", 10*time.Second); err == nil {
		t.Fatal("negative field accepted")
	}
}
