package calendar

import (
	"testing"
	"time"
)

func TestParseDuration(t *testing.T) {
	tests := []struct {
		name     string
		duration string
		want     time.Duration
		wantErr  bool
	}{
		{"8 hours", "PT8H", 8 * time.Hour, false},
		{"1 hour 30 minutes", "PT1H30M", 90 * time.Minute, false},
		{"1 day", "P1D", 24 * time.Hour, false},
		{"1 week", "P1W", 7 * 24 * time.Hour, false},
		{"2 days 3.5 hours", "P2DT3H30M", 51*time.Hour + 30*time.Minute, false},
		{"Seconds", "PT45S", 45 * time.Second, false},
		{"Explicit plus", "+PT15M", 15 * time.Minute, false},
		{"Negative", "-PT15M", -15 * time.Minute, false},
		{"Lower case", "pt2h", 2 * time.Hour, false},
		{"Empty string", "", 0, true},
		{"Only P", "P", 0, true},
		{"Empty time part", "P1DT", 0, true},
		{"No P prefix", "T8H", 0, true},
		{"Number without unit", "PT8", 0, true},
		{"Unit without number", "PTH", 0, true},
		{"Time unit in date part", "P8H", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseDuration(tt.duration)

			if (err != nil) != tt.wantErr {
				t.Errorf("ParseDuration(%q) error = %v, wantErr %v",
					tt.duration, err, tt.wantErr)
				return
			}

			if !tt.wantErr && got != tt.want {
				t.Errorf("ParseDuration(%q) = %v, want %v",
					tt.duration, got, tt.want)
			}
		})
	}
}
