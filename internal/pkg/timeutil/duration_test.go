package timeutil

import (
	"testing"
	"time"
)

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		name string
		d    time.Duration
		want string
	}{
		{
			name: "zero",
			d:    0,
			want: "0 seconds",
		},
		{
			name: "seconds only",
			d:    42 * time.Second,
			want: "42 seconds",
		},
		{
			name: "one second",
			d:    time.Second,
			want: "1 second",
		},
		{
			name: "minutes and no seconds shown",
			d:    5*time.Minute + 30*time.Second,
			want: "5 minutes",
		},
		{
			name: "hours and minutes",
			d:    2*time.Hour + 15*time.Minute,
			want: "2 hours and 15 minutes",
		},
		{
			name: "days hours minutes",
			d:    49*time.Hour + 5*time.Minute,
			want: "2 days, 1 hour and 5 minutes",
		},
		{
			name: "negative is absolute",
			d:    -90 * time.Minute,
			want: "1 hour and 30 minutes",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FormatDuration(tt.d); got != tt.want {
				t.Errorf("FormatDuration(%v) = %q, want %q", tt.d, got, tt.want)
			}
		})
	}
}
