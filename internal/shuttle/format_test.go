package shuttle_test

import (
	"testing"
	"time"

	"sync-shuttle/internal/shuttle"
)

func TestHumanSize(t *testing.T) {
	tests := []struct {
		size int64
		want string
	}{
		{0, "0 B"},
		{512, "512 B"},
		{1023, "1023 B"},
		{1024, "1 KB"},
		{1536, "1.5 KB"},
		{2048, "2 KB"},
		{1536000, "1.5 MB"},
		{1 << 30, "1 GB"},
		{5 << 40, "5 TB"},
		{2048 << 40, "2048 TB"},
	}
	for _, tt := range tests {
		if got := shuttle.HumanSize(tt.size); got != tt.want {
			t.Errorf("HumanSize(%d) = %q, want %q", tt.size, got, tt.want)
		}
	}
}

func TestRelativeAge(t *testing.T) {
	now := time.Date(2025, 3, 10, 14, 0, 0, 0, time.UTC)
	old := now.Add(-10 * 24 * time.Hour)
	tests := []struct {
		name string
		t    time.Time
		want string
	}{
		{name: "zero", t: time.Time{}, want: ""},
		{name: "seconds", t: now.Add(-30 * time.Second), want: "just now"},
		{name: "future", t: now.Add(time.Hour), want: "just now"},
		{name: "minutes", t: now.Add(-5 * time.Minute), want: "5 min ago"},
		{name: "hours", t: now.Add(-3 * time.Hour), want: "3 hours ago"},
		{name: "days", t: now.Add(-6 * 24 * time.Hour), want: "6 days ago"},
		{name: "older than a week", t: old, want: old.Local().Format("2006-01-02")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := shuttle.RelativeAge(tt.t, now); got != tt.want {
				t.Errorf("RelativeAge() = %q, want %q", got, tt.want)
			}
		})
	}
}
