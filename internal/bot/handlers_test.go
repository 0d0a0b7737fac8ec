package bot

import (
	"strings"
	"testing"
)

func TestProgressBar(t *testing.T) {
	cases := []struct {
		name       string
		xp, level  int
		xpPerLevel int
		filled     int
		percent    string
	}{
		{"level start", 100, 2, 100, 0, "0.0%"},
		{"halfway", 250, 2, 100, 10, "50.0%"},
		{"near next level", 395, 2, 100, 19, "98.3%"},
		{"fresh user", 0, 1, 100, 0, "0.0%"},
		{"fresh user part way", 50, 1, 100, 10, "50.0%"},
	}
	for _, tc := range cases {
		got := progressBar(tc.xp, tc.level, tc.xpPerLevel)
		if !strings.Contains(got, tc.percent) {
			t.Fatalf("%s: expected %s in %q", tc.name, tc.percent, got)
		}
		if n := strings.Count(got, "█"); n != tc.filled {
			t.Fatalf("%s: expected %d filled cells, got %d in %q", tc.name, tc.filled, n, got)
		}
		if n := strings.Count(got, "█") + strings.Count(got, "░"); n != 20 {
			t.Fatalf("%s: expected 20 cells total, got %d in %q", tc.name, n, got)
		}
	}
}

func TestProgressBarClamps(t *testing.T) {
	// Stale level below the xp total must not overflow the bar.
	got := progressBar(1000, 2, 100)
	if !strings.Contains(got, "100.0%") {
		t.Fatalf("expected clamp at 100%%, got %q", got)
	}
	if strings.Count(got, "░") != 0 {
		t.Fatalf("expected a full bar, got %q", got)
	}

	// Degenerate curve step keeps the bar empty instead of dividing by zero.
	got = progressBar(50, 1, 0)
	if !strings.Contains(got, "0.0%") {
		t.Fatalf("expected empty bar for flat curve, got %q", got)
	}
}
