package cmd

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSelectForCleanup(t *testing.T) {
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.Local)
	runs := []runDir{
		{name: "shorts-20250101-100000", started: now.AddDate(0, 0, -68)},
		{name: "shorts-20250301-100000", started: now.AddDate(0, 0, -9)},
		{name: "shorts-20250308-100000", started: now.AddDate(0, 0, -2)},
		{name: "shorts-20250310-100000", started: now.Add(-2 * time.Hour)},
	}

	tests := []struct {
		name      string
		keep      int
		olderThan int
		want      []string
	}{
		{"keep latest two", 2, 0, []string{"shorts-20250101-100000", "shorts-20250301-100000"}},
		{"older than a week", 0, 7, []string{"shorts-20250101-100000", "shorts-20250301-100000"}},
		{"both without duplicates", 3, 7, []string{"shorts-20250101-100000", "shorts-20250301-100000"}},
		{"keep more than exist", 10, 0, nil},
		{"nothing old enough", 0, 100, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, selectForCleanup(runs, tt.keep, tt.olderThan, now))
		})
	}
}
