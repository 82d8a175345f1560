package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/takeshq/takes/internal/periods"
)

func TestPeriodsRoundTrip(t *testing.T) {
	start := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	end := start.Add(10 * time.Minute)

	tests := []struct {
		name string
		ps   []periods.Period
	}{
		{"nil encodes as empty log", nil},
		{"open period", []periods.Period{{Start: start}}},
		{"closed then open", []periods.Period{{Start: start, End: &end}, {Start: end.Add(time.Minute)}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			take := &Take{}
			require.NoError(t, take.SetPeriods(tt.ps))

			got, err := take.Periods()
			require.NoError(t, err)
			require.Len(t, got, len(tt.ps))
			for i := range tt.ps {
				assert.True(t, got[i].Start.Equal(tt.ps[i].Start))
				if tt.ps[i].End == nil {
					assert.Nil(t, got[i].End)
				} else {
					require.NotNil(t, got[i].End)
					assert.True(t, got[i].End.Equal(*tt.ps[i].End))
				}
			}
		})
	}
}

func TestPeriodsEmptyColumn(t *testing.T) {
	take := &Take{}
	ps, err := take.Periods()
	require.NoError(t, err)
	assert.Empty(t, ps)
}

func TestMediaRoundTrip(t *testing.T) {
	take := &Take{}
	urls := []string{"https://files.slack.com/a", "https://files.slack.com/b"}
	require.NoError(t, take.SetMedia(urls))

	got, err := take.Media()
	require.NoError(t, err)
	assert.Equal(t, urls, got)
}

func TestEndTime(t *testing.T) {
	start := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	take := &Take{
		StartedAt:       start,
		DurationMinutes: 25,
		PausedTimeMs:    5 * 60 * 1000,
	}
	assert.Equal(t, start.Add(30*time.Minute), take.EndTime())
}

func TestIsOpen(t *testing.T) {
	assert.True(t, (&Take{Status: StatusActive}).IsOpen())
	assert.True(t, (&Take{Status: StatusPaused}).IsOpen())
	assert.False(t, (&Take{Status: StatusWaitingUpload}).IsOpen())
	assert.False(t, (&Take{Status: StatusCompleted}).IsOpen())
}

func TestHackatimeKeysRoundTrip(t *testing.T) {
	user := &User{}
	require.NoError(t, user.SetHackatimeKeys([]string{"key-1", "key-2"}))

	got, err := user.HackatimeKeys()
	require.NoError(t, err)
	assert.Equal(t, []string{"key-1", "key-2"}, got)
}
