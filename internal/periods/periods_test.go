package periods

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var base = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func at(min int) time.Time {
	return base.Add(time.Duration(min) * time.Minute)
}

func atp(min int) *time.Time {
	t := at(min)
	return &t
}

func TestElapsed(t *testing.T) {
	tests := []struct {
		name string
		ps   []Period
		now  time.Time
		want time.Duration
	}{
		{"empty", nil, at(10), 0},
		{"single open period counts to now", []Period{{Start: at(0)}}, at(10), 10 * time.Minute},
		{"single closed period", []Period{{Start: at(0), End: atp(7)}}, at(60), 7 * time.Minute},
		{
			"closed periods sum",
			[]Period{{Start: at(0), End: atp(5)}, {Start: at(10), End: atp(25)}},
			at(60),
			20 * time.Minute,
		},
		{
			"closed plus trailing open",
			[]Period{{Start: at(0), End: atp(5)}, {Start: at(20)}},
			at(30),
			15 * time.Minute,
		},
		{"zero-length period", []Period{{Start: at(3), End: atp(3)}}, at(10), 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Elapsed(tt.ps, tt.now))
		})
	}
}

func TestElapsedMs(t *testing.T) {
	ps := []Period{{Start: at(0)}}
	assert.Equal(t, int64(600000), ElapsedMs(ps, at(10)))
}

func TestCloseOpen(t *testing.T) {
	t.Run("closes trailing open period", func(t *testing.T) {
		ps := CloseOpen([]Period{{Start: at(0)}}, at(4))
		if assert.NotNil(t, ps[0].End) {
			assert.Equal(t, at(4), *ps[0].End)
		}
	})

	t.Run("leaves closed periods alone", func(t *testing.T) {
		ps := CloseOpen([]Period{{Start: at(0), End: atp(2)}}, at(9))
		assert.Equal(t, at(2), *ps[0].End)
	})

	t.Run("empty slice", func(t *testing.T) {
		assert.Empty(t, CloseOpen(nil, at(0)))
	})
}

func TestPrettyPrint(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{0, "0m"},
		{30 * time.Second, "0m"},
		{time.Minute, "1m"},
		{25 * time.Minute, "25m"},
		{time.Hour, "1h 0m"},
		{2*time.Hour + 5*time.Minute, "2h 5m"},
		{-time.Minute, "0m"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, PrettyPrint(tt.d), "duration %v", tt.d)
	}
}
