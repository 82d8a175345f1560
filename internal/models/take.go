package models

import (
	"encoding/json"
	"time"

	"github.com/takeshq/takes/internal/periods"
)

// Take statuses. A take is "open" while active or paused.
const (
	StatusActive        = "active"
	StatusPaused        = "paused"
	StatusWaitingUpload = "waitingUpload"
	StatusCompleted     = "completed"
)

// Take represents one timed work/recording session for a user
type Take struct {
	ID        string    `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	UserID          string     `gorm:"not null;index" json:"user_id"`
	Status          string     `gorm:"not null;default:'active'" json:"status"`
	StartedAt       time.Time  `gorm:"not null" json:"started_at"`
	DurationMinutes int        `gorm:"not null" json:"duration_minutes"`
	Description     string     `json:"description"`
	PeriodsJSON     string     `gorm:"column:periods;not null;default:'[]'" json:"-"`
	PausedAt        *time.Time `json:"paused_at"`
	PausedTimeMs    int64      `gorm:"default:0" json:"paused_time_ms"`

	NotifiedLowTime         bool `gorm:"default:false" json:"notified_low_time"`
	NotifiedPauseExpiration bool `gorm:"default:false" json:"notified_pause_expiration"`

	// Completion metadata, written once on stop/auto-expire and upload
	ElapsedTimeMs int64      `gorm:"default:0" json:"elapsed_time_ms"`
	CompletedAt   *time.Time `json:"completed_at"`
	TS            string     `gorm:"column:ts" json:"ts"` // thread anchor for the upload
	Notes         string     `json:"notes"`
	MediaJSON     string     `gorm:"column:media;not null;default:'[]'" json:"-"`
	Multiplier    string     `gorm:"not null;default:'1.0'" json:"multiplier"`
}

// IsOpen reports whether the take still counts against the one-open-session
// rule.
func (t *Take) IsOpen() bool {
	return t.Status == StatusActive || t.Status == StatusPaused
}

// EndTime is the planned wall-clock deadline for an active take. Pausing
// pushes it out by the accumulated paused duration.
func (t *Take) EndTime() time.Time {
	return t.StartedAt.
		Add(time.Duration(t.DurationMinutes) * time.Minute).
		Add(time.Duration(t.PausedTimeMs) * time.Millisecond)
}

// Periods decodes the serialized period log.
func (t *Take) Periods() ([]periods.Period, error) {
	return UnmarshalPeriods(t.PeriodsJSON)
}

// SetPeriods encodes and stores the period log.
func (t *Take) SetPeriods(ps []periods.Period) error {
	s, err := MarshalPeriods(ps)
	if err != nil {
		return err
	}
	t.PeriodsJSON = s
	return nil
}

// Media decodes the serialized media URL list.
func (t *Take) Media() ([]string, error) {
	return unmarshalStrings(t.MediaJSON)
}

// SetMedia encodes and stores the media URL list.
func (t *Take) SetMedia(urls []string) error {
	s, err := marshalStrings(urls)
	if err != nil {
		return err
	}
	t.MediaJSON = s
	return nil
}

// MarshalPeriods serializes a period log for the text column.
func MarshalPeriods(ps []periods.Period) (string, error) {
	if ps == nil {
		ps = []periods.Period{}
	}
	b, err := json.Marshal(ps)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// UnmarshalPeriods parses a serialized period log. An empty column reads
// as an empty log.
func UnmarshalPeriods(s string) ([]periods.Period, error) {
	if s == "" {
		return []periods.Period{}, nil
	}
	var ps []periods.Period
	if err := json.Unmarshal([]byte(s), &ps); err != nil {
		return nil, err
	}
	return ps, nil
}

func marshalStrings(ss []string) (string, error) {
	if ss == nil {
		ss = []string{}
	}
	b, err := json.Marshal(ss)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func unmarshalStrings(s string) ([]string, error) {
	if s == "" {
		return []string{}, nil
	}
	var ss []string
	if err := json.Unmarshal([]byte(s), &ss); err != nil {
		return nil, err
	}
	return ss, nil
}
