package models

// User is one Slack user known to the bot. The primary key is the Slack
// user ID.
type User struct {
	ID string `gorm:"primarykey" json:"id"`

	// TotalTakesTime is the running sum of ElapsedTimeMs across every take
	// this user owns. The store keeps it in step with take mutations; it is
	// never recomputed on read.
	TotalTakesTime int64 `gorm:"default:0" json:"total_takes_time"`

	HackatimeKeysJSON  string `gorm:"column:hackatime_keys;not null;default:'[]'" json:"-"`
	ProjectName        string `gorm:"not null;default:''" json:"project_name"`
	ProjectDescription string `gorm:"not null;default:''" json:"project_description"`
}

// HackatimeKeys decodes the serialized key list.
func (u *User) HackatimeKeys() ([]string, error) {
	return unmarshalStrings(u.HackatimeKeysJSON)
}

// SetHackatimeKeys encodes and stores the key list.
func (u *User) SetHackatimeKeys(keys []string) error {
	s, err := marshalStrings(keys)
	if err != nil {
		return err
	}
	u.HackatimeKeysJSON = s
	return nil
}
