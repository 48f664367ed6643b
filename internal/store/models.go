package store

import "time"

// Profile binds a Discord identity to a game handle.
type Profile struct {
	ID         uint      `gorm:"primaryKey"`
	Identity   string    `gorm:"uniqueIndex;size:32;not null"` // discord user id
	Username   string    `gorm:"size:64"`
	Handle     string    `gorm:"size:32;not null"` // name#12345
	SkillRatio float64   `gorm:"not null;default:0"`
	CreatedAt  time.Time `gorm:"autoCreateTime"`
	UpdatedAt  time.Time `gorm:"autoUpdateTime"`
}

// SessionRecord mirrors a live session. It is written as the session changes but never
// read back to decide a join.
type SessionRecord struct {
	ID          uint   `gorm:"primaryKey"`
	SessionID   string `gorm:"uniqueIndex;size:64;not null"`
	Kind        string `gorm:"size:16;not null"`
	OwnerRef    string `gorm:"index;size:32;not null"`
	Platform    string `gorm:"size:16"`
	Mode        string `gorm:"size:32;not null"`
	MinSkill    float64
	Capacity    int `gorm:"not null"`
	GroupSize   int
	Description string `gorm:"type:text"`
	Prize       string `gorm:"size:128"`
	Active      bool   `gorm:"index;not null"`
	ExternalRef string `gorm:"size:32"` // message id of the rendered session
	CreatedAt   time.Time
	UpdatedAt   time.Time

	Members []Membership `gorm:"foreignKey:SessionRef"`
}

type Membership struct {
	ID          uint      `gorm:"primaryKey"`
	SessionRef  uint      `gorm:"index;not null"`
	IdentityRef string    `gorm:"size:32;not null"`
	JoinedAt    time.Time `gorm:"autoCreateTime"`
}

func models() []any {
	return []any{&Profile{}, &SessionRecord{}, &Membership{}}
}
