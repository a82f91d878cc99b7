package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// RefList is an ordered list of video references stored as a JSON column.
type RefList []string

// Scan implements sql.Scanner.
func (l *RefList) Scan(value interface{}) error {
	if value == nil {
		*l = RefList{}
		return nil
	}
	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return fmt.Errorf("unsupported watch history type %T", value)
	}
	if len(bytes) == 0 || string(bytes) == "null" {
		*l = RefList{}
		return nil
	}
	return json.Unmarshal(bytes, l)
}

// Value implements driver.Valuer. A nil list is stored as an empty array.
func (l RefList) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	b, err := json.Marshal([]string(l))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// MarshalJSON keeps a nil list rendering as [] instead of null.
func (l RefList) MarshalJSON() ([]byte, error) {
	if l == nil {
		return []byte("[]"), nil
	}
	return json.Marshal([]string(l))
}

// User is a registered account.
type User struct {
	ID           int64     `json:"id" gorm:"primaryKey;autoIncrement"`
	Username     string    `json:"username" gorm:"size:100;uniqueIndex;not null"` // Lower-cased, trimmed
	Email        string    `json:"email" gorm:"size:255;uniqueIndex;not null"`    // Lower-cased, trimmed
	Fullname     string    `json:"fullname" gorm:"size:255;index;not null"`
	Avatar       string    `json:"avatar" gorm:"size:1024;not null"`
	CoverImage   string    `json:"coverImage" gorm:"size:1024"`
	WatchHistory RefList   `json:"watchHistory" gorm:"type:json"`
	Password     string    `json:"-" gorm:"size:255;not null"` // bcrypt digest, never exposed
	RefreshToken string    `json:"-" gorm:"size:1024"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// TableName pins the table name.
func (User) TableName() string {
	return "users"
}

// SensitiveUserColumns are never read back for API responses.
var SensitiveUserColumns = []string{"password", "refresh_token"}
