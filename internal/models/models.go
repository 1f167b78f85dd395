package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type User struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey"        json:"id"`
	Email        string    `gorm:"not null;uniqueIndex"        json:"email"`
	PasswordHash string    `gorm:"not null"                    json:"-"`
	IsActive     bool      `gorm:"not null"                    json:"is_active"`
	Role         string    `gorm:"not null;default:user"       json:"role"`
	TokenVersion int       `gorm:"not null;default:0"          json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

type RefreshToken struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"                          json:"id"`
	UserID    uuid.UUID `gorm:"type:uuid;index;not null"                      json:"user_id"`
	User      *User     `gorm:"constraint:OnDelete:CASCADE"                   json:"-"`
	TokenID   string    `gorm:"column:token_id;uniqueIndex;not null"          json:"token_id"`
	CreatedAt time.Time `gorm:"index"                                         json:"created_at"`
	Revoked   bool      `gorm:"not null;default:false"                        json:"revoked"`
}

type Question struct {
	ID           string          `json:"id"                validate:"required"`
	QuestionText string          `json:"questionText"`
	Component    string          `json:"component"         validate:"required"`
	Option       json.RawMessage `json:"option,omitempty"`
}

type Survey struct {
	ID          uuid.UUID  `gorm:"type:uuid;primaryKey"          json:"id"`
	Title       string     `gorm:"not null;default:''"           json:"title"`
	IsPublic    bool       `gorm:"not null;index"                json:"is_public"`
	CreatedByID uuid.UUID  `gorm:"type:uuid;index;not null"      json:"created_by_id"`
	CreatedBy   *User      `gorm:"constraint:OnDelete:CASCADE"   json:"-"`
	Questions   []Question `gorm:"serializer:json;type:text"     json:"questions"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

func (u *User) BeforeCreate(*gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}

func (t *RefreshToken) BeforeCreate(*gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}

func (s *Survey) BeforeCreate(*gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}
