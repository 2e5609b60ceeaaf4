package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Agent is the profile of a user on the agent plan. UserID is the identity
// provider's user id.
type Agent struct {
	AgentID            uuid.UUID `gorm:"column:agent_id;type:uuid;primaryKey" json:"agent_id"`
	UserID             string    `gorm:"column:user_id;uniqueIndex;not null" json:"user_id"`
	Name               string    `gorm:"column:name" json:"name"`
	Email              string    `gorm:"column:email" json:"email"`
	Phone              string    `gorm:"column:phone" json:"phone"`
	Bio                string    `gorm:"column:bio" json:"bio"`
	LicenseNumber      string    `gorm:"column:license_number" json:"license_number"`
	Agency             string    `gorm:"column:agency" json:"agency"`
	PhotoURL           string    `gorm:"column:photo_url" json:"photo_url"`
	OnboardingComplete bool      `gorm:"column:onboarding_complete" json:"onboarding_complete"`
	CreatedAt          time.Time `gorm:"column:created_at" json:"createdAt"`
	UpdatedAt          time.Time `gorm:"column:updated_at" json:"updatedAt"`
}

func (Agent) TableName() string {
	return "agents"
}

func (a *Agent) BeforeCreate(tx *gorm.DB) error {
	if a.AgentID == uuid.Nil {
		a.AgentID = uuid.New()
	}
	return nil
}

// IsComplete reports whether bio, phone and license number are all present.
func (a *Agent) IsComplete() bool {
	return strings.TrimSpace(a.Bio) != "" &&
		strings.TrimSpace(a.Phone) != "" &&
		strings.TrimSpace(a.LicenseNumber) != ""
}

// UserProfile is a buyer profile.
type UserProfile struct {
	ProfileID uuid.UUID `gorm:"column:profile_id;type:uuid;primaryKey" json:"profile_id"`
	UserID    string    `gorm:"column:user_id;uniqueIndex;not null" json:"user_id"`
	Name      string    `gorm:"column:name" json:"name"`
	Email     string    `gorm:"column:email" json:"email"`
	Phone     string    `gorm:"column:phone" json:"phone"`
	PhotoURL  string    `gorm:"column:photo_url" json:"photo_url"`
	CreatedAt time.Time `gorm:"column:created_at" json:"createdAt"`
	UpdatedAt time.Time `gorm:"column:updated_at" json:"updatedAt"`
}

func (UserProfile) TableName() string {
	return "user_profiles"
}

func (p *UserProfile) BeforeCreate(tx *gorm.DB) error {
	if p.ProfileID == uuid.Nil {
		p.ProfileID = uuid.New()
	}
	return nil
}

func (p *UserProfile) IsComplete() bool {
	return strings.TrimSpace(p.Name) != "" && strings.TrimSpace(p.Email) != ""
}

// SavedListing marks a listing saved by a buyer profile.
type SavedListing struct {
	ProfileID uuid.UUID `gorm:"column:profile_id;type:uuid;primaryKey" json:"profile_id"`
	ListingID uuid.UUID `gorm:"column:listing_id;type:uuid;primaryKey;index" json:"listing_id"`
	CreatedAt time.Time `gorm:"column:created_at" json:"createdAt"`
}

func (SavedListing) TableName() string {
	return "saved_listings"
}
