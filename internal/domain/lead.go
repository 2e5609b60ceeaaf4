package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	LeadStatusNew       = "new"
	LeadStatusContacted = "contacted"
	LeadStatusClosed    = "closed"
)

func IsLeadStatus(s string) bool {
	return s == LeadStatusNew || s == LeadStatusContacted || s == LeadStatusClosed
}

// Lead is a buyer inquiry on one listing. A buyer email contacts a listing once.
// There is no foreign key to listings: leads outlive deleted listings.
type Lead struct {
	LeadID      uuid.UUID `gorm:"column:lead_id;type:uuid;primaryKey" json:"lead_id"`
	ListingID   uuid.UUID `gorm:"column:listing_id;type:uuid;not null;uniqueIndex:idx_leads_listing_email" json:"listing_id"`
	AgentID     uuid.UUID `gorm:"column:agent_id;type:uuid;not null;index" json:"agent_id"`
	BuyerUserID string    `gorm:"column:buyer_user_id" json:"buyer_user_id"`
	BuyerName   string    `gorm:"column:buyer_name" json:"buyer_name"`
	BuyerEmail  string    `gorm:"column:buyer_email;not null;uniqueIndex:idx_leads_listing_email" json:"buyer_email"`
	BuyerPhone  string    `gorm:"column:buyer_phone" json:"buyer_phone"`
	Message     string    `gorm:"column:message" json:"message"`
	Status      string    `gorm:"column:status;type:varchar(20);default:'new';index" json:"status"`
	CreatedAt   time.Time `gorm:"column:created_at" json:"createdAt"`
	UpdatedAt   time.Time `gorm:"column:updated_at" json:"updatedAt"`
}

func (Lead) TableName() string {
	return "leads"
}

func (l *Lead) BeforeCreate(tx *gorm.DB) error {
	if l.LeadID == uuid.Nil {
		l.LeadID = uuid.New()
	}
	return nil
}

const (
	ListingEventCreated       = "CREATED"
	ListingEventUpdated       = "UPDATED"
	ListingEventStatusChanged = "STATUS_CHANGED"
)

// ListingEvent is the activity log of a listing, written in the same
// transaction as the change it records.
type ListingEvent struct {
	EventID   uuid.UUID      `gorm:"column:event_id;type:uuid;primaryKey" json:"event_id"`
	ListingID uuid.UUID      `gorm:"column:listing_id;type:uuid;not null;index" json:"listing_id"`
	AgentID   uuid.UUID      `gorm:"column:agent_id;type:uuid;not null" json:"agent_id"`
	EventType string         `gorm:"column:event_type;type:varchar(30);not null" json:"event_type"`
	EventData datatypes.JSON `gorm:"column:event_data;type:json" json:"event_data"`
	CreatedAt time.Time      `gorm:"column:created_at" json:"createdAt"`
}

func (ListingEvent) TableName() string {
	return "listing_events"
}

func (le *ListingEvent) BeforeCreate(tx *gorm.DB) error {
	if le.EventID == uuid.Nil {
		le.EventID = uuid.New()
	}
	return nil
}

// OwnerID is the agent the lead was sent to.
func (l *Lead) OwnerID() uuid.UUID {
	return l.AgentID
}
