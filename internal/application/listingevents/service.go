package listingevents

import (
	"context"
	"encoding/json"
	"fmt"

	"homefind-backend/internal/application/policies/ownership"
	"homefind-backend/internal/domain"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Service struct {
	DB *gorm.DB
}

// Record appends an event for l. Callers pass the transaction that made the change.
func Record(tx *gorm.DB, l *domain.Listing, eventType string, data map[string]interface{}) error {
	if data == nil {
		data = map[string]interface{}{}
	}
	b, err := json.Marshal(data)
	if err != nil {
		return err
	}
	if err := tx.Create(&domain.ListingEvent{
		ListingID: l.ListingID,
		AgentID:   l.AgentID,
		EventType: eventType,
		EventData: datatypes.JSON(b),
	}).Error; err != nil {
		return fmt.Errorf("Failed to create listing event: %w", err)
	}
	return nil
}

// ForListing returns the events of a listing owned by agentID, oldest first.
func (s *Service) ForListing(ctx context.Context, agentID, listingID uuid.UUID) ([]domain.ListingEvent, error) {
	db := s.DB.WithContext(ctx)
	if _, err := ownership.GuardListing(db, agentID, listingID); err != nil {
		return nil, err
	}
	events := []domain.ListingEvent{}
	if err := db.Where("listing_id = ?", listingID).
		Order("created_at ASC").Order("event_id ASC").
		Find(&events).Error; err != nil {
		return nil, err
	}
	return events, nil
}
