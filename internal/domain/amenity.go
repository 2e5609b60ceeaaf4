package domain

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Amenity is a catalogue entry offered in the search sidebar. Value is the tag
// stored on listings.
type Amenity struct {
	AmenityID uuid.UUID `gorm:"column:amenity_id;type:uuid;primaryKey" json:"amenity_id"`
	Name      string    `gorm:"column:name;not null" json:"name"`
	Value     string    `gorm:"column:value;type:varchar(64);uniqueIndex;not null" json:"value"`
	Icon      string    `gorm:"column:icon" json:"icon"`
}

func (Amenity) TableName() string {
	return "amenities"
}

func (a *Amenity) BeforeCreate(tx *gorm.DB) error {
	if a.AmenityID == uuid.Nil {
		a.AmenityID = uuid.New()
	}
	return nil
}
