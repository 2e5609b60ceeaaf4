package domain

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/text/cases"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	PropertyTypeHouse     = "house"
	PropertyTypeApartment = "apartment"
	PropertyTypeCondo     = "condo"
	PropertyTypeTownhouse = "townhouse"
	PropertyTypeLand      = "land"
)

const (
	ListingStatusActive  = "active"
	ListingStatusPending = "pending"
	ListingStatusSold    = "sold"
)

// PropertyTypes lists the property types a listing may carry.
var PropertyTypes = []string{
	PropertyTypeHouse,
	PropertyTypeApartment,
	PropertyTypeCondo,
	PropertyTypeTownhouse,
	PropertyTypeLand,
}

func IsPropertyType(s string) bool {
	for _, t := range PropertyTypes {
		if t == s {
			return true
		}
	}
	return false
}

func IsListingStatus(s string) bool {
	return s == ListingStatusActive || s == ListingStatusPending || s == ListingStatusSold
}

// FoldCity returns the caseless key used to compare city names.
func FoldCity(city string) string {
	return cases.Fold().String(strings.TrimSpace(city))
}

type Address struct {
	Street  string `gorm:"column:street" json:"street"`
	City    string `gorm:"column:city" json:"city"`
	State   string `gorm:"column:state" json:"state"`
	ZipCode string `gorm:"column:zip_code" json:"zipCode"`
}

// Line joins the non-empty address parts, e.g. "12 Oak St, Austin, TX 78701".
func (a Address) Line() string {
	parts := make([]string, 0, 3)
	if s := strings.TrimSpace(a.Street); s != "" {
		parts = append(parts, s)
	}
	if s := strings.TrimSpace(a.City); s != "" {
		parts = append(parts, s)
	}
	tail := strings.TrimSpace(strings.TrimSpace(a.State) + " " + strings.TrimSpace(a.ZipCode))
	if tail != "" {
		parts = append(parts, tail)
	}
	return strings.Join(parts, ", ")
}

// Listing is a property for sale. The owning agent is the only writer.
type Listing struct {
	ListingID    uuid.UUID        `gorm:"column:listing_id;type:uuid;primaryKey" json:"listing_id"`
	AgentID      uuid.UUID        `gorm:"column:agent_id;type:uuid;not null;index" json:"agent_id"`
	Title        string           `gorm:"column:title;not null" json:"title"`
	Slug         string           `gorm:"column:slug;uniqueIndex" json:"slug"`
	Description  string           `gorm:"column:description" json:"description"`
	Price        float64          `gorm:"column:price;type:decimal(14,2);not null" json:"price"`
	PropertyType string           `gorm:"column:property_type;type:varchar(20);not null;index" json:"property_type"`
	Status       string           `gorm:"column:status;type:varchar(20);default:'active';index" json:"status"`
	Bedrooms     int              `gorm:"column:bedrooms" json:"bedrooms"`
	Bathrooms    float64          `gorm:"column:bathrooms" json:"bathrooms"`
	SquareFeet   int              `gorm:"column:square_feet" json:"square_feet"`
	YearBuilt    int              `gorm:"column:year_built" json:"year_built"`
	LotSize      float64          `gorm:"column:lot_size" json:"lot_size"`
	Address      Address          `gorm:"embedded;embeddedPrefix:address_" json:"address"`
	CityKey      string           `gorm:"column:city_key;index" json:"-"`
	Latitude     *float64         `gorm:"column:latitude" json:"latitude"`
	Longitude    *float64         `gorm:"column:longitude" json:"longitude"`
	Geohash      string           `gorm:"column:geohash;type:varchar(12);index" json:"geohash"`
	Images       datatypes.JSON   `gorm:"column:images;type:json" json:"images"`
	Amenities    []ListingAmenity `gorm:"foreignKey:ListingID;references:ListingID" json:"amenities"`
	HasOpenHouse bool             `gorm:"column:has_open_house" json:"has_open_house"`
	PriceReduced bool             `gorm:"column:price_reduced" json:"price_reduced"`
	Featured     bool             `gorm:"column:featured" json:"featured"`
	CreatedAt    time.Time        `gorm:"column:created_at;index" json:"createdAt"`
	UpdatedAt    time.Time        `gorm:"column:updated_at" json:"updatedAt"`
}

func (Listing) TableName() string {
	return "listings"
}

// BeforeCreate sets listing_id if not already set (DBs without default uuid).
func (l *Listing) BeforeCreate(tx *gorm.DB) error {
	if l.ListingID == uuid.Nil {
		l.ListingID = uuid.New()
	}
	return nil
}

// BeforeSave keeps city_key in step with the address city.
func (l *Listing) BeforeSave(tx *gorm.DB) error {
	l.CityKey = FoldCity(l.Address.City)
	return nil
}

// ImagePaths decodes the ordered image list. Invalid JSON reads as no images.
func (l *Listing) ImagePaths() []string {
	if len(l.Images) == 0 {
		return nil
	}
	var paths []string
	if err := json.Unmarshal(l.Images, &paths); err != nil {
		return nil
	}
	return paths
}

func (l *Listing) AmenityNames() []string {
	out := make([]string, 0, len(l.Amenities))
	for _, a := range l.Amenities {
		out = append(out, a.Amenity)
	}
	return out
}

// ImagesJSON encodes an image list for the images column.
func ImagesJSON(paths []string) datatypes.JSON {
	if paths == nil {
		paths = []string{}
	}
	b, _ := json.Marshal(paths)
	return datatypes.JSON(b)
}

// ListingAmenity is one amenity tag on a listing.
type ListingAmenity struct {
	ListingID uuid.UUID `gorm:"column:listing_id;type:uuid;primaryKey" json:"-"`
	Amenity   string    `gorm:"column:amenity;type:varchar(64);primaryKey;index" json:"amenity"`
}

func (ListingAmenity) TableName() string {
	return "listing_amenities"
}

// AmenityRows builds amenity rows for a listing.
func AmenityRows(listingID uuid.UUID, names []string) []ListingAmenity {
	rows := make([]ListingAmenity, 0, len(names))
	for _, n := range names {
		rows = append(rows, ListingAmenity{ListingID: listingID, Amenity: n})
	}
	return rows
}

// OwnerID is the agent allowed to mutate the listing.
func (l *Listing) OwnerID() uuid.UUID {
	return l.AgentID
}
