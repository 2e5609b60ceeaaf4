package listings

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"homefind-backend/internal/application/agents"
	"homefind-backend/internal/application/geocoding"
	"homefind-backend/internal/application/listingevents"
	"homefind-backend/internal/application/policies/ownership"
	"homefind-backend/internal/application/search"
	"homefind-backend/internal/contracts"
	"homefind-backend/internal/domain"
	"homefind-backend/internal/pkg/validation"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
	"gorm.io/gorm"
)

type Service struct {
	DB *gorm.DB
	// Geocoder may be nil; listings are then stored without coordinates
	// unless the payload carries them.
	Geocoder geocoding.Geocoder
	EventLog *listingevents.Service
}

// Input is the listing payload. Nil fields are left unchanged on update.
type Input struct {
	Title        *string         `json:"title"`
	Description  *string         `json:"description"`
	Price        *float64        `json:"price"`
	PropertyType *string         `json:"property_type"`
	Bedrooms     *int            `json:"bedrooms"`
	Bathrooms    *float64        `json:"bathrooms"`
	SquareFeet   *int            `json:"square_feet"`
	YearBuilt    *int            `json:"year_built"`
	LotSize      *float64        `json:"lot_size"`
	Address      *domain.Address `json:"address"`
	Latitude     *float64        `json:"latitude"`
	Longitude    *float64        `json:"longitude"`
	Images       *[]string       `json:"images"`
	Amenities    *[]string       `json:"amenities"`
	HasOpenHouse *bool           `json:"has_open_house"`
	Featured     *bool           `json:"featured"`
}

func decode(schema string, body []byte) (Input, error) {
	var in Input
	if err := contracts.Validate(schema, body); err != nil {
		return in, err
	}
	if err := json.Unmarshal(body, &in); err != nil {
		return in, validation.Failf("Invalid listing payload")
	}
	return in, nil
}

// Create stores a new active listing for the session agent from a raw JSON
// payload. Geocoding failures only leave the coordinates empty.
func (s *Service) Create(ctx context.Context, userID string, body []byte) (*domain.Listing, error) {
	in, err := decode(contracts.ListingCreate, body)
	if err != nil {
		return nil, err
	}
	agent, err := agents.Lookup(s.DB.WithContext(ctx), userID)
	if err != nil {
		return nil, err
	}

	l := &domain.Listing{
		ListingID:    uuid.New(),
		AgentID:      agent.AgentID,
		Status:       domain.ListingStatusActive,
		Images:       domain.ImagesJSON(nil),
		PropertyType: *in.PropertyType,
		Title:        strings.TrimSpace(*in.Title),
		Price:        *in.Price,
		Address:      trimAddress(*in.Address),
	}
	applyScalars(l, in)
	if in.Images != nil {
		l.Images = domain.ImagesJSON(*in.Images)
	}
	var amenities []string
	if in.Amenities != nil {
		amenities = *in.Amenities
	}
	s.locate(ctx, l, in)

	tx := s.DB.WithContext(ctx).Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()
	slug, err := uniqueSlug(tx, l.Title, l.ListingID, uuid.Nil)
	if err != nil {
		tx.Rollback()
		return nil, err
	}
	l.Slug = slug
	if err := tx.Omit("Amenities").Create(l).Error; err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("Failed to create listing: %w", err)
	}
	if len(amenities) > 0 {
		if err := tx.Create(domain.AmenityRows(l.ListingID, amenities)).Error; err != nil {
			tx.Rollback()
			return nil, fmt.Errorf("Failed to store amenities: %w", err)
		}
	}
	if err := listingevents.Record(tx, l, domain.ListingEventCreated, map[string]interface{}{
		"price":  l.Price,
		"status": l.Status,
	}); err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.Commit().Error; err != nil {
		return nil, fmt.Errorf("Failed to create listing: %w", err)
	}

	log.Info().Str("listing_id", l.ListingID.String()).Str("agent_id", agent.AgentID.String()).Msg("listing created")
	return s.load(ctx, l.ListingID)
}

// Update patches a listing of the session agent. A lower price marks the
// listing as price reduced.
func (s *Service) Update(ctx context.Context, userID string, listingID uuid.UUID, body []byte) (*domain.Listing, error) {
	in, err := decode(contracts.ListingUpdate, body)
	if err != nil {
		return nil, err
	}
	agent, err := agents.Lookup(s.DB.WithContext(ctx), userID)
	if err != nil {
		return nil, err
	}
	// Pre-check so a stranger never triggers a geocode; re-checked below.
	current, err := ownership.GuardListing(s.DB.WithContext(ctx), agent.AgentID, listingID)
	if err != nil {
		return nil, err
	}

	next := *current
	applyScalars(&next, in)
	if in.Title != nil {
		next.Title = strings.TrimSpace(*in.Title)
	}
	if in.Price != nil {
		next.Price = *in.Price
	}
	if in.PropertyType != nil {
		next.PropertyType = *in.PropertyType
	}
	addressChanged := false
	if in.Address != nil {
		addr := trimAddress(*in.Address)
		addressChanged = addr != current.Address
		next.Address = addr
	}
	if in.Latitude != nil || in.Longitude != nil || addressChanged {
		next.Latitude, next.Longitude, next.Geohash = nil, nil, ""
		s.locate(ctx, &next, in)
	}

	tx := s.DB.WithContext(ctx).Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()
	current, err = ownership.GuardListing(tx, agent.AgentID, listingID)
	if err != nil {
		tx.Rollback()
		return nil, err
	}

	upd := map[string]interface{}{
		"title":            next.Title,
		"description":      next.Description,
		"price":            next.Price,
		"property_type":    next.PropertyType,
		"bedrooms":         next.Bedrooms,
		"bathrooms":        next.Bathrooms,
		"square_feet":      next.SquareFeet,
		"year_built":       next.YearBuilt,
		"lot_size":         next.LotSize,
		"address_street":   next.Address.Street,
		"address_city":     next.Address.City,
		"address_state":    next.Address.State,
		"address_zip_code": next.Address.ZipCode,
		"city_key":         domain.FoldCity(next.Address.City),
		"latitude":         next.Latitude,
		"longitude":        next.Longitude,
		"geohash":          next.Geohash,
		"has_open_house":   next.HasOpenHouse,
		"featured":         next.Featured,
	}
	changes := map[string]interface{}{}
	if next.Price < current.Price {
		upd["price_reduced"] = true
		changes["previous_price"] = current.Price
		changes["price"] = next.Price
	} else if next.Price > current.Price {
		upd["price_reduced"] = false
		changes["previous_price"] = current.Price
		changes["price"] = next.Price
	}
	if next.Title != current.Title {
		slug, err := uniqueSlug(tx, next.Title, listingID, listingID)
		if err != nil {
			tx.Rollback()
			return nil, err
		}
		upd["slug"] = slug
		changes["title"] = next.Title
	}
	if in.Images != nil {
		upd["images"] = domain.ImagesJSON(*in.Images)
		changes["images"] = len(*in.Images)
	}

	res := tx.Model(&domain.Listing{}).
		Where("listing_id = ? AND agent_id = ?", listingID, agent.AgentID).
		Updates(upd)
	if res.Error != nil {
		tx.Rollback()
		return nil, fmt.Errorf("Failed to update listing: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		tx.Rollback()
		return nil, ownership.ErrUnauthorized
	}
	if in.Amenities != nil {
		if err := tx.Where("listing_id = ?", listingID).Delete(&domain.ListingAmenity{}).Error; err != nil {
			tx.Rollback()
			return nil, err
		}
		if len(*in.Amenities) > 0 {
			if err := tx.Create(domain.AmenityRows(listingID, *in.Amenities)).Error; err != nil {
				tx.Rollback()
				return nil, err
			}
		}
		changes["amenities"] = *in.Amenities
	}
	if err := listingevents.Record(tx, current, domain.ListingEventUpdated, changes); err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	return s.load(ctx, listingID)
}

// UpdateStatus moves a listing of the session agent to active, pending or sold.
func (s *Service) UpdateStatus(ctx context.Context, userID string, listingID uuid.UUID, status string) (*domain.Listing, error) {
	if !domain.IsListingStatus(status) {
		return nil, validation.Failf("Invalid status. Must be one of: active, pending, sold")
	}
	tx := s.DB.WithContext(ctx).Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()
	agent, err := agents.Lookup(tx, userID)
	if err != nil {
		tx.Rollback()
		return nil, err
	}
	current, err := ownership.GuardListing(tx, agent.AgentID, listingID)
	if err != nil {
		tx.Rollback()
		return nil, err
	}
	res := tx.Model(&domain.Listing{}).
		Where("listing_id = ? AND agent_id = ?", listingID, agent.AgentID).
		Update("status", status)
	if res.Error != nil {
		tx.Rollback()
		return nil, fmt.Errorf("Failed to update listing status: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		tx.Rollback()
		return nil, ownership.ErrUnauthorized
	}
	if err := listingevents.Record(tx, current, domain.ListingEventStatusChanged, map[string]interface{}{
		"from": current.Status,
		"to":   status,
	}); err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	return s.load(ctx, listingID)
}

// Delete removes a listing of the session agent with its amenities, saves
// and events. Leads on it are kept.
func (s *Service) Delete(ctx context.Context, userID string, listingID uuid.UUID) error {
	tx := s.DB.WithContext(ctx).Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()
	agent, err := agents.Lookup(tx, userID)
	if err != nil {
		tx.Rollback()
		return err
	}
	if _, err := ownership.GuardListing(tx, agent.AgentID, listingID); err != nil {
		tx.Rollback()
		return err
	}
	for _, model := range []interface{}{&domain.ListingAmenity{}, &domain.SavedListing{}, &domain.ListingEvent{}} {
		if err := tx.Where("listing_id = ?", listingID).Delete(model).Error; err != nil {
			tx.Rollback()
			return fmt.Errorf("Failed to delete listing: %w", err)
		}
	}
	res := tx.Where("listing_id = ? AND agent_id = ?", listingID, agent.AgentID).Delete(&domain.Listing{})
	if res.Error != nil {
		tx.Rollback()
		return fmt.Errorf("Failed to delete listing: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		tx.Rollback()
		return ownership.ErrUnauthorized
	}
	if err := tx.Commit().Error; err != nil {
		return err
	}
	log.Info().Str("listing_id", listingID.String()).Str("agent_id", agent.AgentID.String()).Msg("listing deleted")
	return nil
}

// ListForAgent returns every listing of the session agent, newest first.
func (s *Service) ListForAgent(ctx context.Context, userID string) ([]domain.Listing, error) {
	agent, err := agents.Lookup(s.DB.WithContext(ctx), userID)
	if err != nil {
		return nil, err
	}
	out := []domain.Listing{}
	err = s.DB.WithContext(ctx).Preload("Amenities").
		Where("agent_id = ?", agent.AgentID).
		Order("created_at DESC").Order("listing_id ASC").
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Events returns the activity log of a listing of the session agent.
func (s *Service) Events(ctx context.Context, userID string, listingID uuid.UUID) ([]domain.ListingEvent, error) {
	agent, err := agents.Lookup(s.DB.WithContext(ctx), userID)
	if err != nil {
		return nil, err
	}
	return s.EventLog.ForListing(ctx, agent.AgentID, listingID)
}

func (s *Service) load(ctx context.Context, id uuid.UUID) (*domain.Listing, error) {
	var l domain.Listing
	err := s.DB.WithContext(ctx).Preload("Amenities").Where("listing_id = ?", id).First(&l).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, search.ErrListingNotFound
	}
	if err != nil {
		return nil, err
	}
	return &l, nil
}

// locate fills coordinates from the payload, or from the geocoder when the
// payload has none, and derives the geohash cell.
func (s *Service) locate(ctx context.Context, l *domain.Listing, in Input) {
	if in.Latitude != nil && in.Longitude != nil {
		lat, lng := *in.Latitude, *in.Longitude
		l.Latitude, l.Longitude = &lat, &lng
	} else if s.Geocoder != nil {
		addr := geocoding.BuildAddress(l.Address)
		res, err := s.Geocoder.Geocode(ctx, addr)
		if err != nil {
			log.Warn().Err(err).Str("address", addr).Msg("geocode failed, listing stored without coordinates")
		} else if res != nil {
			l.Latitude, l.Longitude = &res.Latitude, &res.Longitude
		}
	}
	if l.Latitude != nil && l.Longitude != nil {
		l.Geohash = geocoding.Cell(*l.Latitude, *l.Longitude)
	}
}

func applyScalars(l *domain.Listing, in Input) {
	if in.Description != nil {
		l.Description = strings.TrimSpace(*in.Description)
	}
	if in.Bedrooms != nil {
		l.Bedrooms = *in.Bedrooms
	}
	if in.Bathrooms != nil {
		l.Bathrooms = *in.Bathrooms
	}
	if in.SquareFeet != nil {
		l.SquareFeet = *in.SquareFeet
	}
	if in.YearBuilt != nil {
		l.YearBuilt = *in.YearBuilt
	}
	if in.LotSize != nil {
		l.LotSize = *in.LotSize
	}
	if in.HasOpenHouse != nil {
		l.HasOpenHouse = *in.HasOpenHouse
	}
	if in.Featured != nil {
		l.Featured = *in.Featured
	}
}

func trimAddress(a domain.Address) domain.Address {
	return domain.Address{
		Street:  strings.TrimSpace(a.Street),
		City:    strings.TrimSpace(a.City),
		State:   strings.TrimSpace(a.State),
		ZipCode: strings.TrimSpace(a.ZipCode),
	}
}

var (
	slugStrip = regexp.MustCompile(`[^a-z0-9\s-]`)
	slugSpace = regexp.MustCompile(`[\s-]+`)
)

// Slugify lowercases, drops accents and punctuation and joins words with dashes.
func Slugify(title string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	s, _, err := transform.String(t, strings.ToLower(title))
	if err != nil {
		s = strings.ToLower(title)
	}
	s = slugStrip.ReplaceAllString(s, "")
	s = slugSpace.ReplaceAllString(strings.TrimSpace(s), "-")
	s = strings.Trim(s, "-")
	if s == "" {
		s = "listing"
	}
	return s
}

// uniqueSlug returns the title slug, suffixed with part of listingID when
// another listing (other than self) already uses it.
func uniqueSlug(tx *gorm.DB, title string, listingID, self uuid.UUID) (string, error) {
	slug := Slugify(title)
	var n int64
	q := tx.Model(&domain.Listing{}).Where("slug = ?", slug)
	if self != uuid.Nil {
		q = q.Where("listing_id <> ?", self)
	}
	if err := q.Count(&n).Error; err != nil {
		return "", err
	}
	if n == 0 {
		return slug, nil
	}
	return slug + "-" + strings.ReplaceAll(listingID.String(), "-", "")[:8], nil
}
