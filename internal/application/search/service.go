package search

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"homefind-backend/internal/domain"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

var ErrListingNotFound = errors.New("Listing not found")

const (
	amenitiesCacheKey = "search:amenities"
	amenitiesCacheTTL = 10 * time.Minute
)

// Service runs listing searches against the content store.
type Service struct {
	DB  *gorm.DB
	Rdb *redis.Client // optional amenity cache
	Now func() time.Time
}

// Page is one window of search results.
type Page struct {
	Items      []domain.Listing `json:"items"`
	TotalCount int64            `json:"totalCount"`
	TotalPages int              `json:"totalPages"`
	Page       int              `json:"page"`
	PageSize   int              `json:"pageSize"`
}

// Offset is the number of rows skipped before page.
func Offset(page, size int) int {
	if page < 1 {
		page = 1
	}
	return (page - 1) * size
}

// TotalPages is ceil(total/size).
func TotalPages(total int64, size int) int {
	if size < 1 || total <= 0 {
		return 0
	}
	return int((total + int64(size) - 1) / int64(size))
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// Search compiles f and returns the requested page.
func (s *Service) Search(ctx context.Context, f ListingFilter) (*Page, error) {
	return s.Paginate(ctx, Compile(f, s.now()), f.Page, PageSize)
}

// Paginate counts and fetches with the same predicate, concurrently. Results
// are ordered newest first with listing_id breaking ties. A page past the end
// is empty, not an error.
func (s *Service) Paginate(ctx context.Context, pred Predicate, page, size int) (*Page, error) {
	if page < 1 {
		page = 1
	}
	if size < 1 {
		size = PageSize
	}

	var total int64
	var items []domain.Listing
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return s.DB.WithContext(gctx).Model(&domain.Listing{}).Scopes(pred.Scope()).Count(&total).Error
	})
	g.Go(func() error {
		return s.DB.WithContext(gctx).
			Scopes(pred.Scope()).
			Preload("Amenities").
			Order("created_at DESC").
			Order("listing_id ASC").
			Offset(Offset(page, size)).
			Limit(size).
			Find(&items).Error
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("search listings: %w", err)
	}
	if items == nil {
		items = []domain.Listing{}
	}

	return &Page{
		Items:      items,
		TotalCount: total,
		TotalPages: TotalPages(total, size),
		Page:       page,
		PageSize:   size,
	}, nil
}

// GetListing returns a listing in any status with its amenities.
func (s *Service) GetListing(ctx context.Context, listingID uuid.UUID) (*domain.Listing, error) {
	var listing domain.Listing
	err := s.DB.WithContext(ctx).Preload("Amenities").Where("listing_id = ?", listingID).First(&listing).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrListingNotFound
	}
	if err != nil {
		return nil, err
	}
	return &listing, nil
}

// Amenities returns the amenity catalogue, cached in Redis when available.
func (s *Service) Amenities(ctx context.Context) ([]domain.Amenity, error) {
	if s.Rdb != nil {
		if b, err := s.Rdb.Get(ctx, amenitiesCacheKey).Bytes(); err == nil {
			var cached []domain.Amenity
			if json.Unmarshal(b, &cached) == nil {
				return cached, nil
			}
		}
	}

	amenities := []domain.Amenity{}
	if err := s.DB.WithContext(ctx).Order("name ASC").Find(&amenities).Error; err != nil {
		return nil, err
	}

	if s.Rdb != nil {
		b, _ := json.Marshal(amenities)
		if err := s.Rdb.Set(ctx, amenitiesCacheKey, b, amenitiesCacheTTL).Err(); err != nil {
			log.Warn().Err(err).Msg("amenity cache write failed")
		}
	}
	return amenities, nil
}
