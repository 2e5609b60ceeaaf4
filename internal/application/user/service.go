package user

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode"

	"homefind-backend/internal/application/identity"
	"homefind-backend/internal/application/search"
	"homefind-backend/internal/domain"
	"homefind-backend/internal/pkg/validation"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

var (
	ErrProfileNotFound    = errors.New("Profile not found")
	ErrOnboardingRequired = errors.New("Please complete your profile first")
)

// Service holds the store and identity provider for buyer profiles and saved listings.
type Service struct {
	DB       *gorm.DB
	Identity identity.Provider
}

// ProfileInput is the editable part of a buyer profile.
type ProfileInput struct {
	Name     *string `json:"name"`
	Phone    *string `json:"phone"`
	PhotoURL *string `json:"photo_url"`
}

// CompleteOnboarding creates or patches the buyer profile of the session user
// and sets the onboardingComplete flag. The flag write is advisory.
func (s *Service) CompleteOnboarding(ctx context.Context, u identity.User, in ProfileInput) (*domain.UserProfile, error) {
	if in.Name == nil || strings.TrimSpace(*in.Name) == "" {
		if strings.TrimSpace(u.Fullname) == "" {
			return nil, validation.Failf("Name is required")
		}
		in.Name = &u.Fullname
	}
	email := strings.ToLower(strings.TrimSpace(u.Email))
	if !validation.IsValidEmail(email) {
		return nil, validation.Failf("Invalid email format")
	}
	upd, err := profileUpdates(in)
	if err != nil {
		return nil, err
	}
	upd["email"] = email

	p := domain.UserProfile{UserID: u.UserID}
	tx := s.DB.WithContext(ctx).Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()
	if err := tx.Where("user_id = ?", u.UserID).FirstOrCreate(&p).Error; err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("create profile: %w", err)
	}
	if err := tx.Model(&p).Updates(upd).Error; err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("update profile: %w", err)
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}

	if err := s.Identity.SetProfileFlags(ctx, u.UserID, identity.Flags{identity.FlagOnboardingComplete: true}); err != nil {
		log.Warn().Err(err).Str("user_id", u.UserID).Msg("buyer onboarding flag not written")
	}
	return s.GetProfile(ctx, u.UserID)
}

// GetProfile returns the buyer profile of userID.
func (s *Service) GetProfile(ctx context.Context, userID string) (*domain.UserProfile, error) {
	return lookup(s.DB.WithContext(ctx), userID)
}

// UpdateProfile patches the fields present in in.
func (s *Service) UpdateProfile(ctx context.Context, userID string, in ProfileInput) (*domain.UserProfile, error) {
	upd, err := profileUpdates(in)
	if err != nil {
		return nil, err
	}
	if len(upd) == 0 {
		return nil, validation.Failf("No valid update fields provided")
	}
	p, err := lookup(s.DB.WithContext(ctx), userID)
	if err != nil {
		return nil, err
	}
	if err := s.DB.WithContext(ctx).Model(p).Updates(upd).Error; err != nil {
		return nil, fmt.Errorf("update profile: %w", err)
	}
	return lookup(s.DB.WithContext(ctx), userID)
}

// ToggleSaved saves or unsaves a listing for the session user and reports the
// new state. An agent without a buyer profile gets one built from the agent record.
func (s *Service) ToggleSaved(ctx context.Context, u identity.User, listingID uuid.UUID) (bool, error) {
	p, err := s.buyerProfile(ctx, u)
	if err != nil {
		return false, err
	}

	var n int64
	if err := s.DB.WithContext(ctx).Model(&domain.Listing{}).Where("listing_id = ?", listingID).Count(&n).Error; err != nil {
		return false, err
	}
	if n == 0 {
		return false, search.ErrListingNotFound
	}

	res := s.DB.WithContext(ctx).
		Where("profile_id = ? AND listing_id = ?", p.ProfileID, listingID).
		Delete(&domain.SavedListing{})
	if res.Error != nil {
		return false, fmt.Errorf("unsave listing: %w", res.Error)
	}
	if res.RowsAffected > 0 {
		return false, nil
	}
	if err := s.DB.WithContext(ctx).Create(&domain.SavedListing{ProfileID: p.ProfileID, ListingID: listingID}).Error; err != nil {
		return false, fmt.Errorf("save listing: %w", err)
	}
	return true, nil
}

// SavedIDs lists the ids of the listings saved by userID, newest first.
// A user without a buyer profile has none.
func (s *Service) SavedIDs(ctx context.Context, userID string) ([]uuid.UUID, error) {
	ids := []uuid.UUID{}
	err := s.DB.WithContext(ctx).Model(&domain.SavedListing{}).
		Joins("JOIN user_profiles ON user_profiles.profile_id = saved_listings.profile_id").
		Where("user_profiles.user_id = ?", userID).
		Order("saved_listings.created_at DESC").
		Pluck("saved_listings.listing_id", &ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}

// SavedListings returns the saved listings themselves, in SavedIDs order.
// Listings deleted since they were saved are skipped.
func (s *Service) SavedListings(ctx context.Context, userID string) ([]domain.Listing, error) {
	ids, err := s.SavedIDs(ctx, userID)
	if err != nil || len(ids) == 0 {
		return []domain.Listing{}, err
	}
	var rows []domain.Listing
	if err := s.DB.WithContext(ctx).Preload("Amenities").Where("listing_id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, err
	}
	byID := make(map[uuid.UUID]domain.Listing, len(rows))
	for _, l := range rows {
		byID[l.ListingID] = l
	}
	out := make([]domain.Listing, 0, len(rows))
	for _, id := range ids {
		if l, ok := byID[id]; ok {
			out = append(out, l)
		}
	}
	return out, nil
}

func (s *Service) buyerProfile(ctx context.Context, u identity.User) (*domain.UserProfile, error) {
	p, err := lookup(s.DB.WithContext(ctx), u.UserID)
	if err == nil {
		return p, nil
	}
	if !errors.Is(err, ErrProfileNotFound) {
		return nil, err
	}

	var a domain.Agent
	err = s.DB.WithContext(ctx).Where("user_id = ?", u.UserID).First(&a).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrOnboardingRequired
	}
	if err != nil {
		return nil, err
	}
	p = &domain.UserProfile{UserID: u.UserID, Name: a.Name, Email: a.Email, Phone: a.Phone, PhotoURL: a.PhotoURL}
	if err := s.DB.WithContext(ctx).Where("user_id = ?", u.UserID).FirstOrCreate(p).Error; err != nil {
		return nil, fmt.Errorf("create profile from agent: %w", err)
	}
	log.Info().Str("user_id", u.UserID).Msg("buyer profile created from agent")
	return p, nil
}

func lookup(db *gorm.DB, userID string) (*domain.UserProfile, error) {
	if userID == "" {
		return nil, ErrProfileNotFound
	}
	var p domain.UserProfile
	err := db.Where("user_id = ?", userID).First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrProfileNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func profileUpdates(in ProfileInput) (map[string]interface{}, error) {
	upd := make(map[string]interface{})
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if !validation.IsValidName(name) {
			return nil, validation.Failf("Full name contains invalid characters (only letters, spaces, hyphens, and apostrophes allowed)")
		}
		upd["name"] = titleCaseAndNormalize(name)
	}
	if in.Phone != nil {
		phone := strings.TrimSpace(*in.Phone)
		if phone != "" && !validation.IsValidPhone(phone) {
			return nil, validation.Failf("Invalid phone number")
		}
		upd["phone"] = phone
	}
	if in.PhotoURL != nil {
		upd["photo_url"] = strings.TrimSpace(*in.PhotoURL)
	}
	return upd, nil
}

// titleCaseAndNormalize collapses runs of spaces and capitalizes each word.
func titleCaseAndNormalize(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		r := []rune(strings.ToLower(w))
		r[0] = unicode.ToUpper(r[0])
		words[i] = string(r)
	}
	return strings.Join(words, " ")
}
