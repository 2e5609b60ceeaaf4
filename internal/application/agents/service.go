package agents

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"homefind-backend/internal/application/identity"
	"homefind-backend/internal/domain"
	"homefind-backend/internal/pkg/validation"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

var (
	ErrAgentNotFound = errors.New("Agent profile not found")
	ErrPlanRequired  = errors.New("An active agent plan is required")
)

// Service holds the store and the identity provider for agent profiles.
type Service struct {
	DB       *gorm.DB
	Identity identity.Provider
	// Plan is the plan key that grants agent access.
	Plan string
}

// ProfileInput is the editable part of an agent profile.
type ProfileInput struct {
	Name          *string `json:"name"`
	Bio           *string `json:"bio"`
	Phone         *string `json:"phone"`
	LicenseNumber *string `json:"license_number"`
	Agency        *string `json:"agency"`
	PhotoURL      *string `json:"photo_url"`
}

// Lookup returns the agent profile of userID through db, which may be a transaction.
func Lookup(db *gorm.DB, userID string) (*domain.Agent, error) {
	if userID == "" {
		return nil, ErrAgentNotFound
	}
	var a domain.Agent
	err := db.Where("user_id = ?", userID).First(&a).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrAgentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load agent: %w", err)
	}
	return &a, nil
}

// EnsureAgent returns the agent profile of the session user, creating an empty
// one on first use. The user must hold the agent plan.
func (s *Service) EnsureAgent(ctx context.Context, u identity.User) (*domain.Agent, bool, error) {
	ok, err := s.Identity.HasActivePlan(ctx, u.UserID, s.Plan)
	if err != nil {
		return nil, false, err
	}
	if !ok {
		return nil, false, ErrPlanRequired
	}

	a, err := Lookup(s.DB.WithContext(ctx), u.UserID)
	if err == nil {
		return a, false, nil
	}
	if !errors.Is(err, ErrAgentNotFound) {
		return nil, false, err
	}

	a = &domain.Agent{
		UserID: u.UserID,
		Name:   strings.TrimSpace(u.Fullname),
		Email:  strings.ToLower(strings.TrimSpace(u.Email)),
	}
	// A concurrent first request may have created it; keep whichever landed.
	res := s.DB.WithContext(ctx).Where("user_id = ?", u.UserID).FirstOrCreate(a)
	if res.Error != nil {
		return nil, false, fmt.Errorf("create agent: %w", res.Error)
	}
	log.Info().Str("user_id", u.UserID).Str("agent_id", a.AgentID.String()).Msg("agent profile created")
	return a, res.RowsAffected > 0, nil
}

// GetProfile returns the agent profile of userID.
func (s *Service) GetProfile(ctx context.Context, userID string) (*domain.Agent, error) {
	return Lookup(s.DB.WithContext(ctx), userID)
}

// CompleteOnboarding fills in the required profile fields, marks the profile
// complete and caches the flags on the identity record. A failed flag write is
// logged only; the profile itself is the source of truth.
func (s *Service) CompleteOnboarding(ctx context.Context, userID string, in ProfileInput) (*domain.Agent, error) {
	if in.Bio == nil || strings.TrimSpace(*in.Bio) == "" {
		return nil, validation.Failf("Bio is required")
	}
	if in.Phone == nil || strings.TrimSpace(*in.Phone) == "" {
		return nil, validation.Failf("Phone is required")
	}
	if in.LicenseNumber == nil || strings.TrimSpace(*in.LicenseNumber) == "" {
		return nil, validation.Failf("License number is required")
	}

	a, err := s.update(ctx, userID, in, true)
	if err != nil {
		return nil, err
	}

	flags := identity.Flags{
		identity.FlagOnboardingComplete:      true,
		identity.FlagAgentOnboardingComplete: true,
	}
	if err := s.Identity.SetProfileFlags(ctx, userID, flags); err != nil {
		log.Warn().Err(err).Str("user_id", userID).Msg("agent onboarding flags not written")
	}
	return a, nil
}

// UpdateProfile patches the fields present in in.
func (s *Service) UpdateProfile(ctx context.Context, userID string, in ProfileInput) (*domain.Agent, error) {
	return s.update(ctx, userID, in, false)
}

func (s *Service) update(ctx context.Context, userID string, in ProfileInput, complete bool) (*domain.Agent, error) {
	upd, err := profileUpdates(in)
	if err != nil {
		return nil, err
	}
	if complete {
		upd["onboarding_complete"] = true
	}
	if len(upd) == 0 {
		return nil, validation.Failf("No valid update fields provided")
	}

	a, err := Lookup(s.DB.WithContext(ctx), userID)
	if err != nil {
		return nil, err
	}
	if err := s.DB.WithContext(ctx).Model(a).Updates(upd).Error; err != nil {
		return nil, fmt.Errorf("update agent: %w", err)
	}
	return Lookup(s.DB.WithContext(ctx), userID)
}

func profileUpdates(in ProfileInput) (map[string]interface{}, error) {
	upd := make(map[string]interface{})
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if !validation.IsValidName(name) {
			return nil, validation.Failf("Name contains invalid characters")
		}
		upd["name"] = name
	}
	if in.Bio != nil {
		bio := strings.TrimSpace(*in.Bio)
		if len(bio) > 2000 {
			return nil, validation.Failf("Bio must be at most 2000 characters")
		}
		upd["bio"] = bio
	}
	if in.Phone != nil {
		phone := strings.TrimSpace(*in.Phone)
		if phone != "" && !validation.IsValidPhone(phone) {
			return nil, validation.Failf("Invalid phone number")
		}
		upd["phone"] = phone
	}
	if in.LicenseNumber != nil {
		lic := strings.TrimSpace(*in.LicenseNumber)
		if lic != "" && !validation.IsValidLicense(lic) {
			return nil, validation.Failf("Invalid license number")
		}
		upd["license_number"] = lic
	}
	if in.Agency != nil {
		upd["agency"] = strings.TrimSpace(*in.Agency)
	}
	if in.PhotoURL != nil {
		upd["photo_url"] = strings.TrimSpace(*in.PhotoURL)
	}
	return upd, nil
}
