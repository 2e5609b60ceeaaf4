package leads

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"homefind-backend/internal/application/agents"
	"homefind-backend/internal/application/emails"
	"homefind-backend/internal/application/onboarding"
	"homefind-backend/internal/application/policies/ownership"
	"homefind-backend/internal/application/search"
	"homefind-backend/internal/domain"
	"homefind-backend/internal/pkg/validation"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

var (
	ErrOnboardingRequired = errors.New("Please complete your profile before contacting an agent")
	ErrAlreadyContacted   = errors.New("You have already contacted the agent about this property")
	ErrLeadNotFound       = errors.New("Lead not found")
)

const maxMessageLen = 2000

// Service holds the store, the onboarding reconciler and the mailer for leads.
type Service struct {
	DB         *gorm.DB
	Onboarding *onboarding.Reconciler
	// Mailer may be nil.
	Mailer emails.Sender
}

// CreateInput is a buyer inquiry. AgentID, when sent, must match the listing's agent.
type CreateInput struct {
	ListingID uuid.UUID  `json:"listing_id"`
	AgentID   *uuid.UUID `json:"agent_id"`
	Message   string     `json:"message"`
	Phone     string     `json:"phone"`
}

// Create records an inquiry from userID on a listing. The buyer must have a
// complete profile; the agent is taken from the listing.
func (s *Service) Create(ctx context.Context, userID string, in CreateInput) (*domain.Lead, error) {
	msg := strings.TrimSpace(in.Message)
	if len(msg) > maxMessageLen {
		return nil, validation.Failf("Message must be at most %d characters", maxMessageLen)
	}
	phone := strings.TrimSpace(in.Phone)
	if phone != "" && !validation.IsValidPhone(phone) {
		return nil, validation.Failf("Invalid phone number")
	}
	if in.ListingID == uuid.Nil {
		return nil, validation.Failf("listing_id is required")
	}

	rec, err := s.Onboarding.Reconcile(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !rec.Complete() {
		return nil, ErrOnboardingRequired
	}

	lead := &domain.Lead{
		ListingID:   in.ListingID,
		BuyerUserID: userID,
		Message:     msg,
		Status:      domain.LeadStatusNew,
	}
	switch {
	case rec.Buyer != nil && rec.Buyer.IsComplete():
		lead.BuyerName, lead.BuyerEmail, lead.BuyerPhone = rec.Buyer.Name, rec.Buyer.Email, rec.Buyer.Phone
	case rec.Agent != nil:
		lead.BuyerName, lead.BuyerEmail, lead.BuyerPhone = rec.Agent.Name, rec.Agent.Email, rec.Agent.Phone
	}
	if phone != "" {
		lead.BuyerPhone = phone
	}
	lead.BuyerEmail = strings.ToLower(strings.TrimSpace(lead.BuyerEmail))
	if lead.BuyerEmail == "" {
		return nil, ErrOnboardingRequired
	}

	var listing domain.Listing
	var agent domain.Agent
	tx := s.DB.WithContext(ctx).Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	err = tx.Where("listing_id = ?", in.ListingID).First(&listing).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		tx.Rollback()
		return nil, search.ErrListingNotFound
	}
	if err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("load listing: %w", err)
	}
	if in.AgentID != nil && *in.AgentID != listing.AgentID {
		tx.Rollback()
		return nil, ownership.ErrUnauthorized
	}
	lead.AgentID = listing.AgentID

	var n int64
	if err := tx.Model(&domain.Lead{}).
		Where("listing_id = ? AND buyer_email = ?", lead.ListingID, lead.BuyerEmail).
		Count(&n).Error; err != nil {
		tx.Rollback()
		return nil, err
	}
	if n > 0 {
		tx.Rollback()
		return nil, ErrAlreadyContacted
	}
	if err := tx.Create(lead).Error; err != nil {
		tx.Rollback()
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrAlreadyContacted
		}
		return nil, fmt.Errorf("create lead: %w", err)
	}
	// Missing agent rows only cost the notification.
	_ = tx.Where("agent_id = ?", listing.AgentID).Limit(1).Find(&agent).Error
	if err := tx.Commit().Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrAlreadyContacted
		}
		return nil, err
	}

	log.Info().
		Str("lead_id", lead.LeadID.String()).
		Str("listing_id", listing.ListingID.String()).
		Str("agent_id", listing.AgentID.String()).
		Msg("lead created")

	s.notify(ctx, &agent, &listing, lead)
	return lead, nil
}

func (s *Service) notify(ctx context.Context, agent *domain.Agent, listing *domain.Listing, lead *domain.Lead) {
	if s.Mailer == nil || agent.Email == "" {
		return
	}
	err := s.Mailer.SendNewLead(ctx, emails.LeadNotice{
		AgentEmail:   agent.Email,
		AgentName:    agent.Name,
		ListingTitle: listing.Title,
		ListingSlug:  listing.Slug,
		BuyerName:    lead.BuyerName,
		BuyerEmail:   lead.BuyerEmail,
		BuyerPhone:   lead.BuyerPhone,
		Message:      lead.Message,
	})
	if err != nil {
		log.Warn().Err(err).Str("lead_id", lead.LeadID.String()).Msg("lead notification not sent")
	}
}

// UpdateStatus moves a lead of the session agent to status.
func (s *Service) UpdateStatus(ctx context.Context, userID string, leadID uuid.UUID, status string) (*domain.Lead, error) {
	if !domain.IsLeadStatus(status) {
		return nil, validation.Failf("Invalid lead status. Must be one of: new, contacted, closed")
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
	lead, err := ownership.GuardLead(tx, agent.AgentID, leadID)
	if err != nil {
		tx.Rollback()
		if errors.Is(err, ownership.ErrNotFound) {
			return nil, ErrLeadNotFound
		}
		return nil, err
	}
	res := tx.Model(&domain.Lead{}).
		Where("lead_id = ? AND agent_id = ?", leadID, agent.AgentID).
		Update("status", status)
	if res.Error != nil {
		tx.Rollback()
		return nil, fmt.Errorf("update lead: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		tx.Rollback()
		return nil, ownership.ErrUnauthorized
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	lead.Status = status
	return lead, nil
}

// ListForAgent returns the leads sent to the session agent, newest first.
func (s *Service) ListForAgent(ctx context.Context, userID string) ([]domain.Lead, error) {
	agent, err := agents.Lookup(s.DB.WithContext(ctx), userID)
	if err != nil {
		return nil, err
	}
	out := []domain.Lead{}
	err = s.DB.WithContext(ctx).
		Where("agent_id = ?", agent.AgentID).
		Order("created_at DESC").Order("lead_id ASC").
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}
