package ownership

import (
	"errors"
	"fmt"

	"homefind-backend/internal/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Decision is the outcome of an ownership check.
type Decision int

const (
	Allow Decision = iota
	Deny
	NotFound
)

func (d Decision) String() string {
	switch d {
	case Allow:
		return "allow"
	case Deny:
		return "deny"
	default:
		return "not_found"
	}
}

// Err maps Deny and NotFound to their sentinel errors; Allow is nil.
func (d Decision) Err() error {
	switch d {
	case Allow:
		return nil
	case Deny:
		return ErrUnauthorized
	default:
		return ErrNotFound
	}
}

// Owned is a resource scoped to an owning agent.
type Owned interface {
	OwnerID() uuid.UUID
}

// Authorize decides whether actor may mutate res. A nil res is NotFound.
func Authorize(actor uuid.UUID, res Owned) Decision {
	if res == nil {
		return NotFound
	}
	if actor == uuid.Nil || res.OwnerID() != actor {
		return Deny
	}
	return Allow
}

// GuardListing loads a listing through db (usually the mutating transaction)
// and returns it only when actor owns it.
func GuardListing(db *gorm.DB, actor, listingID uuid.UUID) (*domain.Listing, error) {
	var l domain.Listing
	err := db.Where("listing_id = ?", listingID).First(&l).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, Authorize(actor, nil).Err()
	}
	if err != nil {
		return nil, fmt.Errorf("load listing: %w", err)
	}
	if err := Authorize(actor, &l).Err(); err != nil {
		return nil, err
	}
	return &l, nil
}

// GuardLead is GuardListing for leads.
func GuardLead(db *gorm.DB, actor, leadID uuid.UUID) (*domain.Lead, error) {
	var l domain.Lead
	err := db.Where("lead_id = ?", leadID).First(&l).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, Authorize(actor, nil).Err()
	}
	if err != nil {
		return nil, fmt.Errorf("load lead: %w", err)
	}
	if err := Authorize(actor, &l).Err(); err != nil {
		return nil, err
	}
	return &l, nil
}
