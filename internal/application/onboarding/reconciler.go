package onboarding

import (
	"context"
	"errors"
	"fmt"

	"homefind-backend/internal/application/identity"
	"homefind-backend/internal/domain"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

// State is the derived onboarding state of a user.
type State string

const (
	NoProfile         State = "NoProfile"
	ProfileIncomplete State = "ProfileIncomplete"
	ProfileComplete   State = "ProfileComplete"
)

// Result is the outcome of one reconciliation.
type Result struct {
	State    State               `json:"state"`
	Buyer    *domain.UserProfile `json:"buyer_profile,omitempty"`
	Agent    *domain.Agent       `json:"agent_profile,omitempty"`
	Repaired bool                `json:"repaired"`
	// FlagSyncErr is set when the identity record could not be read or
	// written. The state is still correct.
	FlagSyncErr error `json:"-"`
}

func (r Result) Complete() bool {
	return r.State == ProfileComplete
}

// Reconciler derives the onboarding state from the profile documents and
// repairs the cached flags on the identity record when they are stale.
type Reconciler struct {
	DB       *gorm.DB
	Identity identity.Provider
}

// Reconcile is idempotent: once the flags are in step it performs no writes.
func (r *Reconciler) Reconcile(ctx context.Context, userID string) (Result, error) {
	if userID == "" {
		return Result{State: NoProfile}, nil
	}

	buyer, agent, err := r.loadProfiles(ctx, userID)
	if err != nil {
		return Result{}, err
	}
	res := Result{Buyer: buyer, Agent: agent}

	if buyer == nil && agent == nil {
		res.State = NoProfile
		return res, nil
	}

	agentComplete := agent != nil && agent.IsComplete()
	if !agentComplete && (buyer == nil || !buyer.IsComplete()) {
		res.State = ProfileIncomplete
		return res, nil
	}
	res.State = ProfileComplete

	want := identity.Flags{identity.FlagOnboardingComplete: true}
	if agentComplete {
		want[identity.FlagAgentOnboardingComplete] = true
	}

	cached, err := r.Identity.GetProfileFlags(ctx, userID)
	if err != nil {
		res.FlagSyncErr = fmt.Errorf("read profile flags: %w", err)
		log.Warn().Err(err).Str("user_id", userID).Msg("onboarding flags read failed")
		return res, nil
	}
	if cached.Covers(want) {
		return res, nil
	}
	if err := r.Identity.SetProfileFlags(ctx, userID, want); err != nil {
		res.FlagSyncErr = fmt.Errorf("write profile flags: %w", err)
		log.Warn().Err(err).Str("user_id", userID).Msg("onboarding flags repair failed")
		return res, nil
	}
	res.Repaired = true
	log.Info().Str("user_id", userID).Msg("onboarding flags repaired")
	return res, nil
}

func (r *Reconciler) loadProfiles(ctx context.Context, userID string) (*domain.UserProfile, *domain.Agent, error) {
	var buyer *domain.UserProfile
	var agent *domain.Agent

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var p domain.UserProfile
		err := r.DB.WithContext(gctx).Where("user_id = ?", userID).First(&p).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("load buyer profile: %w", err)
		}
		buyer = &p
		return nil
	})
	g.Go(func() error {
		var a domain.Agent
		err := r.DB.WithContext(gctx).Where("user_id = ?", userID).First(&a).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("load agent profile: %w", err)
		}
		agent = &a
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return buyer, agent, nil
}
