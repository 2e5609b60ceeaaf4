package agents

import (
	"context"
	"errors"
	"testing"

	"homefind-backend/internal/application/identity"
	"homefind-backend/internal/infrastructure/database"
	"homefind-backend/internal/pkg/validation"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingFlags struct {
	*identity.RedisProvider
}

func (failingFlags) SetProfileFlags(context.Context, string, identity.Flags) error {
	return errors.New("identity provider down")
}

func setupAgents(t *testing.T) (*Service, *identity.RedisProvider) {
	db, err := database.OpenSQLite(":memory:")
	require.NoError(t, err)
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	p := &identity.RedisProvider{Rdb: rdb}
	return &Service{DB: db, Identity: p, Plan: "agent"}, p
}

func str(s string) *string { return &s }

var ana = identity.User{UserID: "user_ana", Fullname: "Ana Ruiz", Email: "Ana@Example.com"}

func TestEnsureAgent_RequiresPlan(t *testing.T) {
	s, _ := setupAgents(t)
	_, _, err := s.EnsureAgent(context.Background(), ana)
	assert.ErrorIs(t, err, ErrPlanRequired)
}

func TestEnsureAgent_CreatesOnce(t *testing.T) {
	s, p := setupAgents(t)
	ctx := context.Background()
	require.NoError(t, p.GrantPlan(ctx, ana.UserID, "agent"))

	a, created, err := s.EnsureAgent(ctx, ana)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, "ana@example.com", a.Email)
	assert.False(t, a.OnboardingComplete)

	again, created, err := s.EnsureAgent(ctx, ana)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, a.AgentID, again.AgentID)
}

func TestCompleteOnboarding(t *testing.T) {
	s, p := setupAgents(t)
	ctx := context.Background()
	require.NoError(t, p.GrantPlan(ctx, ana.UserID, "agent"))
	_, _, err := s.EnsureAgent(ctx, ana)
	require.NoError(t, err)

	_, err = s.CompleteOnboarding(ctx, ana.UserID, ProfileInput{Bio: str("Austin homes"), Phone: str("5125550100")})
	assert.ErrorIs(t, err, validation.ErrInvalid)

	a, err := s.CompleteOnboarding(ctx, ana.UserID, ProfileInput{
		Bio: str("Austin homes"), Phone: str("512-555-0100"), LicenseNumber: str("TX-0654321"), Agency: str("Hill Country Realty"),
	})
	require.NoError(t, err)
	assert.True(t, a.OnboardingComplete)
	assert.True(t, a.IsComplete())
	assert.Equal(t, "Hill Country Realty", a.Agency)

	flags, err := p.GetProfileFlags(ctx, ana.UserID)
	require.NoError(t, err)
	assert.True(t, flags.Bool(identity.FlagOnboardingComplete))
	assert.True(t, flags.Bool(identity.FlagAgentOnboardingComplete))
}

func TestCompleteOnboarding_FlagWriteIsAdvisory(t *testing.T) {
	s, p := setupAgents(t)
	ctx := context.Background()
	require.NoError(t, p.GrantPlan(ctx, ana.UserID, "agent"))
	_, _, err := s.EnsureAgent(ctx, ana)
	require.NoError(t, err)

	s.Identity = failingFlags{p}
	a, err := s.CompleteOnboarding(ctx, ana.UserID, ProfileInput{
		Bio: str("Austin homes"), Phone: str("5125550100"), LicenseNumber: str("TX-0654321"),
	})
	require.NoError(t, err)
	assert.True(t, a.OnboardingComplete)
}

func TestUpdateProfile(t *testing.T) {
	s, p := setupAgents(t)
	ctx := context.Background()

	_, err := s.UpdateProfile(ctx, "user_missing", ProfileInput{Agency: str("x")})
	assert.ErrorIs(t, err, ErrAgentNotFound)

	require.NoError(t, p.GrantPlan(ctx, ana.UserID, "agent"))
	_, _, err = s.EnsureAgent(ctx, ana)
	require.NoError(t, err)

	_, err = s.UpdateProfile(ctx, ana.UserID, ProfileInput{})
	assert.ErrorIs(t, err, validation.ErrInvalid)

	_, err = s.UpdateProfile(ctx, ana.UserID, ProfileInput{Phone: str("call me")})
	assert.ErrorIs(t, err, validation.ErrInvalid)

	a, err := s.UpdateProfile(ctx, ana.UserID, ProfileInput{Name: str("Ana M. Ruiz"), PhotoURL: str("agents/ana.jpg")})
	require.NoError(t, err)
	assert.Equal(t, "Ana M. Ruiz", a.Name)
	assert.Equal(t, "agents/ana.jpg", a.PhotoURL)
	assert.False(t, a.OnboardingComplete)

	got, err := s.GetProfile(ctx, ana.UserID)
	require.NoError(t, err)
	assert.Equal(t, a.AgentID, got.AgentID)
}
