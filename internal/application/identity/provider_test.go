package identity

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupProvider(t *testing.T) (*RedisProvider, *miniredis.Miniredis) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	return &RedisProvider{Rdb: rdb}, mr
}

func TestRedisProvider_FlagsRoundTripAndMerge(t *testing.T) {
	p, _ := setupProvider(t)
	ctx := context.Background()

	flags, err := p.GetProfileFlags(ctx, "user_1")
	require.NoError(t, err)
	assert.Empty(t, flags)

	require.NoError(t, p.SetProfileFlags(ctx, "user_1", Flags{"theme": "dark"}))
	require.NoError(t, p.SetProfileFlags(ctx, "user_1", Flags{FlagOnboardingComplete: true}))

	flags, err = p.GetProfileFlags(ctx, "user_1")
	require.NoError(t, err)
	assert.True(t, flags.Bool(FlagOnboardingComplete))
	assert.Equal(t, "dark", flags["theme"])
	assert.False(t, flags.Bool(FlagAgentOnboardingComplete))
}

func TestRedisProvider_NonJSONValueReadsAsString(t *testing.T) {
	p, mr := setupProvider(t)
	mr.HSet(flagsKey("user_2"), "legacy", "plain text")

	flags, err := p.GetProfileFlags(context.Background(), "user_2")
	require.NoError(t, err)
	assert.Equal(t, "plain text", flags["legacy"])
}

func TestRedisProvider_Plans(t *testing.T) {
	p, _ := setupProvider(t)
	ctx := context.Background()

	ok, err := p.HasActivePlan(ctx, "user_3", "agent")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, p.GrantPlan(ctx, "user_3", "agent"))
	ok, err = p.HasActivePlan(ctx, "user_3", "agent")
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, p.RevokePlan(ctx, "user_3", "agent"))
	ok, err = p.HasActivePlan(ctx, "user_3", "agent")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisProvider_Unavailable(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()
	p := &RedisProvider{Rdb: rdb}
	mr.Close()

	_, err = p.GetProfileFlags(context.Background(), "user_4")
	assert.Error(t, err)
	assert.Error(t, p.SetProfileFlags(context.Background(), "user_4", Flags{FlagOnboardingComplete: true}))
}

func TestFlags_Covers(t *testing.T) {
	f := Flags{FlagOnboardingComplete: true, "x": 1.0}
	assert.True(t, f.Covers(Flags{FlagOnboardingComplete: true}))
	assert.False(t, f.Covers(Flags{FlagAgentOnboardingComplete: true}))
	assert.False(t, Flags{FlagOnboardingComplete: false}.Covers(Flags{FlagOnboardingComplete: true}))
}
