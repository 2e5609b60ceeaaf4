package identity

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// Cached profile flags on the identity record.
const (
	FlagOnboardingComplete      = "onboardingComplete"
	FlagAgentOnboardingComplete = "agentOnboardingComplete"
)

// Flags is the cached public metadata of an identity record.
type Flags map[string]interface{}

// Bool reads a flag; anything but a true bool is false.
func (f Flags) Bool(key string) bool {
	v, _ := f[key].(bool)
	return v
}

// Covers reports whether every key of want is already set to the same value.
func (f Flags) Covers(want Flags) bool {
	for k, v := range want {
		if f[k] != v {
			return false
		}
	}
	return true
}

// Provider is what the service needs from the identity provider. The current
// user id comes from the session (middleware.CurrentUser).
type Provider interface {
	HasActivePlan(ctx context.Context, userID, plan string) (bool, error)
	GetProfileFlags(ctx context.Context, userID string) (Flags, error)
	// SetProfileFlags merges flags into the record; keys not given are kept.
	SetProfileFlags(ctx context.Context, userID string, flags Flags) error
}

// RedisProvider keeps identity records in Redis: flags in a hash with JSON
// encoded values, plans in a set.
type RedisProvider struct {
	Rdb *redis.Client
}

func flagsKey(userID string) string { return "identity:" + userID + ":flags" }
func plansKey(userID string) string { return "identity:" + userID + ":plans" }

func (p *RedisProvider) HasActivePlan(ctx context.Context, userID, plan string) (bool, error) {
	if userID == "" || plan == "" {
		return false, nil
	}
	ok, err := p.Rdb.SIsMember(ctx, plansKey(userID), plan).Result()
	if err != nil {
		return false, fmt.Errorf("identity plans: %w", err)
	}
	return ok, nil
}

func (p *RedisProvider) GetProfileFlags(ctx context.Context, userID string) (Flags, error) {
	raw, err := p.Rdb.HGetAll(ctx, flagsKey(userID)).Result()
	if err != nil {
		return nil, fmt.Errorf("identity flags: %w", err)
	}
	flags := make(Flags, len(raw))
	for k, s := range raw {
		var v interface{}
		if json.Unmarshal([]byte(s), &v) != nil {
			v = s
		}
		flags[k] = v
	}
	return flags, nil
}

func (p *RedisProvider) SetProfileFlags(ctx context.Context, userID string, flags Flags) error {
	if len(flags) == 0 {
		return nil
	}
	values := make(map[string]interface{}, len(flags))
	for k, v := range flags {
		b, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("identity flags: encode %s: %w", k, err)
		}
		values[k] = string(b)
	}
	if err := p.Rdb.HSet(ctx, flagsKey(userID), values).Err(); err != nil {
		return fmt.Errorf("identity flags: %w", err)
	}
	return nil
}

// GrantPlan and RevokePlan are driven by billing events.
func (p *RedisProvider) GrantPlan(ctx context.Context, userID, plan string) error {
	return p.Rdb.SAdd(ctx, plansKey(userID), plan).Err()
}

func (p *RedisProvider) RevokePlan(ctx context.Context, userID, plan string) error {
	return p.Rdb.SRem(ctx, plansKey(userID), plan).Err()
}

// User is the signed-in user as stored in the session.
type User struct {
	UserID   string `json:"user_id"`
	Fullname string `json:"fullname"`
	Email    string `json:"email"`
}
