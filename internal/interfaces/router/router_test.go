package router

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"homefind-backend/internal/config"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateApp_HealthOnlyWithoutStores(t *testing.T) {
	app, db, rdb, err := CreateApp(&config.Config{AgentPlan: "agent"})
	require.NoError(t, err)
	assert.Nil(t, db)
	assert.Nil(t, rdb)

	resp, err := app.Test(httptest.NewRequest("GET", "/api/v1/properties", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestCreateApp_BadRedisURL(t *testing.T) {
	_, _, _, err := CreateApp(&config.Config{RedisURL: "://nope"})
	assert.Error(t, err)
}

func TestCreateApp_Routes(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	app, db, rdb, err := CreateApp(&config.Config{
		DatabaseURL: "sqlite::memory:",
		RedisURL:    "redis://" + mr.Addr(),
		AgentPlan:   "agent",
		SupabaseURL: "https://sb.test",
	})
	require.NoError(t, err)
	require.NotNil(t, db)
	defer rdb.Close()

	require.NoError(t, mr.Set("session:abc", `{"user":{"user_id":"u1","fullname":"Ana Diaz","email":"ana@x.com"}}`))

	call := func(method, path string, signedIn bool) int {
		req := httptest.NewRequest(method, path, nil)
		if signedIn {
			req.AddCookie(&http.Cookie{Name: "homefind.sid", Value: "s:abc.sig"})
		}
		resp, err := app.Test(req)
		require.NoError(t, err)
		return resp.StatusCode
	}

	assert.Equal(t, fiber.StatusOK, call("GET", "/api/v1/properties", false))
	assert.Equal(t, fiber.StatusOK, call("GET", "/api/v1/amenities", false))
	assert.Equal(t, fiber.StatusUnauthorized, call("GET", "/api/v1/profile", false))
	assert.Equal(t, fiber.StatusUnauthorized, call("GET", "/api/v1/dashboard/stats", false))

	assert.Equal(t, fiber.StatusOK, call("GET", "/api/v1/auth/me", true))
	assert.Equal(t, fiber.StatusNotFound, call("GET", "/api/v1/profile", true))
	assert.Equal(t, fiber.StatusForbidden, call("POST", "/api/v1/dashboard/agent", true))

	_, err = mr.SAdd("identity:u1:plans", "agent")
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusCreated, call("POST", "/api/v1/dashboard/agent", true))
	assert.Equal(t, fiber.StatusOK, call("GET", "/api/v1/dashboard/listings", true))
	assert.Equal(t, fiber.StatusBadGateway, call("GET", "/api/v1/dashboard/geocode?address=x", true))
}
