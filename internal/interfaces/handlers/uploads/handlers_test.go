package uploads

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http/httptest"
	"strings"
	"testing"

	agentsvc "homefind-backend/internal/application/agents"
	"homefind-backend/internal/application/identity"
	uploadsvc "homefind-backend/internal/application/uploads"
	"homefind-backend/internal/domain"
	"homefind-backend/internal/infrastructure/database"
	"homefind-backend/internal/middleware"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStorage struct {
	err error
}

func (f *fakeStorage) CreateSignedUploadURL(ctx context.Context, bucket, path string) (string, error) {
	return "https://sb.test/upload/" + path, f.err
}

func setup(t *testing.T, user string) (*fiber.App, *domain.Agent, *fakeStorage) {
	db, err := database.OpenSQLite(":memory:")
	require.NoError(t, err)
	agent := &domain.Agent{UserID: "user_ana", Name: "Ana"}
	require.NoError(t, db.Create(agent).Error)

	fs := &fakeStorage{}
	h := &Handlers{
		Service: &uploadsvc.Service{Client: fs, SupabaseURL: "https://sb.test"},
		Agents:  &agentsvc.Service{DB: db},
	}
	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		middleware.SetUser(c, &identity.User{UserID: user})
		return c.Next()
	})
	app.Post("/uploads/listing-image", h.ListingImage)
	return app, agent, fs
}

func post(t *testing.T, app *fiber.App, body string) (int, map[string]interface{}) {
	req := httptest.NewRequest("POST", "/uploads/listing-image", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	var out map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return resp.StatusCode, out
}

func TestListingImage(t *testing.T) {
	app, agent, _ := setup(t, "user_ana")

	code, out := post(t, app, `{"file_name":"kitchen.png"}`)
	require.Equal(t, fiber.StatusOK, code)
	data := out["data"].(map[string]interface{})
	path := data["path"].(string)
	assert.True(t, strings.HasPrefix(path, agent.AgentID.String()+"/"))
	assert.True(t, strings.HasSuffix(path, "-kitchen.png"))
	assert.Equal(t, "https://sb.test/upload/"+path, data["uploadUrl"])
}

func TestListingImage_Errors(t *testing.T) {
	app, _, fs := setup(t, "user_ana")

	code, _ := post(t, app, `{}`)
	assert.Equal(t, fiber.StatusBadRequest, code)

	code, _ = post(t, app, `{"file_name":"deed.pdf"}`)
	assert.Equal(t, fiber.StatusBadRequest, code)

	fs.err = errors.New("storage down")
	code, out := post(t, app, `{"file_name":"a.jpg"}`)
	assert.Equal(t, fiber.StatusInternalServerError, code)
	assert.Equal(t, "Failed to generate upload URL", out["error"].(map[string]interface{})["message"])
}

func TestListingImage_NoAgentProfile(t *testing.T) {
	app, _, _ := setup(t, "user_ben")

	code, out := post(t, app, `{"file_name":"a.jpg"}`)
	assert.Equal(t, fiber.StatusForbidden, code)
	details := out["error"].(map[string]interface{})["details"].(map[string]interface{})
	assert.Equal(t, "/dashboard/onboarding", details["redirect"])
}
