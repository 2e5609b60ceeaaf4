package properties

import (
	"encoding/json"
	"net/http/httptest"
	"testing"

	"homefind-backend/internal/application/search"
	"homefind-backend/internal/domain"
	"homefind-backend/internal/infrastructure/database"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type envelope struct {
	Status string          `json:"status"`
	Data   json.RawMessage `json:"data"`
	Error  struct {
		Message string `json:"message"`
	} `json:"error"`
}

func setup(t *testing.T) (*fiber.App, *search.Service) {
	db, err := database.OpenSQLite(":memory:")
	require.NoError(t, err)
	svc := &search.Service{DB: db}
	h := &Handlers{Service: svc, Assembler: search.Assembler{ImageBaseURL: "https://cdn.test/listing-images"}}
	app := fiber.New()
	app.Get("/properties", h.Search)
	app.Get("/properties/:id", h.Get)
	app.Get("/amenities", h.Amenities)
	return app, svc
}

func seed(t *testing.T, svc *search.Service, title, city string, price float64, beds int) domain.Listing {
	l := domain.Listing{
		AgentID:      uuid.New(),
		Title:        title,
		Slug:         uuid.NewString(),
		Price:        price,
		PropertyType: domain.PropertyTypeHouse,
		Status:       domain.ListingStatusActive,
		Bedrooms:     beds,
		Bathrooms:    2,
		Address:      domain.Address{Street: "1 Main St", City: city, State: "TX"},
		Images:       domain.ImagesJSON([]string{"agent/front.jpg"}),
	}
	require.NoError(t, svc.DB.Create(&l).Error)
	return l
}

func get(t *testing.T, app *fiber.App, url string) (int, envelope) {
	resp, err := app.Test(httptest.NewRequest("GET", url, nil))
	require.NoError(t, err)
	var out envelope
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return resp.StatusCode, out
}

func TestSearch(t *testing.T) {
	app, svc := setup(t)
	seed(t, svc, "Austin bungalow", "Austin", 450000, 3)
	seed(t, svc, "Dallas loft", "Dallas", 300000, 1)

	code, out := get(t, app, "/properties?city=AUSTIN&beds=2%2B&minPrice=abc")
	require.Equal(t, 200, code)
	var data struct {
		Items      []search.ListingView `json:"items"`
		TotalCount int64                `json:"totalCount"`
		TotalPages int                  `json:"totalPages"`
		Page       int                  `json:"page"`
	}
	require.NoError(t, json.Unmarshal(out.Data, &data))
	require.Len(t, data.Items, 1)
	assert.Equal(t, int64(1), data.TotalCount)
	assert.Equal(t, 1, data.TotalPages)
	assert.Equal(t, 1, data.Page)
	assert.Equal(t, "$450,000", data.Items[0].DisplayPrice)
	assert.Equal(t, "https://cdn.test/listing-images/agent/front.jpg", data.Items[0].ImageURL)

	code, out = get(t, app, "/properties?page=9")
	require.Equal(t, 200, code)
	require.NoError(t, json.Unmarshal(out.Data, &data))
	assert.Empty(t, data.Items)
	assert.Equal(t, int64(2), data.TotalCount)
}

func TestGet(t *testing.T) {
	app, svc := setup(t)
	l := seed(t, svc, "Austin bungalow", "Austin", 450000, 3)

	code, out := get(t, app, "/properties/"+l.ListingID.String())
	require.Equal(t, 200, code)
	var view search.ListingView
	require.NoError(t, json.Unmarshal(out.Data, &view))
	assert.Equal(t, l.ListingID, view.ID)
	assert.Equal(t, "1 Main St, Austin, TX", view.AddressLine)

	code, out = get(t, app, "/properties/"+uuid.NewString())
	assert.Equal(t, 404, code)
	assert.Equal(t, "Listing not found", out.Error.Message)

	code, _ = get(t, app, "/properties/nope")
	assert.Equal(t, 400, code)
}

func TestAmenities(t *testing.T) {
	app, svc := setup(t)
	require.NoError(t, svc.DB.Create(&[]domain.Amenity{{Name: "Pool", Value: "pool"}, {Name: "Garage", Value: "garage"}}).Error)

	code, out := get(t, app, "/amenities")
	require.Equal(t, 200, code)
	var amenities []domain.Amenity
	require.NoError(t, json.Unmarshal(out.Data, &amenities))
	require.Len(t, amenities, 2)
	assert.Equal(t, "Garage", amenities[0].Name)
}
