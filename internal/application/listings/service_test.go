package listings

import (
	"context"
	"errors"
	"testing"

	"homefind-backend/internal/application/agents"
	"homefind-backend/internal/application/geocoding"
	"homefind-backend/internal/application/listingevents"
	"homefind-backend/internal/application/policies/ownership"
	"homefind-backend/internal/domain"
	"homefind-backend/internal/infrastructure/database"
	"homefind-backend/internal/pkg/validation"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type stubGeocoder struct {
	calls []string
	res   *geocoding.Result
	err   error
}

func (g *stubGeocoder) Geocode(ctx context.Context, address string) (*geocoding.Result, error) {
	g.calls = append(g.calls, address)
	return g.res, g.err
}

func setupListings(t *testing.T) (*Service, *stubGeocoder, *gorm.DB) {
	db, err := database.OpenSQLite(":memory:")
	require.NoError(t, err)
	require.NoError(t, db.Create(&domain.Agent{UserID: "user_ana", Name: "Ana"}).Error)
	require.NoError(t, db.Create(&domain.Agent{UserID: "user_eve", Name: "Eve"}).Error)

	geo := &stubGeocoder{res: &geocoding.Result{Latitude: 30.2649, Longitude: -97.7437}}
	return &Service{DB: db, Geocoder: geo, EventLog: &listingevents.Service{DB: db}}, geo, db
}

const createBody = `{
	"title": "Café on Congress!",
	"price": 450000,
	"property_type": "condo",
	"bedrooms": 2,
	"bathrooms": 1.5,
	"address": {"street": "100 Congress Ave", "city": "Austin", "state": "TX", "zipCode": "78701"},
	"amenities": ["pool", "gym"],
	"images": ["listings/a.jpg", "listings/b.jpg"]
}`

func TestCreate(t *testing.T) {
	s, geo, _ := setupListings(t)
	ctx := context.Background()

	l, err := s.Create(ctx, "user_ana", []byte(createBody))
	require.NoError(t, err)
	assert.Equal(t, "cafe-on-congress", l.Slug)
	assert.Equal(t, domain.ListingStatusActive, l.Status)
	assert.Equal(t, "austin", l.CityKey)
	assert.ElementsMatch(t, []string{"pool", "gym"}, l.AmenityNames())
	assert.Equal(t, []string{"listings/a.jpg", "listings/b.jpg"}, l.ImagePaths())
	require.NotNil(t, l.Latitude)
	assert.InDelta(t, 30.2649, *l.Latitude, 1e-9)
	assert.Len(t, l.Geohash, geocoding.GeohashPrecision)
	assert.Equal(t, []string{"100 Congress Ave, Austin, TX 78701"}, geo.calls)

	events, err := s.Events(ctx, "user_ana", l.ListingID)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, domain.ListingEventCreated, events[0].EventType)

	// same title gets a distinct slug
	again, err := s.Create(ctx, "user_ana", []byte(createBody))
	require.NoError(t, err)
	assert.NotEqual(t, l.Slug, again.Slug)
	assert.Contains(t, again.Slug, "cafe-on-congress-")
}

func TestCreate_GeocodeFailureIsNonFatal(t *testing.T) {
	s, geo, _ := setupListings(t)
	geo.err = errors.New("mapbox down")

	l, err := s.Create(context.Background(), "user_ana", []byte(createBody))
	require.NoError(t, err)
	assert.Nil(t, l.Latitude)
	assert.Empty(t, l.Geohash)
}

func TestCreate_PayloadCoordinatesSkipGeocoder(t *testing.T) {
	s, geo, _ := setupListings(t)
	body := `{"title":"Ranch","price":900000,"property_type":"land","address":{"city":"Dripping Springs"},"latitude":30.19,"longitude":-98.08}`

	l, err := s.Create(context.Background(), "user_ana", []byte(body))
	require.NoError(t, err)
	assert.Empty(t, geo.calls)
	require.NotNil(t, l.Longitude)
	assert.InDelta(t, -98.08, *l.Longitude, 1e-9)
}

func TestCreate_Rejections(t *testing.T) {
	s, _, _ := setupListings(t)
	ctx := context.Background()

	_, err := s.Create(ctx, "user_nobody", []byte(createBody))
	assert.ErrorIs(t, err, agents.ErrAgentNotFound)

	_, err = s.Create(ctx, "user_ana", []byte(`{"title":"x","price":-1}`))
	assert.ErrorIs(t, err, validation.ErrInvalid)

	_, err = s.Create(ctx, "user_ana", []byte(`{"title":"Loft","price":1,"property_type":"house","address":{"city":"A"},"agent_id":"someone"}`))
	assert.ErrorIs(t, err, validation.ErrInvalid)
}

func TestUpdate(t *testing.T) {
	s, geo, _ := setupListings(t)
	ctx := context.Background()
	l, err := s.Create(ctx, "user_ana", []byte(createBody))
	require.NoError(t, err)
	geo.calls = nil

	up, err := s.Update(ctx, "user_ana", l.ListingID, []byte(`{"price":425000,"amenities":["pool"],"title":"Condo on Congress"}`))
	require.NoError(t, err)
	assert.Equal(t, 425000.0, up.Price)
	assert.True(t, up.PriceReduced)
	assert.Equal(t, "condo-on-congress", up.Slug)
	assert.Equal(t, []string{"pool"}, up.AmenityNames())
	assert.Equal(t, 2, up.Bedrooms)
	assert.Equal(t, l.Geohash, up.Geohash)
	assert.Empty(t, geo.calls)

	moved, err := s.Update(ctx, "user_ana", l.ListingID, []byte(`{"address":{"street":"1 Main St","city":"Round Rock","state":"TX"}}`))
	require.NoError(t, err)
	assert.Equal(t, "round rock", moved.CityKey)
	assert.Equal(t, []string{"1 Main St, Round Rock, TX"}, geo.calls)
	assert.True(t, moved.PriceReduced)

	events, err := s.Events(ctx, "user_ana", l.ListingID)
	require.NoError(t, err)
	require.Len(t, events, 3)
	assert.Equal(t, domain.ListingEventUpdated, events[1].EventType)
	assert.Contains(t, string(events[1].EventData), `"previous_price":450000`)
}

func TestMutationsAreOwnerOnly(t *testing.T) {
	s, _, db := setupListings(t)
	ctx := context.Background()
	l, err := s.Create(ctx, "user_ana", []byte(createBody))
	require.NoError(t, err)

	_, err = s.Update(ctx, "user_eve", l.ListingID, []byte(`{"price":1}`))
	assert.ErrorIs(t, err, ownership.ErrUnauthorized)
	_, err = s.UpdateStatus(ctx, "user_eve", l.ListingID, domain.ListingStatusSold)
	assert.ErrorIs(t, err, ownership.ErrUnauthorized)
	err = s.Delete(ctx, "user_eve", l.ListingID)
	assert.ErrorIs(t, err, ownership.ErrUnauthorized)
	_, err = s.Events(ctx, "user_eve", l.ListingID)
	assert.ErrorIs(t, err, ownership.ErrUnauthorized)

	_, err = s.UpdateStatus(ctx, "user_ana", uuid.New(), domain.ListingStatusSold)
	assert.ErrorIs(t, err, ownership.ErrNotFound)

	var stored domain.Listing
	require.NoError(t, db.Where("listing_id = ?", l.ListingID).First(&stored).Error)
	assert.Equal(t, 450000.0, stored.Price)
	assert.Equal(t, domain.ListingStatusActive, stored.Status)
}

func TestUpdateStatus(t *testing.T) {
	s, _, _ := setupListings(t)
	ctx := context.Background()
	l, err := s.Create(ctx, "user_ana", []byte(createBody))
	require.NoError(t, err)

	_, err = s.UpdateStatus(ctx, "user_ana", l.ListingID, "archived")
	assert.ErrorIs(t, err, validation.ErrInvalid)

	up, err := s.UpdateStatus(ctx, "user_ana", l.ListingID, domain.ListingStatusPending)
	require.NoError(t, err)
	assert.Equal(t, domain.ListingStatusPending, up.Status)

	events, err := s.Events(ctx, "user_ana", l.ListingID)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, domain.ListingEventStatusChanged, events[1].EventType)
	assert.JSONEq(t, `{"from":"active","to":"pending"}`, string(events[1].EventData))
}

func TestDeleteKeepsLeads(t *testing.T) {
	s, _, db := setupListings(t)
	ctx := context.Background()
	l, err := s.Create(ctx, "user_ana", []byte(createBody))
	require.NoError(t, err)
	require.NoError(t, db.Create(&domain.Lead{ListingID: l.ListingID, AgentID: l.AgentID, BuyerEmail: "ben@example.com"}).Error)
	require.NoError(t, db.Create(&domain.SavedListing{ProfileID: uuid.New(), ListingID: l.ListingID}).Error)

	require.NoError(t, s.Delete(ctx, "user_ana", l.ListingID))

	for _, model := range []interface{}{&domain.Listing{}, &domain.ListingAmenity{}, &domain.SavedListing{}, &domain.ListingEvent{}} {
		var n int64
		require.NoError(t, db.Model(model).Where("listing_id = ?", l.ListingID).Count(&n).Error)
		assert.Zero(t, n)
	}
	var leads int64
	require.NoError(t, db.Model(&domain.Lead{}).Where("listing_id = ?", l.ListingID).Count(&leads).Error)
	assert.Equal(t, int64(1), leads)

	assert.ErrorIs(t, s.Delete(ctx, "user_ana", l.ListingID), ownership.ErrNotFound)
}

func TestListForAgent(t *testing.T) {
	s, _, _ := setupListings(t)
	ctx := context.Background()
	_, err := s.Create(ctx, "user_ana", []byte(createBody))
	require.NoError(t, err)

	mine, err := s.ListForAgent(ctx, "user_ana")
	require.NoError(t, err)
	assert.Len(t, mine, 1)

	theirs, err := s.ListForAgent(ctx, "user_eve")
	require.NoError(t, err)
	assert.Empty(t, theirs)
}

func TestSlugify(t *testing.T) {
	assert.Equal(t, "cafe-on-congress", Slugify("Café on Congress!"))
	assert.Equal(t, "3-bed-2-bath", Slugify("  3 bed -- 2 bath "))
	assert.Equal(t, "listing", Slugify("!!!"))
}
