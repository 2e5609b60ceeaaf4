package contracts

import (
	"testing"

	"homefind-backend/internal/pkg/validation"

	"github.com/stretchr/testify/assert"
)

func TestValidateListingCreate(t *testing.T) {
	ok := `{"title":"Lake house","price":850000,"property_type":"house","bedrooms":3,"bathrooms":2.5,
		"address":{"street":"1 Shore Rd","city":"Austin","state":"TX","zipCode":"78701"},
		"amenities":["pool","garage"],"images":["listings/a.jpg"]}`
	assert.NoError(t, Validate(ListingCreate, []byte(ok)))

	cases := map[string]string{
		"missing title":    `{"price":1,"property_type":"house","address":{"city":"Austin"}}`,
		"zero price":       `{"title":"Lake house","price":0,"property_type":"house","address":{"city":"Austin"}}`,
		"unknown type":     `{"title":"Lake house","price":1,"property_type":"castle","address":{"city":"Austin"}}`,
		"quarter bath":     `{"title":"Lake house","price":1,"property_type":"house","bathrooms":1.25,"address":{"city":"Austin"}}`,
		"address no city":  `{"title":"Lake house","price":1,"property_type":"house","address":{"street":"x"}}`,
		"dup amenities":    `{"title":"Lake house","price":1,"property_type":"house","address":{"city":"A"},"amenities":["pool","pool"]}`,
		"not json":         `{"title":`,
		"fractional rooms": `{"title":"Lake house","price":1,"property_type":"house","bedrooms":2.5,"address":{"city":"A"}}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			assert.ErrorIs(t, Validate(ListingCreate, []byte(body)), validation.ErrInvalid)
		})
	}
}

func TestValidateListingUpdate(t *testing.T) {
	assert.NoError(t, Validate(ListingUpdate, []byte(`{"price":799000}`)))
	assert.ErrorIs(t, Validate(ListingUpdate, []byte(`{}`)), validation.ErrInvalid)

	err := Validate(ListingUpdate, []byte(`{"price":-5}`))
	assert.ErrorIs(t, err, validation.ErrInvalid)
	assert.Contains(t, err.Error(), "price")
}

func TestValidateUnknownSchema(t *testing.T) {
	err := Validate("nope", []byte(`{}`))
	assert.Error(t, err)
	assert.NotErrorIs(t, err, validation.ErrInvalid)
}
