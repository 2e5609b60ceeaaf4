package search

import (
	"math"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"homefind-backend/internal/domain"

	"github.com/google/uuid"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// TitleBudget is the rune budget of ShortTitle before the ellipsis.
const TitleBudget = 20

const ellipsis = "..."

type Location struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// ListingView is the card/detail shape of a listing.
type ListingView struct {
	ID             uuid.UUID      `json:"id"`
	Slug           string         `json:"slug"`
	Title          string         `json:"title"`
	ShortTitle     string         `json:"shortTitle"`
	Description    string         `json:"description,omitempty"`
	Price          float64        `json:"price"`
	DisplayPrice   string         `json:"displayPrice"`
	MarkerPrice    string         `json:"markerPrice"`
	PropertyType   string         `json:"propertyType"`
	Status         string         `json:"status"`
	Bedrooms       int            `json:"bedrooms"`
	Bathrooms      float64        `json:"bathrooms"`
	SquareFeet     int            `json:"squareFeet"`
	YearBuilt      int            `json:"yearBuilt,omitempty"`
	LotSize        float64        `json:"lotSize,omitempty"`
	Address        domain.Address `json:"address"`
	AddressLine    string         `json:"addressLine"`
	Location       *Location      `json:"location,omitempty"`
	ImageURL       string         `json:"imageUrl,omitempty"`
	Images         []string       `json:"images"`
	HasPlaceholder bool           `json:"hasPlaceholder"`
	Amenities      []string       `json:"amenities"`
	OpenHouse      bool           `json:"openHouse"`
	PriceReduced   bool           `json:"priceReduced"`
	Featured       bool           `json:"featured"`
	AgentID        uuid.UUID      `json:"agentId"`
	CreatedAt      time.Time      `json:"createdAt"`
}

// Assembler maps listings to views. ImageBaseURL prefixes stored image paths.
type Assembler struct {
	ImageBaseURL string
}

func (a Assembler) Card(l *domain.Listing) ListingView {
	images := make([]string, 0)
	for _, p := range l.ImagePaths() {
		if p = strings.TrimSpace(p); p != "" {
			images = append(images, a.imageURL(p))
		}
	}

	v := ListingView{
		ID:           l.ListingID,
		Slug:         l.Slug,
		Title:        l.Title,
		ShortTitle:   Truncate(l.Title, TitleBudget),
		Description:  l.Description,
		Price:        l.Price,
		DisplayPrice: FormatPrice(l.Price),
		MarkerPrice:  CompactPrice(l.Price),
		PropertyType: l.PropertyType,
		Status:       l.Status,
		Bedrooms:     l.Bedrooms,
		Bathrooms:    l.Bathrooms,
		SquareFeet:   l.SquareFeet,
		YearBuilt:    l.YearBuilt,
		LotSize:      l.LotSize,
		Address:      l.Address,
		AddressLine:  l.Address.Line(),
		Images:       images,
		Amenities:    l.AmenityNames(),
		OpenHouse:    l.HasOpenHouse,
		PriceReduced: l.PriceReduced,
		Featured:     l.Featured,
		AgentID:      l.AgentID,
		CreatedAt:    l.CreatedAt,
	}
	if len(images) > 0 {
		v.ImageURL = images[0]
	} else {
		v.HasPlaceholder = true
	}
	if l.Latitude != nil && l.Longitude != nil {
		v.Location = &Location{Lat: *l.Latitude, Lng: *l.Longitude}
	}
	return v
}

func (a Assembler) Cards(listings []domain.Listing) []ListingView {
	out := make([]ListingView, 0, len(listings))
	for i := range listings {
		out = append(out, a.Card(&listings[i]))
	}
	return out
}

func (a Assembler) imageURL(path string) string {
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") || a.ImageBaseURL == "" {
		return path
	}
	return strings.TrimRight(a.ImageBaseURL, "/") + "/" + strings.TrimLeft(path, "/")
}

// FormatPrice formats an amount as en-US dollars without decimals ("$450,000").
func FormatPrice(amount float64) string {
	p := message.NewPrinter(language.AmericanEnglish)
	return p.Sprintf("$%d", int64(math.Round(amount)))
}

// CompactPrice is the short map-marker form: $1.2M, $450K, $900. The unit is
// picked after rounding, so 999999 is $1.0M rather than $1000K.
func CompactPrice(amount float64) string {
	switch {
	case math.Round(amount/1000) >= 1000:
		return "$" + strconv.FormatFloat(amount/1000000, 'f', 1, 64) + "M"
	case math.Round(amount) >= 1000:
		return "$" + strconv.FormatFloat(amount/1000, 'f', 0, 64) + "K"
	default:
		return "$" + strconv.FormatFloat(amount, 'f', -1, 64)
	}
}

// Truncate cuts s to max runes and appends "..." when it was longer.
func Truncate(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	r := []rune(s)
	return string(r[:max]) + ellipsis
}
