package search

import (
	"math"
	"strconv"
	"strings"

	"homefind-backend/internal/domain"
)

const (
	// PageSize is the number of listings per results page.
	PageSize = 12
	// MaxPage bounds the page number so the offset stays small.
	MaxPage = 10000
	// PriceCeiling is the default upper price bound.
	PriceCeiling = 100000000
	// MaxDaysOnMarket is the widest days-on-market window; larger values
	// mean no filter.
	MaxDaysOnMarket = 36500
)

// Query-string keys of the search page.
const (
	KeyMinPrice     = "minPrice"
	KeyMaxPrice     = "maxPrice"
	KeyBeds         = "beds"
	KeyBaths        = "baths"
	KeyType         = "type"
	KeyCity         = "city"
	KeyPage         = "page"
	KeyMinSqft      = "minSqft"
	KeyMaxSqft      = "maxSqft"
	KeyMinYear      = "minYear"
	KeyMaxYear      = "maxYear"
	KeyMinLotSize   = "minLotSize"
	KeyMaxLotSize   = "maxLotSize"
	KeyDaysOnMarket = "daysOnMarket"
	KeyOpenHouse    = "openHouse"
	KeyPriceReduced = "priceReduced"
	KeyAmenities    = "amenities"
)

// PriceRange is an inclusive price interval; both sides are always set.
type PriceRange struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// Range is an inclusive interval where a nil side is unbounded.
type Range struct {
	Min *float64 `json:"min,omitempty"`
	Max *float64 `json:"max,omitempty"`
}

func (r Range) IsZero() bool {
	return r.Min == nil && r.Max == nil
}

func (r Range) Contains(v float64) bool {
	if r.Min != nil && v < *r.Min {
		return false
	}
	if r.Max != nil && v > *r.Max {
		return false
	}
	return true
}

// RoomFilter is a beds/baths constraint. Count 0 means no constraint;
// IsMinimumPlus turns the count into a lower bound ("3+").
type RoomFilter struct {
	Count         float64 `json:"count"`
	IsMinimumPlus bool    `json:"isMinimumPlus"`
}

func (r RoomFilter) Active() bool {
	return r.Count > 0
}

func (r RoomFilter) Matches(v float64) bool {
	if !r.Active() {
		return true
	}
	if r.IsMinimumPlus {
		return v >= r.Count
	}
	return v == r.Count
}

// ListingFilter is the normalized search request.
type ListingFilter struct {
	Price            PriceRange `json:"priceRange"`
	Beds             RoomFilter `json:"beds"`
	Baths            RoomFilter `json:"baths"`
	PropertyType     string     `json:"propertyType,omitempty"`
	City             string     `json:"city,omitempty"`
	SquareFeet       Range      `json:"squareFeetRange"`
	YearBuilt        Range      `json:"yearBuiltRange"`
	LotSize          Range      `json:"lotSizeRange"`
	DaysOnMarket     *int       `json:"daysOnMarket,omitempty"`
	OpenHouseOnly    bool       `json:"openHouseOnly"`
	PriceReducedOnly bool       `json:"priceReducedOnly"`
	Amenities        []string   `json:"amenities"`
	Page             int        `json:"page"`
}

// Normalize turns raw query values into a ListingFilter. It never fails:
// a missing or malformed value means no constraint for that field.
func Normalize(raw map[string]string) ListingFilter {
	f := ListingFilter{
		Beds:             parseRooms(raw[KeyBeds], true),
		Baths:            parseRooms(raw[KeyBaths], false),
		PropertyType:     parsePropertyType(raw[KeyType]),
		City:             domain.FoldCity(raw[KeyCity]),
		SquareFeet:       parseRange(raw[KeyMinSqft], raw[KeyMaxSqft]),
		YearBuilt:        parseRange(raw[KeyMinYear], raw[KeyMaxYear]),
		LotSize:          parseRange(raw[KeyMinLotSize], raw[KeyMaxLotSize]),
		DaysOnMarket:     parseDays(raw[KeyDaysOnMarket]),
		OpenHouseOnly:    parseFlag(raw[KeyOpenHouse]),
		PriceReducedOnly: parseFlag(raw[KeyPriceReduced]),
		Amenities:        parseAmenities(raw[KeyAmenities]),
		Page:             parsePage(raw[KeyPage]),
	}

	f.Price.Min = 0
	if v, ok := parseNumber(raw[KeyMinPrice]); ok {
		f.Price.Min = v
	}
	f.Price.Max = PriceCeiling
	if v, ok := parseNumber(raw[KeyMaxPrice]); ok && v > 0 {
		f.Price.Max = v
	}
	if f.Price.Min > f.Price.Max {
		f.Price.Min, f.Price.Max = f.Price.Max, f.Price.Min
	}
	return f
}

// parseNumber accepts finite, non-negative numbers only.
func parseNumber(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0, false
	}
	return v, true
}

func parseRooms(s string, whole bool) RoomFilter {
	s = strings.TrimSpace(s)
	plus := strings.HasSuffix(s, "+")
	v, ok := parseNumber(strings.TrimSuffix(s, "+"))
	if !ok {
		return RoomFilter{}
	}
	if whole {
		v = math.Trunc(v)
	}
	if v == 0 {
		return RoomFilter{}
	}
	return RoomFilter{Count: v, IsMinimumPlus: plus}
}

func parsePropertyType(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "all" || !domain.IsPropertyType(s) {
		return ""
	}
	return s
}

// parseRange keeps the "0 = unbounded" convention: zero, negative and
// malformed bounds are dropped.
func parseRange(minRaw, maxRaw string) Range {
	r := Range{Min: positive(minRaw), Max: positive(maxRaw)}
	if r.Min != nil && r.Max != nil && *r.Min > *r.Max {
		r.Min, r.Max = r.Max, r.Min
	}
	return r
}

func positive(s string) *float64 {
	v, ok := parseNumber(s)
	if !ok || v == 0 {
		return nil
	}
	return &v
}

func parseDays(s string) *int {
	v, ok := parseNumber(s)
	if !ok || v < 1 || v > MaxDaysOnMarket {
		return nil
	}
	d := int(v)
	return &d
}

func parseFlag(s string) bool {
	return strings.EqualFold(strings.TrimSpace(s), "true")
}

func parseAmenities(s string) []string {
	out := []string{}
	seen := make(map[string]struct{})
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if _, ok := seen[part]; ok {
			continue
		}
		seen[part] = struct{}{}
		out = append(out, part)
	}
	return out
}

func parsePage(s string) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 1 {
		return 1
	}
	if n > MaxPage {
		return MaxPage
	}
	return n
}
