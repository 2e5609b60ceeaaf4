package search

import (
	"strings"
	"time"

	"homefind-backend/internal/domain"

	"gorm.io/gorm"
)

// term is one conjunct of a predicate: an SQL fragment and the in-process
// check built from the same values.
type term struct {
	sql   string
	args  []interface{}
	match func(l *domain.Listing) bool
}

// Predicate is a compiled ListingFilter. Matches and Scope agree on every
// listing; both start with the fixed status = active constraint.
type Predicate struct {
	terms []term
}

// Compile builds the predicate for f. now anchors the days-on-market window.
func Compile(f ListingFilter, now time.Time) Predicate {
	var p Predicate

	p.add("status = ?", func(l *domain.Listing) bool {
		return l.Status == domain.ListingStatusActive
	}, domain.ListingStatusActive)

	minPrice, maxPrice := f.Price.Min, f.Price.Max
	p.add("price >= ?", func(l *domain.Listing) bool { return l.Price >= minPrice }, minPrice)
	p.add("price <= ?", func(l *domain.Listing) bool { return l.Price <= maxPrice }, maxPrice)

	p.rooms("bedrooms", f.Beds, func(l *domain.Listing) float64 { return float64(l.Bedrooms) })
	p.rooms("bathrooms", f.Baths, func(l *domain.Listing) float64 { return l.Bathrooms })

	if f.PropertyType != "" {
		pt := f.PropertyType
		p.add("property_type = ?", func(l *domain.Listing) bool { return l.PropertyType == pt }, pt)
	}
	if f.City != "" {
		city := f.City
		p.add("city_key = ?", func(l *domain.Listing) bool { return domain.FoldCity(l.Address.City) == city }, city)
	}

	p.bounds("square_feet", f.SquareFeet, func(l *domain.Listing) float64 { return float64(l.SquareFeet) })
	p.bounds("year_built", f.YearBuilt, func(l *domain.Listing) float64 { return float64(l.YearBuilt) })
	p.bounds("lot_size", f.LotSize, func(l *domain.Listing) float64 { return l.LotSize })

	if f.DaysOnMarket != nil {
		cutoff := now.UTC().AddDate(0, 0, -*f.DaysOnMarket)
		p.add("created_at >= ?", func(l *domain.Listing) bool { return !l.CreatedAt.Before(cutoff) }, cutoff)
	}
	if f.OpenHouseOnly {
		p.add("has_open_house = ?", func(l *domain.Listing) bool { return l.HasOpenHouse }, true)
	}
	if f.PriceReducedOnly {
		p.add("price_reduced = ?", func(l *domain.Listing) bool { return l.PriceReduced }, true)
	}

	if len(f.Amenities) > 0 {
		want := append([]string(nil), f.Amenities...)
		p.add(
			"listing_id IN (SELECT listing_id FROM listing_amenities WHERE amenity IN ? GROUP BY listing_id HAVING COUNT(DISTINCT amenity) = ?)",
			func(l *domain.Listing) bool { return hasAll(l.AmenityNames(), want) },
			want, len(want),
		)
	}
	return p
}

func (p *Predicate) add(sql string, match func(l *domain.Listing) bool, args ...interface{}) {
	p.terms = append(p.terms, term{sql: sql, args: args, match: match})
}

func (p *Predicate) rooms(column string, r RoomFilter, value func(l *domain.Listing) float64) {
	if !r.Active() {
		return
	}
	op := " = ?"
	if r.IsMinimumPlus {
		op = " >= ?"
	}
	p.add(column+op, func(l *domain.Listing) bool { return r.Matches(value(l)) }, r.Count)
}

func (p *Predicate) bounds(column string, r Range, value func(l *domain.Listing) float64) {
	if r.Min != nil {
		lo := *r.Min
		p.add(column+" >= ?", func(l *domain.Listing) bool { return value(l) >= lo }, lo)
	}
	if r.Max != nil {
		hi := *r.Max
		p.add(column+" <= ?", func(l *domain.Listing) bool { return value(l) <= hi }, hi)
	}
}

// Matches evaluates the predicate in process. Amenities must be loaded.
func (p Predicate) Matches(l *domain.Listing) bool {
	for _, t := range p.terms {
		if !t.match(l) {
			return false
		}
	}
	return true
}

// Filter returns the listings that match, in input order.
func (p Predicate) Filter(listings []domain.Listing) []domain.Listing {
	out := make([]domain.Listing, 0, len(listings))
	for i := range listings {
		if p.Matches(&listings[i]) {
			out = append(out, listings[i])
		}
	}
	return out
}

// Scope applies the predicate to a query on the listings table.
func (p Predicate) Scope() func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		for _, t := range p.terms {
			db = db.Where(t.sql, t.args...)
		}
		return db
	}
}

// Expression renders the predicate as a single query expression with
// positional parameters, in the order Scope applies them.
func (p Predicate) Expression() (string, []interface{}) {
	parts := make([]string, 0, len(p.terms))
	var args []interface{}
	for _, t := range p.terms {
		parts = append(parts, t.sql)
		args = append(args, t.args...)
	}
	return strings.Join(parts, " AND "), args
}

func hasAll(have, want []string) bool {
	set := make(map[string]struct{}, len(have))
	for _, h := range have {
		set[h] = struct{}{}
	}
	for _, w := range want {
		if _, ok := set[w]; !ok {
			return false
		}
	}
	return true
}
