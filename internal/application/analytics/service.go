package analytics

import (
	"context"

	"homefind-backend/internal/application/search"
	"homefind-backend/internal/domain"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

const unknownListing = "Unknown"

type Service struct {
	DB *gorm.DB
}

// Stats is the dashboard summary of one agent.
type Stats struct {
	ActiveListings int64 `json:"active_listings"`
	TotalLeads     int64 `json:"total_leads"`
	NewLeads       int64 `json:"new_leads"`
}

type ListingCounts struct {
	Total   int64 `json:"total"`
	Active  int64 `json:"active"`
	Pending int64 `json:"pending"`
	Sold    int64 `json:"sold"`
}

type LeadCounts struct {
	Total     int64 `json:"total"`
	New       int64 `json:"new"`
	Contacted int64 `json:"contacted"`
	Closed    int64 `json:"closed"`
}

// ListingLeads is one bar of the leads-by-listing chart.
type ListingLeads struct {
	ListingID uuid.UUID `json:"listing_id"`
	Name      string    `json:"name"`
	Leads     int64     `json:"leads"`
}

type Report struct {
	Listings       ListingCounts  `json:"listings"`
	Leads          LeadCounts     `json:"leads"`
	LeadsByListing []ListingLeads `json:"leads_by_listing"`
}

func (s *Service) count(ctx context.Context, model interface{}, agentID uuid.UUID, status string, dst *int64) func() error {
	return func() error {
		q := s.DB.WithContext(ctx).Model(model).Where("agent_id = ?", agentID)
		if status != "" {
			q = q.Where("status = ?", status)
		}
		return q.Count(dst).Error
	}
}

// Dashboard fetches the three summary counts concurrently.
func (s *Service) Dashboard(ctx context.Context, agentID uuid.UUID) (*Stats, error) {
	var st Stats
	g, gctx := errgroup.WithContext(ctx)
	g.Go(s.count(gctx, &domain.Listing{}, agentID, domain.ListingStatusActive, &st.ActiveListings))
	g.Go(s.count(gctx, &domain.Lead{}, agentID, "", &st.TotalLeads))
	g.Go(s.count(gctx, &domain.Lead{}, agentID, domain.LeadStatusNew, &st.NewLeads))
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &st, nil
}

// Analytics fetches listing and lead breakdowns and the per-listing lead
// counts concurrently. Leads whose listing is gone are shown as "Unknown".
func (s *Service) Analytics(ctx context.Context, agentID uuid.UUID) (*Report, error) {
	var r Report
	g, gctx := errgroup.WithContext(ctx)
	g.Go(s.count(gctx, &domain.Listing{}, agentID, "", &r.Listings.Total))
	g.Go(s.count(gctx, &domain.Listing{}, agentID, domain.ListingStatusActive, &r.Listings.Active))
	g.Go(s.count(gctx, &domain.Listing{}, agentID, domain.ListingStatusPending, &r.Listings.Pending))
	g.Go(s.count(gctx, &domain.Listing{}, agentID, domain.ListingStatusSold, &r.Listings.Sold))
	g.Go(s.count(gctx, &domain.Lead{}, agentID, "", &r.Leads.Total))
	g.Go(s.count(gctx, &domain.Lead{}, agentID, domain.LeadStatusNew, &r.Leads.New))
	g.Go(s.count(gctx, &domain.Lead{}, agentID, domain.LeadStatusContacted, &r.Leads.Contacted))
	g.Go(s.count(gctx, &domain.Lead{}, agentID, domain.LeadStatusClosed, &r.Leads.Closed))
	g.Go(func() error {
		rows, err := s.leadsByListing(gctx, agentID)
		r.LeadsByListing = rows
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &r, nil
}

func (s *Service) leadsByListing(ctx context.Context, agentID uuid.UUID) ([]ListingLeads, error) {
	var rows []struct {
		ListingID uuid.UUID
		Title     *string
		Leads     int64
	}
	err := s.DB.WithContext(ctx).
		Table("leads").
		Select("leads.listing_id AS listing_id, listings.title AS title, COUNT(*) AS leads").
		Joins("LEFT JOIN listings ON listings.listing_id = leads.listing_id").
		Where("leads.agent_id = ?", agentID).
		Group("leads.listing_id, listings.title").
		Order("leads DESC").Order("leads.listing_id ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make([]ListingLeads, 0, len(rows))
	for _, row := range rows {
		name := unknownListing
		if row.Title != nil && *row.Title != "" {
			name = search.Truncate(*row.Title, search.TitleBudget)
		}
		out = append(out, ListingLeads{ListingID: row.ListingID, Name: name, Leads: row.Leads})
	}
	return out, nil
}
