package router

import (
	"fmt"

	agentsvc "homefind-backend/internal/application/agents"
	"homefind-backend/internal/application/analytics"
	emailsvc "homefind-backend/internal/application/emails"
	"homefind-backend/internal/application/geocoding"
	healthsvc "homefind-backend/internal/application/health"
	"homefind-backend/internal/application/identity"
	leadsvc "homefind-backend/internal/application/leads"
	lesvc "homefind-backend/internal/application/listingevents"
	listsvc "homefind-backend/internal/application/listings"
	"homefind-backend/internal/application/onboarding"
	"homefind-backend/internal/application/search"
	uploadsvc "homefind-backend/internal/application/uploads"
	usersvc "homefind-backend/internal/application/user"
	"homefind-backend/internal/config"
	"homefind-backend/internal/infrastructure/database"
	agenthandler "homefind-backend/internal/interfaces/handlers/agents"
	authhandler "homefind-backend/internal/interfaces/handlers/auth"
	billinghandler "homefind-backend/internal/interfaces/handlers/billing"
	healthhandler "homefind-backend/internal/interfaces/handlers/health"
	leadhandler "homefind-backend/internal/interfaces/handlers/leads"
	listhandler "homefind-backend/internal/interfaces/handlers/listings"
	prophandler "homefind-backend/internal/interfaces/handlers/properties"
	uploadhandler "homefind-backend/internal/interfaces/handlers/uploads"
	userhandler "homefind-backend/internal/interfaces/handlers/user"
	"homefind-backend/internal/middleware"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

type gormDBPinger struct {
	db *gorm.DB
}

func (g *gormDBPinger) Ping() error {
	if g == nil || g.db == nil {
		return nil
	}
	sqlDB, err := g.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}

// CreateApp wires stores, services and routes. Without DATABASE_URL and
// REDIS_URL only the health routes are mounted.
func CreateApp(cfg *config.Config) (*fiber.App, *gorm.DB, *redis.Client, error) {
	app := fiber.New(fiber.Config{
		DisableStartupMessage:   true,
		ErrorHandler:            middleware.ErrorHandler,
		EnableTrustedProxyCheck: true,
	})

	app.Use(middleware.Tracing())
	app.Use(middleware.CORS(middleware.CORSConfig{
		AllowedSuffix: cfg.FrontendURLEndsWith,
		DevPassword:   cfg.DevPassword,
	}))

	var rdb *redis.Client
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("parse REDIS_URL: %w", err)
		}
		rdb = redis.NewClient(opts)
	}

	var db *gorm.DB
	if cfg.DatabaseURL != "" {
		var err error
		db, err = database.Open(cfg.DatabaseURL)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("open database: %w", err)
		}
		if err := database.AutoMigrate(db); err != nil {
			return nil, nil, nil, fmt.Errorf("migrate: %w", err)
		}
	}

	var ids *identity.RedisProvider
	if rdb != nil {
		ids = &identity.RedisProvider{Rdb: rdb}
	}

	// Raw body, signed by Stripe; registered ahead of the session.
	stripeWebhook := &billinghandler.WebhookHandler{WebhookSecret: cfg.StripeWebhookSecret, DefaultPlan: cfg.AgentPlan}
	if ids != nil {
		stripeWebhook.Plans = ids
	}
	app.Post("/api/v1/stripe/webhook", func(c *fiber.Ctx) error {
		if stripeWebhook.Plans == nil {
			return c.Status(fiber.StatusServiceUnavailable).SendString("Webhook Error: plan store unavailable")
		}
		return stripeWebhook.HandleWebhook(c)
	})

	app.Use(middleware.Session(rdb))
	app.Use(middleware.HealthMarker(rdb))
	app.Use(middleware.RouteLogger())

	checker := &healthsvc.Checker{
		Rdb: rdb,
		Probes: []healthsvc.Probe{
			{Name: "frontend", URL: cfg.SiteURL},
			{Name: "mapbox", URL: "https://api.mapbox.com"},
			{Name: "stripe", URL: "https://api.stripe.com"},
		},
	}
	if db != nil {
		checker.DB = &gormDBPinger{db: db}
	}
	hh := &healthhandler.Handlers{Rdb: rdb, Checker: checker, HealthAdminKey: cfg.HealthAdminKey}
	app.Get("/", hh.Dashboard)
	app.Get("/reset", hh.Reset)
	app.Get("/health/json", hh.JSON)
	app.Get("/health/errors", hh.Errors)

	if db == nil || rdb == nil {
		log.Warn().Bool("db", db != nil).Bool("redis", rdb != nil).Msg("store not configured, serving health routes only")
		return app, db, rdb, nil
	}

	assembler := search.Assembler{ImageBaseURL: uploadsvc.PublicBase(cfg.SupabaseURL)}
	recon := &onboarding.Reconciler{DB: db, Identity: ids}
	agents := &agentsvc.Service{DB: db, Identity: ids, Plan: cfg.AgentPlan}

	var mailer emailsvc.Sender
	if cfg.SendinblueAPIKey != "" {
		mailer = &emailsvc.BrevoClient{APIKey: cfg.SendinblueAPIKey, MailFrom: cfg.MailFrom, SiteURL: cfg.SiteURL}
	}
	var geocoder geocoding.Geocoder
	if cfg.MapboxToken != "" {
		geocoder = &geocoding.MapboxClient{Token: cfg.MapboxToken}
	}

	// Public catalogue
	ph := &prophandler.Handlers{Service: &search.Service{DB: db, Rdb: rdb}, Assembler: assembler}
	api := app.Group("/api/v1")
	api.Get("/properties", ph.Search)
	api.Get("/properties/:id", ph.Get)
	api.Get("/amenities", ph.Amenities)

	// Session user
	ah := &authhandler.Handlers{Onboarding: recon, Identity: ids, AgentPlan: cfg.AgentPlan}
	api.Get("/auth/me", ah.Me)

	uh := &userhandler.Handlers{Service: &usersvc.Service{DB: db, Identity: ids}, Assembler: assembler}
	lh := &leadhandler.Handlers{Service: &leadsvc.Service{DB: db, Onboarding: recon, Mailer: mailer}}
	auth := middleware.RequireAuth()
	api.Post("/onboarding/user", auth, uh.CompleteOnboarding)
	api.Get("/profile", auth, uh.GetProfile)
	api.Put("/profile", auth, uh.UpdateProfile)
	api.Get("/saved", auth, uh.Saved)
	api.Get("/saved/ids", auth, uh.SavedIDs)
	api.Post("/saved/:listing_id/toggle", auth, uh.ToggleSaved)
	api.Post("/leads", auth, lh.Create)

	// Agent dashboard
	dg := app.Group("/api/v1/dashboard", auth, middleware.RequirePlan(ids, cfg.AgentPlan))

	agh := &agenthandler.Handlers{Service: agents, Reports: &analytics.Service{DB: db}}
	dg.Post("/agent", agh.Ensure)
	dg.Post("/onboarding", agh.CompleteOnboarding)
	dg.Get("/profile", agh.GetProfile)
	dg.Put("/profile", agh.UpdateProfile)
	dg.Get("/stats", agh.Stats)
	dg.Get("/analytics", agh.Analytics)

	lsh := &listhandler.Handlers{
		Service:   &listsvc.Service{DB: db, Geocoder: geocoder, EventLog: &lesvc.Service{DB: db}},
		Geocoder:  geocoder,
		Assembler: assembler,
	}
	dg.Get("/listings", lsh.List)
	dg.Post("/listings", lsh.Create)
	dg.Put("/listings/:id", lsh.Update)
	dg.Patch("/listings/:id/status", lsh.UpdateStatus)
	dg.Delete("/listings/:id", lsh.Delete)
	dg.Get("/listings/:id/events", lsh.Events)
	dg.Get("/geocode", lsh.Geocode)

	dg.Get("/leads", lh.List)
	dg.Patch("/leads/:id/status", lh.UpdateStatus)

	uph := &uploadhandler.Handlers{
		Service: &uploadsvc.Service{
			Client:      &uploadsvc.HTTPClient{BaseURL: cfg.SupabaseURL, SecretKey: cfg.SupabaseSecretKey},
			SupabaseURL: cfg.SupabaseURL,
		},
		Agents: agents,
	}
	dg.Post("/uploads/listing-image", uph.ListingImage)

	return app, db, rdb, nil
}
