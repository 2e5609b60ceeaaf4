package bootstrap

import (
	"os"

	"homefind-backend/internal/config"
	"homefind-backend/internal/interfaces/router"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// App is a wired server with the stores it opened.
type App struct {
	Fiber  *fiber.App
	DB     *gorm.DB
	Redis  *redis.Client
	Config *config.Config
}

// New loads config, sets up logging and creates the Fiber app. The serverless
// handler and the local server both start here.
func New() (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	SetupLogging(cfg)
	app, db, rdb, err := router.CreateApp(cfg)
	if err != nil {
		return nil, err
	}
	return &App{Fiber: app, DB: db, Redis: rdb, Config: cfg}, nil
}

// SetupLogging uses a console writer outside production and JSON otherwise.
func SetupLogging(cfg *config.Config) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	if cfg.IsProduction() {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
		return
	}
	zerolog.SetGlobalLevel(zerolog.DebugLevel)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"})
}
