package app

import (
	"context"
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/you/incidentsvc/domain"
	"github.com/you/incidentsvc/internal/config"
	httpx "github.com/you/incidentsvc/internal/http"
	"github.com/you/incidentsvc/internal/http/handlers"
	"github.com/you/incidentsvc/internal/http/middleware"
	"github.com/you/incidentsvc/internal/infrastructure/audit"
	"github.com/you/incidentsvc/internal/infrastructure/auth"
	"github.com/you/incidentsvc/internal/infrastructure/captcha"
	"github.com/you/incidentsvc/internal/infrastructure/database"
	"github.com/you/incidentsvc/internal/infrastructure/geocoding"
	mongostore "github.com/you/incidentsvc/internal/infrastructure/mongo"
	"github.com/you/incidentsvc/internal/infrastructure/notifications"
	"github.com/you/incidentsvc/internal/infrastructure/otp"
	"github.com/you/incidentsvc/internal/infrastructure/repositories"
	"github.com/you/incidentsvc/internal/infrastructure/storage"
	"github.com/you/incidentsvc/internal/infrastructure/verifier"
	"github.com/you/incidentsvc/internal/services"
)

// Container holds all dependencies
type Container struct {
	// Config
	Config *config.Config
	Logger *zap.Logger

	// Infrastructure
	DB          *gorm.DB
	Mongo       *mongo.Client
	RedisClient *redis.Client

	// Adapters
	Reports         domain.ReportRepository
	Storage         domain.ObjectStorage
	MediaReader     domain.MediaReader
	Static          *httpx.StaticMount
	NotificationSvc domain.NotificationService
	OTPProvider     domain.OTPProvider
	Guard           domain.AntiAutomationGuard
	Slots           domain.VerifierSlot
	Geocoding       domain.GeocodingProvider
	Audit           domain.AuditLogger
	TokenSvc        domain.AdminTokenService

	// Services
	Pipeline *services.Pipeline
	Attempts *services.AttemptRegistry
	Admin    *services.AdminService
}

// NewContainer connects every backend named in cfg and builds the services on top of them
func NewContainer(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Container, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	container := &Container{Config: cfg, Logger: logger}

	steps := []func(context.Context) error{
		container.initStore,
		container.initRedis,
		container.initMedia,
		container.initAdapters,
	}
	for _, step := range steps {
		if err := step(ctx); err != nil {
			_ = container.Close()
			return nil, err
		}
	}
	container.initServices()

	return container, nil
}

// NewStore opens only the report store, for commands that do not serve traffic
func NewStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Container, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	container := &Container{Config: cfg, Logger: logger}
	if err := container.initStore(ctx); err != nil {
		_ = container.Close()
		return nil, err
	}
	return container, nil
}

func (c *Container) initStore(ctx context.Context) error {
	switch c.Config.StoreDriver {
	case "postgres", "sqlite":
		db, err := database.Open(c.Config.StoreDriver, c.Config.DSN, c.Logger)
		if err != nil {
			return err
		}
		c.DB = db
		if err := database.AutoMigrate(db); err != nil {
			return fmt.Errorf("migrate reports: %w", err)
		}
		c.Reports = repositories.NewReportRepository(db)
	case "mongo":
		db, err := c.mongoDatabase(ctx)
		if err != nil {
			return err
		}
		repo := mongostore.NewReportRepository(db, c.Config.ReportCollection)
		if err := repo.EnsureIndexes(ctx); err != nil {
			return err
		}
		c.Reports = repo
	default:
		return fmt.Errorf("unknown store driver %q", c.Config.StoreDriver)
	}
	c.Logger.Info("report store ready", zap.String("driver", c.Config.StoreDriver))
	return nil
}

func (c *Container) mongoDatabase(ctx context.Context) (*mongo.Database, error) {
	if c.Mongo == nil {
		client, err := mongostore.Connect(ctx, c.Config.MongoURI)
		if err != nil {
			return nil, err
		}
		c.Mongo = client
	}
	return c.Mongo.Database(c.Config.MongoDatabase), nil
}

func (c *Container) initRedis(ctx context.Context) error {
	rc, err := database.ConnectRedis(ctx, c.Config.RedisAddr, c.Config.RedisPassword, c.Config.RedisDB)
	if err != nil {
		return err
	}
	c.RedisClient = rc.Client
	return nil
}

func (c *Container) initMedia(ctx context.Context) error {
	switch c.Config.MediaBackend {
	case "local":
		c.Storage = storage.NewLocalDisk(c.Config.MediaDir, c.Config.MediaBaseURL)
		if strings.HasPrefix(c.Config.MediaBaseURL, "/") {
			c.Static = &httpx.StaticMount{URLPath: c.Config.MediaBaseURL, Dir: c.Config.MediaDir}
		}
	case "gridfs":
		db, err := c.mongoDatabase(ctx)
		if err != nil {
			return err
		}
		store, err := mongostore.NewMediaStore(db, c.Config.GridFSBucket, c.Config.MediaBaseURL)
		if err != nil {
			return err
		}
		c.Storage = store
		c.MediaReader = store
	default:
		return fmt.Errorf("unknown media backend %q", c.Config.MediaBackend)
	}
	return nil
}

func (c *Container) initAdapters(ctx context.Context) error {
	cfg := c.Config

	c.NotificationSvc = notifications.NewTwilioService(cfg.TwilioSID, cfg.TwilioToken, cfg.TwilioFrom, c.Logger)

	switch cfg.OTPProvider {
	case "redis":
		c.OTPProvider = otp.NewRedisProvider(c.NotificationSvc, c.RedisClient, otp.Config{
			Length:       cfg.OTP_Length,
			TTL:          cfg.OTP_TTL,
			MaxAttempts:  cfg.OTP_MaxAttempts,
			ResendWindow: cfg.OTP_ResendWindow,
			TestNumbers:  cfg.OTPTestNumbers,
		}, c.Logger)
	case "twilio_verify":
		if cfg.TwilioVerifyServiceSID == "" {
			return fmt.Errorf("otp provider twilio_verify needs twilio.verify_service_sid")
		}
		c.OTPProvider = notifications.NewTwilioVerifyProvider(cfg.TwilioSID, cfg.TwilioToken, cfg.TwilioVerifyServiceSID, cfg.OTP_TTL, c.Logger)
	default:
		return fmt.Errorf("unknown otp provider %q", cfg.OTPProvider)
	}

	switch cfg.CaptchaProvider {
	case "recaptcha":
		c.Guard = captcha.NewRecaptchaGuard(cfg.CaptchaSecret, cfg.CaptchaVerifyURL, cfg.CaptchaTimeout, c.Logger)
	case "test":
		c.Guard = captcha.NewTestGuard(false)
	case "disabled":
		c.Logger.Warn("captcha checks are disabled")
		c.Guard = captcha.NewTestGuard(true)
	default:
		return fmt.Errorf("unknown captcha provider %q", cfg.CaptchaProvider)
	}

	c.Slots = verifier.NewRedisSlot(c.RedisClient, cfg.VerifierLeaseTTL, c.Logger)

	switch cfg.GeocoderProvider {
	case "nominatim":
		c.Geocoding = geocoding.NewNominatim(cfg.GeocoderBaseURL, cfg.GeocoderUserAgent, cfg.GeocoderTimeout)
	case "static":
		table := make(map[string]domain.Coordinates, len(cfg.GeocoderStatic))
		for place, p := range cfg.GeocoderStatic {
			table[place] = domain.Coordinates{Latitude: p.Lat, Longitude: p.Lng}
		}
		c.Geocoding = geocoding.NewStatic(table, nil)
	default:
		return fmt.Errorf("unknown geocoder provider %q", cfg.GeocoderProvider)
	}

	c.Audit = audit.NewZapLogger(c.Logger)
	c.TokenSvc = auth.NewJWTService(cfg.AdminJWTSecret, cfg.AdminJWTIssuer, cfg.AdminTokenTTL)
	return nil
}

func (c *Container) initServices() {
	cfg := c.Config

	c.Pipeline = services.NewPipeline(
		services.NewFormValidator(validatorConfig(cfg.Form)),
		services.NewChallengeService(c.OTPProvider, c.Guard, c.Slots, c.Logger),
		services.NewBoundedGeocoder(c.Geocoding, cfg.GeocoderTimeout, c.Logger),
		services.NewMediaService(c.Storage, cfg.MediaMaxBytes, c.Logger),
		c.Reports,
		c.Audit,
		c.Logger,
		services.PipelineConfig{EnrichTimeout: cfg.EnrichTimeout},
	)
	c.Attempts = services.NewAttemptRegistry(cfg.AttemptTTL, c.Logger)
	c.Admin = services.NewAdminService(c.Reports, c.Audit, c.Logger)
}

// Router builds the HTTP handler for every public and admin route
func (c *Container) Router() *gin.Engine {
	if c.Config.GinMode != "" {
		gin.SetMode(c.Config.GinMode)
	}

	var mh *handlers.MediaHandlers
	if c.MediaReader != nil {
		mh = handlers.NewMediaHandlers(c.MediaReader, c.Logger)
	}

	return httpx.BuildRouter(
		c.Logger,
		handlers.NewReportHandlers(c.Pipeline, c.Attempts, c.Admin, c.Config.MediaMaxBytes, c.Logger),
		handlers.NewAdminHandlers(c.Admin, c.Logger),
		mh,
		middleware.AdminJWT(c.TokenSvc),
		c.Static,
	)
}

// validatorConfig converts the form rules file into validator settings
func validatorConfig(rules config.FormRules) services.ValidatorConfig {
	types := make([]domain.DisasterType, len(rules.AllowedTypes))
	for i, t := range rules.AllowedTypes {
		types[i] = domain.DisasterType(t)
	}
	return services.ValidatorConfig{
		AllowedTypes:      types,
		RequireFullName:   rules.RequireFullName,
		NameLettersOnly:   rules.NameLettersOnly,
		PhoneCountryCode:  rules.PhoneCountryCode,
		PhoneDigits:       rules.PhoneDigits,
		StrictLocation:    rules.StrictLocation,
		MaxDescriptionLen: rules.MaxDescriptionLen,
	}
}

// Close closes all connections
func (c *Container) Close() error {
	if c.RedisClient != nil {
		c.RedisClient.Close()
	}

	if c.Mongo != nil {
		if err := c.Mongo.Disconnect(context.Background()); err != nil {
			c.Logger.Warn("failed to disconnect mongo", zap.Error(err))
		}
	}

	if c.DB != nil {
		sqlDB, err := c.DB.DB()
		if err != nil {
			return err
		}
		return sqlDB.Close()
	}

	return nil
}
