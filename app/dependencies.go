package app

import (
	"context"
	"fmt"
	"path"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"
	"github.com/upb/car-park/auth"
	"github.com/upb/car-park/cognito"
	"github.com/upb/car-park/config"
	"github.com/upb/car-park/middleware"
	"github.com/upb/car-park/navigation"
	"github.com/upb/car-park/notifications"
	"github.com/upb/car-park/repositories"
	"github.com/upb/car-park/repositories/postgres"
	"github.com/upb/car-park/sdk"
	"github.com/upb/car-park/services"
	"github.com/upb/car-park/services/parking"
	"github.com/upb/car-park/services/profile"
	"github.com/upb/car-park/views"
	"go.uber.org/zap"
)

// APIPrefix is where the REST API is mounted below the base path
const APIPrefix = "/api/v1"

// Dependencies holds all application dependencies.
// This is the central wiring point for dependency injection.
type Dependencies struct {
	// Infrastructure
	Config *config.Config
	DB     *postgres.DB
	Logger *zap.Logger
	Redis  *redis.Client

	// Repositories
	RepoFactory     *postgres.RepositoryFactory
	Profiles        repositories.ProfileRepository
	ParkingSessions repositories.ParkingSessionRepository
	TxManager       repositories.TransactionManager

	// Notifications
	Notifier   notifications.Notifier
	Dispatcher *notifications.Dispatcher

	// Client SDK
	Auth *sdk.Auth
	API  *sdk.API

	// Pages
	Routes *navigation.Table
	Guard  *navigation.Guard

	// Services
	ProfileService *profile.ProfileService
	ParkingService *parking.ParkingService

	// Auth
	AuthHandler    *auth.Handler
	AuthMiddleware *middleware.AuthMiddleware

	validator   *cognito.CognitoValidator
	scheduler   *cron.Cron
	dispatching bool
}

// NewDependencies opens the database, prepares the schema and wires up all
// application dependencies
func NewDependencies(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Dependencies, error) {
	factory, err := postgres.NewRepositoryFactory(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	if err := factory.GetDB().InitSchema(ctx); err != nil {
		_ = factory.Close()
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	return newDependencies(ctx, cfg, factory, logger)
}

// NewDependenciesFromDB wires the application around an existing pool
func NewDependenciesFromDB(ctx context.Context, cfg *config.Config, db *postgres.DB, logger *zap.Logger) (*Dependencies, error) {
	return newDependencies(ctx, cfg, postgres.NewRepositoryFactoryFromDB(db, logger), logger)
}

func newDependencies(ctx context.Context, cfg *config.Config, factory *postgres.RepositoryFactory, logger *zap.Logger) (*Dependencies, error) {
	deps := &Dependencies{
		Config:      cfg,
		Logger:      logger,
		RepoFactory: factory,
		DB:          factory.GetDB(),
	}

	deps.initRepositories()
	deps.initNotifications(ctx)
	deps.initAuth()

	if err := deps.initPages(); err != nil {
		deps.shutdown()
		return nil, fmt.Errorf("failed to initialize pages: %w", err)
	}

	deps.ProfileService = profile.NewProfileService(deps.Profiles, deps.Notifier, logger)
	deps.ParkingService = parking.NewParkingService(
		deps.ParkingSessions,
		deps.TxManager,
		deps.Dispatcher,
		cfg.Parking.HourlyRate,
		logger,
	)

	if err := deps.startBackground(); err != nil {
		deps.shutdown()
		return nil, fmt.Errorf("failed to start background jobs: %w", err)
	}

	logger.Info("all dependencies initialized successfully")
	return deps, nil
}

func (d *Dependencies) initRepositories() {
	repos := d.RepoFactory.NewRepositories()

	d.Profiles = repos.Profiles
	d.ParkingSessions = repos.ParkingSessions
	d.TxManager = d.RepoFactory.GetTransactionManager()

	d.Logger.Info("repositories initialized")
}

// initNotifications connects to Redis. Payment notifications are not worth
// refusing to start over, so an unreachable Redis falls back to logging.
func (d *Dependencies) initNotifications(ctx context.Context) {
	d.Notifier = notifications.NewLogNotifier(d.Logger)

	rdb, err := notifications.NewRedisClient(d.Config.Redis)
	if err != nil {
		d.Logger.Warn("redis misconfigured, notifications disabled", zap.Error(err))
	} else {
		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()

		if err := rdb.Ping(pingCtx).Err(); err != nil {
			d.Logger.Warn("redis unreachable, notifications disabled", zap.Error(err))
			_ = rdb.Close()
		} else {
			d.Redis = rdb
			d.Notifier = notifications.NewRedisNotifier(rdb, d.Config.Notifications, d.Logger)
			d.Logger.Info("redis notifier initialized",
				zap.String("channel", d.Config.Notifications.Channel))
		}
	}

	d.Dispatcher = notifications.NewDispatcher(d.Profiles, d.Notifier, d.Logger, notifications.DefaultDispatcherConfig())
}

func (d *Dependencies) initAuth() {
	cfg := d.Config

	var principals sdk.TokenValidator
	if cfg.SDK.Auth.UserPoolID == "" || cfg.SDK.Auth.UserPoolWebClientID == "" {
		d.Logger.Warn("user pool not configured, every token will be rejected")
		principals = rejectAllValidator{}
	} else {
		d.validator = cognito.NewCognitoValidator(cognito.Config{
			Region:      cfg.SDK.Auth.Region,
			UserPoolID:  cfg.SDK.Auth.UserPoolID,
			ClientID:    cfg.SDK.Auth.UserPoolWebClientID,
			CacheTTL:    time.Hour,
			HTTPTimeout: 10 * time.Second,
		})
		principals = d.validator
	}

	d.AuthMiddleware = middleware.NewAuthMiddleware(&cognitoTokenValidatorAdapter{validator: principals}, d.Logger)
	d.Auth = sdk.NewAuth(cfg.SDK.Auth, principals, d.Logger)
	d.API = sdk.NewAPI(d.apiConfig(), sdk.BearerHeader(d.Auth, d.Logger), d.Logger)

	exchanger := services.NewCognitoTokenExchanger(cfg.Cognito.Domain, cfg.SDK.Auth.UserPoolWebClientID, cfg.Cognito.ClientSecret)
	d.AuthHandler = auth.NewHandler(cfg, exchanger, principals, d.Logger)
	d.Logger.Info("auth initialized")
}

// apiConfig points an endpoint without URL at this server's own REST API
func (d *Dependencies) apiConfig() config.APISDKConfig {
	endpoints := make([]config.APIEndpoint, len(d.Config.SDK.API.Endpoints))
	copy(endpoints, d.Config.SDK.API.Endpoints)

	for i := range endpoints {
		if endpoints[i].Endpoint == "" {
			endpoints[i].Endpoint = fmt.Sprintf("http://127.0.0.1:%d%s",
				d.Config.Server.Port, d.SitePath(APIPrefix))
		}
	}
	return config.APISDKConfig{Endpoints: endpoints}
}

func (d *Dependencies) initPages() error {
	base := d.Config.Server.BasePath

	table, err := navigation.NewTable(
		navigation.Route{Path: "/", Name: navigation.RouteHome, View: views.NewHome(base)},
		navigation.Route{Path: "/login", Name: navigation.RouteLogin, View: views.NewLogin(base, d.SitePath("/auth/login"))},
		navigation.Route{Path: "/register", Name: navigation.RouteRegister, View: views.NewRegister(base, d.SitePath("/auth/register"))},
		navigation.Route{
			Path:         "/profile",
			Name:         navigation.RouteProfile,
			View:         views.NewProfile(base, d.API, apiName(d.Config), d.Logger),
			RequiresAuth: true,
		},
	)
	if err != nil {
		return err
	}

	guard, err := navigation.NewGuard(table, d.Auth, navigation.DefaultGuardConfig(), d.Logger)
	if err != nil {
		return err
	}

	d.Routes = table
	d.Guard = guard
	return nil
}

// startBackground starts the notification workers and the JWKS refresh job
func (d *Dependencies) startBackground() error {
	if err := d.Dispatcher.Start(); err != nil {
		return err
	}
	d.dispatching = true

	if d.validator == nil {
		return nil
	}

	d.scheduler = cron.New()
	_, err := d.scheduler.AddFunc(d.Config.Scheduler.JWKSRefreshSchedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := d.validator.Refresh(ctx); err != nil {
			d.Logger.Warn("jwks refresh failed", zap.Error(err))
			return
		}
		d.Logger.Debug("jwks refreshed")
	})
	if err != nil {
		return fmt.Errorf("invalid jwks refresh schedule %q: %w", d.Config.Scheduler.JWKSRefreshSchedule, err)
	}

	d.scheduler.Start()
	d.Logger.Info("jwks refresh scheduled", zap.String("schedule", d.Config.Scheduler.JWKSRefreshSchedule))
	return nil
}

// SitePath joins p onto the configured base path
func (d *Dependencies) SitePath(p string) string {
	base := d.Config.Server.BasePath
	if base == "" {
		base = "/"
	}
	return path.Join(base, p)
}

func apiName(cfg *config.Config) string {
	if len(cfg.SDK.API.Endpoints) > 0 {
		return cfg.SDK.API.Endpoints[0].Name
	}
	return config.DefaultAPIName
}

// cognitoTokenValidatorAdapter adapts the cognito validator to middleware.TokenValidator
type cognitoTokenValidatorAdapter struct {
	validator sdk.TokenValidator
}

func (a *cognitoTokenValidatorAdapter) ValidateToken(ctx context.Context, token string) (*middleware.Claims, error) {
	parsed, err := a.validator.ValidateToken(ctx, token)
	if err != nil {
		return nil, err
	}
	return toMiddlewareClaims(parsed), nil
}

func toMiddlewareClaims(parsed *cognito.ParsedClaims) *middleware.Claims {
	claims := &middleware.Claims{
		Sub:           parsed.Sub,
		Email:         parsed.Email,
		EmailVerified: parsed.EmailVerified,
		Username:      parsed.Username,
		Groups:        parsed.Groups,
		TokenUse:      parsed.TokenUse,
	}
	if !parsed.ExpiresAt.IsZero() {
		claims.Exp = parsed.ExpiresAt.Unix()
	}
	if !parsed.IssuedAt.IsZero() {
		claims.Iat = parsed.IssuedAt.Unix()
	}
	return claims
}

// rejectAllValidator rejects all tokens (used when the user pool is not configured)
type rejectAllValidator struct{}

func (rejectAllValidator) ValidateToken(context.Context, string) (*cognito.ParsedClaims, error) {
	return nil, fmt.Errorf("authentication not configured")
}

// Close stops background work and releases connections
func (d *Dependencies) Close(ctx context.Context) error {
	d.Logger.Info("shutting down dependencies")

	var errs []error

	if d.scheduler != nil {
		select {
		case <-d.scheduler.Stop().Done():
		case <-ctx.Done():
			errs = append(errs, fmt.Errorf("jwks refresh job still running: %w", ctx.Err()))
		}
		d.scheduler = nil
	}

	if d.dispatching {
		d.dispatching = false
		if err := d.Dispatcher.Stop(d.stopTimeout(ctx)); err != nil {
			errs = append(errs, fmt.Errorf("failed to stop notification dispatcher: %w", err))
		}
	}

	if d.Redis != nil {
		if err := d.Redis.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close redis: %w", err))
		}
		d.Redis = nil
	}

	if d.RepoFactory != nil {
		if err := d.RepoFactory.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close database: %w", err))
		} else {
			d.Logger.Info("database connection closed")
		}
		d.RepoFactory = nil
	}

	_ = d.Logger.Sync()

	if len(errs) > 0 {
		return fmt.Errorf("errors during shutdown: %v", errs)
	}
	return nil
}

// shutdown releases what newDependencies built before failing
func (d *Dependencies) shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = d.Close(ctx)
}

func (d *Dependencies) stopTimeout(ctx context.Context) time.Duration {
	if deadline, ok := ctx.Deadline(); ok {
		if remaining := time.Until(deadline); remaining > 0 {
			return remaining
		}
		return time.Millisecond
	}
	return 10 * time.Second
}
