package config

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// DefaultAPIName is the name under which the car park REST API endpoint is registered
const DefaultAPIName = "carParkApi"

// Config represents the complete application configuration
type Config struct {
	Server        ServerConfig
	Database      DatabaseConfig
	SDK           SDKConfig
	Cognito       CognitoConfig
	Redis         RedisConfig
	Notifications NotificationsConfig
	Parking       ParkingConfig
	Scheduler     SchedulerConfig
	Observability ObservabilityConfig
	Environment   string
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string
	Port            int
	BasePath        string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

// DatabaseConfig holds PostgreSQL database configuration.
// When ConnectionString (from DATABASE_URL) is set, it takes precedence over individual fields.
type DatabaseConfig struct {
	ConnectionString string
	Host             string
	Port             int
	User             string
	Password         string
	Database         string
	SSLMode          string
	MaxOpenConns     int
	MaxIdleConns     int
	ConnMaxLifetime  time.Duration
}

// SDKConfig is the auth/API client configuration handed to the sdk package.
// Values are taken as-is from the environment; missing values only show up
// as failures from the client itself.
type SDKConfig struct {
	Auth AuthSDKConfig
	API  APISDKConfig
}

// AuthSDKConfig identifies the Cognito user pool the web client signs in against
type AuthSDKConfig struct {
	Region              string
	UserPoolID          string
	UserPoolWebClientID string
	MandatorySignIn     bool
}

// APISDKConfig lists the REST endpoints the client may call
type APISDKConfig struct {
	Endpoints []APIEndpoint
}

// APIEndpoint is a named REST API base URL
type APIEndpoint struct {
	Name     string
	Endpoint string
	Region   string
}

// CognitoConfig holds hosted UI settings for the OAuth2 login flow
type CognitoConfig struct {
	ClientSecret string
	Domain       string // e.g. https://car-park.auth.eu-west-1.amazoncognito.com
	RedirectURI  string // OAuth2 callback URL
	HookSecret   string // shared secret expected from the post-confirmation trigger
}

// RedisConfig holds the connection used by the notifier
type RedisConfig struct {
	URL      string
	Addr     string
	Password string
	DB       int
}

// NotificationsConfig controls where payment notifications are published
type NotificationsConfig struct {
	Channel        string
	SubscribersKey string
}

// ParkingConfig holds tariff settings
type ParkingConfig struct {
	HourlyRate    float64
	OperatorGroup string // Cognito group allowed to post detections and look up plates
}

// SchedulerConfig holds cron schedules for background jobs
type SchedulerConfig struct {
	JWKSRefreshSchedule string
}

// ObservabilityConfig holds logging configuration
type ObservabilityConfig struct {
	LogLevel  string
	LogFormat string // json or console
}

// New creates a new Config instance by loading environment variables
func New(ctx context.Context) (*Config, error) {
	_ = godotenv.Load(".env")

	region := getEnv("APP_REGION", "")

	cfg := &Config{
		Environment: getEnv("ENVIRONMENT", "development"),
		Server: ServerConfig{
			Host:            getEnv("SERVER_HOST", "0.0.0.0"),
			Port:            getPort(),
			BasePath:        getEnv("BASE_URL", "/"),
			ReadTimeout:     getEnvAsDuration("SERVER_READ_TIMEOUT", 30*time.Second),
			WriteTimeout:    getEnvAsDuration("SERVER_WRITE_TIMEOUT", 30*time.Second),
			ShutdownTimeout: getEnvAsDuration("SERVER_SHUTDOWN_TIMEOUT", 10*time.Second),
		},
		Database: loadDatabaseConfig(),
		SDK: SDKConfig{
			Auth: AuthSDKConfig{
				Region:              region,
				UserPoolID:          getEnv("APP_USER_POOL_ID", ""),
				UserPoolWebClientID: getEnv("APP_USER_POOL_CLIENT_ID", ""),
				MandatorySignIn:     getEnvAsBool("APP_MANDATORY_SIGN_IN", true),
			},
			API: APISDKConfig{
				Endpoints: []APIEndpoint{
					{
						Name:     getEnv("APP_API_NAME", DefaultAPIName),
						Endpoint: getEnv("APP_API_URL", ""),
						Region:   getEnv("APP_API_REGION", region),
					},
				},
			},
		},
		Cognito: CognitoConfig{
			ClientSecret: getEnv("COGNITO_CLIENT_SECRET", ""),
			Domain:       getEnv("COGNITO_DOMAIN", ""),
			RedirectURI:  getEnv("COGNITO_REDIRECT_URI", "http://localhost:8080/auth/callback"),
			HookSecret:   getEnv("COGNITO_HOOK_SECRET", ""),
		},
		Redis: RedisConfig{
			URL:      getEnv("REDIS_URL", ""),
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		Notifications: NotificationsConfig{
			Channel:        getEnv("NOTIFICATIONS_CHANNEL", "car-park:payments"),
			SubscribersKey: getEnv("NOTIFICATIONS_SUBSCRIBERS_KEY", "car-park:subscribers"),
		},
		Parking: ParkingConfig{
			HourlyRate:    getEnvAsFloat("PARKING_HOURLY_RATE", 2),
			OperatorGroup: getEnv("PARKING_OPERATOR_GROUP", "operators"),
		},
		Scheduler: SchedulerConfig{
			JWKSRefreshSchedule: getEnv("JWKS_REFRESH_SCHEDULE", "@every 1h"),
		},
		Observability: ObservabilityConfig{
			LogLevel:  getEnv("LOG_LEVEL", "info"),
			LogFormat: getEnv("LOG_FORMAT", "json"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks if all required configuration fields are set.
// The SDK settings are deliberately left unchecked.
func (c *Config) Validate() error {
	if c.Database.ConnectionString == "" && c.Database.Host == "" {
		return fmt.Errorf("database configuration required: set DATABASE_URL or DB_HOST")
	}
	if c.Database.ConnectionString == "" {
		if c.Database.User == "" {
			return fmt.Errorf("database user is required")
		}
		if c.Database.Database == "" {
			return fmt.Errorf("database name is required")
		}
	}

	if c.IsProduction() {
		if c.Cognito.Domain == "" {
			return fmt.Errorf("cognito domain is required in production")
		}
	}

	if c.Parking.HourlyRate < 0 {
		return fmt.Errorf("parking hourly rate must not be negative")
	}

	if c.Observability.LogLevel == "" {
		return fmt.Errorf("log level is required")
	}

	return nil
}

// IsProduction returns true if running in production environment
func (c *Config) IsProduction() bool {
	return c.Environment == "production" || c.Environment == "prod"
}

// IsDevelopment returns true if running in development environment
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development" || c.Environment == "dev"
}

// Endpoint looks up a configured API endpoint by name
func (c SDKConfig) Endpoint(name string) (APIEndpoint, bool) {
	for _, ep := range c.API.Endpoints {
		if ep.Name == name {
			return ep, true
		}
	}
	return APIEndpoint{}, false
}

// Issuer returns the token issuer URL of the configured user pool
func (c AuthSDKConfig) Issuer() string {
	return fmt.Sprintf("https://cognito-idp.%s.amazonaws.com/%s", c.Region, c.UserPoolID)
}

// DSN returns the PostgreSQL connection string.
// Uses ConnectionString (from DATABASE_URL) when set; otherwise builds from individual fields.
func (c *DatabaseConfig) DSN() string {
	if c.ConnectionString != "" {
		return c.ConnectionString
	}
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

// LogString returns a safe string for logging (no password). Parses ConnectionString when set.
func (c *DatabaseConfig) LogString() string {
	if c.ConnectionString != "" {
		u, err := url.Parse(c.ConnectionString)
		if err == nil {
			host := u.Hostname()
			port := u.Port()
			if port == "" {
				port = "5432"
			}
			db := strings.TrimPrefix(u.Path, "/")
			return fmt.Sprintf("host=%s port=%s database=%s", host, port, db)
		}
		return "host=<from DATABASE_URL>"
	}
	return fmt.Sprintf("host=%s port=%d database=%s", c.Host, c.Port, c.Database)
}

func loadDatabaseConfig() DatabaseConfig {
	dbURL := getEnv("DATABASE_URL", "")
	if dbURL != "" {
		return DatabaseConfig{
			ConnectionString: dbURL,
			MaxOpenConns:     getEnvAsInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:     getEnvAsInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime:  getEnvAsDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute),
		}
	}
	return DatabaseConfig{
		Host:            getEnv("DB_HOST", "localhost"),
		Port:            getEnvAsInt("DB_PORT", 5432),
		User:            getEnv("DB_USER", "carpark"),
		Password:        getEnv("DB_PASSWORD", "carpark"),
		Database:        getEnv("DB_NAME", "carpark"),
		SSLMode:         getEnv("DB_SSLMODE", "disable"),
		MaxOpenConns:    getEnvAsInt("DB_MAX_OPEN_CONNS", 25),
		MaxIdleConns:    getEnvAsInt("DB_MAX_IDLE_CONNS", 5),
		ConnMaxLifetime: getEnvAsDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute),
	}
}

// Address returns the HTTP server address
func (c *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Helper functions

// getPort returns the server port from PORT or SERVER_PORT env vars (default: 8080)
func getPort() int {
	for _, key := range []string{"PORT", "SERVER_PORT"} {
		if value := os.Getenv(key); value != "" {
			if p, err := strconv.Atoi(value); err == nil {
				return p
			}
		}
	}
	return 8080
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
