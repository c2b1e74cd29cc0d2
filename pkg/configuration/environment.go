package configuration

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/planventa/planventa/pkg/logging"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

const Production = "production"

var singleton = sync.OnceValue(func() *Configuration {
	c := &Configuration{}
	if err := c.load([]string{".env", ".env.local"}); err != nil {
		c.Unload()
		panic(err)
	}
	return c
})

// LoadEnv loads the given env files from the working directory. When none of
// them exist there it retries from the module root (the nearest ancestor
// holding a go.mod), so tests and CLI invocations from subdirectories pick up
// the repository's .env files.
func LoadEnv(envFiles []string) (int, error) {
	existing := filterExisting(".", envFiles)
	if len(existing) == 0 {
		root, ok := findModuleRoot()
		if !ok {
			return 0, nil
		}
		existing = filterExisting(root, envFiles)
		if len(existing) == 0 {
			return 0, nil
		}
	}
	return len(existing), godotenv.Load(existing...)
}

func filterExisting(dir string, envFiles []string) []string {
	existing := make([]string, 0, len(envFiles))
	for _, file := range envFiles {
		path := file
		if dir != "." {
			path = filepath.Join(dir, file)
		}
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			existing = append(existing, path)
		}
	}
	return existing
}

func findModuleRoot() (string, bool) {
	dir, err := os.Getwd()
	if err != nil {
		return "", false
	}
	for {
		if info, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil && !info.IsDir() {
			return dir, true
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", false
		}
		dir = parent
	}
}

type DatabaseOptions struct {
	Opts     string `env:"-"`
	Name     string `env:"DB_NAME" envDefault:"planventa"`
	Host     string `env:"DB_HOST" envDefault:"localhost"`
	Port     string `env:"DB_PORT" envDefault:"5432"`
	User     string `env:"DB_USER" envDefault:"postgres"`
	Password string `env:"DB_PASSWORD" envDefault:"postgres"`
}

func (d *DatabaseOptions) ConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s dbname=%s password=%s sslmode=disable",
		d.Host, d.Port, d.User, d.Name, d.Password,
	)
}

type LogOptions struct {
	AppName string `env:"LOG_APP_NAME" envDefault:"planventa"`
	LogPath string `env:"LOG_PATH" envDefault:"./logs/app.log"`
}

type OpenTelemetryOptions struct {
	Enabled     bool   `env:"OTEL_ENABLED" envDefault:"false"`
	TempoURL    string `env:"OTEL_TEMPO_URL" envDefault:"localhost:4318"`
	ServiceName string `env:"OTEL_SERVICE_NAME" envDefault:"planventa"`
}

type PrometheusOptions struct {
	Enabled bool   `env:"PROMETHEUS_METRICS_ENABLED" envDefault:"false"`
	Path    string `env:"PROMETHEUS_METRICS_PATH" envDefault:"/debug/prometheus"`
}

type RateLimitOptions struct {
	Enabled   bool `env:"RATE_LIMIT_ENABLED" envDefault:"true"`
	GlobalRPS int  `env:"RATE_LIMIT_GLOBAL_RPS" envDefault:"1000"`
	UploadRPM int  `env:"RATE_LIMIT_UPLOAD_RPM" envDefault:"60"`
}

// Validate checks the rate limit configuration for errors
func (r *RateLimitOptions) Validate() error {
	if r.GlobalRPS < 0 {
		return fmt.Errorf("rate limit GlobalRPS must be non-negative, got %d", r.GlobalRPS)
	}
	if r.GlobalRPS > 1000000 {
		return fmt.Errorf("rate limit GlobalRPS too high, maximum is 1,000,000, got %d", r.GlobalRPS)
	}
	if r.UploadRPM < 0 {
		return fmt.Errorf("rate limit UploadRPM must be non-negative, got %d", r.UploadRPM)
	}
	return nil
}

// ImportOptions tunes the bulk import pipeline. Defaults match the documented
// contract: files up to 10 MiB and 10,000 data rows, 25 rows or fewer handled
// synchronously, background jobs committed in chunks of 100 rows.
type ImportOptions struct {
	SyncRowThreshold  int           `env:"IMPORT_SYNC_ROW_THRESHOLD" envDefault:"25"`
	SyncBudget        time.Duration `env:"IMPORT_SYNC_BUDGET" envDefault:"3s"`
	ChunkSize         int           `env:"IMPORT_CHUNK_SIZE" envDefault:"100"`
	Workers           int           `env:"IMPORT_WORKERS" envDefault:"2"`
	PollInterval      time.Duration `env:"IMPORT_POLL_INTERVAL" envDefault:"1s"`
	LeaseTTL          time.Duration `env:"IMPORT_LEASE_TTL" envDefault:"30s"`
	CommitRetries     int           `env:"IMPORT_COMMIT_RETRIES" envDefault:"3"`
	MaxFileSize       int64         `env:"IMPORT_MAX_FILE_SIZE" envDefault:"10485760"`
	MaxRows           int           `env:"IMPORT_MAX_ROWS" envDefault:"10000"`
	RowsPerSecond     int           `env:"IMPORT_ROWS_PER_SECOND" envDefault:"50"`
	ResolverCacheSize int           `env:"IMPORT_RESOLVER_CACHE_SIZE" envDefault:"512"`
}

func (o *ImportOptions) Validate() error {
	if o.SyncRowThreshold < 0 {
		return fmt.Errorf("import SyncRowThreshold must be non-negative, got %d", o.SyncRowThreshold)
	}
	if o.SyncBudget <= 0 {
		return fmt.Errorf("import SyncBudget must be positive, got %s", o.SyncBudget)
	}
	if o.ChunkSize < 1 {
		return fmt.Errorf("import ChunkSize must be at least 1, got %d", o.ChunkSize)
	}
	if o.Workers < 1 {
		return fmt.Errorf("import Workers must be at least 1, got %d", o.Workers)
	}
	if o.LeaseTTL <= 0 {
		return fmt.Errorf("import LeaseTTL must be positive, got %s", o.LeaseTTL)
	}
	if o.CommitRetries < 1 {
		return fmt.Errorf("import CommitRetries must be at least 1, got %d", o.CommitRetries)
	}
	if o.MaxFileSize < 1 {
		return fmt.Errorf("import MaxFileSize must be at least 1, got %d", o.MaxFileSize)
	}
	if o.MaxRows < 1 {
		return fmt.Errorf("import MaxRows must be at least 1, got %d", o.MaxRows)
	}
	if o.RowsPerSecond < 1 {
		return fmt.Errorf("import RowsPerSecond must be at least 1, got %d", o.RowsPerSecond)
	}
	if o.ResolverCacheSize < 1 {
		return fmt.Errorf("import ResolverCacheSize must be at least 1, got %d", o.ResolverCacheSize)
	}
	return nil
}

// StorageOptions configures the object store holding uploaded import files.
// An empty Endpoint selects the in-memory store, which is only suitable for
// development and tests.
type StorageOptions struct {
	Endpoint  string `env:"STORAGE_ENDPOINT" envDefault:""`
	Region    string `env:"STORAGE_REGION" envDefault:""`
	AccessKey string `env:"STORAGE_ACCESS_KEY" envDefault:""`
	SecretKey string `env:"STORAGE_SECRET_KEY" envDefault:""`
	Bucket    string `env:"STORAGE_BUCKET" envDefault:"planventa-imports"`
	UseSSL    bool   `env:"STORAGE_USE_SSL" envDefault:"false"`
}

func (s *StorageOptions) Validate() error {
	if s.Endpoint == "" {
		return nil
	}
	if s.AccessKey == "" || s.SecretKey == "" {
		return fmt.Errorf("storage AccessKey and SecretKey are required when Endpoint is set")
	}
	if s.Bucket == "" {
		return fmt.Errorf("storage Bucket is required when Endpoint is set")
	}
	return nil
}

type Configuration struct {
	Database      DatabaseOptions
	Log           LogOptions
	OpenTelemetry OpenTelemetryOptions
	Prometheus    PrometheusOptions
	RateLimit     RateLimitOptions
	Import        ImportOptions
	Storage       StorageOptions

	ServerPort       int    `env:"PORT" envDefault:"8080"`
	GoAppEnvironment string `env:"GO_APP_ENV" envDefault:"development"`
	SocketAddress    string `env:"-"`
	Domain           string `env:"DOMAIN" envDefault:"localhost"`
	Origin           string `env:"ORIGIN" envDefault:"http://localhost:8080"`
	PageSize         int    `env:"PAGE_SIZE" envDefault:"25"`
	MaxPageSize      int    `env:"MAX_PAGE_SIZE" envDefault:"100"`
	MaxUploadMemory  int64  `env:"MAX_UPLOAD_MEMORY" envDefault:"33554432"`
	LogLevel         string `env:"LOG_LEVEL" envDefault:"error"`
	// The server looks for this header in the request, if it's not present, it will generate a random uuidv4
	RequestIDHeader string `env:"REQUEST_ID_HEADER" envDefault:"X-Request-ID"`
	// The server looks for this header in the request, if it's not present, it will use request.RemoteAddr
	RealIPHeader string `env:"REAL_IP_HEADER" envDefault:"X-Real-IP"`

	// RLS enforcement mode (disabled/enforce).
	RLSEnforce string `env:"RLS_ENFORCE" envDefault:"disabled"`

	logCloser io.Closer
	logger    *logrus.Logger
}

func (c *Configuration) Logger() *logrus.Logger {
	return c.logger
}

func (c *Configuration) LogrusLogLevel() logrus.Level {
	switch c.LogLevel {
	case "silent":
		return logrus.PanicLevel
	case "error":
		return logrus.ErrorLevel
	case "warn":
		return logrus.WarnLevel
	case "info":
		return logrus.InfoLevel
	case "debug":
		return logrus.DebugLevel
	default:
		return logrus.ErrorLevel
	}
}

func (c *Configuration) Scheme() string {
	if c.GoAppEnvironment == Production { // assume 'https' on production mode
		return "https"
	}
	return "http"
}

func Use() *Configuration {
	return singleton()
}

func (c *Configuration) load(envFiles []string) error {
	n, err := LoadEnv(envFiles)
	if err != nil {
		return err
	}
	if n == 0 {
		wd, _ := os.Getwd()
		log.Println("No .env files found. Tried:")
		for _, file := range envFiles {
			log.Println(filepath.Join(wd, file))
		}
	}
	if err := env.Parse(c); err != nil {
		return err
	}

	if err := c.RateLimit.Validate(); err != nil {
		return fmt.Errorf("rate limit configuration error: %w", err)
	}
	if err := c.Import.Validate(); err != nil {
		return fmt.Errorf("import configuration error: %w", err)
	}
	if err := c.Storage.Validate(); err != nil {
		return fmt.Errorf("storage configuration error: %w", err)
	}
	if err := c.validateRLS(); err != nil {
		return err
	}

	closer, logger, err := logging.FileLogger(c.LogrusLogLevel(), c.Log.LogPath)
	if err != nil {
		return err
	}
	c.logCloser = closer
	c.logger = logger

	c.Database.Opts = c.Database.ConnectionString()
	if c.GoAppEnvironment == Production {
		c.SocketAddress = fmt.Sprintf(":%d", c.ServerPort)
	} else {
		c.SocketAddress = fmt.Sprintf("localhost:%d", c.ServerPort)
	}

	// Update Domain and Origin dynamically if they weren't explicitly set via environment variables
	// This ensures logs show the correct port when PORT is set via environment
	if os.Getenv("DOMAIN") == "" {
		c.Domain = "localhost"
	}
	if os.Getenv("ORIGIN") == "" {
		// Only include port in Origin for development environment
		// Production and staging should use standard ports (80/443)
		if c.GoAppEnvironment == "development" {
			c.Origin = fmt.Sprintf("%s://%s:%d", c.Scheme(), c.Domain, c.ServerPort)
		} else {
			c.Origin = fmt.Sprintf("%s://%s", c.Scheme(), c.Domain)
		}
	}

	return nil
}

func (c *Configuration) validateRLS() error {
	mode := strings.ToLower(strings.TrimSpace(c.RLSEnforce))
	if mode == "" {
		mode = "disabled"
	}
	switch mode {
	case "disabled", "enforce":
	default:
		return fmt.Errorf("invalid RLS_ENFORCE=%q (expected disabled|enforce)", c.RLSEnforce)
	}

	if mode == "enforce" && strings.EqualFold(strings.TrimSpace(c.Database.User), "postgres") {
		return fmt.Errorf("RLS_ENFORCE=enforce requires a non-superuser DB_USER (postgres will bypass RLS)")
	}

	c.RLSEnforce = mode
	return nil
}

// Unload handles a graceful shutdown.
func (c *Configuration) Unload() {
	if c.logCloser != nil {
		if err := c.logCloser.Close(); err != nil {
			log.Printf("Failed to close log file: %v", err)
		}
	}
}
