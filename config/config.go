package config

import (
	"encoding/json"
	"errors"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/joho/godotenv"
)

// AppConfig holds environment driven configuration values.
// Sensitive data should never have defaults inside code and must be provided via env files or the environment.
type AppConfig struct {
	AppPort            string
	JWTSecret          string
	TokenTTLHours      int
	LoginURL           string
	PostsPerPage       int
	RateLimitPerMinute int
	AllowedOrigins     []string
	// Gin framework configuration
	GinMode string
	GinPath string
	// Database
	DBDriver          string
	DatabaseURI       string
	DBHost            string
	DBPort            string
	DBUser            string
	DBPassword        string
	DBName            string
	DBMaxIdleConns    int
	DBMaxOpenConns    int
	DBConnMaxLifetime int // minutes
	DBConnMaxIdleTime int // minutes
	// Redis for caching and the token blacklist
	RedisEnabled    bool
	RedisHost       string
	RedisPort       int
	RedisDB         int
	RedisPassword   string
	CacheTTLSeconds int
	// Logging configuration
	LogLevel      string
	LogPath       string
	LogMaxSizeMB  int
	LogMaxBackups int
	LogMaxAgeDays int
	LogCompress   bool
	// Image storage
	StorageDriver      string
	StorageLocalPath   string
	StoragePublicURL   string
	S3Region           string
	S3Bucket           string
	GCSProjectID       string
	GCSBucketName      string
	GCSCredentialsFile string
	// Event publishing; empty disables it
	NATSURL string
	// Admins may manage categories and locations
	AdminUsernames []string
}

var (
	cfg    AppConfig
	loaded bool
	mu     sync.RWMutex
)

// Load loads the application configuration. It should be called once during boot.
//
// Precedence: .env file -> JSON config file -> defaults -> environment variable overrides.
func Load() AppConfig {
	mu.Lock()
	defer mu.Unlock()
	if loaded {
		return cfg
	}

	var c AppConfig
	// .env only populates variables that are not already set in the environment
	_ = godotenv.Load()

	path := getEnv("CONFIG_FILE", filepath.Join("config", "config.json"))
	if err := loadJSONConfig(path, &c); err != nil {
		log.Printf("ignoring invalid config file %s: %v", path, err)
	}
	applyDefaults(&c)
	applyEnvOverrides(&c)

	if c.JWTSecret == "" {
		log.Fatal("JWT_SECRET must be set in environment variables")
	}

	cfg = c
	loaded = true
	return cfg
}

// Get returns the cached configuration, loading it if necessary.
func Get() AppConfig {
	mu.RLock()
	if loaded {
		c := cfg
		mu.RUnlock()
		return c
	}
	mu.RUnlock()
	return Load()
}

// Set replaces the active configuration. Used by tests and by programs embedding the router.
func Set(c AppConfig) {
	mu.Lock()
	cfg = c
	loaded = true
	mu.Unlock()
}

// Defaults returns a configuration with every default applied and no file or environment input.
func Defaults() AppConfig {
	var c AppConfig
	applyDefaults(&c)
	return c
}

// IsAdmin reports whether username is configured as an administrator (case-insensitive).
func (c AppConfig) IsAdmin(username string) bool {
	uname := strings.TrimSpace(username)
	if uname == "" {
		return false
	}
	for _, u := range c.AdminUsernames {
		if strings.EqualFold(strings.TrimSpace(u), uname) {
			return true
		}
	}
	return false
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

// fileConfig mirrors the grouped layout of config/config.json.
type fileConfig struct {
	App struct {
		AppPort            string   `json:"AppPort"`
		JWTSecret          string   `json:"JWTSecret"`
		TokenTTLHours      int      `json:"TokenTTLHours"`
		LoginURL           string   `json:"LoginURL"`
		PostsPerPage       int      `json:"PostsPerPage"`
		RateLimitPerMinute int      `json:"RateLimitPerMinute"`
		AllowedOrigins     []string `json:"AllowedOrigins"`
		AdminUsernames     []string `json:"AdminUsernames"`
	} `json:"app"`
	Gin struct {
		Mode    string `json:"Mode"`
		LogPath string `json:"LogPath"`
	} `json:"gin"`
	Database struct {
		Driver          string `json:"Driver"`
		DatabaseURI     string `json:"DatabaseURI"`
		DBHost          string `json:"DBHost"`
		DBPort          string `json:"DBPort"`
		DBUser          string `json:"DBUser"`
		DBPassword      string `json:"DBPassword"`
		DBName          string `json:"DBName"`
		MaxIdleConns    int    `json:"MaxIdleConns"`
		MaxOpenConns    int    `json:"MaxOpenConns"`
		ConnMaxLifetime int    `json:"ConnMaxLifetimeMinutes"`
		ConnMaxIdleTime int    `json:"ConnMaxIdleTimeMinutes"`
	} `json:"database"`
	Redis struct {
		Enabled         bool   `json:"Enabled"`
		RedisHost       string `json:"RedisHost"`
		RedisPort       int    `json:"RedisPort"`
		RedisDB         int    `json:"RedisDB"`
		RedisPassword   string `json:"RedisPassword"`
		CacheTTLSeconds int    `json:"CacheTTLSeconds"`
	} `json:"redis"`
	Log struct {
		Level      string `json:"Level"`
		Path       string `json:"Path"`
		MaxSizeMB  int    `json:"MaxSizeMB"`
		MaxBackups int    `json:"MaxBackups"`
		MaxAgeDays int    `json:"MaxAgeDays"`
		Compress   bool   `json:"Compress"`
	} `json:"log"`
	Storage struct {
		Driver             string `json:"Driver"`
		LocalPath          string `json:"LocalPath"`
		PublicURL          string `json:"PublicURL"`
		S3Region           string `json:"S3Region"`
		S3Bucket           string `json:"S3Bucket"`
		GCSProjectID       string `json:"GCSProjectID"`
		GCSBucketName      string `json:"GCSBucketName"`
		GCSCredentialsFile string `json:"GCSCredentialsFile"`
	} `json:"storage"`
	NATS struct {
		URL string `json:"URL"`
	} `json:"nats"`
}

// loadJSONConfig reads the JSON file into out if present. Returns error only for invalid JSON.
func loadJSONConfig(path string, out *AppConfig) error {
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}

	var fc fileConfig
	if err := json.Unmarshal(b, &fc); err != nil {
		return err
	}

	out.AppPort = fc.App.AppPort
	out.JWTSecret = fc.App.JWTSecret
	out.TokenTTLHours = fc.App.TokenTTLHours
	out.LoginURL = fc.App.LoginURL
	out.PostsPerPage = fc.App.PostsPerPage
	out.RateLimitPerMinute = fc.App.RateLimitPerMinute
	out.AllowedOrigins = fc.App.AllowedOrigins
	out.AdminUsernames = fc.App.AdminUsernames

	out.GinMode = fc.Gin.Mode
	out.GinPath = fc.Gin.LogPath

	out.DBDriver = fc.Database.Driver
	out.DatabaseURI = fc.Database.DatabaseURI
	out.DBHost = fc.Database.DBHost
	out.DBPort = fc.Database.DBPort
	out.DBUser = fc.Database.DBUser
	out.DBPassword = fc.Database.DBPassword
	out.DBName = fc.Database.DBName
	out.DBMaxIdleConns = fc.Database.MaxIdleConns
	out.DBMaxOpenConns = fc.Database.MaxOpenConns
	out.DBConnMaxLifetime = fc.Database.ConnMaxLifetime
	out.DBConnMaxIdleTime = fc.Database.ConnMaxIdleTime

	out.RedisEnabled = fc.Redis.Enabled
	out.RedisHost = fc.Redis.RedisHost
	out.RedisPort = fc.Redis.RedisPort
	out.RedisDB = fc.Redis.RedisDB
	out.RedisPassword = fc.Redis.RedisPassword
	out.CacheTTLSeconds = fc.Redis.CacheTTLSeconds

	out.LogLevel = fc.Log.Level
	out.LogPath = fc.Log.Path
	out.LogMaxSizeMB = fc.Log.MaxSizeMB
	out.LogMaxBackups = fc.Log.MaxBackups
	out.LogMaxAgeDays = fc.Log.MaxAgeDays
	out.LogCompress = fc.Log.Compress

	out.StorageDriver = fc.Storage.Driver
	out.StorageLocalPath = fc.Storage.LocalPath
	out.StoragePublicURL = fc.Storage.PublicURL
	out.S3Region = fc.Storage.S3Region
	out.S3Bucket = fc.Storage.S3Bucket
	out.GCSProjectID = fc.Storage.GCSProjectID
	out.GCSBucketName = fc.Storage.GCSBucketName
	out.GCSCredentialsFile = fc.Storage.GCSCredentialsFile

	out.NATSURL = fc.NATS.URL
	return nil
}

// applyDefaults sets sane defaults for zero-value fields.
func applyDefaults(c *AppConfig) {
	if c.AppPort == "" {
		c.AppPort = "8080"
	}
	if c.TokenTTLHours == 0 {
		c.TokenTTLHours = 72
	}
	if c.LoginURL == "" {
		c.LoginURL = "/auth/login/"
	}
	if c.PostsPerPage == 0 {
		c.PostsPerPage = 10
	}
	if c.RateLimitPerMinute == 0 {
		c.RateLimitPerMinute = 60
	}
	if len(c.AllowedOrigins) == 0 {
		c.AllowedOrigins = []string{"*"}
	}
	if c.GinMode == "" {
		c.GinMode = "release"
	}
	if c.GinPath == "" {
		c.GinPath = "logs/go_gin.log"
	}
	if c.DBDriver == "" {
		c.DBDriver = "mysql"
	}
	if c.DBHost == "" {
		c.DBHost = "127.0.0.1"
	}
	if c.DBPort == "" {
		c.DBPort = "3306"
	}
	if c.DBUser == "" {
		c.DBUser = "root"
	}
	if c.DBName == "" {
		c.DBName = "blogicum"
	}
	if c.DBMaxIdleConns == 0 {
		c.DBMaxIdleConns = 5
	}
	if c.DBMaxOpenConns == 0 {
		c.DBMaxOpenConns = 20
	}
	if c.DBConnMaxLifetime == 0 {
		c.DBConnMaxLifetime = 30
	}
	if c.DBConnMaxIdleTime == 0 {
		c.DBConnMaxIdleTime = 10
	}
	if c.RedisHost == "" {
		c.RedisHost = "127.0.0.1"
	}
	if c.RedisPort == 0 {
		c.RedisPort = 6379
	}
	if c.CacheTTLSeconds == 0 {
		c.CacheTTLSeconds = 3600
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.LogMaxSizeMB == 0 {
		c.LogMaxSizeMB = 100
	}
	if c.LogMaxBackups == 0 {
		c.LogMaxBackups = 3
	}
	if c.LogMaxAgeDays == 0 {
		c.LogMaxAgeDays = 7
	}
	if c.StorageDriver == "" {
		c.StorageDriver = "local"
	}
	if c.StorageLocalPath == "" {
		c.StorageLocalPath = "./media"
	}
	if c.StoragePublicURL == "" {
		c.StoragePublicURL = "/media"
	}
}

// applyEnvOverrides maps known environment variables onto config values when present.
func applyEnvOverrides(c *AppConfig) {
	if v := getEnv("APP_PORT", ""); v != "" {
		c.AppPort = v
	}
	if v := getEnv("JWT_SECRET", ""); v != "" {
		c.JWTSecret = v
	}
	if v := getEnv("TOKEN_TTL_HOURS", ""); v != "" {
		c.TokenTTLHours = mustParseInt(v)
	}
	if v := getEnv("LOGIN_URL", ""); v != "" {
		c.LoginURL = v
	}
	if v := getEnv("POSTS_PER_PAGE", ""); v != "" {
		c.PostsPerPage = mustParseInt(v)
	}
	if v := getEnv("RATE_LIMIT_PER_MINUTE", ""); v != "" {
		c.RateLimitPerMinute = mustParseInt(v)
	}
	if v := getEnv("CORS_ALLOWED_ORIGINS", ""); v != "" {
		c.AllowedOrigins = splitAndTrim(v)
	}
	if v := getEnv("ADMIN_USERNAMES", ""); v != "" {
		c.AdminUsernames = splitAndTrim(v)
	}
	if v := getEnv("GIN_MODE", ""); v != "" {
		c.GinMode = v
	}
	if v := getEnv("GIN_PATH", ""); v != "" {
		c.GinPath = v
	}
	if v := getEnv("DB_DRIVER", ""); v != "" {
		c.DBDriver = strings.ToLower(v)
	}
	if v := getEnv("DATABASE_URI", ""); v != "" {
		c.DatabaseURI = v
	}
	if v := getEnv("DB_HOST", ""); v != "" {
		c.DBHost = v
	}
	if v := getEnv("DB_PORT", ""); v != "" {
		c.DBPort = v
	}
	if v := getEnv("DB_USER", ""); v != "" {
		c.DBUser = v
	}
	if v := getEnv("DB_PASSWORD", ""); v != "" {
		c.DBPassword = v
	}
	if v := getEnv("DB_NAME", ""); v != "" {
		c.DBName = v
	}
	if v := getEnv("DB_MAX_IDLE_CONNS", ""); v != "" {
		c.DBMaxIdleConns = mustParseInt(v)
	}
	if v := getEnv("DB_MAX_OPEN_CONNS", ""); v != "" {
		c.DBMaxOpenConns = mustParseInt(v)
	}
	if v := getEnv("REDIS_ENABLED", ""); v != "" {
		c.RedisEnabled = v == "true"
	}
	if v := getEnv("REDIS_HOST", ""); v != "" {
		c.RedisHost = v
	}
	if v := getEnv("REDIS_PORT", ""); v != "" {
		c.RedisPort = mustParseInt(v)
	}
	if v := getEnv("REDIS_DB", ""); v != "" {
		c.RedisDB = mustParseInt(v)
	}
	if v := getEnv("REDIS_PASSWORD", ""); v != "" {
		c.RedisPassword = v
	}
	if v := getEnv("CACHE_TTL_SECONDS", ""); v != "" {
		c.CacheTTLSeconds = mustParseInt(v)
	}
	if v := getEnv("LOG_LEVEL", ""); v != "" {
		c.LogLevel = v
	}
	if v := getEnv("LOG_PATH", ""); v != "" {
		c.LogPath = v
	}
	if v := getEnv("LOG_MAX_SIZE_MB", ""); v != "" {
		c.LogMaxSizeMB = mustParseInt(v)
	}
	if v := getEnv("LOG_MAX_BACKUPS", ""); v != "" {
		c.LogMaxBackups = mustParseInt(v)
	}
	if v := getEnv("LOG_MAX_AGE_DAYS", ""); v != "" {
		c.LogMaxAgeDays = mustParseInt(v)
	}
	if v := getEnv("LOG_COMPRESS", ""); v != "" {
		c.LogCompress = v == "true"
	}
	if v := getEnv("STORAGE_DRIVER", ""); v != "" {
		c.StorageDriver = strings.ToLower(v)
	}
	if v := getEnv("STORAGE_LOCAL_PATH", ""); v != "" {
		c.StorageLocalPath = v
	}
	if v := getEnv("STORAGE_PUBLIC_URL", ""); v != "" {
		c.StoragePublicURL = v
	}
	if v := getEnv("S3_REGION", ""); v != "" {
		c.S3Region = v
	}
	if v := getEnv("S3_BUCKET", ""); v != "" {
		c.S3Bucket = v
	}
	if v := getEnv("GCS_PROJECT_ID", ""); v != "" {
		c.GCSProjectID = v
	}
	if v := getEnv("GCS_BUCKET_NAME", ""); v != "" {
		c.GCSBucketName = v
	}
	if v := getEnv("GCS_CREDENTIALS_FILE", ""); v != "" {
		c.GCSCredentialsFile = v
	}
	if v := getEnv("NATS_URL", ""); v != "" {
		c.NATSURL = v
	}
}

func mustParseInt(val string) int {
	i, err := strconv.Atoi(val)
	if err != nil {
		log.Fatalf("invalid integer value %s: %v", val, err)
	}
	return i
}

func splitAndTrim(raw string) []string {
	items := []string{}
	for _, item := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(item); trimmed != "" {
			items = append(items, trimmed)
		}
	}
	return items
}
