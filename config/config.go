package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/joho/godotenv"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// Config holds the application's configuration values.
type Config struct {
	AppName string `json:"appname"`
	AppEnv  string `json:"appenv"`
	AppPort uint16 `json:"appport"`
	GinMode string `json:"ginmode"`

	DBDriver string `json:"dbdriver"`
	DBHost   string `json:"dbhost"`
	DBPort   uint16 `json:"dbport"`
	DBName   string `json:"dbname"`
	DBUser   string `json:"dbuser"`
	DBPass   string `json:"-"`

	JWTSecret        string        `json:"-"`
	APIToken         string        `json:"-"`
	PatientTokenTTL  time.Duration `json:"patient_token_ttl"`
	DoctorSessionTTL time.Duration `json:"doctor_session_ttl"`
	OTPTTL           time.Duration `json:"otp_ttl"`
	ResetTokenTTL    time.Duration `json:"reset_token_ttl"`

	SendGridAPIKey string `json:"-"`
	MailFrom       string `json:"mail_from"`
	MailFromName   string `json:"mail_from_name"`
	GoogleClientID string `json:"google_client_id"`
	PublicBaseURL  string `json:"public_base_url"`

	UploadDir   string   `json:"upload_dir"`
	UploadMode  string   `json:"upload_mode"`
	CORSOrigins []string `json:"cors_origins"`

	SentryDSN         string `json:"-"`
	GeoIPDBPath       string `json:"geoip_db_path"`
	GeoIPDBURL        string `json:"-"`
	IdentityCacheSize int    `json:"identity_cache_size"`
}

const (
	defaultPatientTokenTTL  = 30 * 24 * time.Hour
	defaultDoctorSessionTTL = time.Hour
	defaultOTPTTL           = 15 * time.Minute
	defaultResetTokenTTL    = time.Hour
)

var config *Config
var once sync.Once
var memoryDBSeq atomic.Uint64

// LoadConfig loads the environment variables from a .env file, and returns a singleton Config instance.
func LoadConfig() *Config {
	once.Do(func() {
		// A missing .env is fine; the environment may already be populated.
		if err := godotenv.Load(); err != nil {
			log.Printf("No .env file loaded: %v", err)
		}
		config = FromEnv()
	})
	return config
}

// FromEnv builds a Config from the current environment without caching it.
func FromEnv() *Config {
	appPort, _ := strconv.ParseUint(os.Getenv("APPPORT"), 10, 16)
	if appPort == 0 {
		appPort = 8080
	}
	dbPort, _ := strconv.ParseUint(os.Getenv("DBPORT"), 10, 16)
	cacheSize, _ := strconv.Atoi(os.Getenv("IDENTITY_EMAIL_CACHE_SIZE"))

	return &Config{
		AppName:  getEnv("APPNAME", "telemed-api"),
		AppEnv:   getEnv("APPENV", "development"),
		AppPort:  uint16(appPort),
		GinMode:  getEnv("GINMODE", "debug"),
		DBDriver: strings.ToLower(getEnv("DBDRIVER", "mysql")),
		DBHost:   os.Getenv("DBHOST"),
		DBPort:   uint16(dbPort),
		DBName:   os.Getenv("DBNAME"),
		DBUser:   os.Getenv("DBUSER"),
		DBPass:   os.Getenv("DBPASS"),

		JWTSecret:        os.Getenv("JWTSECRET"),
		APIToken:         os.Getenv("APITOKEN"),
		PatientTokenTTL:  getDuration("PATIENT_TOKEN_TTL", defaultPatientTokenTTL),
		DoctorSessionTTL: getDuration("DOCTOR_SESSION_TTL", defaultDoctorSessionTTL),
		OTPTTL:           getDuration("OTP_TTL", defaultOTPTTL),
		ResetTokenTTL:    getDuration("RESET_TOKEN_TTL", defaultResetTokenTTL),

		SendGridAPIKey: os.Getenv("SENDGRID_API_KEY"),
		MailFrom:       getEnv("MAIL_FROM", "no-reply@telemed.local"),
		MailFromName:   getEnv("MAIL_FROM_NAME", "Telemed"),
		GoogleClientID: os.Getenv("GOOGLE_CLIENT_ID"),
		PublicBaseURL:  strings.TrimRight(getEnv("PUBLIC_BASE_URL", "http://localhost:3000"), "/"),

		UploadDir:   getEnv("UPLOAD_DIR", "./uploads"),
		UploadMode:  getEnv("UPLOAD_MODE", "disk"),
		CORSOrigins: splitList(getEnv("CORS_ORIGINS", "http://localhost:3000")),

		SentryDSN:         os.Getenv("SENTRY_DSN"),
		GeoIPDBPath:       os.Getenv("GEOIP_DB_PATH"),
		GeoIPDBURL:        os.Getenv("GEOIP_DB_URL"),
		IdentityCacheSize: cacheSize,
	}
}

// IsProduction reports whether cookies and similar settings should be hardened.
func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

func getEnv(key, fallback string) string {
	value, exists := os.LookupEnv(key)
	if !exists || value == "" {
		return fallback
	}
	return value
}

func getDuration(key string, fallback time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		log.Printf("Invalid duration for %s=%q, using %s", key, raw, fallback)
		return fallback
	}
	return d
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// ConnectDatabase opens the database selected by DBDRIVER. In the test
// environment it always returns a fresh in-memory SQLite database.
func ConnectDatabase() (*gorm.DB, error) {
	cfg := LoadConfig()
	if os.Getenv("APPENV") == "test" || cfg.AppEnv == "test" {
		return OpenSQLiteMemory(fmt.Sprintf("test_%d_%d", time.Now().UnixNano(), memoryDBSeq.Add(1)))
	}

	gormCfg := &gorm.Config{TranslateError: true}

	switch cfg.DBDriver {
	case "postgres":
		dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%d sslmode=disable",
			cfg.DBHost, cfg.DBUser, cfg.DBPass, cfg.DBName, cfg.DBPort)
		return gorm.Open(postgres.Open(dsn), gormCfg)
	case "sqlite":
		return gorm.Open(sqlite.Open(cfg.DBName), gormCfg)
	case "mysql", "":
		// Build the Data Source Name (DSN) using the configuration values.
		dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true", cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
		return gorm.Open(mysql.Open(dsn), gormCfg)
	default:
		return nil, fmt.Errorf("unsupported DBDRIVER %q", cfg.DBDriver)
	}
}

// OpenSQLiteMemory opens a named shared-cache in-memory SQLite database.
func OpenSQLiteMemory(name string) (*gorm.DB, error) {
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_foreign_keys=1", name)
	return gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
}
