package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	Port string

	GoogleCloudProject    string
	DocumentAILocation    string
	ProcessorID           string
	DocumentAITimeoutMs   int
	GoogleCredentialsFile string

	DBDriver             string
	DBPath               string
	DBURL                string
	MySQLHost            string
	MySQLPort            int
	MySQLUser            string
	MySQLPassword        string
	MySQLDatabase        string
	DBMaxConns           int
	DBMaxIdleConns       int
	DBConnMaxLifetimeSec int

	ResolveMaxInFlight int
	TranslateTimeoutMs int

	MaxBodyBytes     string
	MaxPDFPages      int
	CORSAllowOrigins []string

	LogLevel string
	LogDev   bool
}

func Load() (Config, error) {
	_ = godotenv.Load()

	cwd, err := os.Getwd()
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		Port: getEnv("PORT", "3000"),

		GoogleCloudProject:    getEnv("GOOGLE_CLOUD_PROJECT", ""),
		DocumentAILocation:    getEnv("DOCUMENTAI_LOCATION", "us"),
		ProcessorID:           getEnv("PROCESSOR_ID", ""),
		DocumentAITimeoutMs:   getEnvInt("DOCUMENTAI_TIMEOUT_MS", 60000),
		GoogleCredentialsFile: getEnv("GOOGLE_CREDENTIALS_FILE", ""),

		DBDriver:             strings.ToLower(strings.TrimSpace(getEnv("DB_DRIVER", "mysql"))),
		DBPath:               getEnv("DB_PATH", filepath.Join(cwd, "data", "ndc.db")),
		DBURL:                getEnv("DB_URL", ""),
		MySQLHost:            getEnv("MYSQL_HOST", "127.0.0.1"),
		MySQLPort:            getEnvInt("MYSQL_PORT", 3306),
		MySQLUser:            getEnv("MYSQL_USER", ""),
		MySQLPassword:        getEnv("MYSQL_PASSWORD", ""),
		MySQLDatabase:        getEnv("MYSQL_DATABASE", ""),
		DBMaxConns:           getEnvInt("DB_MAX_CONNS", 10),
		DBMaxIdleConns:       getEnvInt("DB_MAX_IDLE_CONNS", 5),
		DBConnMaxLifetimeSec: getEnvInt("DB_CONN_MAX_LIFETIME_SEC", 1800),

		ResolveMaxInFlight: getEnvInt("RESOLVE_MAX_IN_FLIGHT", 0),
		TranslateTimeoutMs: getEnvInt("TRANSLATE_TIMEOUT_MS", 30000),

		MaxBodyBytes:     getEnv("MAX_BODY_BYTES", "10M"),
		MaxPDFPages:      getEnvInt("MAX_PDF_PAGES", 15),
		CORSAllowOrigins: getEnvList("CORS_ALLOW_ORIGINS", []string{"*"}),

		LogLevel: getEnv("LOG_LEVEL", "info"),
		LogDev:   getEnvBool("LOG_DEV", false),
	}

	// Lookups beyond the pool size would only queue on the pool.
	if cfg.ResolveMaxInFlight <= 0 {
		cfg.ResolveMaxInFlight = cfg.DBMaxConns
	}

	return cfg, nil
}

func (c Config) Require(name, value string) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("missing required env var: %s", name)
	}
	return nil
}

// RequireDocumentAI checks the variables needed to build the processor name.
func (c Config) RequireDocumentAI() error {
	if err := c.Require("GOOGLE_CLOUD_PROJECT", c.GoogleCloudProject); err != nil {
		return err
	}
	if err := c.Require("DOCUMENTAI_LOCATION", c.DocumentAILocation); err != nil {
		return err
	}
	return c.Require("PROCESSOR_ID", c.ProcessorID)
}

// RequireDatabase checks the variables used by the selected DB_DRIVER.
func (c Config) RequireDatabase() error {
	switch c.DBDriver {
	case "mysql":
		if err := c.Require("MYSQL_HOST", c.MySQLHost); err != nil {
			return err
		}
		if err := c.Require("MYSQL_USER", c.MySQLUser); err != nil {
			return err
		}
		return c.Require("MYSQL_DATABASE", c.MySQLDatabase)
	case "postgres":
		return c.Require("DB_URL", c.DBURL)
	case "sqlite":
		return c.Require("DB_PATH", c.DBPath)
	default:
		return fmt.Errorf("unsupported DB_DRIVER: %s", c.DBDriver)
	}
}

func (c Config) ListenAddr() string {
	return ":" + strings.TrimPrefix(c.Port, ":")
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value := getEnv(key, "")
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvBool(key string, fallback bool) bool {
	value := strings.ToLower(strings.TrimSpace(getEnv(key, "")))
	if value == "" {
		return fallback
	}
	if value == "1" || value == "true" || value == "yes" || value == "on" {
		return true
	}
	if value == "0" || value == "false" || value == "no" || value == "off" {
		return false
	}
	return fallback
}

func getEnvList(key string, fallback []string) []string {
	value := strings.TrimSpace(getEnv(key, ""))
	if value == "" {
		return fallback
	}
	out := []string{}
	for _, part := range strings.Split(value, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}
