package config // package config loads application configuration from environment variables

import (
    "os"
    "strings"

    "github.com/joho/godotenv"
    "github.com/rs/zerolog/log"
)

// Config holds the process-wide settings read once at startup.  Values
// that must be re-read on every booking call live in BookingConfig
// instead.
type Config struct {
    Env            string // application environment (e.g. "dev", "prod")
    Port           string // HTTP port to listen on
    DBUser         string // database username
    DBPass         string // database password (optional)
    DBHost         string // database host address
    DBPort         string // database port number
    DBName         string // database name
    DatabaseURL    string // DSN or mysql:// URL; overrides the DB* parts when set
    MigrateOnStart bool   // apply embedded migrations before serving
    JWTSecret      string // secret used to sign JWTs
    AccessTTLMin   int    // access token time-to-live in minutes
    RefreshTTLDays int    // refresh token time-to-live in days
    BcryptCost     int    // bcrypt cost for password hashing
    LogLevel       string // zerolog level name
    CORSOrigins    []string
}

// LoadDotEnv loads a .env file from the working directory when one is
// present.  Variables already set in the environment win.
func LoadDotEnv() {
    if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
        log.Warn().Err(err).Msg("config: could not read .env")
    }
}

// Load reads configuration values from environment variables.  The
// database coordinates are required unless DATABASE_URL is set; a
// missing required variable stops the process.
func Load() Config {
    cfg := Config{
        Env:            envStr("APP_ENV", "dev"),
        Port:           envStr("APP_PORT", envStr("PORT", "4000")),
        DatabaseURL:    os.Getenv("DATABASE_URL"),
        DBPass:         os.Getenv("DB_PASS"),
        MigrateOnStart: envBool("MIGRATE_ON_START", true),
        JWTSecret:      must("JWT_SECRET"),
        AccessTTLMin:   envInt("ACCESS_TOKEN_TTL_MIN", 120),
        RefreshTTLDays: envInt("REFRESH_TOKEN_TTL_DAYS", 7),
        BcryptCost:     envInt("BCRYPT_COST", 10),
        LogLevel:       envStr("LOG_LEVEL", "info"),
        CORSOrigins:    splitList(envStr("CORS_ORIGINS", "http://localhost:5173")),
    }
    if cfg.DatabaseURL == "" {
        cfg.DBUser = must("DB_USER")
        cfg.DBHost = must("DB_HOST")
        cfg.DBPort = envStr("DB_PORT", "3306")
        cfg.DBName = must("DB_NAME")
    }
    return cfg
}

// must retrieves the value of a required environment variable.  If the
// variable is unset or empty, the process exits with a fatal log entry.
func must(key string) string {
    v, ok := os.LookupEnv(key)
    if !ok || v == "" {
        log.Fatal().Str("key", key).Msg("missing required env var")
    }
    return v
}

// splitList splits a comma separated value, dropping blanks.
func splitList(s string) []string {
    var out []string
    for _, p := range strings.Split(s, ",") {
        if p = strings.TrimSpace(p); p != "" {
            out = append(out, p)
        }
    }
    return out
}
