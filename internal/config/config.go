package config // package config loads application configuration from environment variables

import (
    "fmt"
    "os"
    "strconv"
    "strings"
    "time"

    "github.com/joho/godotenv"
)

// Config holds the runtime configuration for the HTTP server and the
// background commands.  Each field corresponds to an environment variable.
type Config struct {
    Env             string        // application environment (e.g. "dev", "prod")
    Port            string        // HTTP port to listen on
    DBUser          string        // database username
    DBPass          string        // database password (optional)
    DBHost          string        // database host address
    DBPort          string        // database port number
    DBName          string        // database name
    JWTSecret       string        // shared secret of the identity provider's HS256 tokens
    ClientURL       string        // front-end origin used for checkout redirects and CORS
    ShutdownTimeout time.Duration // grace period for in-flight requests on shutdown
    LogLevel        string        // debug | info | warn | error
}

// LoadDotEnv reads a .env file into the process environment when one is
// present.  Values already set in the environment win.
func LoadDotEnv() {
    _ = godotenv.Load()
}

// Load reads configuration values from environment variables.  Every
// missing required variable is reported in a single error.
func Load() (Config, error) {
    r := &reader{}
    cfg := Config{
        Env:             envStr("APP_ENV", "dev"),
        Port:            envStr("APP_PORT", "8080"),
        DBUser:          r.must("DB_USER"),
        DBPass:          os.Getenv("DB_PASS"), // empty allowed
        DBHost:          r.must("DB_HOST"),
        DBPort:          envStr("DB_PORT", "3306"),
        DBName:          r.must("DB_NAME"),
        JWTSecret:       r.must("JWT_SECRET"),
        ClientURL:       strings.TrimRight(envStr("CLIENT_URL", "http://localhost:5173"), "/"),
        ShutdownTimeout: envDur("SHUTDOWN_TIMEOUT", 10*time.Second),
        LogLevel:        envStr("LOG_LEVEL", "info"),
    }
    if len(r.missing) > 0 {
        return Config{}, fmt.Errorf("missing required env vars: %s", strings.Join(r.missing, ", "))
    }
    return cfg, nil
}

// LoadDatabase loads only the MySQL settings, for commands such as migrate
// that never serve HTTP.
func LoadDatabase() (Config, error) {
    r := &reader{}
    cfg := Config{
        Env:      envStr("APP_ENV", "dev"),
        DBUser:   r.must("DB_USER"),
        DBPass:   os.Getenv("DB_PASS"),
        DBHost:   r.must("DB_HOST"),
        DBPort:   envStr("DB_PORT", "3306"),
        DBName:   r.must("DB_NAME"),
        LogLevel: envStr("LOG_LEVEL", "info"),
    }
    if len(r.missing) > 0 {
        return Config{}, fmt.Errorf("missing required env vars: %s", strings.Join(r.missing, ", "))
    }
    return cfg, nil
}

// IsProd reports whether the server runs in production mode.
func (c Config) IsProd() bool {
    return strings.EqualFold(c.Env, "prod") || strings.EqualFold(c.Env, "production")
}

// reader collects the names of required variables that are unset.
type reader struct {
    missing []string
}

func (r *reader) must(key string) string {
    v, ok := os.LookupEnv(key)
    if !ok || v == "" {
        r.missing = append(r.missing, key)
    }
    return v
}

func envStr(k, d string) string { if v := os.Getenv(k); v != "" { return v }; return d }
func envBool(k string, d bool) bool {
    v := os.Getenv(k)
    if v == "" { return d }
    switch v {
    case "1","true","TRUE","True","yes","YES","on","ON": return true
    case "0","false","FALSE","False","no","NO","off","OFF": return false
    }
    return d
}
func envInt(k string, d int) int {
    v := os.Getenv(k); if v == "" { return d }
    if n, err := strconv.Atoi(v); err == nil { return n }
    return d
}
func envDur(k string, d time.Duration) time.Duration {
    v := os.Getenv(k); if v == "" { return d }
    if dur, err := time.ParseDuration(v); err == nil { return dur }
    return d
}
