package config

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/viper"
)

// Config groups the application configuration (read via Viper from env vars
// and optionally a file).
type Config struct {
	App  AppConfig
	JWT  JWTConfig
	HTTP HTTPConfig
	GIB  GIBConfig
}

// AppConfig general application settings.
type AppConfig struct {
	Env  string // development, staging, production
	Name string
}

// JWTConfig bearer-token settings for the HTTP facade.
type JWTConfig struct {
	Secret     string
	Expiration int // minutes
	Issuer     string
}

// HTTPConfig listen settings for the HTTP facade.
type HTTPConfig struct {
	Host string
	Port int
}

// Addr returns the listen address (host:port).
func (c HTTPConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// GIBConfig settings for the GIB integrator endpoints and credentials.
// Three endpoint families: login/handshake, the e-Fatura connector document
// exchange, and the e-Arşiv document service.
type GIBConfig struct {
	LoginURL       string // handshake endpoint (session cookie)
	ConnectorURL   string // e-Fatura document exchange endpoint
	ArchiveURL     string // e-Arşiv document service endpoint
	VKN            string // submitting party tax id
	Username       string // integrator service user
	Password       string // integrator service password
	IntegratorCode string // ERP/integrator identifier sent on every envelope
	DocumentPrefix string // prefix for generated document numbers
	DebugDumpDir   string // optional: dump canonical XML here before sending
	TimeoutSeconds int    // network timeout per call
}

// Validate checks that every field required before a call to the GIB backends
// is present. It reports the first missing field by env-var name so the
// process fails fast instead of attempting a call that cannot succeed.
func (c GIBConfig) Validate() error {
	required := []struct {
		name, value string
	}{
		{"GIB_LOGIN_URL", c.LoginURL},
		{"GIB_CONNECTOR_URL", c.ConnectorURL},
		{"GIB_ARCHIVE_URL", c.ArchiveURL},
		{"GIB_VKN", c.VKN},
		{"GIB_USERNAME", c.Username},
		{"GIB_PASSWORD", c.Password},
		{"GIB_INTEGRATOR_CODE", c.IntegratorCode},
	}
	for _, f := range required {
		if strings.TrimSpace(f.value) == "" {
			return fmt.Errorf("config: %s is required", f.name)
		}
	}
	return nil
}

// Load reads the configuration from environment variables (and optionally a
// .env / config.env file). Env vars take priority.
func Load() (*Config, error) {
	v := viper.New()

	// Optional config file (.env or config.env); a missing file is fine.
	v.SetConfigName(".env")
	v.SetConfigType("env")
	v.AddConfigPath(".")
	_ = v.ReadInConfig()

	v.SetConfigName("config")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	_ = v.ReadInConfig()

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	cfg := &Config{
		App: AppConfig{
			Env:  getString(v, "APP_ENV", "development"),
			Name: getString(v, "APP_NAME", "efatura-gateway"),
		},
		JWT: JWTConfig{
			Secret:     getString(v, "JWT_SECRET", ""),
			Expiration: getInt(v, "JWT_EXPIRATION_MINUTES", 60),
			Issuer:     getString(v, "JWT_ISSUER", "efatura-gateway"),
		},
		HTTP: HTTPConfig{
			Host: getString(v, "HTTP_HOST", "0.0.0.0"),
			Port: getInt(v, "HTTP_PORT", 8080),
		},
		GIB: GIBConfig{
			LoginURL:       getString(v, "GIB_LOGIN_URL", ""),
			ConnectorURL:   getString(v, "GIB_CONNECTOR_URL", ""),
			ArchiveURL:     getString(v, "GIB_ARCHIVE_URL", ""),
			VKN:            getString(v, "GIB_VKN", ""),
			Username:       getString(v, "GIB_USERNAME", ""),
			Password:       getString(v, "GIB_PASSWORD", ""),
			IntegratorCode: getString(v, "GIB_INTEGRATOR_CODE", ""),
			DocumentPrefix: getString(v, "GIB_DOCUMENT_PREFIX", "POS"),
			DebugDumpDir:   getString(v, "GIB_DEBUG_DUMP_DIR", ""),
			TimeoutSeconds: getInt(v, "GIB_TIMEOUT_SECONDS", 30),
		},
	}

	return cfg, nil
}

func getString(v *viper.Viper, key, def string) string {
	if v.IsSet(key) {
		return v.GetString(key)
	}
	return def
}

func getInt(v *viper.Viper, key string, def int) int {
	if v.IsSet(key) {
		switch v.Get(key).(type) {
		case int:
			return v.GetInt(key)
		case string:
			n, _ := strconv.Atoi(v.GetString(key))
			return n
		default:
			return v.GetInt(key)
		}
	}
	return def
}
