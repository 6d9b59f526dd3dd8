package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Env             string        `mapstructure:"ENV"`
	Port            string        `mapstructure:"PORT"`
	AdminKey        string        `mapstructure:"ADMIN_KEY"`
	CORSAllowed     string        `mapstructure:"CORS_ALLOWED_ORIGINS"`
	RequestTimeout  time.Duration `mapstructure:"REQUEST_TIMEOUT"`
	LogLevel        string        `mapstructure:"LOG_LEVEL"`
	GeocodeURL      string        `mapstructure:"GEOCODE_URL"`
	OSRMURLs        string        `mapstructure:"OSRM_URLS"`
	VROOMURLs       string        `mapstructure:"VROOM_URLS"`
	ProviderTimeout time.Duration `mapstructure:"PROVIDER_TIMEOUT"`
	ProbeTimeout    time.Duration `mapstructure:"PROVIDER_PROBE_TIMEOUT"`

	// Acceptance floors for the assignment engine. The source system
	// used several inconsistent literals; they are configuration here.
	AcceptFloor        float64 `mapstructure:"ACCEPT_FLOOR"`
	AvailableFloor     float64 `mapstructure:"AVAILABLE_FLOOR"`
	CrossTypeFloor     float64 `mapstructure:"CROSS_TYPE_FLOOR"`
	BusyFloor          float64 `mapstructure:"BUSY_FLOOR"`
	VehicleChangeFloor float64 `mapstructure:"VEHICLE_CHANGE_FLOOR"`
	RescheduleFloor    float64 `mapstructure:"RESCHEDULE_FLOOR"`
}

func Load() (Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	_ = v.ReadInConfig()

	v.SetDefault("ENV", "dev")
	v.SetDefault("PORT", "8080")
	v.SetDefault("REQUEST_TIMEOUT", "30s")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("CORS_ALLOWED_ORIGINS", "*")
	v.SetDefault("GEOCODE_URL", "https://nominatim.openstreetmap.org")
	v.SetDefault("OSRM_URLS", "http://localhost:5000,https://router.project-osrm.org")
	v.SetDefault("VROOM_URLS", "http://localhost:3000")
	v.SetDefault("PROVIDER_TIMEOUT", "15s")
	v.SetDefault("PROVIDER_PROBE_TIMEOUT", "5s")

	v.SetDefault("ACCEPT_FLOOR", 5.0)
	v.SetDefault("AVAILABLE_FLOOR", 15.0)
	v.SetDefault("CROSS_TYPE_FLOOR", 20.0)
	v.SetDefault("BUSY_FLOOR", 25.0)
	v.SetDefault("VEHICLE_CHANGE_FLOOR", 30.0)
	v.SetDefault("RESCHEDULE_FLOOR", 60.0)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// SplitURLs turns a comma-separated provider URL list into trimmed
// entries, preserving order (local-preferred first).
func SplitURLs(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}
