package config

import (
	"time"

	"github.com/go-playground/validator/v10"
)

// Config file names, searched in this order
var SupportedConfigFiles = []string{
	"storeseo.yaml",
	"storeseo.yml",
	"storeseo.toml",
	"storeseo.json",
}

// StoreSEOConfig is the on-disk client configuration.
type StoreSEOConfig struct {
	Version            string   `yaml:"version,omitempty" toml:"version,omitempty" json:"version,omitempty"`
	ServerURL          string   `yaml:"server_url,omitempty" toml:"server_url,omitempty" json:"server_url,omitempty" validate:"omitempty,url"`
	SessionKey         string   `yaml:"session_key,omitempty" toml:"session_key,omitempty" json:"session_key,omitempty" validate:"omitempty,min=8,max=256,printascii"`
	QuickActions       []string `yaml:"quick_actions,omitempty" toml:"quick_actions,omitempty" json:"quick_actions,omitempty" validate:"max=12,dive,required,max=500"`
	RequestTimeout     string   `yaml:"request_timeout,omitempty" toml:"request_timeout,omitempty" json:"request_timeout,omitempty" validate:"omitempty,duration"`
	RateLimitPerSecond float64  `yaml:"rate_limit_per_second,omitempty" toml:"rate_limit_per_second,omitempty" json:"rate_limit_per_second,omitempty" validate:"gte=0,lte=100"`
}

var configValidate *validator.Validate

func init() {
	configValidate = validator.New()
	_ = configValidate.RegisterValidation("duration", validateDuration)
}

// validateDuration accepts positive Go duration strings such as "45s" or "2m".
func validateDuration(fl validator.FieldLevel) bool {
	d, err := time.ParseDuration(fl.Field().String())
	return err == nil && d > 0
}

// Timeout returns the parsed request timeout, or zero when unset.
func (c *StoreSEOConfig) Timeout() time.Duration {
	if c == nil || c.RequestTimeout == "" {
		return 0
	}
	d, err := time.ParseDuration(c.RequestTimeout)
	if err != nil {
		return 0
	}
	return d
}
