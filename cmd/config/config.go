package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	toml "github.com/pelletier/go-toml/v2"
	yaml "gopkg.in/yaml.v2"

	"storeseo-cli/cmd/utils"
)

const (
	DefaultServerURL = "http://localhost:3000"

	EnvServerURL  = "STORESEO_SERVER_URL"
	EnvSessionKey = "STORESEO_SESSION_KEY"
)

// ErrNoConfigFile is returned by FindConfigFile when the directory has none.
var ErrNoConfigFile = errors.New("no storeseo config file (yaml/toml/json) found")

// LoadConfig loads the storeseo config file from configDir.
func LoadConfig(configDir string) (*StoreSEOConfig, error) {
	if configDir == "" {
		return nil, fmt.Errorf("config directory is required")
	}
	foundFile, err := FindConfigFile(configDir)
	if err != nil {
		return nil, err
	}
	return LoadConfigFile(foundFile)
}

// LoadConfigFile parses and validates a specific config file.
func LoadConfigFile(filePath string) (*StoreSEOConfig, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", filePath, err)
	}

	var cfg StoreSEOConfig
	switch ext := strings.ToLower(filepath.Ext(filePath)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse YAML config file %s: %w", filePath, err)
		}
	case ".toml":
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse TOML config file %s: %w", filePath, err)
		}
	case ".json":
		if err := json.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse JSON config file %s: %w", filePath, err)
		}
	default:
		return nil, fmt.Errorf("unsupported config file extension: %s", ext)
	}

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("invalid config file %s: %w", filePath, err)
	}
	return &cfg, nil
}

// Validate checks field constraints and reports every offending field at once.
func Validate(cfg *StoreSEOConfig) error {
	err := configValidate.Struct(cfg)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s fails %q", fe.Namespace(), fe.Tag()))
	}
	return errors.New(strings.Join(msgs, "; "))
}

// FindConfigFile returns the first supported config file present in searchPath.
func FindConfigFile(searchPath string) (string, error) {
	if searchPath == "" {
		return "", fmt.Errorf("search path is required")
	}
	for _, name := range SupportedConfigFiles {
		fullPath := filepath.Join(searchPath, name)
		if _, err := os.Stat(fullPath); err == nil {
			return fullPath, nil
		}
	}
	return "", fmt.Errorf("%w in %s", ErrNoConfigFile, searchPath)
}

// IsConfigFile reports whether filePath names a storeseo config file.
func IsConfigFile(filePath string) bool {
	base := filepath.Base(filePath)
	for _, name := range SupportedConfigFiles {
		if base == name {
			return true
		}
	}
	return false
}

// LoadDotEnv loads dir/.env into the process environment. Variables that are
// already set win; a missing file is not an error.
func LoadDotEnv(dir string) error {
	path := filepath.Join(dir, ".env")
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

// ServerConfig is the fully resolved connection configuration.
type ServerConfig struct {
	URL            string
	SessionKey     string
	QuickActions   []string
	RequestTimeout time.Duration
	RateLimit      float64
	// ConfigPath is empty when no config file was found.
	ConfigPath string
	// KeyMinted is true when no key was configured and a new one was generated.
	KeyMinted bool
}

// Overrides carries values from command-line flags. Empty means unset.
type Overrides struct {
	ServerURL  string
	SessionKey string
}

// GetServerConfig resolves the connection configuration for configDir.
// Precedence per field is flags, then environment, then config file, then
// defaults. Without any session key one persisted by a previous run is reused,
// or a fresh UUID is minted and persisted.
func GetServerConfig(configDir string, flags Overrides) (*ServerConfig, error) {
	if err := LoadDotEnv(configDir); err != nil {
		return nil, err
	}

	cfg := &StoreSEOConfig{}
	sc := &ServerConfig{}
	if path, err := FindConfigFile(configDir); err == nil {
		loaded, err := LoadConfigFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = loaded
		sc.ConfigPath = path
	} else if !errors.Is(err, ErrNoConfigFile) {
		return nil, err
	}

	sc.URL = strings.TrimRight(firstNonEmpty(flags.ServerURL, os.Getenv(EnvServerURL), cfg.ServerURL, DefaultServerURL), "/")
	sc.SessionKey = firstNonEmpty(flags.SessionKey, os.Getenv(EnvSessionKey), cfg.SessionKey)
	sc.QuickActions = cfg.QuickActions
	sc.RequestTimeout = cfg.Timeout()
	sc.RateLimit = cfg.RateLimitPerSecond

	if err := configValidate.Var(sc.URL, "required,url"); err != nil {
		return nil, fmt.Errorf("invalid server URL %q", sc.URL)
	}

	if sc.SessionKey == "" {
		sc.SessionKey, sc.KeyMinted = persistedSessionKey()
	}
	return sc, nil
}

func persistedSessionKey() (string, bool) {
	key, err := utils.ReadSessionKey()
	if err != nil {
		utils.LogDebug(fmt.Sprintf("could not read persisted session key: %v", err))
	}
	if key != "" {
		return key, false
	}

	key = uuid.NewString()
	if err := utils.WriteSessionKey(key); err != nil {
		// The key still works for this process
		utils.LogDebug(fmt.Sprintf("could not persist session key: %v", err))
	}
	return key, true
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
