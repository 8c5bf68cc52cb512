package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Config holds the settings shared by the packwatch binaries.
type Config struct {
	// InstancesDir is the folder holding one sub-folder per installed instance.
	InstancesDir string `yaml:"instances_dir" validate:"required"`
	// LauncherSettingsFile is the YAML file storing the global runtime path.
	LauncherSettingsFile string `yaml:"launcher_settings_file" validate:"required"`
	// RuntimesDir is the root folder where provisioned runtimes are extracted.
	RuntimesDir string `yaml:"runtimes_dir" validate:"required"`
	// DefaultRuntimePath is restored as the global runtime path after removal.
	DefaultRuntimePath string `yaml:"default_runtime_path"`
	// DownloadServer is the base URL serving the runtime manifest and artifacts.
	DownloadServer string `yaml:"download_server" validate:"required,url"`
	// ManifestTTL is how long a fetched runtime manifest is served without a request.
	ManifestTTL time.Duration `yaml:"manifest_ttl" validate:"gte=0"`
	// Timeout bounds every single catalog request.
	Timeout time.Duration `yaml:"timeout" validate:"gte=0"`
	// DownloadTimeout bounds a runtime artifact download.
	DownloadTimeout time.Duration `yaml:"download_timeout" validate:"gte=0"`
	// Concurrency is the worker limit for per-entity catalog queries.
	Concurrency int `yaml:"concurrency" validate:"gte=0,lte=256"`
	// CheckInterval is the pause between refresh passes of the checker daemon.
	CheckInterval time.Duration `yaml:"check_interval" validate:"gte=0"`
	// HealthAddress enables the gRPC health endpoint of the checker when set.
	HealthAddress string `yaml:"health_address,omitempty" validate:"omitempty,hostname_port"`
	// CurseForge configures the batch-capable catalog.
	CurseForge CurseForgeConfig `yaml:"curseforge"`
	// Technic configures the per-entity catalog.
	Technic TechnicConfig `yaml:"technic"`
}

// CurseForgeConfig holds CurseForge API settings.
type CurseForgeConfig struct {
	// Enabled switches update checks for CurseForge instances.
	Enabled bool `yaml:"enabled"`
	// APIURL is the base URL of the CurseForge core API.
	APIURL string `yaml:"api_url" validate:"required_if=Enabled true,omitempty,url"`
	// APIKey is sent as x-api-key.
	APIKey string `yaml:"api_key"`
}

// TechnicConfig holds Technic Platform API settings.
type TechnicConfig struct {
	// Enabled switches update checks for Technic instances.
	Enabled bool `yaml:"enabled"`
	// APIURL is the base URL of the Technic Platform API.
	APIURL string `yaml:"api_url" validate:"required_if=Enabled true,omitempty,url"`
	// Build is the launcher build number the API expects.
	Build string `yaml:"build"`
}

const (
	// DefaultConfigFilename is the default filename for packwatch settings.
	DefaultConfigFilename = "packwatch-settings.yaml"

	// DefaultLauncherSettingsFilename stores the global runtime path.
	DefaultLauncherSettingsFilename = "launcher-settings.yaml"

	// DefaultInstancesDir is the default instances folder.
	DefaultInstancesDir = "instances"

	// DefaultRuntimesDir is the default runtimes root.
	DefaultRuntimesDir = "runtimes"

	// DefaultDownloadServer hosts runtimes.json and the runtime archives.
	DefaultDownloadServer = "https://download.nodecdn.net/containers/atl"

	// DefaultCurseForgeAPIURL is the public CurseForge core API.
	DefaultCurseForgeAPIURL = "https://api.curseforge.com/v1"

	// DefaultTechnicAPIURL is the public Technic Platform API.
	DefaultTechnicAPIURL = "https://api.technicpack.net"

	// DefaultTechnicBuild is the launcher build reported to the Technic API.
	DefaultTechnicBuild = "999"

	// DefaultTimeout is the default duration of one catalog request.
	DefaultTimeout = 15 * time.Second

	// DefaultDownloadTimeout is the default duration of one runtime download.
	DefaultDownloadTimeout = 10 * time.Minute

	// DefaultManifestTTL is how long the runtime manifest stays cached.
	DefaultManifestTTL = 10 * time.Minute

	// DefaultConcurrency is the default per-entity worker limit.
	DefaultConcurrency = 8

	// DefaultCheckInterval is the default pause between refresh passes.
	DefaultCheckInterval = time.Hour

	// DefaultFilePermissions is the default file permission for settings files.
	DefaultFilePermissions = 0o600

	// DefaultDirPermissions is the default permission for created folders.
	DefaultDirPermissions = 0o755
)

// errConfigIsNotSet is returned when a nil configuration is provided.
var errConfigIsNotSet = errors.New("configuration is not set")

//nolint:gochecknoglobals // Validator caches struct metadata and is safe for concurrent use.
var validate = validator.New(validator.WithRequiredStructEnabled())

// Default returns a configuration populated with defaults only.
func Default() *Config {
	cfg := &Config{
		CurseForge: CurseForgeConfig{Enabled: true},
		Technic:    TechnicConfig{Enabled: true},
	}

	applyDefaults(cfg)

	return cfg
}

// Load reads configuration from the provided path and validates essential fields.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultConfigFilename
	}

	contents, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read settings: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(contents, cfg); err != nil {
		return nil, fmt.Errorf("unmarshal settings: %w", err)
	}

	if err := Validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Save writes Config to the provided path.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if path == "" {
		path = DefaultConfigFilename
	}

	if err := Validate(cfg); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}

	// Restrict permissions, the file may carry an API key.
	if err := os.WriteFile(filepath.Clean(path), data, DefaultFilePermissions); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}

	return nil
}

// Validate fills defaults for empty fields and checks the remaining constraints.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	applyDefaults(cfg)

	if err := validate.Struct(cfg); err != nil {
		return fmt.Errorf("invalid settings: %w", err)
	}

	return nil
}

// applyDefaults sets every zero-valued field that has a sensible default.
func applyDefaults(cfg *Config) {
	if cfg.InstancesDir == "" {
		cfg.InstancesDir = DefaultInstancesDir
	}

	if cfg.LauncherSettingsFile == "" {
		cfg.LauncherSettingsFile = DefaultLauncherSettingsFilename
	}

	if cfg.RuntimesDir == "" {
		cfg.RuntimesDir = DefaultRuntimesDir
	}

	if cfg.DefaultRuntimePath == "" {
		cfg.DefaultRuntimePath = os.Getenv("JAVA_HOME")
	}

	if cfg.DownloadServer == "" {
		cfg.DownloadServer = DefaultDownloadServer
	}

	if cfg.ManifestTTL <= 0 {
		cfg.ManifestTTL = DefaultManifestTTL
	}

	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}

	if cfg.DownloadTimeout <= 0 {
		cfg.DownloadTimeout = DefaultDownloadTimeout
	}

	if cfg.Concurrency <= 0 {
		cfg.Concurrency = DefaultConcurrency
	}

	if cfg.CheckInterval <= 0 {
		cfg.CheckInterval = DefaultCheckInterval
	}

	if cfg.CurseForge.APIURL == "" {
		cfg.CurseForge.APIURL = DefaultCurseForgeAPIURL
	}

	if cfg.Technic.APIURL == "" {
		cfg.Technic.APIURL = DefaultTechnicAPIURL
	}

	if cfg.Technic.Build == "" {
		cfg.Technic.Build = DefaultTechnicBuild
	}
}
