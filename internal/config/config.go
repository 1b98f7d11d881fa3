package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"
)

// FeedConfig describes a remote calendar published over HTTP, merged in
// alongside the calendars embedded in the catalogs.
type FeedConfig struct {
	ID  string `yaml:"id" json:"id"`
	URL string `yaml:"url" json:"url"`
}

// BasicAuthConfig holds HTTP Basic Auth credentials for the API.
type BasicAuthConfig struct {
	Username string `yaml:"username" json:"username"`
	Password string `yaml:"password" json:"password"`
}

// Config is the top-level application configuration.
type Config struct {
	// Listen is the HTTP listen address for the read-only API.
	Listen string `yaml:"listen" json:"listen"`

	// CatalogDir holds the degree catalog PDFs.
	CatalogDir string `yaml:"catalog_dir" json:"catalog_dir"`

	// AttachmentsDir receives the calendars extracted from catalogs and is
	// the directory scanned for *.ics sources.
	AttachmentsDir string `yaml:"attachments_dir" json:"attachments_dir"`

	// OutputDir receives subjects/, degrees/ and mapping.json.
	OutputDir string `yaml:"output_dir" json:"output_dir"`

	// MappingFile is the TSV with id/horarioID columns. Empty disables
	// enrichment.
	MappingFile string `yaml:"mapping_file" json:"mapping_file"`

	// MappingName is the name stored in the mapping document.
	MappingName string `yaml:"mapping_name" json:"mapping_name"`

	// Parser selects the calendar decoder: "arran4" (default) or "emersion".
	Parser string `yaml:"parser" json:"parser"`

	// Workers bounds parallel calendar parsing. Zero uses GOMAXPROCS.
	Workers int `yaml:"workers" json:"workers"`

	// Rebuild is a cron expression for periodic rebuilds in serve mode.
	Rebuild string `yaml:"rebuild" json:"rebuild"`

	// LogLevel is one of debug, info, error.
	LogLevel string `yaml:"log_level" json:"log_level"`

	// Feeds are optional remote calendars.
	Feeds []FeedConfig `yaml:"feeds" json:"feeds"`

	// CacheDir stores feed bodies and HTTP validators.
	CacheDir string `yaml:"cache_dir" json:"cache_dir"`

	// BasicAuth, if set, protects every endpoint except /health.
	BasicAuth *BasicAuthConfig `yaml:"basic_auth,omitempty" json:"basic_auth,omitempty"`
}

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	return &Config{
		Listen:         "127.0.0.1:8000",
		CatalogDir:     "archivos_pdf",
		AttachmentsDir: "archivos_adjuntos",
		OutputDir:      "salida",
		MappingFile:    "",
		MappingName:    "mapping",
		Parser:         "arran4",
		Workers:        0,
		Rebuild:        "0 3 * * *",
		LogLevel:       "info",
		Feeds:          []FeedConfig{},
		CacheDir:       "cache/feeds",
	}
}

// Normalize fills in missing values so that partial configs behave like
// the defaults.
func (c *Config) Normalize() {
	d := DefaultConfig()
	if c.Listen == "" {
		c.Listen = d.Listen
	}
	if c.CatalogDir == "" {
		c.CatalogDir = d.CatalogDir
	}
	if c.AttachmentsDir == "" {
		c.AttachmentsDir = d.AttachmentsDir
	}
	if c.OutputDir == "" {
		c.OutputDir = d.OutputDir
	}
	if c.MappingName == "" {
		c.MappingName = d.MappingName
	}
	switch c.Parser {
	case "arran4", "emersion":
	default:
		c.Parser = d.Parser
	}
	if c.Workers < 0 {
		c.Workers = 0
	}
	if c.Rebuild == "" {
		c.Rebuild = d.Rebuild
	}
	if c.LogLevel == "" {
		c.LogLevel = d.LogLevel
	}
	if c.Feeds == nil {
		c.Feeds = []FeedConfig{}
	}
	if c.CacheDir == "" {
		c.CacheDir = d.CacheDir
	}
}

// Validate reports settings that Normalize cannot repair.
func (c *Config) Validate() error {
	if _, err := cron.ParseStandard(c.Rebuild); err != nil {
		return fmt.Errorf("config: rebuild %q: %w", c.Rebuild, err)
	}
	seen := make(map[string]bool, len(c.Feeds))
	for i, f := range c.Feeds {
		if f.ID == "" || f.URL == "" {
			return fmt.Errorf("config: feeds[%d] needs id and url", i)
		}
		if seen[f.ID] {
			return fmt.Errorf("config: duplicate feed id %q", f.ID)
		}
		seen[f.ID] = true
	}
	return nil
}

// Load loads configuration from the given YAML path.
//
// Behavior:
//   - If the file does not exist, a default config is written with 0600
//     permissions and returned.
//   - Otherwise the YAML is decoded, normalized and validated.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			cfg := DefaultConfig()
			if err := Save(path, cfg); err != nil {
				return cfg, err
			}
			return cfg, nil
		}
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Save writes cfg to path atomically (temp file + rename) with 0600
// permissions, creating the parent directory if needed.
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	if cfg == nil {
		return errors.New("config is nil")
	}

	cfg.Normalize()

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return WriteFileAtomic(path, data, 0o600)
}

// WriteFileAtomic writes data to a temp file in the target directory and
// renames it over path.
func WriteFileAtomic(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".esiplanner-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, perm); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}

// Save is a convenience method delegating to the package-level Save.
func (c *Config) Save(path string) error {
	return Save(path, c)
}
