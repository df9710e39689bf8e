package docview

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/docker/go-units"
	"github.com/gobeaver/beaver-kit/config"
)

// Identification modes
const (
	// IdentifyByContent classifies documents from their leading bytes
	IdentifyByContent = "content"
	// IdentifyByExtension trusts the file name and declared MIME type only
	IdentifyByExtension = "extension"
)

type Config struct {
	// Document store driver (local, memory, s3, gcs, azure, sftp, zip)
	Driver string `env:"DOCVIEW_DRIVER,default:local"`

	// Local driver configuration
	LocalBasePath string `env:"DOCVIEW_LOCAL_BASE_PATH,default:./documents"`

	// S3 driver configuration
	S3Region          string `env:"DOCVIEW_S3_REGION,default:us-east-1"`
	S3Bucket          string `env:"DOCVIEW_S3_BUCKET"`
	S3Prefix          string `env:"DOCVIEW_S3_PREFIX"`
	S3Endpoint        string `env:"DOCVIEW_S3_ENDPOINT"`
	S3AccessKeyID     string `env:"DOCVIEW_S3_ACCESS_KEY_ID"`
	S3SecretAccessKey string `env:"DOCVIEW_S3_SECRET_ACCESS_KEY"`
	S3ForcePathStyle  bool   `env:"DOCVIEW_S3_FORCE_PATH_STYLE,default:false"`

	// GCS driver configuration
	GCSBucket          string `env:"DOCVIEW_GCS_BUCKET"`
	GCSPrefix          string `env:"DOCVIEW_GCS_PREFIX"`
	GCSCredentialsFile string `env:"DOCVIEW_GCS_CREDENTIALS_FILE"` // empty uses application default credentials
	GCSEndpoint        string `env:"DOCVIEW_GCS_ENDPOINT"`

	// Azure Blob Storage driver configuration
	AzureAccountName string `env:"DOCVIEW_AZURE_ACCOUNT_NAME"`
	AzureAccountKey  string `env:"DOCVIEW_AZURE_ACCOUNT_KEY"`
	AzureContainer   string `env:"DOCVIEW_AZURE_CONTAINER"`
	AzurePrefix      string `env:"DOCVIEW_AZURE_PREFIX"`
	AzureEndpoint    string `env:"DOCVIEW_AZURE_ENDPOINT"`

	// SFTP driver configuration
	SFTPHost           string `env:"DOCVIEW_SFTP_HOST"`
	SFTPPort           int    `env:"DOCVIEW_SFTP_PORT,default:22"`
	SFTPUsername       string `env:"DOCVIEW_SFTP_USERNAME"`
	SFTPPassword       string `env:"DOCVIEW_SFTP_PASSWORD"`
	SFTPPrivateKeyFile string `env:"DOCVIEW_SFTP_PRIVATE_KEY_FILE"`
	SFTPHostKey        string `env:"DOCVIEW_SFTP_HOST_KEY"` // authorized_keys format; empty trusts any host
	SFTPBasePath       string `env:"DOCVIEW_SFTP_BASE_PATH"`

	// ZIP driver configuration
	ZipPath string `env:"DOCVIEW_ZIP_PATH"`

	// Extra stores laid over the driver's store: comma-separated name=path
	// entries, each a local directory or a .zip archive
	Mounts string `env:"DOCVIEW_MOUNTS"`

	// Poll interval for watching stores without native change events
	PollIntervalSeconds int `env:"DOCVIEW_POLL_INTERVAL_SECONDS,default:30"`

	// Remote documents
	DownloadTimeoutMS int    `env:"DOCVIEW_DOWNLOAD_TIMEOUT_MS,default:10000"`
	MaxDocumentSize   string `env:"DOCVIEW_MAX_DOCUMENT_SIZE,default:100MB"` // human size, e.g. 20MB

	// Classification
	Identification      string `env:"DOCVIEW_IDENTIFICATION,default:content"` // content or extension
	TrailerHeuristics   bool   `env:"DOCVIEW_TRAILER_HEURISTICS,default:false"`
	ContainerInspection bool   `env:"DOCVIEW_CONTAINER_INSPECTION,default:false"`
	DisabledPlugins     string `env:"DOCVIEW_DISABLED_PLUGINS"` // comma-separated plugin names

	// Listing cache, 0 disables
	ListCacheTTLSeconds int `env:"DOCVIEW_LIST_CACHE_TTL_SECONDS,default:0"`

	// Logging
	LogLevel  string `env:"DOCVIEW_LOG_LEVEL,default:info"`
	LogFormat string `env:"DOCVIEW_LOG_FORMAT,default:text"`

	// HTTP server
	ServerAddr string `env:"DOCVIEW_SERVER_ADDR"` // empty means :8080
}

// GetConfig returns config loaded from environment
func GetConfig() (*Config, error) {
	cfg := &Config{}
	if err := config.Load(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks configuration validity
func (c *Config) Validate() error {
	if c.Driver == "" {
		return errors.New("driver is required")
	}

	switch c.Driver {
	case "local":
		if c.LocalBasePath == "" {
			return errors.New("local base path is required for local driver")
		}
	case "s3":
		if c.S3Bucket == "" {
			return errors.New("S3 bucket is required for S3 driver")
		}
		// Credentials may come from the default chain
	case "gcs":
		if c.GCSBucket == "" {
			return errors.New("GCS bucket is required for GCS driver")
		}
	case "azure":
		if c.AzureAccountName == "" || c.AzureContainer == "" {
			return errors.New("azure account name and container are required for azure driver")
		}
	case "sftp":
		if c.SFTPHost == "" || c.SFTPUsername == "" {
			return errors.New("SFTP host and username are required for SFTP driver")
		}
		if c.SFTPPassword == "" && c.SFTPPrivateKeyFile == "" {
			return errors.New("SFTP password or private key file is required for SFTP driver")
		}
	case "zip":
		if c.ZipPath == "" {
			return errors.New("archive path is required for zip driver")
		}
	case "memory":
	default:
		return fmt.Errorf("unknown driver: %s", c.Driver)
	}

	switch c.Identification {
	case "", IdentifyByContent, IdentifyByExtension:
	default:
		return fmt.Errorf("unknown identification mode: %s", c.Identification)
	}

	if c.DownloadTimeoutMS < 0 {
		return errors.New("download timeout must not be negative")
	}
	if c.ListCacheTTLSeconds < 0 {
		return errors.New("list cache TTL must not be negative")
	}
	if c.PollIntervalSeconds < 0 {
		return errors.New("poll interval must not be negative")
	}

	if _, err := c.MaxDocumentBytes(); err != nil {
		return err
	}

	if _, err := c.MountList(); err != nil {
		return err
	}

	for _, name := range c.DisabledPluginList() {
		if !Plugin(name).Valid() {
			return fmt.Errorf("unknown plugin: %s", name)
		}
	}

	if _, err := parseLevel(c.LogLevel); err != nil {
		return err
	}

	return nil
}

// DownloadTimeout returns the per-request download timeout
func (c *Config) DownloadTimeout() time.Duration {
	if c.DownloadTimeoutMS <= 0 {
		return DefaultDownloadTimeout
	}
	return time.Duration(c.DownloadTimeoutMS) * time.Millisecond
}

// MaxDocumentBytes parses MaxDocumentSize. An empty value means no limit.
func (c *Config) MaxDocumentBytes() (int64, error) {
	if strings.TrimSpace(c.MaxDocumentSize) == "" {
		return 0, nil
	}
	size, err := units.FromHumanSize(c.MaxDocumentSize)
	if err != nil {
		return 0, fmt.Errorf("invalid max document size %q: %w", c.MaxDocumentSize, err)
	}
	if size < 0 {
		return 0, fmt.Errorf("invalid max document size %q", c.MaxDocumentSize)
	}
	return size, nil
}

// DisabledPluginList splits DisabledPlugins into trimmed, lower-case names
func (c *Config) DisabledPluginList() []Plugin {
	var plugins []Plugin
	for _, name := range strings.Split(c.DisabledPlugins, ",") {
		name = strings.ToLower(strings.TrimSpace(name))
		if name != "" {
			plugins = append(plugins, Plugin(name))
		}
	}
	return plugins
}

// MountSpec is one entry of Mounts
type MountSpec struct {
	Name string
	Path string
}

// Driver returns the driver serving the mount: zip for archives, local
// otherwise
func (m MountSpec) Driver() string {
	if strings.EqualFold(filepath.Ext(m.Path), ".zip") {
		return "zip"
	}
	return "local"
}

// MountList parses Mounts
func (c *Config) MountList() ([]MountSpec, error) {
	var specs []MountSpec
	seen := make(map[string]bool)
	for _, entry := range strings.Split(c.Mounts, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		name, target, ok := strings.Cut(entry, "=")
		name, target = strings.TrimSpace(name), strings.TrimSpace(target)
		if !ok || target == "" {
			return nil, fmt.Errorf("invalid mount %q: want name=path", entry)
		}
		clean, valid := normalizeMountName(name)
		if !valid {
			return nil, fmt.Errorf("invalid mount %q: %w", entry, ErrInvalidMountName)
		}
		if seen[clean] {
			return nil, fmt.Errorf("duplicate mount %q", clean)
		}
		seen[clean] = true
		specs = append(specs, MountSpec{Name: clean, Path: target})
	}
	return specs, nil
}

// ListCacheTTL returns the listing cache TTL, zero when caching is off
func (c *Config) ListCacheTTL() time.Duration {
	return time.Duration(c.ListCacheTTLSeconds) * time.Second
}

// PollInterval returns how often polling stores check for changes. Zero
// leaves the driver default.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalSeconds) * time.Second
}

// ListenAddr returns the HTTP listen address
func (c *Config) ListenAddr() string {
	if c.ServerAddr == "" {
		return ":8080"
	}
	return c.ServerAddr
}
