package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// EncoderType selects the active embedding backend.
type EncoderType string

const (
	EncoderCLIP   EncoderType = "clip"
	EncoderDINOv2 EncoderType = "dinov2"
)

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	MinIO    MinIOConfig    `yaml:"minio"`
	NATS     NATSConfig     `yaml:"nats"`
	Encoder  EncoderConfig  `yaml:"encoder"`
	Border   BorderConfig   `yaml:"border"`
	Matcher  MatcherConfig  `yaml:"matcher"`
	Storage  StorageConfig  `yaml:"storage"`
	Logging  LoggingConfig  `yaml:"logging"`
}

type ServerConfig struct {
	Port   int    `yaml:"port"`
	APIKey string `yaml:"api_key"`
}

type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	MaxConns int    `yaml:"max_conns"`
}

func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		d.User, d.Password, d.Host, d.Port, d.Name)
}

type MinIOConfig struct {
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	Bucket    string `yaml:"bucket"`
	UseSSL    bool   `yaml:"use_ssl"`
}

type NATSConfig struct {
	URL string `yaml:"url"`
}

// EncoderConfig selects the active encoder type plus the model-artifact
// locations each backend needs to initialize its ONNX Runtime session.
type EncoderConfig struct {
	Type           EncoderType `yaml:"type"`
	ModelsDir      string      `yaml:"models_dir"`
	DMax           int         `yaml:"d_max"`
	IntraOpThreads int         `yaml:"intra_op_threads"`
	InterOpThreads int         `yaml:"inter_op_threads"`
	DINOv2Variant  string      `yaml:"dinov2_variant"` // "small"|"base"|"large" -> native dim
}

// BorderConfig holds the border detector's tunables, including whether
// detection is enabled at all.
type BorderConfig struct {
	Enabled          bool    `yaml:"enabled"`
	ConfidenceFloor  float64 `yaml:"confidence_floor"`
	RMinFraction     float64 `yaml:"r_min_fraction"`
	RMaxFraction     float64 `yaml:"r_max_fraction"`
	MinContourAreaFr float64 `yaml:"min_contour_area_fraction"`
}

// MatcherConfig holds the search defaults: how many results to return, the
// similarity floor, and how much to oversample before per-disc aggregation.
type MatcherConfig struct {
	MaxImageBytes int64   `yaml:"max_image_bytes"`
	DefaultTopK   int     `yaml:"default_top_k"`
	MinSimilarity float64 `yaml:"min_similarity"`
	Oversample    int     `yaml:"oversample"`
	ANNThreshold  int     `yaml:"ann_threshold"`
}

type StorageConfig struct {
	UploadRoot string `yaml:"upload_root"`
	Backend    string `yaml:"backend"` // "minio" | "local"
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Load reads config from YAML and applies environment variable overrides.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	applyEnvOverrides(cfg)
	setDefaults(cfg)

	if err := validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

func setDefaults(cfg *Config) {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = 5432
	}
	if cfg.Database.MaxConns == 0 {
		cfg.Database.MaxConns = 20
	}
	if cfg.Encoder.Type == "" {
		cfg.Encoder.Type = EncoderCLIP
	}
	if cfg.Encoder.DMax == 0 {
		cfg.Encoder.DMax = 1024
	}
	if cfg.Encoder.DINOv2Variant == "" {
		cfg.Encoder.DINOv2Variant = "base"
	}
	if cfg.Border.ConfidenceFloor == 0 {
		cfg.Border.ConfidenceFloor = 0.5
	}
	if cfg.Border.RMinFraction == 0 {
		cfg.Border.RMinFraction = 0.25
	}
	if cfg.Border.RMaxFraction == 0 {
		cfg.Border.RMaxFraction = 1.0
	}
	if cfg.Border.MinContourAreaFr == 0 {
		cfg.Border.MinContourAreaFr = 0.15
	}
	if cfg.Matcher.MaxImageBytes == 0 {
		cfg.Matcher.MaxImageBytes = 10 * 1024 * 1024
	}
	if cfg.Matcher.DefaultTopK == 0 {
		cfg.Matcher.DefaultTopK = 5
	}
	if cfg.Matcher.Oversample == 0 {
		cfg.Matcher.Oversample = 3
	}
	if cfg.Matcher.ANNThreshold == 0 {
		cfg.Matcher.ANNThreshold = 5000
	}
	if cfg.Storage.UploadRoot == "" {
		cfg.Storage.UploadRoot = "discs"
	}
	if cfg.Storage.Backend == "" {
		cfg.Storage.Backend = "minio"
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
}

func validate(cfg *Config) error {
	switch cfg.Encoder.Type {
	case EncoderCLIP, EncoderDINOv2:
	default:
		return fmt.Errorf("unknown encoder_type %q", cfg.Encoder.Type)
	}
	if cfg.Storage.Backend == "minio" && cfg.MinIO.Bucket == "" {
		return fmt.Errorf("minio.bucket is required when storage.backend=minio")
	}
	return nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("DISCID_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("DISCID_API_KEY"); v != "" {
		cfg.Server.APIKey = v
	}
	if v := os.Getenv("DISCID_DB_HOST"); v != "" {
		cfg.Database.Host = v
	}
	if v := os.Getenv("DISCID_DB_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Database.Port = port
		}
	}
	if v := os.Getenv("DISCID_DB_NAME"); v != "" {
		cfg.Database.Name = v
	}
	if v := os.Getenv("DISCID_DB_USER"); v != "" {
		cfg.Database.User = v
	}
	if v := os.Getenv("DISCID_DB_PASSWORD"); v != "" {
		cfg.Database.Password = v
	}
	if v := os.Getenv("DISCID_MINIO_ENDPOINT"); v != "" {
		cfg.MinIO.Endpoint = v
	}
	if v := os.Getenv("DISCID_MINIO_ACCESS_KEY"); v != "" {
		cfg.MinIO.AccessKey = v
	}
	if v := os.Getenv("DISCID_MINIO_SECRET_KEY"); v != "" {
		cfg.MinIO.SecretKey = v
	}
	if v := os.Getenv("DISCID_MINIO_BUCKET"); v != "" {
		cfg.MinIO.Bucket = v
	}
	if v := os.Getenv("DISCID_NATS_URL"); v != "" {
		cfg.NATS.URL = v
	}
	if v := os.Getenv("DISCID_ENCODER_TYPE"); v != "" {
		cfg.Encoder.Type = EncoderType(v)
	}
	if v := os.Getenv("DISCID_MODELS_DIR"); v != "" {
		cfg.Encoder.ModelsDir = v
	}
	if v := os.Getenv("DISCID_UPLOAD_ROOT"); v != "" {
		cfg.Storage.UploadRoot = v
	}
}
