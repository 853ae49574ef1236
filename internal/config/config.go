package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Log        LogConfig        `yaml:"log"`
	Model      ModelConfig      `yaml:"model"`
	Data       DataConfig       `yaml:"data"`
	Preprocess PreprocessConfig `yaml:"preprocess"`
}

type ServerConfig struct {
	Port           int      `yaml:"port"`
	MaxUploadMB    int      `yaml:"max_upload_mb"`
	AllowedOrigins []string `yaml:"allowed_origins"`
}

type LogConfig struct {
	Level      string `yaml:"level"`
	Format     string `yaml:"format"`
	File       string `yaml:"file"`
	Console    bool   `yaml:"console"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
}

type ModelConfig struct {
	Path              string `yaml:"path"`
	Backend           string `yaml:"backend"`
	MetadataPath      string `yaml:"metadata_path"`
	SharedLibraryPath string `yaml:"shared_library_path"`
	InputName         string `yaml:"input_name"`
	OutputName        string `yaml:"output_name"`
	Threads           int    `yaml:"threads"`
}

type DataConfig struct {
	LabelsPath    string `yaml:"labels_path"`
	KnowledgePath string `yaml:"knowledge_path"`
}

type PreprocessConfig struct {
	Size          int    `yaml:"size"`
	Layout        string `yaml:"layout"`
	Interpolation string `yaml:"interpolation"`
}

func Default() *Config {
	return &Config{
		Server: ServerConfig{Port: 8080, MaxUploadMB: 10},
		Log:    LogConfig{Level: "info", Format: "text", Console: true, MaxSizeMB: 100, MaxBackups: 3, MaxAgeDays: 30},
		Model: ModelConfig{
			Path:       filepath.Join("models", "skin_model.onnx"),
			InputName:  "input",
			OutputName: "output",
		},
		Data: DataConfig{
			LabelsPath:    filepath.Join("data", "class_labels.json"),
			KnowledgePath: filepath.Join("data", "edukasi.json"),
		},
		Preprocess: PreprocessConfig{Size: 224, Layout: "nhwc", Interpolation: "bicubic"},
	}
}

// Load reads configFile, or the first default location that exists, over
// the built-in defaults and then applies environment overrides. A missing
// default file is not an error; a missing or malformed explicit file is.
func Load(configFile string) (*Config, error) {
	c := Default()

	paths := []string{"etc/config.yaml", "/etc/skin-api/config.yaml"}
	if configFile != "" {
		paths = []string{configFile}
	}
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			if configFile != "" {
				return nil, fmt.Errorf("read config: %w", err)
			}
			continue
		}
		if err := yaml.Unmarshal(data, c); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
		break
	}

	envOverride(&c.Model.Path, "MODEL_PATH")
	envOverride(&c.Model.Backend, "MODEL_BACKEND")
	envOverride(&c.Model.MetadataPath, "MODEL_METADATA_PATH")
	envOverride(&c.Model.SharedLibraryPath, "ONNXRUNTIME_LIB")
	envOverride(&c.Data.LabelsPath, "LABELS_PATH")
	envOverride(&c.Data.KnowledgePath, "KNOWLEDGE_PATH")
	envOverride(&c.Log.Level, "LOG_LEVEL")
	envOverride(&c.Log.File, "LOG_FILE")
	envOverrideInt(&c.Server.Port, "PORT")
	if v := strings.TrimSpace(os.Getenv("ALLOWED_ORIGINS")); v != "" {
		c.Server.AllowedOrigins = strings.Split(v, ",")
	}

	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port %d", c.Server.Port)
	}
	if c.Server.MaxUploadMB <= 0 {
		return fmt.Errorf("max_upload_mb must be positive")
	}
	if c.Model.Path == "" {
		return fmt.Errorf("model path required")
	}
	if c.Data.LabelsPath == "" || c.Data.KnowledgePath == "" {
		return fmt.Errorf("labels and knowledge paths required")
	}
	return nil
}

// Resolve makes relative data and model paths absolute against root.
func (c *Config) Resolve(root string) {
	for _, p := range []*string{
		&c.Model.Path, &c.Model.MetadataPath, &c.Data.LabelsPath, &c.Data.KnowledgePath,
	} {
		if *p != "" && !filepath.IsAbs(*p) {
			*p = filepath.Join(root, *p)
		}
	}
}

func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Server.Port)
}

func (c *Config) MaxUploadBytes() int64 {
	return int64(c.Server.MaxUploadMB) << 20
}

func envOverride(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func envOverrideInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}
