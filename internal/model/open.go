package model

import (
	"fmt"
	"path/filepath"
	"strings"
)

const (
	BackendONNX   = "onnx"
	BackendTFLite = "tflite"
)

type Config struct {
	Path              string
	Backend           string
	MetadataPath      string
	SharedLibraryPath string
	InputName         string
	OutputName        string
	// InputShape is the batched shape produced by the preprocessor.
	InputShape []int64
	// NumClasses is used as the output width when no metadata is given.
	NumClasses int
	Threads    int
}

// ResolveBackend picks the backend named in config, falling back to the
// model file extension.
func ResolveBackend(cfg Config) (string, error) {
	backend := strings.ToLower(strings.TrimSpace(cfg.Backend))
	if backend == "" {
		switch strings.ToLower(filepath.Ext(cfg.Path)) {
		case ".onnx":
			backend = BackendONNX
		case ".tflite":
			backend = BackendTFLite
		default:
			return "", fmt.Errorf("cannot infer backend from model path %q", cfg.Path)
		}
	}
	switch backend {
	case BackendONNX, BackendTFLite:
		return backend, nil
	default:
		return "", fmt.Errorf("unknown model backend %q", cfg.Backend)
	}
}

// Open loads the model once. The caller owns the returned classifier and
// must Close it on shutdown.
func Open(cfg Config) (Classifier, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("model path required")
	}
	backend, err := ResolveBackend(cfg)
	if err != nil {
		return nil, err
	}

	if backend == BackendTFLite {
		c, err := NewTFLiteClassifier(cfg)
		if err != nil {
			return nil, err
		}
		return c, nil
	}
	c, err := NewONNXClassifier(cfg)
	if err != nil {
		return nil, err
	}
	return c, nil
}
