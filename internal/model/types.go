package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
)

var (
	ErrLengthMismatch = errors.New("classifier output length does not match label count")
	ErrNoBackend      = errors.New("classifier backend not available in this build")
)

// Classifier is a trained model treated as a pure function from one
// preprocessed image to a probability vector.
type Classifier interface {
	Predict(input []float32) ([]float32, error)
	NumClasses() int
	Close() error
}

// Metadata describes an exported model. Every field is optional.
type Metadata struct {
	InputName   string   `json:"input_name"`
	OutputName  string   `json:"output_name"`
	InputShape  []int64  `json:"input_shape"`
	OutputShape []int64  `json:"output_shape"`
	Classes     []string `json:"classes"`
	ImageSize   int      `json:"image_size"`
}

func LoadMetadata(path string) (*Metadata, error) {
	metaFile, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read metadata: %w", err)
	}

	var metadata Metadata
	if err := json.Unmarshal(metaFile, &metadata); err != nil {
		return nil, fmt.Errorf("failed to parse metadata: %w", err)
	}
	return &metadata, nil
}

// ShapeSize is the element count of shape.
func ShapeSize(shape []int64) int64 {
	if len(shape) == 0 {
		return 0
	}
	n := int64(1)
	for _, d := range shape {
		n *= d
	}
	return n
}

// CheckClasses verifies that a classifier emits one value per label.
func CheckClasses(c Classifier, labels []string) error {
	if c.NumClasses() != len(labels) {
		return fmt.Errorf("%w: model has %d outputs, %d labels loaded", ErrLengthMismatch, c.NumClasses(), len(labels))
	}
	return nil
}

// CheckMetadataClasses verifies that the class list embedded in metadata,
// if any, equals the label file.
func CheckMetadataClasses(meta *Metadata, labels []string) error {
	if meta == nil || len(meta.Classes) == 0 {
		return nil
	}
	if len(meta.Classes) != len(labels) {
		return fmt.Errorf("metadata lists %d classes, %d labels loaded", len(meta.Classes), len(labels))
	}
	for i := range labels {
		if meta.Classes[i] != labels[i] {
			return fmt.Errorf("class %d is %q in metadata but %q in labels", i, meta.Classes[i], labels[i])
		}
	}
	return nil
}
