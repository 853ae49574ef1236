//go:build !tflite

package model

import "fmt"

type TFLiteClassifier struct{}

func NewTFLiteClassifier(cfg Config) (*TFLiteClassifier, error) {
	return nil, fmt.Errorf("%w: rebuild with -tags tflite to load %s", ErrNoBackend, cfg.Path)
}

func (c *TFLiteClassifier) NumClasses() int { return 0 }

func (c *TFLiteClassifier) Predict([]float32) ([]float32, error) {
	return nil, ErrNoBackend
}

func (c *TFLiteClassifier) Close() error { return nil }
