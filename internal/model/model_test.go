package model

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixedClassifier struct{ n int }

func (f fixedClassifier) Predict([]float32) ([]float32, error) { return make([]float32, f.n), nil }
func (f fixedClassifier) NumClasses() int                      { return f.n }
func (f fixedClassifier) Close() error                         { return nil }

func TestResolveBackend(t *testing.T) {
	testCases := []struct {
		name    string
		cfg     Config
		want    string
		wantErr bool
	}{
		{"onnx extension", Config{Path: "models/skin.onnx"}, BackendONNX, false},
		{"tflite extension", Config{Path: "models/skin.TFLITE"}, BackendTFLite, false},
		{"explicit overrides extension", Config{Path: "models/skin.bin", Backend: "ONNX"}, BackendONNX, false},
		{"keras file", Config{Path: "best_model_finetuned.h5"}, "", true},
		{"unknown backend", Config{Path: "skin.onnx", Backend: "torch"}, "", true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ResolveBackend(tc.cfg)
			if tc.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestOpenRequiresPath(t *testing.T) {
	c, err := Open(Config{})
	assert.Error(t, err)
	assert.Nil(t, c)
}

func TestCheckClasses(t *testing.T) {
	assert.NoError(t, CheckClasses(fixedClassifier{3}, []string{"A", "B", "C"}))

	err := CheckClasses(fixedClassifier{4}, []string{"A", "B", "C"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrLengthMismatch))
}

func TestCheckMetadataClasses(t *testing.T) {
	labels := []string{"Acne", "Eczema"}

	assert.NoError(t, CheckMetadataClasses(nil, labels))
	assert.NoError(t, CheckMetadataClasses(&Metadata{}, labels))
	assert.NoError(t, CheckMetadataClasses(&Metadata{Classes: []string{"Acne", "Eczema"}}, labels))
	assert.Error(t, CheckMetadataClasses(&Metadata{Classes: []string{"Eczema", "Acne"}}, labels))
	assert.Error(t, CheckMetadataClasses(&Metadata{Classes: []string{"Acne"}}, labels))
}

func TestLoadMetadata(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "model_metadata.json")
	content := `{"input_shape": [1, 224, 224, 3], "output_shape": [1, 5], "classes": ["a","b","c","d","e"], "image_size": 224, "input_name": "image"}`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	meta, err := LoadMetadata(path)
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 224, 224, 3}, meta.InputShape)
	assert.Equal(t, []int64{1, 5}, meta.OutputShape)
	assert.Equal(t, "image", meta.InputName)
	assert.Empty(t, meta.OutputName)
	assert.Len(t, meta.Classes, 5)

	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte(`{"input_shape": "x"}`), 0o644))
	_, err = LoadMetadata(bad)
	assert.Error(t, err)

	_, err = LoadMetadata(filepath.Join(dir, "missing.json"))
	assert.Error(t, err)
}

func TestShapeSize(t *testing.T) {
	assert.Equal(t, int64(150528), ShapeSize([]int64{1, 224, 224, 3}))
	assert.Equal(t, int64(0), ShapeSize(nil))
}
