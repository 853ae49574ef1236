package diagnosis

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/gif"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Brownie44l1/skin-api/internal/knowledge"
	"github.com/Brownie44l1/skin-api/internal/model"
	"github.com/Brownie44l1/skin-api/internal/preprocess"
	"github.com/Brownie44l1/skin-api/internal/report"
)

type stubClassifier struct {
	probs   []float32
	err     error
	gotLen  int
	classes int
}

func (s *stubClassifier) Predict(input []float32) ([]float32, error) {
	s.gotLen = len(input)
	if s.err != nil {
		return nil, s.err
	}
	return s.probs, nil
}

func (s *stubClassifier) NumClasses() int {
	if s.classes > 0 {
		return s.classes
	}
	return len(s.probs)
}

func (s *stubClassifier) Close() error { return nil }

func newPreprocessor(t *testing.T) *preprocess.Preprocessor {
	t.Helper()
	p, err := preprocess.New(preprocess.Options{})
	require.NoError(t, err)
	return p
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: 200, G: 150, B: 120, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestNewRejectsLabelMismatch(t *testing.T) {
	_, err := New(&stubClassifier{classes: 4}, knowledge.Labels{"A", "B", "C"}, knowledge.NewBase(nil), newPreprocessor(t))
	require.Error(t, err)
	assert.True(t, errors.Is(err, model.ErrLengthMismatch))

	_, err = New(nil, knowledge.Labels{"A"}, nil, newPreprocessor(t))
	assert.Error(t, err)

	_, err = New(&stubClassifier{classes: 1}, knowledge.Labels{"A"}, nil, nil)
	assert.Error(t, err)
}

func TestDiagnoseEndToEnd(t *testing.T) {
	clf := &stubClassifier{probs: []float32{0.1, 0.7, 0.2}}
	svc, err := New(clf, knowledge.Labels{"A", "B", "C"}, knowledge.NewBase(nil), newPreprocessor(t))
	require.NoError(t, err)
	assert.Equal(t, knowledge.Labels{"A", "B", "C"}, svc.Labels())

	r, err := svc.DiagnoseReader(bytes.NewReader(pngBytes(t, 120, 80)))
	require.NoError(t, err)

	assert.Equal(t, 224*224*3, clf.gotLen)
	assert.Equal(t, "B", r.Label)
	assert.Equal(t, report.ModeFull, r.Mode)
	assert.Equal(t, "-", r.Explanation)
	assert.Equal(t, knowledge.DefaultWarning, r.Warning)
	require.NotNil(t, r.Symptoms)
	assert.Empty(t, r.Symptoms.Items)
	require.NotNil(t, r.Education)
	assert.Empty(t, r.Education.Items)
}

func TestDiagnosePropagatesErrors(t *testing.T) {
	boom := errors.New("boom")
	svc, err := New(&stubClassifier{err: boom, classes: 2}, knowledge.Labels{"A", "B"}, nil, newPreprocessor(t))
	require.NoError(t, err)

	_, err = svc.DiagnoseReader(bytes.NewReader(pngBytes(t, 10, 10)))
	assert.True(t, errors.Is(err, boom))

	short := &stubClassifier{probs: []float32{1}, classes: 2}
	svc, err = New(short, knowledge.Labels{"A", "B"}, nil, newPreprocessor(t))
	require.NoError(t, err)
	_, err = svc.DiagnoseReader(bytes.NewReader(pngBytes(t, 10, 10)))
	assert.True(t, errors.Is(err, report.ErrLengthMismatch))
}

func TestDecode(t *testing.T) {
	_, format, err := Decode(bytes.NewReader(pngBytes(t, 4, 4)))
	require.NoError(t, err)
	assert.Equal(t, "png", format)

	_, _, err = Decode(bytes.NewReader([]byte("definitely not an image")))
	assert.True(t, errors.Is(err, ErrUnsupportedFormat))

	var buf bytes.Buffer
	pal := image.NewPaletted(image.Rect(0, 0, 2, 2), color.Palette{color.Black, color.White})
	require.NoError(t, gif.Encode(&buf, pal, nil))
	_, _, err = Decode(&buf)
	assert.True(t, errors.Is(err, ErrUnsupportedFormat))

	truncated := pngBytes(t, 8, 8)[:40]
	_, _, err = Decode(bytes.NewReader(truncated))
	assert.Error(t, err)
}
