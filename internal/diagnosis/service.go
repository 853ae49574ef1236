package diagnosis

import (
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Brownie44l1/skin-api/internal/knowledge"
	"github.com/Brownie44l1/skin-api/internal/model"
	"github.com/Brownie44l1/skin-api/internal/preprocess"
	"github.com/Brownie44l1/skin-api/internal/report"
)

var ErrUnsupportedFormat = errors.New("unsupported image format, use JPEG or PNG")

// Service holds everything loaded at startup. Nothing in it is mutated
// after New returns.
type Service struct {
	classifier   model.Classifier
	labels       knowledge.Labels
	base         *knowledge.Base
	preprocessor *preprocess.Preprocessor
}

func New(classifier model.Classifier, labels knowledge.Labels, base *knowledge.Base, pre *preprocess.Preprocessor) (*Service, error) {
	if classifier == nil {
		return nil, errors.New("classifier required")
	}
	if pre == nil {
		return nil, errors.New("preprocessor required")
	}
	if err := model.CheckClasses(classifier, labels); err != nil {
		return nil, err
	}

	for _, label := range labels {
		if !base.Has(label) {
			logrus.WithField("label", label).Warn("no knowledge record for label, defaults will be shown")
		}
	}

	return &Service{
		classifier:   classifier,
		labels:       labels,
		base:         base,
		preprocessor: pre,
	}, nil
}

func (s *Service) Labels() knowledge.Labels { return s.labels }

// Diagnose runs one classify-and-compose pass.
func (s *Service) Diagnose(img image.Image) (*report.Report, error) {
	start := time.Now()

	tensor, err := s.preprocessor.Process(img)
	if err != nil {
		return nil, fmt.Errorf("preprocess: %w", err)
	}

	probs, err := s.classifier.Predict(tensor.Data)
	if err != nil {
		return nil, fmt.Errorf("predict: %w", err)
	}

	r, err := report.Compose(s.labels, probs, s.base)
	if err != nil {
		return nil, fmt.Errorf("compose: %w", err)
	}

	logrus.WithFields(logrus.Fields{
		"label":      r.Label,
		"confidence": r.ConfidenceText,
		"mode":       r.Mode,
		"elapsed_ms": time.Since(start).Milliseconds(),
	}).Info("diagnosis complete")

	return r, nil
}

// Decode reads a JPEG or PNG image.
func Decode(r io.Reader) (image.Image, string, error) {
	img, format, err := image.Decode(r)
	if err != nil {
		if errors.Is(err, image.ErrFormat) {
			return nil, "", ErrUnsupportedFormat
		}
		return nil, "", fmt.Errorf("decode image: %w", err)
	}
	if format != "jpeg" && format != "png" {
		return nil, "", ErrUnsupportedFormat
	}
	return img, format, nil
}

// DiagnoseReader decodes the upload and diagnoses it.
func (s *Service) DiagnoseReader(r io.Reader) (*report.Report, error) {
	img, _, err := Decode(r)
	if err != nil {
		return nil, err
	}
	return s.Diagnose(img)
}
