package handlers

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"html/template"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/Brownie44l1/skin-api/internal/diagnosis"
	"github.com/Brownie44l1/skin-api/internal/report"
)

const formField = "image"

var allowedExt = map[string]bool{".jpg": true, ".jpeg": true, ".png": true}

type Handler struct {
	svc       *diagnosis.Service
	maxUpload int64
}

func NewHandler(svc *diagnosis.Service, maxUpload int64) *Handler {
	return &Handler{
		svc:       svc,
		maxUpload: maxUpload,
	}
}

type pageData struct {
	Error    string
	Report   *report.Report
	ImageURI template.URL
}

// uploadError carries the status code to answer with.
type uploadError struct {
	status int
	msg    string
}

func (e *uploadError) Error() string { return e.msg }

func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"classes": len(h.svc.Labels()),
	})
}

func (h *Handler) Labels(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"labels": h.svc.Labels()})
}

func (h *Handler) Index(c *gin.Context) {
	c.HTML(http.StatusOK, "index.html", pageData{})
}

// PredictPage renders the result page for an uploaded image.
func (h *Handler) PredictPage(c *gin.Context) {
	data, err := h.readUpload(c)
	if err != nil {
		c.HTML(statusOf(err), "index.html", pageData{Error: err.Error()})
		return
	}

	r, format, err := h.diagnose(c, data)
	if err != nil {
		c.HTML(statusOf(err), "index.html", pageData{Error: err.Error()})
		return
	}

	c.HTML(http.StatusOK, "result.html", pageData{
		Report:   r,
		ImageURI: dataURI(format, data),
	})
}

// PredictJSON is the API form of PredictPage.
func (h *Handler) PredictJSON(c *gin.Context) {
	data, err := h.readUpload(c)
	if err != nil {
		c.JSON(statusOf(err), gin.H{"error": err.Error()})
		return
	}

	r, _, err := h.diagnose(c, data)
	if err != nil {
		c.JSON(statusOf(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, r)
}

func (h *Handler) readUpload(c *gin.Context) ([]byte, error) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUpload)

	header, err := c.FormFile(formField)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, &uploadError{http.StatusRequestEntityTooLarge,
				fmt.Sprintf("Ukuran gambar melebihi batas %d MB.", h.maxUpload>>20)}
		}
		return nil, &uploadError{http.StatusBadRequest,
			"Silakan pilih file gambar untuk diunggah (field 'image')."}
	}

	ext := strings.ToLower(filepath.Ext(header.Filename))
	if !allowedExt[ext] {
		return nil, &uploadError{http.StatusBadRequest,
			"Format file tidak didukung. Gunakan JPG, JPEG, atau PNG."}
	}

	file, err := header.Open()
	if err != nil {
		return nil, fmt.Errorf("open upload: %w", err)
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}

	logrus.WithFields(logrus.Fields{
		"request_id": requestID(c),
		"file":       header.Filename,
		"size":       header.Size,
	}).Info("received image")

	return data, nil
}

func (h *Handler) diagnose(c *gin.Context, data []byte) (*report.Report, string, error) {
	img, format, err := diagnosis.Decode(bytes.NewReader(data))
	if err != nil {
		if errors.Is(err, diagnosis.ErrUnsupportedFormat) {
			return nil, "", &uploadError{http.StatusBadRequest, "Format gambar tidak valid. Gunakan JPEG atau PNG."}
		}
		return nil, "", &uploadError{http.StatusBadRequest, fmt.Sprintf("Gambar tidak dapat dibaca: %v", err)}
	}

	b := img.Bounds()
	logrus.WithFields(logrus.Fields{
		"request_id": requestID(c),
		"format":     format,
		"width":      b.Dx(),
		"height":     b.Dy(),
	}).Debug("decoded image")

	r, err := h.svc.Diagnose(img)
	if err != nil {
		logrus.WithError(err).WithField("request_id", requestID(c)).Error("diagnosis failed")
		return nil, "", &uploadError{http.StatusInternalServerError, "Prediksi gagal. Silakan coba lagi."}
	}
	return r, format, nil
}

func statusOf(err error) int {
	var ue *uploadError
	if errors.As(err, &ue) {
		return ue.status
	}
	return http.StatusInternalServerError
}

func dataURI(format string, data []byte) template.URL {
	mime := "image/jpeg"
	if format == "png" {
		mime = "image/png"
	}
	return template.URL("data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(data))
}
