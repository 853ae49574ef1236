package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/Brownie44l1/skin-api/internal/config"
	"github.com/Brownie44l1/skin-api/internal/diagnosis"
	"github.com/Brownie44l1/skin-api/internal/handlers"
	"github.com/Brownie44l1/skin-api/internal/knowledge"
	"github.com/Brownie44l1/skin-api/internal/logger"
	"github.com/Brownie44l1/skin-api/internal/model"
	"github.com/Brownie44l1/skin-api/internal/preprocess"
)

func main() {
	configFile := flag.String("config", "", "config file path (e.g. etc/config.yaml)")
	flag.Parse()

	cfg, err := config.Load(*configFile)
	if err != nil {
		logrus.Fatalf("load config: %v", err)
	}
	logger.Init(cfg.Log)

	// Get the project root directory
	root, err := os.Getwd()
	if err != nil {
		logrus.Fatalf("determine working directory: %v", err)
	}
	// If running from cmd/server, go up two levels
	if filepath.Base(root) == "server" {
		root = filepath.Join(root, "../..")
	}
	cfg.Resolve(root)

	labels, err := knowledge.LoadLabels(cfg.Data.LabelsPath)
	if err != nil {
		logrus.Fatalf("load labels: %v", err)
	}
	base, err := knowledge.LoadBase(cfg.Data.KnowledgePath)
	if err != nil {
		logrus.Fatalf("load knowledge: %v", err)
	}

	pre, err := preprocess.New(preprocess.Options{
		Size:          cfg.Preprocess.Size,
		Layout:        preprocess.Layout(cfg.Preprocess.Layout),
		Interpolation: cfg.Preprocess.Interpolation,
	})
	if err != nil {
		logrus.Fatalf("preprocessor: %v", err)
	}

	modelCfg := model.Config{
		Path:              cfg.Model.Path,
		Backend:           cfg.Model.Backend,
		MetadataPath:      cfg.Model.MetadataPath,
		SharedLibraryPath: cfg.Model.SharedLibraryPath,
		InputName:         cfg.Model.InputName,
		OutputName:        cfg.Model.OutputName,
		InputShape:        pre.Shape(),
		NumClasses:        len(labels),
		Threads:           cfg.Model.Threads,
	}
	if cfg.Model.MetadataPath != "" {
		meta, err := model.LoadMetadata(cfg.Model.MetadataPath)
		if err != nil {
			logrus.Fatalf("load model metadata: %v", err)
		}
		if err := model.CheckMetadataClasses(meta, labels); err != nil {
			logrus.Fatalf("model metadata: %v", err)
		}
		if meta.ImageSize != 0 && meta.ImageSize != pre.Size() {
			logrus.Fatalf("model expects %dpx images, preprocessor is configured for %dpx", meta.ImageSize, pre.Size())
		}
	}

	logrus.WithField("path", modelCfg.Path).Info("loading model")
	classifier, err := model.Open(modelCfg)
	if err != nil {
		logrus.Fatalf("open model: %v", err)
	}
	defer classifier.Close()

	svc, err := diagnosis.New(classifier, labels, base, pre)
	if err != nil {
		logrus.Fatalf("initialize diagnosis service: %v", err)
	}

	gin.SetMode(gin.ReleaseMode)
	router := handlers.NewRouter(
		handlers.NewHandler(svc, cfg.MaxUploadBytes()),
		handlers.RouterOptions{AllowedOrigins: cfg.Server.AllowedOrigins},
	)

	srv := &http.Server{Addr: cfg.Addr(), Handler: router}

	logrus.WithFields(logrus.Fields{
		"addr":    cfg.Addr(),
		"classes": len(labels),
		"records": base.Len(),
		"layout":  pre.Layout(),
	}).Info("server starting")
	logrus.Infof("Upload test: curl -X POST -F \"image=@kulit.jpg\" http://localhost%s/api/predict", cfg.Addr())

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logrus.Fatalf("server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logrus.WithError(err).Warn("server shutdown")
	}
	logrus.Info("server stopped")
}
