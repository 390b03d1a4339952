package main

import (
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/apex/log"

	"maskwatch/internal/api"
	"maskwatch/internal/capture"
	"maskwatch/internal/config"
	"maskwatch/internal/detector"
	"maskwatch/internal/metrics"
	"maskwatch/internal/monitor"
	"maskwatch/internal/pipeline"
	"maskwatch/internal/stats"
	"maskwatch/internal/storage"
	"maskwatch/internal/ws"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatal("invalid configuration")
	}

	m := metrics.New()

	var remote detector.Detector
	if cfg.DetectURL != "" {
		remote = detector.NewRemoteDetector(cfg.DetectURL, cfg.DetectTimeout)
		log.WithField("url", cfg.DetectURL).Info("detection backend configured")
	} else {
		log.Warn("no DETECT_URL configured, every detection will be synthetic")
	}

	seed := cfg.SyntheticSeed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	detectClient := detector.NewClient(remote, detector.NewSyntheticDetector(seed), m)

	tracker := stats.NewTracker()
	pipe := pipeline.New(detectClient, tracker, m)

	camera := capture.NewCameraSource(cfg.CameraSnapshotURL, cfg.CameraTimeout)
	gate := &capture.Gate{}
	hub := ws.NewHub()

	var archive storage.Archive
	if cfg.SnapshotDir != "" {
		snapshotArchive, err := storage.NewSnapshotArchive(cfg.SnapshotDir)
		if err != nil {
			log.WithError(err).Fatal("failed to initialize snapshot archive")
		}
		archive = snapshotArchive
		log.WithField("dir", cfg.SnapshotDir).Info("snapshot archive enabled")
	}

	sched := monitor.NewScheduler(camera, pipe, gate, hub, monitor.RealClock(), m, archive)

	app := &api.App{
		Pipeline:        pipe,
		Detect:          detectClient,
		Camera:          camera,
		Gate:            gate,
		Monitor:         sched,
		Hub:             hub,
		Metrics:         m,
		Archive:         archive,
		MaxUploadSize:   cfg.MaxUploadSize,
		MonitorInterval: cfg.MonitorInterval,
	}

	router := api.NewRouter(app)

	// Stop monitoring and release the camera before the process exits.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Info("shutting down")
		sched.Stop()
		os.Exit(0)
	}()

	log.WithFields(log.Fields{
		"port":            cfg.Port,
		"max_upload_size": cfg.MaxUploadSize,
	}).Info("server starting")

	if err := http.ListenAndServe(":"+cfg.Port, router); err != nil {
		log.WithError(err).Fatal("server failed")
	}
}
