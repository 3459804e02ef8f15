package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"taller-ocr/pkg/engine"
	"taller-ocr/pkg/ocr"
	"taller-ocr/process/watcher"
)

// Watches a directory of document photos and writes one JSON record per image.
func main() {
	dir := flag.String("dir", "inbox", "directory to watch for document photos")
	out := flag.String("out", "outbox", "directory for <name>.json results")
	workers := flag.Int("workers", 0, "worker pool size (default NumCPU)")
	scan := flag.Bool("scan", false, "process files already present before watching")
	once := flag.Bool("once", false, "exit after -scan instead of watching")
	timeout := flag.Duration("timeout", 60*time.Second, "per-file deadline")
	flag.Parse()

	_ = godotenv.Load()
	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{})
	if lvl, err := logrus.ParseLevel(os.Getenv("LOG_LEVEL")); err == nil {
		log.SetLevel(lvl)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rec, closer, err := engine.New(ctx, os.Getenv("OCR_ENGINE"), os.LookupEnv)
	if err != nil {
		log.WithError(err).Fatal("OCR engine init failed")
	}
	defer closer.Close()

	w := watcher.New(*dir, *out, ocr.NewService(rec, log), log)
	w.Timeout = *timeout
	if *workers > 0 {
		w.Workers = *workers
	}

	if *scan || *once {
		if err := w.ScanExisting(ctx); err != nil {
			log.WithError(err).Error("scan failed")
		}
		if *once {
			return
		}
	}
	if err := w.Run(ctx); err != nil {
		log.WithError(err).Fatal("watch failed")
	}
}
