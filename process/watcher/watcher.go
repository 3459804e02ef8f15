// Package watcher runs the document pipeline over image files dropped into a directory.
package watcher

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/gabriel-vasile/mimetype"
	"github.com/sirupsen/logrus"

	"taller-ocr/pkg/ocr"
)

// Processor is the pipeline entry point; *ocr.Service satisfies it.
type Processor interface {
	Process(ctx context.Context, raw ocr.RawImage) (ocr.Outcome, error)
}

// Watcher processes supported images from Dir and writes <name>.json files to OutDir.
type Watcher struct {
	Dir      string
	OutDir   string
	Workers  int
	Debounce time.Duration
	// Timeout bounds each file; zero means no per-file deadline.
	Timeout time.Duration
	Proc    Processor
	Log     logrus.FieldLogger
}

// New returns a Watcher with a 300ms debounce and one worker per CPU.
func New(dir, outDir string, proc Processor, log logrus.FieldLogger) *Watcher {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Watcher{
		Dir:      dir,
		OutDir:   outDir,
		Workers:  runtime.NumCPU(),
		Debounce: 300 * time.Millisecond,
		Timeout:  60 * time.Second,
		Proc:     proc,
		Log:      log,
	}
}

type result struct {
	ocr.VehicleRecord
	Orientation int `json:"orientacion"`
}

type failure struct {
	Error string `json:"error"`
}

// ScanExisting processes every supported file already in Dir and waits for completion.
func (w *Watcher) ScanExisting(ctx context.Context) error {
	names, err := listImageFiles(w.Dir)
	if err != nil {
		return err
	}
	w.Log.WithFields(logrus.Fields{"dir": w.Dir, "files": len(names), "workers": w.workers()}).Info("scanning directory")
	ch := make(chan string)
	done := w.startPool(ctx, ch)
	for _, n := range names {
		select {
		case ch <- n:
		case <-ctx.Done():
		}
	}
	close(ch)
	<-done
	return ctx.Err()
}

// Run watches Dir for new files until ctx is cancelled. A file is processed once its events
// have been quiet for Debounce.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer fw.Close()
	if err := fw.Add(w.Dir); err != nil {
		return fmt.Errorf("watch %s: %w", w.Dir, err)
	}
	w.Log.WithField("dir", w.Dir).Info("watching directory")

	ch := make(chan string, 256)
	done := w.startPool(ctx, ch)
	defer func() {
		close(ch)
		<-done
	}()

	debounce := w.Debounce
	if debounce <= 0 {
		debounce = 300 * time.Millisecond
	}
	ticker := time.NewTicker(debounce / 2)
	defer ticker.Stop()
	pending := map[string]time.Time{}

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			name := filepath.Base(ev.Name)
			if !IsSupportedFile(name) {
				continue
			}
			// Writes only extend files already seen being created.
			if _, seen := pending[name]; ev.Has(fsnotify.Create) || (seen && ev.Has(fsnotify.Write)) {
				pending[name] = time.Now()
			}
		case now := <-ticker.C:
			for name, t := range pending {
				if now.Sub(t) < debounce {
					continue
				}
				delete(pending, name)
				select {
				case ch <- name:
				case <-ctx.Done():
					return nil
				}
			}
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.Log.WithError(err).Warn("watch error")
		}
	}
}

func (w *Watcher) workers() int {
	if w.Workers <= 0 {
		return runtime.NumCPU()
	}
	return w.Workers
}

// startPool consumes names until ch is closed; the returned channel closes once every worker exits.
func (w *Watcher) startPool(ctx context.Context, ch <-chan string) <-chan struct{} {
	done := make(chan struct{})
	var wg sync.WaitGroup
	for i := 0; i < w.workers(); i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for name := range ch {
				if ctx.Err() != nil {
					continue
				}
				if err := w.ProcessFile(ctx, name); err != nil {
					w.Log.WithError(err).WithField("file", name).Error("process file")
				}
			}
		}()
	}
	go func() {
		wg.Wait()
		close(done)
	}()
	return done
}

// ProcessFile runs the pipeline on Dir/name and writes OutDir/name.json. Pipeline failures end up
// in the output file; only I/O failures are returned.
func (w *Watcher) ProcessFile(ctx context.Context, name string) error {
	data, err := os.ReadFile(filepath.Join(w.Dir, name))
	if err != nil {
		return fmt.Errorf("read: %w", err)
	}
	if w.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, w.Timeout)
		defer cancel()
	}
	mediaType := mimetype.Detect(data).String()
	out, err := w.Proc.Process(ctx, ocr.RawImage{Data: data, MediaType: mediaType})

	log := w.Log.WithFields(logrus.Fields{"file": name, "media_type": mediaType, "elapsed_ms": out.Elapsed.Milliseconds()})
	var payload any
	switch {
	case err == nil:
		payload = result{VehicleRecord: out.Record, Orientation: out.Best.Orientation}
		log.WithField("orientation", out.Best.Orientation).Info("document processed")
	case errors.Is(err, ocr.ErrNoText):
		payload = failure{Error: "No se detectó texto en la imagen."}
		log.Warn("no text detected")
	default:
		payload = failure{Error: err.Error()}
		log.WithError(err).Warn("document failed")
	}
	return writeJSON(filepath.Join(w.OutDir, name+".json"), payload)
}

// writeJSON writes through a temp file and renames so readers never see partial output.
func writeJSON(path string, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, append(b, '\n'), 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// IsSupportedFile reports whether name has an accepted image extension.
func IsSupportedFile(name string) bool {
	if strings.HasPrefix(name, ".") {
		return false
	}
	switch strings.ToLower(filepath.Ext(name)) {
	case ".jpg", ".jpeg", ".png", ".webp", ".heic", ".heif":
		return true
	}
	return false
}

func listImageFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() || !IsSupportedFile(e.Name()) {
			continue
		}
		out = append(out, e.Name())
	}
	sort.Strings(out)
	return out, nil
}
