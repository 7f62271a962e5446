package source

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/Adithya-Monish-Kumar-K/rankengine/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/rankengine/internal/ingestion/validator"
)

const (
	maxLineBytes    = validator.MaxTextLength + 4096
	defaultDebounce = 200 * time.Millisecond
)

// FileSource reads one {"id":..,"text":..} object per line. Blank lines are
// skipped.
type FileSource struct {
	path     string
	debounce time.Duration
	logger   *slog.Logger
}

func NewFileSource(path string) *FileSource {
	return &FileSource{
		path:     path,
		debounce: defaultDebounce,
		logger:   slog.Default().With("component", "file-source", "path", path),
	}
}

func (s *FileSource) Name() string { return "file:" + s.path }

func (s *FileSource) Load(ctx context.Context) ([]index.Document, error) {
	f, err := os.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", s.path, err)
	}
	defer f.Close()

	var docs []index.Document
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	line := 0
	for scanner.Scan() {
		line++
		if line%1000 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		raw := strings.TrimSpace(scanner.Text())
		if raw == "" {
			continue
		}
		var doc index.Document
		if err := json.Unmarshal([]byte(raw), &doc); err != nil {
			return nil, fmt.Errorf("%s:%d: %w", s.path, line, err)
		}
		if err := validator.ValidateDocument(doc); err != nil {
			return nil, fmt.Errorf("%s:%d: %w", s.path, line, err)
		}
		docs = append(docs, doc)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading %s: %w", s.path, err)
	}
	return docs, nil
}

// Watch re-loads the file into sink whenever it is written, until ctx is
// cancelled. Bursts of events within the debounce window trigger one reload.
// The parent directory is watched so editors that replace the file on save
// are still seen.
func (s *FileSource) Watch(ctx context.Context, sink Sink) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer w.Close()

	target := filepath.Clean(s.path)
	if err := w.Add(filepath.Dir(target)); err != nil {
		return fmt.Errorf("watching %s: %w", filepath.Dir(target), err)
	}
	s.logger.Info("watching for changes")

	timer := time.NewTimer(s.debounce)
	if !timer.Stop() {
		<-timer.C
	}
	for {
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil
		case event, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			timer.Reset(s.debounce)
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			s.logger.Error("watcher error", "error", err)
		case <-timer.C:
			if _, err := LoadInto(ctx, s, sink); err != nil {
				s.logger.Error("reload failed", "error", err)
			}
		}
	}
}
