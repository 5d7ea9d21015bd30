package log

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/klauspost/compress/zstd"
)

const hourLayout = "2006-01-02-15"

// JSONLZstdWriter appends JSON lines to hourly zstd files named <prefix>-YYYY-MM-DD-HH.jsonl.zst.
// Every line is flushed through the encoder before Write returns, so a crashed run loses at most
// the entry being written. Reopening an hour appends a new zstd frame; readers see one stream.
type JSONLZstdWriter struct {
	dir    string
	prefix string
	now    func() time.Time

	mu    sync.Mutex
	hour  string
	file  *os.File
	enc   *zstd.Encoder
	buf   *bufio.Writer
	stats WriterStats
}

type WriterStats struct {
	Lines uint64
	Files uint64
}

func NewJSONLZstdWriter(dir, prefix string) *JSONLZstdWriter {
	return &JSONLZstdWriter{dir: dir, prefix: prefix, now: time.Now}
}

func (w *JSONLZstdWriter) Stats() WriterStats {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.stats
}

func (w *JSONLZstdWriter) Write(v any) error {
	line, err := json.Marshal(v)
	if err != nil {
		return err
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.rotateIfNeeded(w.now()); err != nil {
		return err
	}
	line = append(line, '\n')
	if _, err := w.buf.Write(line); err != nil {
		return err
	}
	if err := w.buf.Flush(); err != nil {
		return err
	}
	w.stats.Lines++
	return nil
}

func (w *JSONLZstdWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.closeFile()
}

// rotateIfNeeded switches files when now falls in a different UTC hour than the open file.
// The clock is a field so tests can cross an hour boundary without sleeping.
func (w *JSONLZstdWriter) rotateIfNeeded(now time.Time) error {
	hour := now.UTC().Format(hourLayout)
	if hour == w.hour && w.buf != nil {
		return nil
	}
	if err := w.closeFile(); err != nil {
		return err
	}
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(w.path(hour), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		_ = f.Close()
		return err
	}
	w.file, w.enc, w.hour = f, enc, hour
	w.buf = bufio.NewWriterSize(enc, 64*1024)
	w.stats.Files++
	return nil
}

func (w *JSONLZstdWriter) closeFile() error {
	if w.file == nil {
		return nil
	}
	var errs []error
	if err := w.buf.Flush(); err != nil {
		errs = append(errs, err)
	}
	if err := w.enc.Close(); err != nil {
		errs = append(errs, err)
	}
	if err := w.file.Close(); err != nil {
		errs = append(errs, err)
	}
	w.file, w.enc, w.buf, w.hour = nil, nil, nil, ""
	if len(errs) > 0 {
		return fmt.Errorf("close %s log: %w", w.prefix, errors.Join(errs...))
	}
	return nil
}

func (w *JSONLZstdWriter) path(hour string) string {
	return filepath.Join(w.dir, fmt.Sprintf("%s-%s.jsonl.zst", w.prefix, hour))
}
