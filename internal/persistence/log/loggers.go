package log

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/klauspost/compress/zstd"

	"gridscout.ai/internal/agent"
)

// JSONLZstdWriter appends JSON lines to hourly zstd files named
// <prefix>-<yyyy-mm-dd-hh>.jsonl.zst under baseDir.
type JSONLZstdWriter struct {
	baseDir string
	prefix  string
	now     func() time.Time

	mu      sync.Mutex
	curHour string
	f       *os.File
	enc     *zstd.Encoder
	w       *bufio.Writer
	lines   int
}

func NewJSONLZstdWriter(baseDir, prefix string) *JSONLZstdWriter {
	return &JSONLZstdWriter{
		baseDir: baseDir,
		prefix:  prefix,
		now:     time.Now,
	}
}

func (w *JSONLZstdWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.closeLocked()
}

// Lines is the number of records written since the writer was created.
func (w *JSONLZstdWriter) Lines() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.lines
}

func (w *JSONLZstdWriter) Write(v any) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	hour := w.now().UTC().Format("2006-01-02-15")
	if hour != w.curHour {
		if err := w.rotateLocked(hour); err != nil {
			return err
		}
	}

	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if _, err := w.w.Write(b); err != nil {
		return err
	}
	if err := w.w.WriteByte('\n'); err != nil {
		return err
	}
	w.lines++
	return w.w.Flush()
}

func (w *JSONLZstdWriter) rotateLocked(hour string) error {
	if err := w.closeLocked(); err != nil {
		return err
	}
	path := w.pathForHour(hour)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		_ = f.Close()
		return err
	}
	w.f = f
	w.enc = enc
	w.w = bufio.NewWriterSize(enc, 64*1024)
	w.curHour = hour
	return nil
}

func (w *JSONLZstdWriter) closeLocked() error {
	var err error
	if w.w != nil {
		_ = w.w.Flush()
	}
	if w.enc != nil {
		err = w.enc.Close()
		w.enc = nil
	}
	if w.f != nil {
		_ = w.f.Close()
		w.f = nil
	}
	w.w = nil
	w.curHour = ""
	return err
}

func (w *JSONLZstdWriter) pathForHour(hour string) string {
	return filepath.Join(w.baseDir, fmt.Sprintf("%s-%s.jsonl.zst", w.prefix, hour))
}

// EpisodeLogger writes one JSONL entry per planning episode (compressed).
type EpisodeLogger struct{ w *JSONLZstdWriter }

func NewEpisodeLogger(dataDir string) *EpisodeLogger {
	return &EpisodeLogger{w: NewJSONLZstdWriter(filepath.Join(dataDir, "episodes"), "episodes")}
}

func (l *EpisodeLogger) WriteEpisode(v agent.EpisodeRecord) error { return l.w.Write(v) }
func (l *EpisodeLogger) Close() error                             { return l.w.Close() }

// TickLogger writes one JSONL entry per controller tick (compressed).
type TickLogger struct{ w *JSONLZstdWriter }

func NewTickLogger(dataDir string) *TickLogger {
	return &TickLogger{w: NewJSONLZstdWriter(filepath.Join(dataDir, "ticks"), "ticks")}
}

func (l *TickLogger) WriteTick(v agent.TickRecord) error { return l.w.Write(v) }
func (l *TickLogger) Close() error                       { return l.w.Close() }

var (
	_ agent.EpisodeSink = (*EpisodeLogger)(nil)
	_ agent.TickSink    = (*TickLogger)(nil)
)
