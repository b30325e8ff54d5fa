// Package log keeps an append-only record of combat and lifecycle events as
// hourly JSON-lines files compressed with zstd.
package log

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	json "github.com/goccy/go-json"
	"github.com/klauspost/compress/zstd"
	"github.com/rotisserie/eris"
)

// Entry is one combat or lifecycle record.
type Entry struct {
	At     int64          `json:"at"`
	Tick   uint64         `json:"tick,omitempty"`
	Kind   string         `json:"kind"`
	Actor  string         `json:"actor,omitempty"`
	Target string         `json:"target,omitempty"`
	Data   map[string]any `json:"data,omitempty"`
}

// Entry kinds.
const (
	KindJoin      = "join"
	KindLeave     = "leave"
	KindDeath     = "death"
	KindRespawn   = "respawn"
	KindMobKill   = "mob_kill"
	KindLoot      = "loot"
	KindPickup    = "pickup"
	KindMobExpire = "mob_expire"
	KindFault     = "fault"
)

const hourLayout = "2006-01-02-15"

// Journal appends entries to <dir>/arena-<yyyy-mm-dd-hh>.jsonl.zst, opening a
// new file when the UTC hour changes. Every Record flushes a zstd block to
// the file, so the current hour stays readable while the server runs.
type Journal struct {
	dir string
	now func() time.Time

	mu      sync.Mutex
	hour    string
	f       *os.File
	zw      *zstd.Encoder
	buf     *bufio.Writer
	written uint64
}

func NewJournal(dataDir string) *Journal {
	return &Journal{dir: filepath.Join(dataDir, "journal"), now: time.Now}
}

func (j *Journal) Record(e Entry) error {
	line, err := json.Marshal(e)
	if err != nil {
		return eris.Wrap(err, "encode journal entry")
	}
	line = append(line, '\n')

	j.mu.Lock()
	defer j.mu.Unlock()
	if h := j.now().UTC().Format(hourLayout); h != j.hour {
		if err := j.open(h); err != nil {
			return err
		}
	}
	if _, err := j.buf.Write(line); err != nil {
		return eris.Wrap(err, "write journal entry")
	}
	if err := j.buf.Flush(); err != nil {
		return eris.Wrap(err, "flush journal")
	}
	if err := j.zw.Flush(); err != nil {
		return eris.Wrap(err, "flush journal")
	}
	j.written++
	return nil
}

// Written counts entries recorded since NewJournal.
func (j *Journal) Written() uint64 {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.written
}

func (j *Journal) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.release()
}

// Path is the file holding entries for the hour containing t.
func (j *Journal) Path(t time.Time) string {
	return filepath.Join(j.dir, fmt.Sprintf("arena-%s.jsonl.zst", t.UTC().Format(hourLayout)))
}

func (j *Journal) open(hour string) error {
	if err := j.release(); err != nil {
		return err
	}
	if err := os.MkdirAll(j.dir, 0o755); err != nil {
		return eris.Wrap(err, "create journal dir")
	}
	path := filepath.Join(j.dir, fmt.Sprintf("arena-%s.jsonl.zst", hour))
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return eris.Wrapf(err, "open journal %s", path)
	}
	zw, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		_ = f.Close()
		return eris.Wrap(err, "zstd writer")
	}
	j.f, j.zw, j.buf, j.hour = f, zw, bufio.NewWriterSize(zw, 64*1024), hour
	return nil
}

func (j *Journal) release() error {
	if j.f == nil {
		return nil
	}
	_ = j.buf.Flush()
	err := j.zw.Close()
	if cerr := j.f.Close(); err == nil {
		err = cerr
	}
	j.f, j.zw, j.buf, j.hour = nil, nil, nil, ""
	return eris.Wrap(err, "close journal")
}

// Read decodes every entry in a journal stream, calling fn in file order.
// Appended files hold several zstd frames; the decoder reads them as one. The
// last frame of a file still being written has no end marker, so a stream
// ending mid-frame is read up to its last flushed block.
func Read(r io.Reader, fn func(Entry) error) error {
	zr, err := zstd.NewReader(r, zstd.WithDecoderConcurrency(1))
	if err != nil {
		return eris.Wrap(err, "zstd reader")
	}
	defer zr.Close()

	sc := bufio.NewScanner(zr)
	sc.Buffer(make([]byte, 64*1024), 1<<20)
	for line := 1; sc.Scan(); line++ {
		var e Entry
		if err := json.Unmarshal(sc.Bytes(), &e); err != nil {
			return eris.Wrapf(err, "journal line %d", line)
		}
		if err := fn(e); err != nil {
			return err
		}
	}
	if err := sc.Err(); err != nil && !errors.Is(err, io.ErrUnexpectedEOF) {
		return eris.Wrap(err, "read journal")
	}
	return nil
}

// ReadFile is Read over a journal file on disk.
func ReadFile(path string, fn func(Entry) error) error {
	f, err := os.Open(path)
	if err != nil {
		return eris.Wrapf(err, "open journal %s", path)
	}
	defer f.Close()
	return Read(f, fn)
}
