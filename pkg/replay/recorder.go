// Package replay records regatta sessions to disk: session events as a
// snappy-compressed JSONL log and state snapshots as a zstd-compressed
// frame stream, with a manifest describing the bundle layout.
package replay

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"sync"
	"time"

	"github.com/golang/snappy"
	"github.com/klauspost/compress/zstd"

	"github.com/opd-ai/go-sail/pkg/engine"
)

var sessionIDCleaner = regexp.MustCompile(`[^a-zA-Z0-9_-]+`)

// frameHeaderSize is tick (8) + captured-at unix nanos (8) + payload
// length (4).
const frameHeaderSize = 20

// Manifest describes the replay bundle layout so tooling can locate the
// artefacts without guessing file names.
type Manifest struct {
	Version    int    `json:"version"`
	CreatedAt  string `json:"created_at"`
	SessionID  string `json:"session_id"`
	EventsPath string `json:"events_path"`
	FramesPath string `json:"frames_path"`
}

// EventRecord is one line of the session event log.
type EventRecord struct {
	Tick       uint64 `json:"tick"`
	RecordedAt string `json:"recorded_at"`
	Type       string `json:"type"`
	BoatID     string `json:"boat_id,omitempty"`
}

// Recorder streams a session to a replay bundle on disk.
type Recorder struct {
	mu          sync.Mutex
	dir         string
	now         func() time.Time
	eventFile   *os.File
	eventStream *snappy.Writer
	frameFile   *os.File
	frameStream *zstd.Encoder
	closed      bool
}

// NewRecorder creates the bundle directory under root and opens the
// compressed sinks. The clock is injectable for tests; pass nil for
// time.Now.
func NewRecorder(root, sessionID string, clock func() time.Time) (*Recorder, Manifest, error) {
	if root == "" {
		return nil, Manifest{}, fmt.Errorf("replay root must be provided")
	}
	if clock == nil {
		clock = time.Now
	}

	cleaned := sessionIDCleaner.ReplaceAllString(sessionID, "")
	if cleaned == "" {
		cleaned = "session"
	}
	created := clock().UTC()
	folder := fmt.Sprintf("%s-%s", cleaned, created.Format("20060102T150405Z"))
	dir := filepath.Join(root, folder)

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, Manifest{}, err
	}

	eventFile, err := os.Create(filepath.Join(dir, "events.jsonl.sz"))
	if err != nil {
		return nil, Manifest{}, err
	}
	eventStream := snappy.NewBufferedWriter(eventFile)

	frameFile, err := os.Create(filepath.Join(dir, "frames.bin.zst"))
	if err != nil {
		eventFile.Close()
		return nil, Manifest{}, err
	}
	frameStream, err := zstd.NewWriter(frameFile)
	if err != nil {
		eventStream.Close()
		eventFile.Close()
		frameFile.Close()
		return nil, Manifest{}, err
	}

	manifest := Manifest{
		Version:    1,
		CreatedAt:  created.Format(time.RFC3339Nano),
		SessionID:  cleaned,
		EventsPath: "events.jsonl.sz",
		FramesPath: "frames.bin.zst",
	}

	data, err := json.MarshalIndent(manifest, "", "  ")
	if err == nil {
		err = os.WriteFile(filepath.Join(dir, "manifest.json"), data, 0o644)
	}
	if err != nil {
		frameStream.Close()
		frameFile.Close()
		eventStream.Close()
		eventFile.Close()
		return nil, Manifest{}, err
	}

	return &Recorder{
		dir:         dir,
		now:         clock,
		eventFile:   eventFile,
		eventStream: eventStream,
		frameFile:   frameFile,
		frameStream: frameStream,
	}, manifest, nil
}

// Directory returns the directory backing the replay bundle.
func (r *Recorder) Directory() string {
	if r == nil {
		return ""
	}
	return r.dir
}

// RecordEvent appends one event line to the compressed event log.
func (r *Recorder) RecordEvent(tick uint64, eventType, boatID string) error {
	if r == nil {
		return fmt.Errorf("recorder not initialised")
	}
	captured := r.now().UTC()

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return fmt.Errorf("recorder closed")
	}

	line, err := json.Marshal(EventRecord{
		Tick:       tick,
		RecordedAt: captured.Format(time.RFC3339Nano),
		Type:       eventType,
		BoatID:     boatID,
	})
	if err != nil {
		return err
	}
	if _, err := r.eventStream.Write(line); err != nil {
		return err
	}
	if _, err := r.eventStream.Write([]byte("\n")); err != nil {
		return err
	}
	return r.eventStream.Flush()
}

// RecordSnapshot appends a length-prefixed regatta snapshot to the frame
// stream so players can step through frames without parsing ahead.
func (r *Recorder) RecordSnapshot(snap engine.RegattaState) error {
	if r == nil {
		return fmt.Errorf("recorder not initialised")
	}
	captured := r.now().UTC()

	payload, err := json.Marshal(snap)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return fmt.Errorf("recorder closed")
	}

	header := make([]byte, frameHeaderSize)
	binary.LittleEndian.PutUint64(header[0:8], snap.Tick)
	binary.LittleEndian.PutUint64(header[8:16], uint64(captured.UnixNano()))
	binary.LittleEndian.PutUint32(header[16:20], uint32(len(payload)))
	if _, err := r.frameStream.Write(header); err != nil {
		return err
	}
	_, err = r.frameStream.Write(payload)
	return err
}

// Close flushes both streams and releases the file handles. The first
// failure is surfaced; later steps still run.
func (r *Recorder) Close() error {
	if r == nil {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil
	}
	r.closed = true

	var firstErr error
	if err := r.eventStream.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	if err := r.eventFile.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	if err := r.frameStream.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	if err := r.frameFile.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}

// ReadManifest loads the manifest from a bundle directory.
func ReadManifest(dir string) (Manifest, error) {
	data, err := os.ReadFile(filepath.Join(dir, "manifest.json"))
	if err != nil {
		return Manifest{}, err
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return Manifest{}, fmt.Errorf("failed to parse manifest: %w", err)
	}
	return m, nil
}

// ReadEvents decompresses and parses the full event log of a bundle.
func ReadEvents(dir string) ([]EventRecord, error) {
	m, err := ReadManifest(dir)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(filepath.Join(dir, m.EventsPath))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	decoder := json.NewDecoder(snappy.NewReader(f))
	var events []EventRecord
	for {
		var rec EventRecord
		if err := decoder.Decode(&rec); err == io.EOF {
			break
		} else if err != nil {
			return nil, fmt.Errorf("failed to parse event log: %w", err)
		}
		events = append(events, rec)
	}
	return events, nil
}

// ReadSnapshots decompresses and parses every frame of a bundle in order.
func ReadSnapshots(dir string) ([]engine.RegattaState, error) {
	m, err := ReadManifest(dir)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(filepath.Join(dir, m.FramesPath))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	decoder, err := zstd.NewReader(f)
	if err != nil {
		return nil, err
	}
	defer decoder.Close()

	var snapshots []engine.RegattaState
	header := make([]byte, frameHeaderSize)
	for {
		if _, err := io.ReadFull(decoder, header); err == io.EOF {
			break
		} else if err != nil {
			return nil, fmt.Errorf("failed to read frame header: %w", err)
		}
		payload := make([]byte, binary.LittleEndian.Uint32(header[16:20]))
		if _, err := io.ReadFull(decoder, payload); err != nil {
			return nil, fmt.Errorf("failed to read frame payload: %w", err)
		}
		var snap engine.RegattaState
		if err := json.Unmarshal(payload, &snap); err != nil {
			return nil, fmt.Errorf("failed to parse frame: %w", err)
		}
		snapshots = append(snapshots, snap)
	}
	return snapshots, nil
}
