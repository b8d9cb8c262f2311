package output

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"

	"bayloe/internal/fileutil"
)

// SessionPrefix names every session directory created under a staging base.
const SessionPrefix = "session-"

// ErrReleased is returned when a released handle is read.
var ErrReleased = errors.New("output handle released")

// Registry hands out handles backed by files in a session directory.
type Registry struct {
	dir string

	mu     sync.Mutex
	live   map[string]*Handle
	closed bool
}

// NewRegistry creates a session directory under base (the OS temp dir when
// base is empty).
func NewRegistry(base string) (*Registry, error) {
	if base != "" {
		if err := os.MkdirAll(base, 0o755); err != nil {
			return nil, fmt.Errorf("create staging base: %w", err)
		}
	}
	dir, err := os.MkdirTemp(base, SessionPrefix)
	if err != nil {
		return nil, fmt.Errorf("create session directory: %w", err)
	}
	return &Registry{dir: dir, live: make(map[string]*Handle)}, nil
}

// Dir returns the session directory.
func (r *Registry) Dir() string { return r.dir }

// Create stores data and returns a live handle. ext has no leading dot.
func (r *Registry) Create(data []byte, ext, mimeType string) (*Handle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil, errors.New("output registry closed")
	}

	id := uuid.NewString()
	path := filepath.Join(r.dir, id+"."+ext)
	if err := fileutil.WriteFileAtomic(path, data, 0o600); err != nil {
		return nil, fmt.Errorf("stage output: %w", err)
	}
	h := &Handle{
		id:       id,
		path:     path,
		mime:     mimeType,
		size:     int64(len(data)),
		registry: r,
	}
	r.live[id] = h
	return h, nil
}

// Live returns the number of handles not yet released.
func (r *Registry) Live() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.live)
}

// Close releases every live handle and removes the session directory.
func (r *Registry) Close() error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	handles := make([]*Handle, 0, len(r.live))
	for _, h := range r.live {
		handles = append(handles, h)
	}
	r.mu.Unlock()

	var errs []error
	for _, h := range handles {
		if err := h.Release(); err != nil {
			errs = append(errs, err)
		}
	}
	if err := os.RemoveAll(r.dir); err != nil {
		errs = append(errs, fmt.Errorf("remove session directory: %w", err))
	}
	return errors.Join(errs...)
}

func (r *Registry) forget(id string) {
	r.mu.Lock()
	delete(r.live, id)
	r.mu.Unlock()
}

// Handle is a revocable reference to one converted output.
type Handle struct {
	id       string
	path     string
	mime     string
	size     int64
	registry *Registry

	mu       sync.Mutex
	released bool
}

func (h *Handle) ID() string   { return h.id }
func (h *Handle) MIME() string { return h.mime }
func (h *Handle) Size() int64  { return h.size }

// Path returns the backing file while the handle is live.
func (h *Handle) Path() (string, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.released {
		return "", ErrReleased
	}
	return h.path, nil
}

// Open returns a reader over the output.
func (h *Handle) Open() (io.ReadCloser, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.released {
		return nil, ErrReleased
	}
	return os.Open(h.path)
}

// Bytes reads the full output.
func (h *Handle) Bytes() ([]byte, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.released {
		return nil, ErrReleased
	}
	return os.ReadFile(h.path)
}

// SaveAs copies the output to dst with integrity verification.
func (h *Handle) SaveAs(dst string) error {
	path, err := h.Path()
	if err != nil {
		return err
	}
	return fileutil.CopyFileVerified(path, dst)
}

// Released reports whether Release has been called.
func (h *Handle) Released() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.released
}

// Release deletes the backing file. Repeated calls are no-ops.
func (h *Handle) Release() error {
	if h == nil {
		return nil
	}
	h.mu.Lock()
	if h.released {
		h.mu.Unlock()
		return nil
	}
	h.released = true
	h.mu.Unlock()

	h.registry.forget(h.id)
	if err := os.Remove(h.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("release output %s: %w", h.id, err)
	}
	return nil
}
