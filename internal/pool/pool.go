package pool

import (
	"io"
	"sync"
)

// LockedReader wraps an io.Reader to be safe for concurrent reads.
//
// Proof sessions running in parallel can share one randomness source through
// this wrapper without racing its internal state.
type LockedReader struct {
	reader io.Reader
	m      sync.Mutex
}

// NewLockedReader creates a LockedReader by wrapping an underlying value.
func NewLockedReader(r io.Reader) *LockedReader {
	// Intentionally not initializing m, since the zero value is ok.
	return &LockedReader{reader: r}
}

// Read implements io.Reader for LockedReader.
//
// Which value ends up being read when calling concurrently is naturally
// raced, but no value is ever read twice.
func (r *LockedReader) Read(p []byte) (int, error) {
	r.m.Lock()
	defer r.m.Unlock()
	return r.reader.Read(p)
}
