package tree

import (
	"bytes"
	"sync"
)

// --------------------------------------------------------------------------
// Buffered Writable (shared by engines that commit a whole payload at once)
// --------------------------------------------------------------------------

// bufferedWritable stages all written bytes in memory and hands them to a commit function on Close.
type bufferedWritable struct {
	mu     sync.Mutex
	buf    bytes.Buffer
	commit func(data []byte) error
	done   bool
}

// NewBufferedWritable returns a Writable that collects the written bytes in memory and calls
// commit exactly once with the complete payload when Close is called.
// If commit fails the payload is discarded and the error is returned from Close.
func NewBufferedWritable(commit func(data []byte) error) Writable {
	return &bufferedWritable{commit: commit}
}

func (w *bufferedWritable) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.done {
		return 0, ErrClosed
	}
	return w.buf.Write(p)
}

func (w *bufferedWritable) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.done {
		return ErrClosed
	}
	w.done = true

	// hand out a copy so the commit function may keep the slice
	data := make([]byte, w.buf.Len())
	copy(data, w.buf.Bytes())
	w.buf.Reset()
	return w.commit(data)
}

func (w *bufferedWritable) Abort() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.done = true
	w.buf.Reset()
	return nil
}
