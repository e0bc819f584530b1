package utils

import (
	"bytes"
	"io"
	"sync"
)

// DeferredWriter holds writes in memory until Release is called, after
// which it writes straight through. It keeps background output (for
// example sync notifications) from drawing over an interactive prompt.
// Safe for concurrent use.
type DeferredWriter struct {
	mu  sync.Mutex
	buf bytes.Buffer
	out io.Writer
}

// Write buffers p, or forwards it once the writer has been released.
func (d *DeferredWriter) Write(p []byte) (n int, err error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.out != nil {
		return d.out.Write(p)
	}
	return d.buf.Write(p)
}

// Release flushes everything buffered so far to w and routes later writes
// directly to w. Calling Release again switches the destination.
func (d *DeferredWriter) Release(w io.Writer) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.out = w
	if d.buf.Len() == 0 {
		return nil
	}

	_, err := d.buf.WriteTo(w)
	return err
}

// Pending reports how many bytes are waiting for Release.
func (d *DeferredWriter) Pending() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.buf.Len()
}
