package daemon

import "bytes"

// LineFramer splits a chunked byte stream into newline-terminated lines.
// A line is only emitted once its newline has arrived; the tail without one
// stays buffered for the next Feed.
type LineFramer struct {
	buf []byte
}

// Feed appends chunk and returns every line it completed, without the
// trailing "\n" (or "\r\n"). Returned slices are owned by the caller.
func (f *LineFramer) Feed(chunk []byte) [][]byte {
	f.buf = append(f.buf, chunk...)

	var lines [][]byte
	for {
		i := bytes.IndexByte(f.buf, '\n')
		if i < 0 {
			break
		}
		line := bytes.TrimSuffix(f.buf[:i], []byte{'\r'})
		lines = append(lines, bytes.Clone(line))
		f.buf = f.buf[i+1:]
	}

	// Reclaim the consumed prefix once the buffer drains.
	if len(f.buf) == 0 {
		f.buf = nil
	}
	return lines
}

// Pending returns the number of buffered bytes not yet terminated by a newline.
func (f *LineFramer) Pending() int {
	return len(f.buf)
}

// Reset discards the buffered partial line.
func (f *LineFramer) Reset() {
	f.buf = nil
}
