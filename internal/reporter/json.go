package reporter

import (
	"bufio"
	"encoding/json"
	"io"

	"github.com/sweeney/callwatch/internal/ami"
)

// JSON writes one JSON object per notification, newline-delimited, to
// the given writer. Suitable for piping derived call events into other
// tooling.
type JSON struct {
	emitter

	w   *bufio.Writer
	enc *json.Encoder
	err error
}

// NewJSON creates an NDJSON reporter writing to w.
func NewJSON(w io.Writer) *JSON {
	bw := bufio.NewWriter(w)
	r := &JSON{w: bw, enc: json.NewEncoder(bw)}
	r.emitter = emitter{emit: r.write}
	return r
}

func (r *JSON) write(n Notification) {
	if r.err != nil {
		return
	}
	// Encode appends the newline itself.
	r.err = r.enc.Encode(n)
}

func (r *JSON) OnEvent(ami.Event) {}

// Close flushes buffered output and returns the first write error, if
// any occurred.
func (r *JSON) Close() error {
	if err := r.w.Flush(); r.err == nil {
		r.err = err
	}
	return r.err
}
