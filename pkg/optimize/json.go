package optimize

import (
	"encoding/json"
	"io"

	"github.com/valyala/bytebufferpool"
)

// EncodeJSON marshals v through a pooled buffer. The returned slice is owned
// by the caller.
func EncodeJSON(v interface{}) ([]byte, error) {
	buf := bytebufferpool.Get()
	defer bytebufferpool.Put(buf)

	if err := json.NewEncoder(buf).Encode(v); err != nil {
		return nil, err
	}

	// drop the trailing newline Encode appends
	b := buf.B
	if n := len(b); n > 0 && b[n-1] == '\n' {
		b = b[:n-1]
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out, nil
}

// WriteJSON encodes v into a pooled buffer first so a failed encode never
// leaves a partial document on w.
func WriteJSON(w io.Writer, v interface{}) (int64, error) {
	buf := bytebufferpool.Get()
	defer bytebufferpool.Put(buf)

	if err := json.NewEncoder(buf).Encode(v); err != nil {
		return 0, err
	}
	return buf.WriteTo(w)
}
