package transport

import (
	"bytes"
	"strings"
)

// FrameLine renders one outgoing record as bytes with the line terminator
// appended. The record must not itself contain an embedded newline.
func FrameLine(record string) []byte {
	return append([]byte(record), '\n')
}

// LineAccumulator reassembles newline-delimited records from arbitrarily
// chunked byte input. Chunks may be as small as one byte; no byte is lost
// or duplicated across calls. The zero value is ready to use.
type LineAccumulator struct {
	buf []byte
}

// Feed ingests one chunk and returns the records it completes, in arrival
// order. Records are trimmed of surrounding whitespace; records empty
// after trimming are dropped. A trailing partial line is retained for the
// next call.
func (a *LineAccumulator) Feed(chunk []byte) []string {
	a.buf = append(a.buf, chunk...)

	var lines []string
	for {
		idx := bytes.IndexByte(a.buf, '\n')
		if idx < 0 {
			return lines
		}

		line := strings.TrimSpace(string(a.buf[:idx]))
		a.buf = a.buf[idx+1:]
		if line != "" {
			lines = append(lines, line)
		}
	}
}
