package studioapi

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"

	e "github.com/atelierhq/easel/internal/errors"
)

// ErrMalformedPayload marks a stream message that could not be decoded.
// The stream itself is still healthy after this error.
var ErrMalformedPayload = errors.New("malformed stream payload")

// lineStream reads line-framed JSON payloads from the response body. SSE
// framing is tolerated: "data:" prefixes are stripped, comment lines and
// blank keep-alive lines are skipped.
type lineStream struct {
	body    io.ReadCloser
	scanner *bufio.Scanner
}

func newLineStream(body io.ReadCloser) *lineStream {
	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	return &lineStream{
		body:    body,
		scanner: scanner,
	}
}

func (s *lineStream) Next() (Event, error) {
	for s.scanner.Scan() {
		line := bytes.TrimSpace(s.scanner.Bytes())

		if len(line) == 0 || line[0] == ':' {
			// Keep-alive or SSE comment
			continue
		}
		if rest, ok := bytes.CutPrefix(line, []byte("data:")); ok {
			line = bytes.TrimSpace(rest)
			if len(line) == 0 {
				continue
			}
		}
		if line[0] == 'e' && bytes.HasPrefix(line, []byte("event:")) {
			// Event names carry no payload of their own
			continue
		}

		return parseStreamPayload(line)
	}

	if err := s.scanner.Err(); err != nil {
		return Event{}, fmt.Errorf("%w: %w", e.StreamClosedError, err)
	}
	return Event{}, io.EOF
}

func (s *lineStream) Close() error {
	return s.body.Close()
}
