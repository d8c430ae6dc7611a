package ami

import (
	"bufio"
	"io"
	"strings"
)

// Parser reads an AMI byte stream and emits Events.
//
// The AMI wire format frames each event as a block of "Key: Value"
// lines terminated by a blank line, with \r\n line endings.
type Parser struct {
	scanner *bufio.Scanner
}

// NewParser creates a Parser that reads from the given reader.
func NewParser(r io.Reader) *Parser {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 256*1024)
	return &Parser{scanner: sc}
}

// Next reads the next event from the stream.
// Returns the event and true if an event was read, or a zero Event and
// false at EOF.
func (p *Parser) Next() (Event, bool) {
	var headers []header

	for p.scanner.Scan() {
		line := strings.TrimRight(p.scanner.Text(), "\r")

		// Blank line marks the end of an event block.
		if line == "" {
			if len(headers) > 0 {
				return Event{headers: headers}, true
			}
			continue
		}

		key, value, ok := strings.Cut(line, ": ")
		if !ok {
			// Lines without a separator are either the connection
			// banner or wrapped values we cannot attribute. Skip the
			// banner, keep anything mid-event under an empty key so
			// nothing is silently lost.
			if len(headers) == 0 {
				continue
			}
			headers = append(headers, header{Value: line})
			continue
		}
		headers = append(headers, header{Key: key, Value: value})
	}

	// EOF with a pending, unterminated event.
	if len(headers) > 0 {
		return Event{headers: headers}, true
	}
	return Event{}, false
}

// ParseAll reads all remaining events from the stream.
func (p *Parser) ParseAll() []Event {
	var events []Event
	for {
		evt, ok := p.Next()
		if !ok {
			break
		}
		events = append(events, evt)
	}
	return events
}

// ParseBytes is a convenience function that parses all events from a
// byte slice.
func ParseBytes(data []byte) []Event {
	return NewParser(strings.NewReader(string(data))).ParseAll()
}
