package ami

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
)

// ReadLog decodes a recorded event log: a JSON array of flat objects,
// one per event. String entries between objects are allowed and skipped
// (they are used as comments in hand-maintained logs). Numeric and
// boolean values are stringified, since AMI carries everything as text.
func ReadLog(r io.Reader) ([]Event, error) {
	var raw []any
	dec := json.NewDecoder(r)
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("decoding event log: %w", err)
	}

	var events []Event
	for i, entry := range raw {
		switch v := entry.(type) {
		case string:
			// comment
		case map[string]any:
			m := make(map[string]string, len(v))
			for k, val := range v {
				m[k] = stringify(val)
			}
			events = append(events, FromMap(m))
		default:
			return nil, fmt.Errorf("event log entry %d: unexpected type %T", i, entry)
		}
	}
	return events, nil
}

// ReadLogFile decodes a recorded event log from a file.
func ReadLogFile(path string) ([]Event, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening event log: %w", err)
	}
	defer f.Close()

	events, err := ReadLog(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return events, nil
}

func stringify(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		if t == float64(int64(t)) {
			return strconv.FormatInt(int64(t), 10)
		}
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	case nil:
		return ""
	default:
		return fmt.Sprint(t)
	}
}
