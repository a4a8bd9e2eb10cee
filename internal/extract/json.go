package extract

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// maxJSONDepth is the deepest nesting level whose strings are extracted.
const maxJSONDepth = 5

// extractJSON turns every string leaf into a "key: value" line (array items as
// "key[i]: value") in document order. Containers nested deeper than maxJSONDepth are skipped.
func extractJSON(content []byte) (string, error) {
	dec := json.NewDecoder(bytes.NewReader(content))
	tok, err := dec.Token()
	if err != nil {
		return "", fmt.Errorf("parse JSON: %w", err)
	}
	w := &jsonWalker{dec: dec}
	if delim, ok := tok.(json.Delim); ok {
		if err := w.container(delim, 0); err != nil {
			return "", fmt.Errorf("parse JSON: %w", err)
		}
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return "", errors.New("parse JSON: trailing data after top-level value")
	}
	return strings.TrimRight(w.b.String(), "\n"), nil
}

type jsonWalker struct {
	dec *json.Decoder
	b   strings.Builder
}

// container consumes an object or array whose opening delimiter was already read.
// Array elements are keyed by index.
func (w *jsonWalker) container(open json.Delim, depth int) error {
	emit := depth <= maxJSONDepth
	for i := 0; w.dec.More(); i++ {
		key := strconv.Itoa(i)
		if open == '{' {
			tok, err := w.dec.Token()
			if err != nil {
				return err
			}
			key, _ = tok.(string)
		}
		if err := w.member(key, depth, emit); err != nil {
			return err
		}
	}
	_, err := w.dec.Token()
	return err
}

func (w *jsonWalker) member(key string, depth int, emit bool) error {
	tok, err := w.dec.Token()
	if err != nil {
		return err
	}
	switch v := tok.(type) {
	case string:
		if emit {
			fmt.Fprintf(&w.b, "%s: %s\n", key, v)
		}
	case json.Delim:
		if v == '[' {
			return w.array(key, depth, emit)
		}
		return w.container(v, depth+1)
	}
	return nil
}

// array handles an array member: string items are labelled key[i], containers recurse.
func (w *jsonWalker) array(key string, depth int, emit bool) error {
	for i := 0; w.dec.More(); i++ {
		tok, err := w.dec.Token()
		if err != nil {
			return err
		}
		switch v := tok.(type) {
		case string:
			if emit {
				fmt.Fprintf(&w.b, "%s[%d]: %s\n", key, i, v)
			}
		case json.Delim:
			if err := w.container(v, depth+1); err != nil {
				return err
			}
		}
	}
	_, err := w.dec.Token()
	return err
}
