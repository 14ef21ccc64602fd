package models

import (
	"bufio"
	"io"
	"strings"

	"github.com/pkg/errors"
)

// LabelSet is the ordered list of class names; index i names output class i.
type LabelSet struct {
	names []string
}

// NewLabelSet builds a label set from names in class order.
func NewLabelSet(names []string) LabelSet {
	return LabelSet{names: append([]string(nil), names...)}
}

// ReadLabels parses a label file: one label per line, surrounding whitespace
// trimmed, blank lines skipped, a leading UTF-8 byte order mark ignored.
//
// Arguments:
//   - r: The label file contents.
//
// Returns:
//   - LabelSet: The labels in file order.
//   - error: An error if reading fails or no label is present.
func ReadLabels(r io.Reader) (LabelSet, error) {
	var names []string
	scanner := bufio.NewScanner(r)
	first := true
	for scanner.Scan() {
		line := scanner.Text()
		if first {
			line = strings.TrimPrefix(line, "\uFEFF")
			first = false
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		names = append(names, line)
	}
	if err := scanner.Err(); err != nil {
		return LabelSet{}, errors.Wrap(err, "read labels")
	}
	if len(names) == 0 {
		return LabelSet{}, errors.New("label file contains no labels")
	}
	return NewLabelSet(names), nil
}

// Len returns the number of labels.
func (s LabelSet) Len() int { return len(s.names) }

// Name returns the label of class i.
func (s LabelSet) Name(i int) (string, bool) {
	if i < 0 || i >= len(s.names) {
		return "", false
	}
	return s.names[i], true
}

// Names returns a copy of the labels in class order.
func (s LabelSet) Names() []string {
	return append([]string(nil), s.names...)
}
