package catalog

import (
	"strings"
)

type scanState int

const (
	seeking scanState = iota
	capturedLine1
	capturedLine2
)

func isLineBreak(r rune) bool {
	switch r {
	case '\n', '\r', '\f', '\v':
		return true
	}
	return false
}

// Extract scans doc for the first three-line record whose name line contains
// target as a substring. The two following non-blank lines are returned
// trimmed. Substring matching means a target such as "OSCAR" also matches
// "OSCAR-2"; the first record in document order wins.
func Extract(doc, target string) (line1, line2 string, ok bool) {
	if target == "" {
		return "", "", false
	}

	state := seeking
	for _, line := range strings.FieldsFunc(doc, isLineBreak) {
		switch state {
		case seeking:
			if strings.Contains(line, target) {
				state = capturedLine1
			}
		case capturedLine1:
			if strings.TrimSpace(line) == "" {
				continue
			}
			line1 = strings.TrimSpace(line)
			state = capturedLine2
		case capturedLine2:
			if strings.TrimSpace(line) == "" {
				continue
			}
			return line1, strings.TrimSpace(line), true
		}
	}
	return "", "", false
}
