package model

import "strings"

// TLE is a resolved two-line element set together with the catalog name it
// was looked up by. Values are immutable once resolved; re-resolving a
// satellite produces a new TLE rather than editing an existing one.
type TLE struct {
	SatelliteID string
	Line1       string
	Line2       string
}

// NewTLE trims both element lines and returns the record.
func NewTLE(id, line1, line2 string) TLE {
	return TLE{
		SatelliteID: id,
		Line1:       strings.TrimSpace(line1),
		Line2:       strings.TrimSpace(line2),
	}
}

// Lines returns the three-line representation (name, line 1, line 2).
func (t TLE) Lines() []string {
	return []string{t.SatelliteID, t.Line1, t.Line2}
}

// String renders the record the way catalogs list it, without a trailing
// newline.
func (t TLE) String() string {
	return strings.Join(t.Lines(), "\n")
}
