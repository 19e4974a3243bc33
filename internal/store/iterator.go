package store

// ChangeSlice adapts an in-memory entry list to the ChangeIterator contract.
// Like every ChangeIterator it is one-shot: once drained it stays drained.
type ChangeSlice struct {
	entries []ChangeEntry
	pos     int
	err     error
}

// NewChangeSlice wraps the given entries in a one-shot iterator.
func NewChangeSlice(entries []ChangeEntry) *ChangeSlice {
	return &ChangeSlice{entries: entries}
}

// NewChangeSliceErr wraps the entries and surfaces err once they are drained.
// Used to exercise mid-stream failure handling.
func NewChangeSliceErr(entries []ChangeEntry, err error) *ChangeSlice {
	return &ChangeSlice{entries: entries, err: err}
}

func (s *ChangeSlice) Next() (ChangeEntry, bool) {
	if s.pos >= len(s.entries) {
		return ChangeEntry{}, false
	}
	e := s.entries[s.pos]
	s.pos++
	return e, true
}

func (s *ChangeSlice) Err() error {
	if s.pos >= len(s.entries) {
		return s.err
	}
	return nil
}
