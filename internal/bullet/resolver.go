package bullet

import "bulletbot/internal/store"

// Resolved pairs a requested display position with the note it named.
type Resolved struct {
	Index int
	Note  store.Note
}

// Resolve maps display positions onto notes of one ordered snapshot of a
// user's unsent notes. Repeated positions are reported once, at their first
// occurrence. Resolution stops at the first position outside the snapshot
// and returns an *IndexError for it; nothing resolved so far is returned.
func Resolve(snapshot []store.Note, indices []int) ([]Resolved, error) {
	out := make([]Resolved, 0, len(indices))
	seen := make(map[int]struct{}, len(indices))
	for pos, i := range indices {
		if i < 0 || i >= len(snapshot) {
			return nil, &IndexError{Index: i, Pos: pos}
		}
		if _, ok := seen[i]; ok {
			continue
		}
		seen[i] = struct{}{}
		out = append(out, Resolved{Index: i, Note: snapshot[i]})
	}
	return out, nil
}

// IDs returns the distinct note IDs of rs in order.
func IDs(rs []Resolved) []uint64 {
	ids := make([]uint64, 0, len(rs))
	seen := make(map[uint64]struct{}, len(rs))
	for _, r := range rs {
		if _, ok := seen[r.Note.ID]; ok {
			continue
		}
		seen[r.Note.ID] = struct{}{}
		ids = append(ids, r.Note.ID)
	}
	return ids
}
