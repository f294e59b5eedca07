package favorites

const AggregateType = "Favorites"

// Set holds favorite event ids. Membership is unique; ids are kept in
// insertion order for display.
type Set struct {
	ids []string
}

// New restores a set from stored ids, dropping empty and repeated ids.
func New(ids ...string) *Set {
	s := &Set{}
	for _, id := range ids {
		if id == "" || s.Has(id) {
			continue
		}
		s.ids = append(s.ids, id)
	}
	return s
}

func (s *Set) Has(id string) bool {
	for _, existing := range s.ids {
		if existing == id {
			return true
		}
	}
	return false
}

// Toggle removes id when present and adds it otherwise. It returns whether
// id is a favorite after the call.
func (s *Set) Toggle(id string) bool {
	for i, existing := range s.ids {
		if existing == id {
			s.ids = append(s.ids[:i], s.ids[i+1:]...)
			return false
		}
	}
	s.ids = append(s.ids, id)
	return true
}

// IDs returns a copy of the members in insertion order.
func (s *Set) IDs() []string {
	out := make([]string, len(s.ids))
	copy(out, s.ids)
	return out
}

func (s *Set) Len() int { return len(s.ids) }
