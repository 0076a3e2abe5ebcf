package rewrite

// Marker is metadata attached to a tree without altering its code.
// Implementations must be comparable, normally pointer types.
type Marker interface {
	ID() TreeID
	// Kind groups markers for lookup, e.g. "search-result".
	Kind() string
}

// Markers is an immutable, insertion-ordered set of markers keyed by marker
// ID. The zero value is an empty set.
type Markers struct {
	entries []Marker
}

// EmptyMarkers is the empty marker set.
var EmptyMarkers = Markers{}

// NewMarkers builds a marker set, collapsing duplicate IDs.
func NewMarkers(ms ...Marker) Markers {
	var out Markers
	for _, m := range ms {
		out = out.Add(m)
	}
	return out
}

// Len returns the number of markers.
func (m Markers) Len() int { return len(m.entries) }

// All returns a copy of the markers in insertion order.
func (m Markers) All() []Marker {
	out := make([]Marker, len(m.entries))
	copy(out, m.entries)
	return out
}

// Add returns a set containing mk. A marker with the same ID already in the
// set is replaced in place, so adding the same marker twice never
// duplicates it.
func (m Markers) Add(mk Marker) Markers {
	for i, existing := range m.entries {
		if existing.ID() == mk.ID() {
			if existing == mk {
				return m
			}
			entries := make([]Marker, len(m.entries))
			copy(entries, m.entries)
			entries[i] = mk
			return Markers{entries: entries}
		}
	}
	entries := make([]Marker, len(m.entries), len(m.entries)+1)
	copy(entries, m.entries)
	return Markers{entries: append(entries, mk)}
}

// Remove returns a set without the marker with the given ID.
func (m Markers) Remove(id TreeID) Markers {
	for i, existing := range m.entries {
		if existing.ID() == id {
			entries := make([]Marker, 0, len(m.entries)-1)
			entries = append(entries, m.entries[:i]...)
			entries = append(entries, m.entries[i+1:]...)
			return Markers{entries: entries}
		}
	}
	return m
}

// FindFirst returns the first marker of the given kind.
func (m Markers) FindFirst(kind string) (Marker, bool) {
	for _, mk := range m.entries {
		if mk.Kind() == kind {
			return mk, true
		}
	}
	return nil, false
}

// FindAll returns every marker of the given kind.
func (m Markers) FindAll(kind string) []Marker {
	var out []Marker
	for _, mk := range m.entries {
		if mk.Kind() == kind {
			out = append(out, mk)
		}
	}
	return out
}

// AddMarker returns t with mk attached.
func AddMarker(t Tree, mk Marker) Tree {
	return t.WithMarkers(t.Markers().Add(mk))
}

// HasMarker reports whether t carries a marker of the given kind.
func HasMarker(t Tree, kind string) bool {
	_, ok := t.Markers().FindFirst(kind)
	return ok
}

// GetMarker returns the first marker of the given kind on t.
func GetMarker(t Tree, kind string) (Marker, bool) {
	return t.Markers().FindFirst(kind)
}

// SearchResultKind is the marker kind of SearchResult.
const SearchResultKind = "search-result"

// SearchResult marks a tree as something a recipe found.
type SearchResult struct {
	id          TreeID
	Description string
}

// NewSearchResult returns a SearchResult with a fresh ID.
func NewSearchResult(description string) *SearchResult {
	return &SearchResult{id: NewTreeID(), Description: description}
}

func (s *SearchResult) ID() TreeID { return s.id }

func (s *SearchResult) Kind() string { return SearchResultKind }

// Found marks t with a SearchResult carrying description. If t already has a
// SearchResult with the same description it is returned unchanged.
func Found(t Tree, description string) Tree {
	for _, mk := range t.Markers().FindAll(SearchResultKind) {
		if sr, ok := mk.(*SearchResult); ok && sr.Description == description {
			return t
		}
	}
	return AddMarker(t, NewSearchResult(description))
}

// SearchResults returns the descriptions of all SearchResult markers on t.
func SearchResults(t Tree) []string {
	var out []string
	for _, mk := range t.Markers().FindAll(SearchResultKind) {
		if sr, ok := mk.(*SearchResult); ok {
			out = append(out, sr.Description)
		}
	}
	return out
}

// Equal reports whether m and o hold the same markers, by identity, in the
// same order. Trees use it to return themselves from WithMarkers.
func (m Markers) Equal(o Markers) bool {
	if len(m.entries) != len(o.entries) {
		return false
	}
	for i := range m.entries {
		if m.entries[i] != o.entries[i] {
			return false
		}
	}
	return true
}
