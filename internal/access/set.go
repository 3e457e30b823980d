package access

import (
	"encoding/json"
	"sort"
)

// CombinedSet is the effective permission set of one actor: area -> granted sub-area
// tokens. An area present with no tokens is enabled but grants nothing. The zero value
// is an empty set that denies everything. A CombinedSet is never mutated after it has
// been built.
type CombinedSet struct {
	areas map[string]map[string]struct{}
}

// setBuilder accumulates grants before freezing them into a CombinedSet.
type setBuilder struct {
	areas map[string]map[string]struct{}
}

func newSetBuilder() *setBuilder {
	return &setBuilder{areas: make(map[string]map[string]struct{})}
}

func (b *setBuilder) enable(area string) map[string]struct{} {
	subs, ok := b.areas[area]
	if !ok {
		subs = make(map[string]struct{})
		b.areas[area] = subs
	}
	return subs
}

func (b *setBuilder) grant(area string, tokens ...string) {
	subs := b.enable(area)
	for _, t := range tokens {
		subs[t] = struct{}{}
	}
}

func (b *setBuilder) build() CombinedSet {
	out := CombinedSet{areas: b.areas}
	b.areas = nil
	return out
}

// NewCombinedSet builds a set from a plain area -> tokens mapping. Keys and tokens are
// normalized; malformed ones are skipped.
func NewCombinedSet(grants map[string][]string) CombinedSet {
	b := newSetBuilder()
	for area, tokens := range grants {
		normalizedArea, err := NormalizeToken(area)
		if err != nil {
			continue
		}
		b.enable(normalizedArea)
		for _, t := range tokens {
			if token, err := NormalizeToken(t); err == nil {
				b.grant(normalizedArea, token)
			}
		}
	}
	return b.build()
}

// Empty reports whether the set holds no areas at all.
func (s CombinedSet) Empty() bool {
	return len(s.areas) == 0
}

// Enabled reports whether the area has a grant row, regardless of its sub-areas.
func (s CombinedSet) Enabled(area string) bool {
	_, ok := s.areas[area]
	return ok
}

// Granted reports whether the already-normalized token is granted within area.
func (s CombinedSet) Granted(area, token string) bool {
	subs, ok := s.areas[area]
	if !ok {
		return false
	}
	_, ok = subs[token]
	return ok
}

// Areas lists the enabled areas in sorted order.
func (s CombinedSet) Areas() []string {
	out := make([]string, 0, len(s.areas))
	for area := range s.areas {
		out = append(out, area)
	}
	sort.Strings(out)
	return out
}

// SubAreas lists the granted tokens for area in sorted order.
func (s CombinedSet) SubAreas(area string) []string {
	subs := s.areas[area]
	out := make([]string, 0, len(subs))
	for t := range subs {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// Map returns a copy of the set as area -> sorted tokens.
func (s CombinedSet) Map() map[string][]string {
	out := make(map[string][]string, len(s.areas))
	for area := range s.areas {
		out[area] = s.SubAreas(area)
	}
	return out
}

// MarshalJSON encodes the set as {"area": ["token", ...]}.
func (s CombinedSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Map())
}

// UnmarshalJSON decodes the form produced by MarshalJSON.
func (s *CombinedSet) UnmarshalJSON(data []byte) error {
	var raw map[string][]string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*s = NewCombinedSet(raw)
	return nil
}
