package script

import "sort"

// FilterBySection keeps beats whose meta.section equals section exactly.
// Beats without meta or section are dropped. Annotations are kept so the
// result can be filtered or profiled further.
func FilterBySection(s *Script, section string) *Script {
	return withBeats(s, func(b *Beat) bool {
		return b.Meta != nil && b.Meta.Section == section
	})
}

// FilterByTags keeps beats carrying at least one of tags.
func FilterByTags(s *Script, tags []string) *Script {
	want := make(map[string]bool, len(tags))
	for _, t := range tags {
		want[t] = true
	}
	return withBeats(s, func(b *Beat) bool {
		if b.Meta == nil {
			return false
		}
		for _, t := range b.Meta.Tags {
			if want[t] {
				return true
			}
		}
		return false
	})
}

// FilterScript applies the section filter, then the tag filter. Empty
// arguments skip the corresponding filter.
func FilterScript(s *Script, section string, tags []string) *Script {
	out := s
	if section != "" {
		out = FilterBySection(out, section)
	}
	if len(tags) > 0 {
		out = FilterByTags(out, tags)
	}
	return out
}

// Sections returns the distinct section labels in order of first appearance.
func Sections(s *Script) []string {
	var out []string
	seen := map[string]bool{}
	for _, b := range s.Beats {
		if b.Meta == nil || b.Meta.Section == "" || seen[b.Meta.Section] {
			continue
		}
		seen[b.Meta.Section] = true
		out = append(out, b.Meta.Section)
	}
	return out
}

// Tags returns every tag used by any beat, sorted.
func Tags(s *Script) []string {
	seen := map[string]bool{}
	for _, b := range s.Beats {
		if b.Meta == nil {
			continue
		}
		for _, t := range b.Meta.Tags {
			seen[t] = true
		}
	}
	out := make([]string, 0, len(seen))
	for t := range seen {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// withBeats returns a shallow copy of s holding the beats that pass keep.
// The beats slice is always non-nil.
func withBeats(s *Script, keep func(*Beat) bool) *Script {
	out := *s
	out.Beats = make([]Beat, 0, len(s.Beats))
	for i := range s.Beats {
		if keep(&s.Beats[i]) {
			out.Beats = append(out.Beats, s.Beats[i])
		}
	}
	return &out
}
