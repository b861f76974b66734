package script

import "sort"

// ListProfiles reports every profile the script knows about: "default" plus
// each name used as a variant key. "default" sorts first, the rest by name.
func ListProfiles(s *Script) []ProfileInfo {
	names := map[string]bool{DefaultProfile: true}
	for _, b := range s.Beats {
		for name := range b.Variants {
			names[name] = true
		}
	}

	out := make([]ProfileInfo, 0, len(names))
	for name := range names {
		out = append(out, profileInfo(s, name))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name == DefaultProfile {
			return out[j].Name != DefaultProfile
		}
		if out[j].Name == DefaultProfile {
			return false
		}
		return out[i].Name < out[j].Name
	})
	return out
}

func profileInfo(s *Script, name string) ProfileInfo {
	info := ProfileInfo{Name: name}
	if p, ok := s.OutputProfiles[name]; ok {
		info.DisplayName = p.Label()
		info.Description = p.Description
	}

	if name == DefaultProfile {
		info.BeatCount = len(s.Beats)
		return info
	}
	for _, b := range s.Beats {
		if v, ok := b.Variants[name]; ok && v.Skip {
			info.SkippedCount++
		} else {
			info.BeatCount++
		}
	}
	return info
}
