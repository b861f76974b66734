package script

import (
	"bytes"
	"encoding/json"
)

// ApplyProfile derives the script for one profile. Beats whose variant sets
// skip are dropped; other variants overwrite the fields they define. The
// result carries no variants, meta, outputProfiles or scriptMeta.
func ApplyProfile(s *Script, profile string) *Script {
	out := baseScript(s)
	out.Beats = make([]Beat, 0, len(s.Beats))
	for i := range s.Beats {
		b, ok := applyVariant(&s.Beats[i], profile)
		if !ok {
			continue
		}
		out.Beats = append(out.Beats, b)
	}
	return out
}

// StripExtendedFields removes every authoring-only annotation without
// changing or dropping beats.
func StripExtendedFields(s *Script) *Script {
	out := baseScript(s)
	out.Beats = make([]Beat, 0, len(s.Beats))
	for i := range s.Beats {
		out.Beats = append(out.Beats, baseBeat(&s.Beats[i]))
	}
	return out
}

// ProcessScript narrows by section, then by tags, then applies the profile
// (or plain stripping for the default profile). Filters run first so they
// still see beat meta.
func ProcessScript(s *Script, opts ProcessOptions) *Script {
	filtered := FilterScript(s, opts.Section, opts.Tags)
	if opts.Profile == "" || opts.Profile == DefaultProfile {
		return StripExtendedFields(filtered)
	}
	return ApplyProfile(filtered, opts.Profile)
}

func applyVariant(b *Beat, profile string) (Beat, bool) {
	v, ok := b.Variants[profile]
	if ok && v.Skip {
		return Beat{}, false
	}
	out := baseBeat(b)
	if !ok {
		return out, true
	}
	if v.Text != nil {
		out.Text = *v.Text
	}
	if len(v.Image) > 0 && !isNullJSON(v.Image) {
		out.Image = v.Image
	}
	if v.ImagePrompt != nil {
		out.ImagePrompt = *v.ImagePrompt
	}
	return out, true
}

// isNullJSON reports whether raw is the JSON literal null. A null variant
// field counts as undefined.
func isNullJSON(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}

// baseBeat copies only base-format beat fields.
func baseBeat(b *Beat) Beat {
	return Beat{
		ID:              b.ID,
		Speaker:         b.Speaker,
		Text:            b.Text,
		Description:     b.Description,
		Image:           b.Image,
		Audio:           b.Audio,
		ImagePrompt:     b.ImagePrompt,
		MoviePrompt:     b.MoviePrompt,
		HTMLPrompt:      b.HTMLPrompt,
		Duration:        b.Duration,
		ImageParams:     b.ImageParams,
		AudioParams:     b.AudioParams,
		SpeechOptions:   b.SpeechOptions,
		TextSlideParams: b.TextSlideParams,
		EnableLipSync:   b.EnableLipSync,
	}
}

// baseScript copies only base-format script fields. Beats are left for the
// caller to fill.
func baseScript(s *Script) *Script {
	return &Script{
		Mulmocast:       s.Mulmocast,
		Title:           s.Title,
		Description:     s.Description,
		Lang:            s.Lang,
		CanvasSize:      s.CanvasSize,
		SpeechParams:    s.SpeechParams,
		ImageParams:     s.ImageParams,
		MovieParams:     s.MovieParams,
		AudioParams:     s.AudioParams,
		TextSlideParams: s.TextSlideParams,
		References:      s.References,
	}
}
