package script

import "encoding/json"

// DefaultProfile is the implicit profile every script has. It never skips
// beats and never overrides fields.
const DefaultProfile = "default"

// DefaultSection is the label used for beats without a section when
// rendering script content for a prompt. Filtering never defaults to it.
const DefaultSection = "main"

// Script is an extended MulmoScript: the base presentation format plus the
// authoring-only annotations (outputProfiles, scriptMeta, per-beat variants
// and meta). Base-format values this tool never interprets are carried as
// raw JSON so they survive a round trip untouched.
type Script struct {
	Mulmocast       json.RawMessage `json:"$mulmocast,omitempty"`
	Title           string          `json:"title,omitempty"`
	Description     string          `json:"description,omitempty"`
	Lang            string          `json:"lang,omitempty"`
	CanvasSize      json.RawMessage `json:"canvasSize,omitempty"`
	SpeechParams    json.RawMessage `json:"speechParams,omitempty"`
	ImageParams     json.RawMessage `json:"imageParams,omitempty"`
	MovieParams     json.RawMessage `json:"movieParams,omitempty"`
	AudioParams     json.RawMessage `json:"audioParams,omitempty"`
	TextSlideParams json.RawMessage `json:"textSlideParams,omitempty"`
	References      json.RawMessage `json:"references,omitempty"`
	Beats           []Beat          `json:"beats" validate:"required,dive"`

	OutputProfiles map[string]OutputProfile `json:"outputProfiles,omitempty" validate:"omitempty,dive"`
	ScriptMeta     *ScriptMeta              `json:"scriptMeta,omitempty"`
}

// Beat is one narration unit.
type Beat struct {
	ID              string          `json:"id,omitempty"`
	Speaker         string          `json:"speaker,omitempty"`
	Text            string          `json:"text"`
	Description     string          `json:"description,omitempty"`
	Image           json.RawMessage `json:"image,omitempty"`
	Audio           json.RawMessage `json:"audio,omitempty"`
	ImagePrompt     string          `json:"imagePrompt,omitempty"`
	MoviePrompt     string          `json:"moviePrompt,omitempty"`
	HTMLPrompt      json.RawMessage `json:"htmlPrompt,omitempty"`
	Duration        *float64        `json:"duration,omitempty"`
	ImageParams     json.RawMessage `json:"imageParams,omitempty"`
	AudioParams     json.RawMessage `json:"audioParams,omitempty"`
	SpeechOptions   json.RawMessage `json:"speechOptions,omitempty"`
	TextSlideParams json.RawMessage `json:"textSlideParams,omitempty"`
	EnableLipSync   *bool           `json:"enableLipSync,omitempty"`

	Variants map[string]Variant `json:"variants,omitempty"`
	Meta     *BeatMeta          `json:"meta,omitempty"`
}

// Variant overrides beat fields for one profile. Nil fields leave the base
// value in place.
type Variant struct {
	Text        *string         `json:"text,omitempty"`
	Skip        bool            `json:"skip,omitempty"`
	Image       json.RawMessage `json:"image,omitempty"`
	ImagePrompt *string         `json:"imagePrompt,omitempty"`
}

// BeatMeta holds per-beat grouping and retrieval hints.
type BeatMeta struct {
	Tags              []string `json:"tags,omitempty"`
	Section           string   `json:"section,omitempty"`
	Context           string   `json:"context,omitempty"`
	Keywords          []string `json:"keywords,omitempty"`
	ExpectedQuestions []string `json:"expectedQuestions,omitempty"`
}

// OutputProfile describes a declared profile. The display name is stored
// under "name"; "displayName" is accepted as well.
type OutputProfile struct {
	Name        string `json:"name,omitempty"`
	DisplayName string `json:"displayName,omitempty"`
	Description string `json:"description,omitempty"`
}

// Label returns the human-readable profile name, if any.
func (p OutputProfile) Label() string {
	if p.DisplayName != "" {
		return p.DisplayName
	}
	return p.Name
}

// ScriptMeta is script-level context used when answering questions.
type ScriptMeta struct {
	Audience      string      `json:"audience,omitempty"`
	Prerequisites []string    `json:"prerequisites,omitempty"`
	Goals         []string    `json:"goals,omitempty"`
	Background    string      `json:"background,omitempty"`
	FAQ           []FAQ       `json:"faq,omitempty" validate:"omitempty,dive"`
	Keywords      []string    `json:"keywords,omitempty"`
	References    []Reference `json:"references,omitempty" validate:"omitempty,dive"`
	Author        string      `json:"author,omitempty"`
	Version       string      `json:"version,omitempty"`
}

type FAQ struct {
	Question string `json:"question" validate:"required"`
	Answer   string `json:"answer" validate:"required"`
}

// ReferenceType classifies an external reference.
type ReferenceType string

const (
	ReferenceWeb      ReferenceType = "web"
	ReferenceCode     ReferenceType = "code"
	ReferenceDocument ReferenceType = "document"
	ReferenceVideo    ReferenceType = "video"
)

// Reference is an external resource declared by the script. Its identity is
// the URL.
type Reference struct {
	Type        ReferenceType `json:"type,omitempty" validate:"omitempty,oneof=web code document video"`
	URL         string        `json:"url" validate:"required"`
	Title       string        `json:"title,omitempty"`
	Description string        `json:"description,omitempty"`
}

// ProfileInfo is the derived listing entry for one profile.
type ProfileInfo struct {
	Name         string `json:"name"`
	DisplayName  string `json:"displayName,omitempty"`
	Description  string `json:"description,omitempty"`
	BeatCount    int    `json:"beatCount"`
	SkippedCount int    `json:"skippedCount"`
}

// ProcessOptions selects the profile and filters for ProcessScript.
type ProcessOptions struct {
	Profile string
	Section string
	Tags    []string
}

// ReferenceList returns the script's declared references, or nil.
func (s *Script) ReferenceList() []Reference {
	if s == nil || s.ScriptMeta == nil {
		return nil
	}
	return s.ScriptMeta.References
}

// TitleOrDefault returns the title, or "Untitled".
func (s *Script) TitleOrDefault() string {
	if s.Title == "" {
		return "Untitled"
	}
	return s.Title
}
