package query

import (
	"fmt"
	"strings"

	"github.com/apresai/mulmoprep/internal/ingest"
	"github.com/apresai/mulmoprep/internal/script"
)

const (
	// NoContentAnswer is returned without calling the model when filtering
	// leaves no beats.
	NoContentAnswer = "No content available to answer the question."
	// NoContentSummary is the summarize counterpart of NoContentAnswer.
	NoContentSummary = "No content to summarize."
)

const DefaultQuerySystemPrompt = `You are answering questions based on the content provided.
- Answer based ONLY on the information in the provided content
- If the answer cannot be found in the content, say so clearly
- Be concise and direct in your answers
- Do not make up information that is not in the content`

const DefaultInteractiveSystemPrompt = DefaultQuerySystemPrompt + `
- You may reference previous conversation when answering follow-up questions
- If references are available and the user asks for more details, mention which reference could provide more information
- When you suggest fetching a reference for more details, include [SUGGEST_FETCH: <url>] in your response`

// DefaultInteractiveFetchSystemPrompt replaces the interactive prompt for
// the turn that carries fetched reference content.
const DefaultInteractiveFetchSystemPrompt = `You are answering questions based on the content provided, including fetched reference content.
- Answer based on both the main content and any fetched reference content
- If the answer cannot be found, say so clearly
- Be concise and direct in your answers
- Do not make up information
- You may reference previous conversation when answering follow-up questions
- Prioritize information from fetched content when it's more detailed and relevant`

const summarizePreamble = `You are creating a summary based on the content provided.
- Extract and explain the actual information and knowledge from the content
- Do NOT describe what the presentation/script is about (avoid phrases like "this presentation explains..." or "the script describes...")
- Write as if you are directly explaining the topic to the reader
`

const DefaultSummarizeTextSystemPrompt = summarizePreamble + `- Be concise and informative
- Output plain text only`

const DefaultSummarizeMarkdownSystemPrompt = summarizePreamble + `- Use markdown formatting (headers, bullet points, etc.)
- Include a title, key points, and conclusion
- Output well-formatted markdown`

var languageNames = map[string]string{
	"ja": "Japanese",
	"en": "English",
	"zh": "Chinese",
	"ko": "Korean",
	"fr": "French",
	"de": "German",
	"es": "Spanish",
	"it": "Italian",
	"pt": "Portuguese",
	"ru": "Russian",
}

// LanguageName maps a language code to its English name. Unknown codes are
// returned unchanged.
func LanguageName(code string) string {
	if name, ok := languageNames[code]; ok {
		return name
	}
	return code
}

// BuildSystemPrompt returns custom when set, otherwise base with an optional
// output-language instruction.
func BuildSystemPrompt(base, custom, lang string) string {
	if custom != "" {
		return custom
	}
	if lang != "" {
		return base + "\n- IMPORTANT: Write the answer in " + LanguageName(lang)
	}
	return base
}

// BuildQueryPrompt renders the user prompt for a one-shot question.
func BuildQueryPrompt(s *script.Script, question string) string {
	parts := []string{
		script.BuildScriptContent(s),
		"---",
		"",
		"Question: " + question,
		"",
		"Answer:",
	}
	return strings.Join(parts, "\n")
}

// BuildInteractivePrompt renders the user prompt for one conversational
// turn: script content, prior turns, then the fetched reference block (if
// any) immediately before the current question.
func BuildInteractivePrompt(s *script.Script, question string, history []Message, fetched *ingest.FetchedContent) string {
	parts := []string{script.BuildScriptContent(s), "---", ""}
	if len(history) > 0 {
		parts = append(parts, "Previous conversation:")
		for _, m := range history {
			if m.Role == RoleUser {
				parts = append(parts, "Q: "+m.Content)
			} else {
				parts = append(parts, "A: "+m.Content)
			}
		}
		parts = append(parts, "")
	}
	if fetched != nil {
		parts = append(parts, fetchedSection(*fetched)...)
		parts = append(parts, "")
	}
	parts = append(parts, "Current question: "+question, "", "Answer:")
	return strings.Join(parts, "\n")
}

func fetchedSection(fc ingest.FetchedContent) []string {
	lines := []string{"---", "Additional reference content fetched from URL:", "URL: " + fc.URL}
	if fc.Title != "" {
		lines = append(lines, "Title: "+fc.Title)
	}
	if fc.Content != "" {
		lines = append(lines, "", fc.Content)
	}
	return append(lines, "---")
}

// BuildSummarizePrompt renders the user prompt for summarization.
func BuildSummarizePrompt(s *script.Script, targetLengthChars int) string {
	parts := []string{script.BuildScriptContent(s)}
	if targetLengthChars > 0 {
		parts = append(parts, fmt.Sprintf("Target summary length: approximately %d characters", targetLengthChars))
	}
	parts = append(parts, "", "Based on the above content, explain the topic directly to the reader:")
	return strings.Join(parts, "\n")
}
