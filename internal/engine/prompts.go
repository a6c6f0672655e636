package engine

import (
	"fmt"
	"unicode/utf8"
)

// maxPromptRunes bounds how much article text is sent in a single prompt.
const maxPromptRunes = 12000

func buildTranslatePrompt(text, targetLang string) string {
	return fmt.Sprintf(`Translate the following text from English to %s.

Translate naturally, keeping the original meaning and tone. Adapt idiomatic
expressions to the target language where needed. Numbered markers like [PH0]
mark protected content and must be preserved exactly as they appear.

Respond ONLY with the translated text, no explanations.

Text:
%s`, targetLang, truncateRunes(text, maxPromptRunes))
}

func buildSummarizePrompt(text string, maxWords int) string {
	return fmt.Sprintf(`Summarize the following text in no more than %d words.
Keep the most important information and the original tone. Answer in the same
language as the text.

Respond ONLY with the summary, no explanations.

Text:
%s`, maxWords, truncateRunes(text, maxPromptRunes))
}

func buildFormatPrompt(req Request) string {
	return fmt.Sprintf(`Convert the following article to Sanity CMS Portable Text.

TITLE: %s

SUMMARY: %s

CONTENT: %s

SOURCE: %s

LINK: %s

Rules:
1. Generate a slug from the title: strip accents, lowercase, spaces as hyphens
2. Split the content into one block per paragraph, each with "span" children
3. The excerpt must be at most 299 characters
4. Add publishedAt as an ISO date field

Respond ONLY with the formatted JSON object, no explanations.`,
		req.Title, req.Summary, truncateRunes(req.Text, maxPromptRunes), req.SourceName, req.SourceURL)
}

// buildPrompt maps a request to the prompt sent to the engine.
func buildPrompt(req Request, defaultLang string, defaultMaxWords int) string {
	switch req.Op {
	case OpSummarize:
		maxWords := req.MaxWords
		if maxWords == 0 {
			maxWords = defaultMaxWords
		}
		return buildSummarizePrompt(req.Text, maxWords)
	case OpFormat:
		return buildFormatPrompt(req)
	default:
		lang := req.TargetLang
		if lang == "" {
			lang = defaultLang
		}
		return buildTranslatePrompt(req.Text, lang)
	}
}

// truncateRunes truncates s to maxRunes runes (Unicode-safe).
func truncateRunes(s string, maxRunes int) string {
	if utf8.RuneCountInString(s) <= maxRunes {
		return s
	}
	runes := []rune(s)
	return string(runes[:maxRunes]) + "\n... [truncated]"
}
