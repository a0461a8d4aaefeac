// Package text prepares email text for speech synthesis: it strips what
// should not be read aloud, normalizes punctuation and whitespace, and
// splits the result into request-sized chunks.
package text

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Regex patterns for text preprocessing.
const (
	urlRegexPattern        = `https?://\S+`
	whitespaceRegexPattern = `\s+`
	sentenceRegexPattern   = `[^.!?]+(?:[.!?]+["')\]]*|$)`
	quotedLinePrefix       = ">"
)

// Punctuation and formatting constants.
const (
	emDash       = "—"
	enDash       = "–"
	figureDash   = "‒"
	ellipsis     = "..."
	ellipsisChar = "…"
	space        = " "
)

// Preprocessor provides text preprocessing functionality for TTS.
type Preprocessor struct {
	urlPattern        *regexp.Regexp
	whitespacePattern *regexp.Regexp
	sentencePattern   *regexp.Regexp
	quoteReplacer     *strings.Replacer
}

// NewPreprocessor creates a new text preprocessor with compiled patterns and replacers.
func NewPreprocessor() *Preprocessor {
	return &Preprocessor{
		urlPattern:        regexp.MustCompile(urlRegexPattern),
		whitespacePattern: regexp.MustCompile(whitespaceRegexPattern),
		sentencePattern:   regexp.MustCompile(sentenceRegexPattern),
		quoteReplacer: strings.NewReplacer(
			emDash, "-",
			enDash, "-",
			figureDash, "-",
			ellipsisChar, ellipsis,
			"“", `"`, "”", `"`,
			"‘", "'", "’", "'",
		),
	}
}

// PreprocessText turns an email body into a single line of speakable text.
func (p *Preprocessor) PreprocessText(text string) string {
	if text == "" {
		return text
	}

	cleanedText := p.removeQuotedLines(text)
	cleanedText = p.urlPattern.ReplaceAllString(cleanedText, "")
	cleanedText = p.quoteReplacer.Replace(cleanedText)
	cleanedText = p.normalizeWhitespace(cleanedText)

	return p.ensureProperSentenceEndings(cleanedText)
}

// Chunk splits text into pieces of at most maxRunes characters. Pieces end
// at sentence boundaries where possible, then at word boundaries.
func (p *Preprocessor) Chunk(text string, maxRunes int) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	if maxRunes <= 0 || utf8.RuneCountInString(text) <= maxRunes {
		return []string{text}
	}

	var (
		chunks     []string
		current    strings.Builder
		currentLen int
	)

	flush := func() {
		if currentLen == 0 {
			return
		}

		chunks = append(chunks, current.String())
		current.Reset()

		currentLen = 0
	}

	for _, sentence := range p.splitSentences(text) {
		for _, piece := range splitLong(sentence, maxRunes) {
			pieceLen := utf8.RuneCountInString(piece)

			if currentLen > 0 && currentLen+1+pieceLen > maxRunes {
				flush()
			}

			if currentLen > 0 {
				current.WriteString(space)
				currentLen++
			}

			current.WriteString(piece)
			currentLen += pieceLen
		}
	}

	flush()

	return chunks
}

func (p *Preprocessor) splitSentences(text string) []string {
	matches := p.sentencePattern.FindAllString(text, -1)
	sentences := make([]string, 0, len(matches))

	for _, match := range matches {
		sentence := strings.TrimSpace(match)
		if sentence != "" {
			sentences = append(sentences, sentence)
		}
	}

	return sentences
}

// splitLong cuts a sentence longer than maxRunes at the last space that fits,
// or hard at maxRunes when there is none.
func splitLong(sentence string, maxRunes int) []string {
	runes := []rune(sentence)

	var pieces []string

	for len(runes) > maxRunes {
		cut := maxRunes

		for i := maxRunes; i > 0; i-- {
			if unicode.IsSpace(runes[i]) {
				cut = i

				break
			}
		}

		piece := strings.TrimSpace(string(runes[:cut]))
		if piece != "" {
			pieces = append(pieces, piece)
		}

		runes = []rune(strings.TrimSpace(string(runes[cut:])))
	}

	if len(runes) > 0 {
		pieces = append(pieces, string(runes))
	}

	return pieces
}

// removeQuotedLines drops reply quotes ("> ...") left in forwarded mail.
func (p *Preprocessor) removeQuotedLines(text string) string {
	lines := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	kept := lines[:0]

	for _, line := range lines {
		if strings.HasPrefix(strings.TrimSpace(line), quotedLinePrefix) {
			continue
		}

		kept = append(kept, line)
	}

	return strings.Join(kept, "\n")
}

// normalizeWhitespace collapses every whitespace run into a single space.
func (p *Preprocessor) normalizeWhitespace(text string) string {
	return strings.TrimSpace(p.whitespacePattern.ReplaceAllString(text, space))
}

// ensureProperSentenceEndings ensures text ends with sentence punctuation.
func (p *Preprocessor) ensureProperSentenceEndings(text string) string {
	trimmedText := strings.TrimSpace(text)
	if trimmedText == "" {
		return ""
	}

	lastChar, _ := utf8.DecodeLastRuneInString(trimmedText)

	switch lastChar {
	case '.', '!', '?':
		return trimmedText
	default:
		return trimmedText + "."
	}
}
