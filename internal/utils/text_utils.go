package utils

import (
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"
	"golang.org/x/net/html"
	"golang.org/x/text/unicode/norm"
)

// TextProcessor provides utilities for processing text
type TextProcessor struct {
	logger *zap.Logger
}

// NewTextProcessor creates a new TextProcessor
func NewTextProcessor(logger *zap.Logger) *TextProcessor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TextProcessor{
		logger: logger,
	}
}

// TruncateChars returns at most maxChars leading characters of text, with no marker
func (tp *TextProcessor) TruncateChars(text string, maxChars int) string {
	if maxChars <= 0 {
		return text
	}
	count := 0
	for i := range text {
		if count == maxChars {
			tp.logger.Debug("Text truncated",
				zap.Int("original_size", len(text)),
				zap.Int("truncated_size", i),
				zap.Int("max_chars", maxChars))
			return text[:i]
		}
		count++
	}
	return text
}

// SanitizeUTF8 ensures the string contains only valid UTF-8 characters
func (tp *TextProcessor) SanitizeUTF8(text string) string {
	if utf8.ValidString(text) {
		return text
	}

	sanitized := strings.ToValidUTF8(text, "")

	tp.logger.Debug("Text sanitized",
		zap.Int("original_size", len(text)),
		zap.Int("sanitized_size", len(sanitized)))

	return sanitized
}

// Normalize prepares text for rule matching: invalid UTF-8 is dropped,
// markup is reduced to its text and link targets, compatibility characters
// fold to their plain forms (NFKC) and every whitespace run becomes one space
func (tp *TextProcessor) Normalize(text string) string {
	text = StripHTML(tp.SanitizeUTF8(text))
	return CollapseWhitespace(norm.NFKC.String(text))
}

// StripHTML replaces tags with spaces and decodes entities. The href and src
// values of tags are kept as text so link rules still see them. Script and
// style contents are dropped. Text without a closing '>' is returned as is.
func StripHTML(text string) string {
	if !strings.Contains(text, "<") || !strings.Contains(text, ">") {
		return text
	}

	z := html.NewTokenizer(strings.NewReader(text))
	var sb strings.Builder
	hidden := 0
	for {
		tt := z.Next()
		switch tt {
		case html.ErrorToken:
			return sb.String()
		case html.TextToken:
			if hidden == 0 {
				sb.Write(z.Text())
			}
		case html.StartTagToken, html.SelfClosingTagToken:
			name, hasAttr := z.TagName()
			if tt == html.StartTagToken && isHiddenTag(name) {
				hidden++
			}
			sb.WriteByte(' ')
			for hasAttr {
				var key, val []byte
				key, val, hasAttr = z.TagAttr()
				if k := string(key); k == "href" || k == "src" {
					sb.Write(val)
					sb.WriteByte(' ')
				}
			}
		case html.EndTagToken:
			name, _ := z.TagName()
			if isHiddenTag(name) && hidden > 0 {
				hidden--
			}
			sb.WriteByte(' ')
		}
	}
}

func isHiddenTag(name []byte) bool {
	n := string(name)
	return n == "script" || n == "style"
}

// CollapseWhitespace trims text and replaces each whitespace run with one space
func CollapseWhitespace(text string) string {
	return strings.Join(strings.Fields(text), " ")
}

// CharCount returns the number of characters in text
func CharCount(text string) int {
	return utf8.RuneCountInString(text)
}
