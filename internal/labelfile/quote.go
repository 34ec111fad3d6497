package labelfile

import (
	"fmt"
	"runtime"
	"strings"
	"unicode"
)

// QuoteStyle selects how paths with whitespace are quoted.
type QuoteStyle string

const (
	QuoteAuto    QuoteStyle = "auto"
	QuotePOSIX   QuoteStyle = "posix"
	QuoteWindows QuoteStyle = "windows"
)

// ParseQuoteStyle maps a config value onto a QuoteStyle. Empty means auto.
func ParseQuoteStyle(s string) (QuoteStyle, error) {
	switch QuoteStyle(strings.ToLower(strings.TrimSpace(s))) {
	case "", QuoteAuto:
		return QuoteAuto, nil
	case QuotePOSIX:
		return QuotePOSIX, nil
	case QuoteWindows:
		return QuoteWindows, nil
	}
	return "", fmt.Errorf("unknown quote style %q", s)
}

// resolve turns QuoteAuto into the style of the running OS.
func (q QuoteStyle) resolve() QuoteStyle {
	if q == QuotePOSIX || q == QuoteWindows {
		return q
	}
	if runtime.GOOS == "windows" {
		return QuoteWindows
	}
	return QuotePOSIX
}

func needsQuote(path string) bool {
	if strings.HasPrefix(path, "'") || strings.HasPrefix(path, `"`) {
		return true
	}
	return strings.IndexFunc(path, unicode.IsSpace) >= 0
}

// Quote returns path as it appears in a split file.
func Quote(path string, style QuoteStyle) string {
	if !needsQuote(path) {
		return path
	}
	if style.resolve() == QuoteWindows {
		return `"` + strings.ReplaceAll(path, `"`, `""`) + `"`
	}
	return "'" + strings.ReplaceAll(path, "'", `'\''`) + "'"
}

// Unquote reverses Quote for either style. Unquoted input is returned as is.
func Unquote(s string) string {
	if len(s) < 2 {
		return s
	}
	switch {
	case s[0] == '\'' && s[len(s)-1] == '\'':
		return strings.ReplaceAll(s[1:len(s)-1], `'\''`, "'")
	case s[0] == '"' && s[len(s)-1] == '"':
		return strings.ReplaceAll(s[1:len(s)-1], `""`, `"`)
	}
	return s
}

// ParseLine splits a split-file line on the last occurrence of delim and
// unquotes the path. ok is false when the delimiter is absent.
func ParseLine(line, delim string) (path, label string, ok bool) {
	line = strings.TrimRight(line, "\r\n")
	i := strings.LastIndex(line, delim)
	if i < 0 || delim == "" {
		return "", "", false
	}
	return Unquote(line[:i]), line[i+len(delim):], true
}
