package markdown

import "strings"

// escapeText backslash-escapes characters that would otherwise be read as
// markdown syntax. lineStart enables escaping of block markers.
func escapeText(s string, lineStart, inCell bool) string {
	var b strings.Builder
	b.Grow(len(s) + 8)
	i := 0
	if lineStart {
		i = escapeBlockMarker(&b, s)
	}
	for ; i < len(s); i++ {
		c := s[i]
		switch c {
		case '\\', '`', '*', '_', '[', ']', '<':
			b.WriteByte('\\')
		case '|':
			if inCell {
				b.WriteByte('\\')
			}
		case '&':
			if isEntity(s[i:]) {
				b.WriteByte('\\')
			}
		}
		b.WriteByte(c)
	}
	return b.String()
}

// escapeBlockMarker writes s's leading block marker, if any, in escaped form
// and returns how many bytes it consumed.
func escapeBlockMarker(b *strings.Builder, s string) int {
	if s == "" {
		return 0
	}
	switch s[0] {
	case '#', '>', '+', '-', '=', '~':
		b.WriteByte('\\')
		b.WriteByte(s[0])
		return 1
	}
	digits := 0
	for digits < len(s) && digits < 9 && s[digits] >= '0' && s[digits] <= '9' {
		digits++
	}
	if digits > 0 && digits < len(s) && (s[digits] == '.' || s[digits] == ')') {
		b.WriteString(s[:digits])
		b.WriteByte('\\')
		b.WriteByte(s[digits])
		return digits + 1
	}
	return 0
}

// escapeClosingSequence escapes a trailing run of '#' in heading text that
// would otherwise be read as the optional closing sequence of an ATX heading.
func escapeClosingSequence(s string) string {
	trimmed := strings.TrimRight(s, "#")
	if len(trimmed) == len(s) {
		return s
	}
	if trimmed != "" && !strings.HasSuffix(trimmed, " ") && !strings.HasSuffix(trimmed, "\t") {
		return s
	}
	return trimmed + `\` + s[len(trimmed):]
}

// isEntity reports whether s starts with an entity or numeric character
// reference such as "&amp;" or "&#123;".
func isEntity(s string) bool {
	end := strings.IndexByte(s, ';')
	if end < 2 || end > 33 {
		return false
	}
	body := s[1:end]
	if body[0] == '#' {
		body = body[1:]
		hex := false
		if body != "" && (body[0] == 'x' || body[0] == 'X') {
			body = body[1:]
			hex = true
		}
		if body == "" || len(body) > 7 {
			return false
		}
		for i := 0; i < len(body); i++ {
			c := body[i]
			isDigit := c >= '0' && c <= '9'
			isHex := (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
			if !isDigit && !(hex && isHex) {
				return false
			}
		}
		return true
	}
	for i := 0; i < len(body); i++ {
		c := body[i]
		if !(c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9') {
			return false
		}
	}
	return true
}
