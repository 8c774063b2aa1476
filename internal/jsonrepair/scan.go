package jsonrepair

import "strings"

// stripOuter drops everything before the first opening bracket and after the last closing one.
func stripOuter(text string) string {
	start := strings.IndexAny(text, "{[")
	if start < 0 {
		return strings.TrimSpace(text)
	}
	end := strings.LastIndexAny(text, "}]")
	if end < start {
		return text[start:]
	}
	return text[start : end+1]
}

// convertSingleQuotes rewrites single-quoted strings outside double-quoted strings as
// double-quoted strings, escaping embedded double quotes. An unterminated single quote
// is left as is.
func convertSingleQuotes(text string) string {
	if !strings.Contains(text, "'") {
		return text
	}

	var sb strings.Builder
	sb.Grow(len(text) + 8)
	inDouble := false

	for i := 0; i < len(text); i++ {
		c := text[i]
		if inDouble {
			sb.WriteByte(c)
			if c == '\\' && i+1 < len(text) {
				i++
				sb.WriteByte(text[i])
			} else if c == '"' {
				inDouble = false
			}
			continue
		}

		switch c {
		case '"':
			inDouble = true
			sb.WriteByte(c)
		case '\'':
			content, end, ok := readSingleQuoted(text, i+1)
			if !ok {
				sb.WriteByte(c)
				continue
			}
			sb.WriteByte('"')
			sb.WriteString(content)
			sb.WriteByte('"')
			i = end
		default:
			sb.WriteByte(c)
		}
	}
	return sb.String()
}

// readSingleQuoted reads from start up to the closing single quote, returning the content
// re-escaped for a double-quoted string and the index of the closing quote.
func readSingleQuoted(text string, start int) (string, int, bool) {
	var sb strings.Builder
	for j := start; j < len(text); j++ {
		c := text[j]
		switch c {
		case '\\':
			if j+1 < len(text) {
				next := text[j+1]
				if next == '\'' {
					sb.WriteByte('\'')
				} else {
					sb.WriteByte(c)
					sb.WriteByte(next)
				}
				j++
				continue
			}
			sb.WriteByte(c)
		case '"':
			sb.WriteString(`\"`)
		case '\'':
			return sb.String(), j, true
		case '\n':
			return "", 0, false
		default:
			sb.WriteByte(c)
		}
	}
	return "", 0, false
}

// mapOutsideStrings applies fn to every run of text that lies outside double-quoted strings.
// String literals, including an unterminated trailing one, are copied unchanged.
func mapOutsideStrings(text string, fn func(string) string) string {
	var sb strings.Builder
	sb.Grow(len(text))

	segStart := 0
	for i := 0; i < len(text); i++ {
		if text[i] != '"' {
			continue
		}
		sb.WriteString(fn(text[segStart:i]))

		end := stringEnd(text, i)
		sb.WriteString(text[i:end])
		segStart = end
		i = end - 1
	}
	if segStart < len(text) {
		sb.WriteString(fn(text[segStart:]))
	}
	return sb.String()
}

// stringEnd returns the index just past the string literal opening at start,
// or len(text) when it is never closed.
func stringEnd(text string, start int) int {
	for j := start + 1; j < len(text); j++ {
		switch text[j] {
		case '\\':
			j++
		case '"':
			return j + 1
		}
	}
	return len(text)
}

// closeOpenContainers appends the closing tokens missing from text, innermost first.
// An unterminated string is closed, a dangling comma dropped and a dangling key given null.
func closeOpenContainers(text string) string {
	var stack []byte
	inString := false

	for i := 0; i < len(text); i++ {
		c := text[i]
		if inString {
			if c == '\\' {
				i++
			} else if c == '"' {
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			stack = append(stack, '}')
		case '[':
			stack = append(stack, ']')
		case '}', ']':
			if len(stack) > 0 && stack[len(stack)-1] == c {
				stack = stack[:len(stack)-1]
			}
		}
	}

	if !inString && len(stack) == 0 {
		return text
	}

	out := text
	if inString {
		if strings.HasSuffix(out, `\`) {
			out = out[:len(out)-1]
		}
		out += `"`
	}
	out = strings.TrimRight(out, " \t\r\n")
	out = strings.TrimSuffix(out, ",")
	if strings.HasSuffix(out, ":") {
		out += "null"
	}
	for i := len(stack) - 1; i >= 0; i-- {
		out += string(stack[i])
	}
	return out
}
