package orchestrator

import (
	"regexp"
	"strings"
)

var (
	// jsonBlockPattern matches an object inside a markdown fence: ```json { ... } ```
	jsonBlockPattern = regexp.MustCompile("(?s)```(?:json)?\\s*\\n?(\\{.*\\})\\s*```")
	// jsonObjectPattern is the greedy fallback for unfenced replies.
	jsonObjectPattern = regexp.MustCompile(`(?s)\{.*\}`)
)

// extractJSON pulls a JSON object out of a free-text collaborator reply.
// It tolerates markdown fences, // comments and trailing commas, and
// returns "" when the reply holds no object.
func extractJSON(reply string) string {
	var raw string
	if m := jsonBlockPattern.FindStringSubmatch(reply); len(m) > 1 {
		raw = m[1]
	} else {
		raw = jsonObjectPattern.FindString(reply)
	}
	if raw == "" {
		return ""
	}

	lines := strings.Split(raw, "\n")
	for i, line := range lines {
		lines[i] = stripLineComment(line)
	}
	return stripTrailingCommas(strings.Join(lines, "\n"))
}

// stripTrailingCommas drops a comma whose next non-space character closes
// an object or array. Commas inside string literals are kept.
func stripTrailingCommas(s string) string {
	var b strings.Builder
	b.Grow(len(s))

	inString := false
	escaped := false
	for i := 0; i < len(s); i++ {
		ch := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
			b.WriteByte(ch)
			continue
		}
		if ch == '"' {
			inString = true
		}
		if ch == ',' && closesNext(s[i+1:]) {
			continue
		}
		b.WriteByte(ch)
	}
	return b.String()
}

func closesNext(rest string) bool {
	rest = strings.TrimLeft(rest, " \t\r\n")
	return rest != "" && (rest[0] == '}' || rest[0] == ']')
}

// stripLineComment removes a trailing // comment that sits outside any
// string literal, so URLs inside values survive.
func stripLineComment(line string) string {
	if !strings.Contains(line, "//") {
		return line
	}

	inString := false
	escaped := false
	for i := 0; i < len(line); i++ {
		ch := line[i]
		if escaped {
			escaped = false
			continue
		}
		if ch == '\\' && inString {
			escaped = true
			continue
		}
		if ch == '"' {
			inString = !inString
			continue
		}
		if !inString && ch == '/' && i+1 < len(line) && line[i+1] == '/' {
			return strings.TrimRight(line[:i], " \t")
		}
	}
	return line
}
