package protocol

import "strings"

var (
	escaper   = strings.NewReplacer(`\`, `\\`, sep, `\;`, "\n", `\n`, "\r", `\r`)
	unescaper = strings.NewReplacer(`\\`, `\`, `\;`, sep, `\n`, "\n", `\r`, "\r")
)

func escapeField(s string) string {
	return escaper.Replace(s)
}

func unescapeField(s string) string {
	return unescaper.Replace(s)
}

// splitEscaped splits on separators that are not preceded by an escape.
// Fields are returned still escaped.
func splitEscaped(frame string) []string {
	var (
		parts   []string
		start   int
		escaped bool
	)
	for i := 0; i < len(frame); i++ {
		switch {
		case escaped:
			escaped = false
		case frame[i] == '\\':
			escaped = true
		case frame[i] == sep[0]:
			parts = append(parts, frame[start:i])
			start = i + 1
		}
	}
	return append(parts, frame[start:])
}
