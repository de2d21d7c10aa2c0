// Package escape turns an argument vector into a single Windows-style
// command line, the way CreateProcess expects it. Grounded on the
// teacher's own ad hoc quoting in internal/jobcontainers (splitArgs /
// getApplicationName re-quoting) and on mattn/go-shellwords-style
// escaping used elsewhere in the pack, but implemented directly since
// the spec's quoting rule (verbatim for "/"-prefixed switches) doesn't
// match any library's default behavior.
package escape

import "strings"

// Escape joins args into one command line string. Every argument is
// wrapped in double quotes with internal backslashes doubled and
// internal double quotes backslash-escaped, except an argument that
// begins with "/" (a switch-style option), which is emitted verbatim.
// An empty argument vector produces the empty string.
func Escape(args []string) string {
	if len(args) == 0 {
		return ""
	}

	escaped := make([]string, len(args))
	for i, arg := range args {
		escaped[i] = escapeOne(arg)
	}
	return strings.Join(escaped, " ")
}

func escapeOne(arg string) string {
	if strings.HasPrefix(arg, "/") {
		return arg
	}

	var b strings.Builder
	b.WriteByte('"')
	for _, r := range arg {
		switch r {
		case '\\':
			b.WriteString(`\\`)
		case '"':
			b.WriteString(`\"`)
		default:
			b.WriteRune(r)
		}
	}
	b.WriteByte('"')
	return b.String()
}
