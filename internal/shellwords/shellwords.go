// Package shellwords splits free-form option strings into argv tokens.
package shellwords

import "strings"

// Split tokenizes s on unquoted ASCII spaces. A single or double quote opens
// a quoted region and is consumed; the other quote character is literal inside
// it. An unterminated quote extends to the end of the string. Backslashes have
// no special meaning. Empty tokens are dropped.
func Split(s string) []string {
	var tokens []string
	var cur strings.Builder
	var quote rune // 0 when outside quotes

	flush := func() {
		if cur.Len() > 0 {
			tokens = append(tokens, cur.String())
			cur.Reset()
		}
	}

	for _, r := range s {
		switch {
		case quote != 0:
			if r == quote {
				quote = 0
			} else {
				cur.WriteRune(r)
			}
		case r == '\'' || r == '"':
			quote = r
		case r == ' ':
			flush()
		default:
			cur.WriteRune(r)
		}
	}
	flush()

	return tokens
}
