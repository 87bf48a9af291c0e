package database

import (
	"strings"
)

// Dialect identifies the SQL flavour a statement is written for.
type Dialect string

const (
	Postgres Dialect = "postgres"
	SQLite   Dialect = "sqlite"
)

// Rebind rewrites a statement written for Postgres into the target dialect.
// For SQLite, $N placeholders become ?N (numbered, so reuse and ordering are
// preserved) and NOW() becomes CURRENT_TIMESTAMP. Text inside single-quoted
// literals, double-quoted identifiers and comments is left untouched.
func Rebind(target Dialect, query string) string {
	if target != SQLite {
		return query
	}

	var b strings.Builder
	b.Grow(len(query))

	const (
		stateCode = iota
		stateString
		stateIdent
		stateLineComment
	)
	state := stateCode

	for i := 0; i < len(query); i++ {
		c := query[i]
		switch state {
		case stateString:
			b.WriteByte(c)
			if c == '\'' {
				state = stateCode
			}
			continue
		case stateIdent:
			b.WriteByte(c)
			if c == '"' {
				state = stateCode
			}
			continue
		case stateLineComment:
			b.WriteByte(c)
			if c == '\n' {
				state = stateCode
			}
			continue
		}

		switch {
		case c == '\'':
			state = stateString
			b.WriteByte(c)
		case c == '"':
			state = stateIdent
			b.WriteByte(c)
		case c == '-' && i+1 < len(query) && query[i+1] == '-':
			state = stateLineComment
			b.WriteByte(c)
		case c == '$' && i+1 < len(query) && isDigit(query[i+1]):
			b.WriteByte('?')
		case (c == 'N' || c == 'n') && hasFoldPrefix(query[i:], "NOW()") && !isIdentByte(prev(query, i)):
			b.WriteString("CURRENT_TIMESTAMP")
			i += len("NOW()") - 1
		default:
			b.WriteByte(c)
		}
	}

	return b.String()
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func isIdentByte(c byte) bool {
	return c == '_' || isDigit(c) || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func prev(s string, i int) byte {
	if i == 0 {
		return ' '
	}
	return s[i-1]
}

func hasFoldPrefix(s, prefix string) bool {
	return len(s) >= len(prefix) && strings.EqualFold(s[:len(prefix)], prefix)
}
