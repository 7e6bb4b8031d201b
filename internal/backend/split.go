package backend

import (
	"errors"
	"strings"
)

// ErrUnbalancedQuotes reports a command line with an unterminated quote.
var ErrUnbalancedQuotes = errors.New("unbalanced quotes in command")

// Split tokenizes a command line into backend arguments. Tokens are
// whitespace-separated; single quotes preserve content literally and double
// quotes honor backslash escapes, so values with spaces survive the trip to
// the backend.
func Split(line string) ([]string, error) {
	var args []string
	var cur strings.Builder
	inToken := false

	flush := func() {
		if inToken {
			args = append(args, cur.String())
			cur.Reset()
			inToken = false
		}
	}

	for i := 0; i < len(line); i++ {
		c := line[i]
		switch c {
		case ' ', '\t', '\n', '\r':
			flush()
		case '\'':
			inToken = true
			end := strings.IndexByte(line[i+1:], '\'')
			if end < 0 {
				return nil, ErrUnbalancedQuotes
			}
			cur.WriteString(line[i+1 : i+1+end])
			i += end + 1
		case '"':
			inToken = true
			rest, consumed, err := scanDoubleQuoted(line[i+1:])
			if err != nil {
				return nil, err
			}
			cur.WriteString(rest)
			i += consumed + 1
		default:
			inToken = true
			cur.WriteByte(c)
		}
	}
	flush()
	return args, nil
}

func scanDoubleQuoted(s string) (string, int, error) {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch c {
		case '"':
			return b.String(), i, nil
		case '\\':
			if i+1 >= len(s) {
				return "", 0, ErrUnbalancedQuotes
			}
			i++
			switch s[i] {
			case 'n':
				b.WriteByte('\n')
			case 't':
				b.WriteByte('\t')
			case 'r':
				b.WriteByte('\r')
			default:
				b.WriteByte(s[i])
			}
		default:
			b.WriteByte(c)
		}
	}
	return "", 0, ErrUnbalancedQuotes
}
