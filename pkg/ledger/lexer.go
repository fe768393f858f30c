package ledger

import (
	"fmt"
	"strings"
)

type tokenKind int

const (
	tokWord tokenKind = iota
	tokString
	tokLBrace
	tokRBrace
	tokComma
	tokAt
	tokAtAt
)

type token struct {
	kind tokenKind
	text string // unescaped for strings
}

// tokenize splits one line into tokens, stopping at a ';' comment.
func tokenize(line string) ([]token, error) {
	var toks []token
	i := 0
	for i < len(line) {
		c := line[i]
		switch {
		case c == ' ' || c == '\t' || c == '\r' || c == '\n':
			i++
		case c == ';':
			return toks, nil
		case c == '"':
			s, n, err := readString(line[i:])
			if err != nil {
				return nil, err
			}
			toks = append(toks, token{kind: tokString, text: s})
			i += n
		case c == '{':
			toks = append(toks, token{kind: tokLBrace, text: "{"})
			i++
		case c == '}':
			toks = append(toks, token{kind: tokRBrace, text: "}"})
			i++
		case c == ',':
			toks = append(toks, token{kind: tokComma, text: ","})
			i++
		case c == '@':
			if i+1 < len(line) && line[i+1] == '@' {
				toks = append(toks, token{kind: tokAtAt, text: "@@"})
				i += 2
			} else {
				toks = append(toks, token{kind: tokAt, text: "@"})
				i++
			}
		default:
			j := i
			for j < len(line) && (!strings.ContainsRune(" \t\r\n;\"{},@", rune(line[j])) || digitGroup(line, j)) {
				j++
			}
			toks = append(toks, token{kind: tokWord, text: line[i:j]})
			i = j
		}
	}
	return toks, nil
}

// readString reads a double-quoted string at the start of s and returns its
// unescaped value and the number of bytes consumed.
func readString(s string) (string, int, error) {
	var sb strings.Builder
	for i := 1; i < len(s); i++ {
		switch s[i] {
		case '\\':
			if i+1 >= len(s) {
				return "", 0, fmt.Errorf("unterminated string")
			}
			i++
			switch s[i] {
			case 'n':
				sb.WriteByte('\n')
			case 't':
				sb.WriteByte('\t')
			default:
				sb.WriteByte(s[i])
			}
		case '"':
			return sb.String(), i + 1, nil
		default:
			sb.WriteByte(s[i])
		}
	}
	return "", 0, fmt.Errorf("unterminated string")
}

// digitGroup reports whether the comma at line[i] separates digit groups,
// as in 1,000.00.
func digitGroup(line string, i int) bool {
	return line[i] == ',' && i > 0 && i+1 < len(line) && isDigit(line[i-1]) && isDigit(line[i+1])
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

// openString reports whether s ends inside a double-quoted string. Strings
// may span several lines; the parser joins lines until this is false.
func openString(s string) bool {
	in := false
	for i := 0; i < len(s); i++ {
		switch c := s[i]; {
		case in && c == '\\':
			i++
		case c == '"':
			in = !in
		case !in && c == ';':
			return false
		}
	}
	return in
}
