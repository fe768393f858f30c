package pathutil

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/shunichi-ikebuchi/beancount-cli/pkg/beancount"
	"github.com/shunichi-ikebuchi/beancount-cli/pkg/ledgererror"
)

// Placeholder tokens supported in path templates.
const (
	TokenYear  = "year"
	TokenMonth = "month"
	TokenDay   = "day"
	TokenPayee = "payee"
	TokenSlug  = "slug"
)

// UnknownPayee replaces {payee} for records without a payee.
const UnknownPayee = "unknown"

// Expand substitutes the placeholders of template from the record. The result
// depends only on the template and the record's date, payee, narration and
// account. Unknown tokens and unbalanced braces are configuration errors.
// Expand never touches the filesystem.
func Expand(template string, rec beancount.Record) (string, error) {
	var sb strings.Builder
	rest := template
	for {
		open := strings.IndexAny(rest, "{}")
		if open < 0 {
			sb.WriteString(rest)
			return sb.String(), nil
		}
		if rest[open] == '}' {
			return "", &ledgererror.ConfigurationError{Template: template, Reason: "unbalanced '}' in path template"}
		}
		sb.WriteString(rest[:open])

		end := strings.IndexAny(rest[open+1:], "{}")
		if end < 0 || rest[open+1+end] != '}' {
			return "", &ledgererror.ConfigurationError{Template: template, Reason: "unterminated placeholder in path template"}
		}
		token := rest[open+1 : open+1+end]
		value, err := tokenValue(token, rec)
		if err != nil {
			return "", &ledgererror.ConfigurationError{Template: template, Reason: err.Error()}
		}
		sb.WriteString(value)
		rest = rest[open+1+end+1:]
	}
}

func tokenValue(token string, rec beancount.Record) (string, error) {
	date := rec.RecordDate()
	switch token {
	case TokenYear:
		return fmt.Sprintf("%04d", date.Year()), nil
	case TokenMonth:
		return fmt.Sprintf("%02d", int(date.Month())), nil
	case TokenDay:
		return fmt.Sprintf("%02d", date.Day()), nil
	case TokenPayee:
		return Payee(rec), nil
	case TokenSlug:
		return Slug(rec), nil
	default:
		return "", fmt.Errorf("unsupported placeholder {%s}", token)
	}
}

// Payee returns the record's payee as a file name component. Characters that
// are unsafe in file names are replaced with '_'.
func Payee(rec beancount.Record) string {
	txn, ok := rec.(*beancount.Transaction)
	if !ok || txn.Payee == "" {
		return UnknownPayee
	}
	safe := strings.Map(func(r rune) rune {
		if unicode.IsControl(r) || strings.ContainsRune(`/\:*?"<>|`, r) {
			return '_'
		}
		return r
	}, txn.Payee)
	if safe == "." || safe == ".." {
		return strings.Repeat("_", len(safe))
	}
	return safe
}

// Slug derives the {slug} value of a record:
//   - transactions use the narration, then the payee, then "tx"
//   - account opens use the account name
//   - commodities use the currency
//
// The text is lower-cased and every run of characters other than letters and
// digits becomes a single '-'.
func Slug(rec beancount.Record) string {
	switch r := rec.(type) {
	case *beancount.Transaction:
		if s := slugify(r.Narration); s != "" {
			return s
		}
		if s := slugify(r.Payee); s != "" {
			return s
		}
		return "tx"
	case *beancount.Open:
		return slugify(r.Account)
	case *beancount.Commodity:
		return slugify(r.Currency)
	default:
		return "record"
	}
}

func slugify(s string) string {
	var sb strings.Builder
	dash := false
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if dash && sb.Len() > 0 {
				sb.WriteByte('-')
			}
			dash = false
			sb.WriteRune(r)
			continue
		}
		dash = true
	}
	return sb.String()
}
