package beancount

import (
	"encoding/json"
	"fmt"
	"regexp"
	"time"

	"github.com/shopspring/decimal"
)

var (
	accountPattern  = regexp.MustCompile(`^[A-Z][A-Za-z0-9\-]+(?::[A-Z][A-Za-z0-9\-]+)*$`)
	currencyPattern = regexp.MustCompile(`^[A-Z][A-Z0-9'._\-]{0,22}[A-Z0-9]$`)
	metaKeyPattern  = regexp.MustCompile(`^[a-z][a-zA-Z0-9_\-]*$`)
	tagPattern      = regexp.MustCompile(`^[A-Za-z0-9_./\-]+$`)
)

// IsValidAccount reports whether name is a well-formed account name
// (capitalized colon-separated segments, e.g. Assets:Cash).
func IsValidAccount(name string) bool {
	return accountPattern.MatchString(name)
}

// IsValidCurrency reports whether code is a well-formed commodity code.
func IsValidCurrency(code string) bool {
	return currencyPattern.MatchString(code)
}

// IsValidMetaKey reports whether key can be used as a metadata key.
func IsValidMetaKey(key string) bool {
	return metaKeyPattern.MatchString(key)
}

// IsValidTag reports whether s can be used as a tag or link name.
func IsValidTag(s string) bool {
	return tagPattern.MatchString(s)
}

// NormalizeMetaValue converts a decoded payload value to one of the
// supported metadata scalar types.
func NormalizeMetaValue(v any) (any, error) {
	switch val := v.(type) {
	case string:
		return val, nil
	case bool:
		return val, nil
	case decimal.Decimal:
		return val, nil
	case json.Number:
		d, err := decimal.NewFromString(val.String())
		if err != nil {
			return nil, fmt.Errorf("invalid number %q: %w", val, err)
		}
		return d, nil
	case float64:
		return decimal.NewFromFloat(val), nil
	case int:
		return decimal.NewFromInt(int64(val)), nil
	case int64:
		return decimal.NewFromInt(val), nil
	case time.Time:
		return Date(val.Year(), val.Month(), val.Day()), nil
	default:
		return nil, fmt.Errorf("unsupported metadata value %v (%T)", v, v)
	}
}

// NormalizeMetadata normalizes every value of m. A nil map stays nil.
func NormalizeMetadata(m map[string]any) (Metadata, error) {
	if m == nil {
		return nil, nil
	}
	out := make(Metadata, len(m))
	for k, v := range m {
		nv, err := NormalizeMetaValue(v)
		if err != nil {
			return nil, fmt.Errorf("metadata %q: %w", k, err)
		}
		out[k] = nv
	}
	return out, nil
}
