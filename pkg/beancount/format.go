package beancount

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	indent     = "  "
	metaIndent = "    "

	// openAccountWidth is the column width of the account in an open directive.
	openAccountWidth = 47
)

// Render formats a record in canonical ledger syntax. The result always ends
// with a newline and never contains blank lines.
func Render(r Record) (string, error) {
	var sb strings.Builder
	switch rec := r.(type) {
	case *Transaction:
		renderTransaction(&sb, rec)
	case *Open:
		renderOpen(&sb, rec)
	case *Commodity:
		renderCommodity(&sb, rec)
	default:
		return "", fmt.Errorf("cannot render record of type %T", r)
	}
	return sb.String(), nil
}

func renderTransaction(sb *strings.Builder, txn *Transaction) {
	// Transaction header
	sb.WriteString(txn.Date.Format(DateFormat))
	sb.WriteString(" ")
	sb.WriteString(flagOrDefault(txn.Flag))

	var strs []string
	if txn.Payee != "" {
		strs = append(strs, quote(txn.Payee))
	}
	if txn.Narration != "" {
		strs = append(strs, quote(txn.Narration))
	} else if txn.Payee != "" {
		strs = append(strs, `""`)
	}
	if len(strs) > 0 {
		sb.WriteString(" ")
		sb.WriteString(strings.Join(strs, " "))
	}
	for _, tag := range sortedSet(txn.Tags) {
		sb.WriteString(" #")
		sb.WriteString(tag)
	}
	for _, link := range sortedSet(txn.Links) {
		sb.WriteString(" ^")
		sb.WriteString(link)
	}
	sb.WriteString("\n")
	writeMetadata(sb, txn.Meta, indent)

	// Postings: accounts left-aligned, amounts aligned on the currency column.
	accounts := make([]string, len(txn.Postings))
	positions := make([]string, len(txn.Postings))
	widthAccount := 1
	for i, p := range txn.Postings {
		accounts[i] = p.Account
		if p.Flag != "" {
			accounts[i] = p.Flag + " " + p.Account
		}
		if len(accounts[i]) > widthAccount {
			widthAccount = len(accounts[i])
		}
		positions[i] = positionString(p)
	}
	aligned, widthPosition := alignPositionStrings(positions)
	if widthPosition < 1 {
		widthPosition = 1
	}

	for i, p := range txn.Postings {
		line := fmt.Sprintf("%s%-*s  %-*s", indent, widthAccount, accounts[i], widthPosition, aligned[i])
		sb.WriteString(strings.TrimRight(line, " "))
		sb.WriteString("\n")
		writeMetadata(sb, p.Meta, metaIndent)
	}
}

func renderOpen(sb *strings.Builder, o *Open) {
	booking := ""
	if o.Booking != "" {
		booking = quote(o.Booking)
	}
	line := fmt.Sprintf("%s open %-*s %s %s",
		o.Date.Format(DateFormat), openAccountWidth, o.Account, strings.Join(o.Currencies, ","), booking)
	sb.WriteString(strings.TrimRight(line, " "))
	sb.WriteString("\n")
	writeMetadata(sb, o.Meta, indent)
}

func renderCommodity(sb *strings.Builder, c *Commodity) {
	fmt.Fprintf(sb, "%s commodity %s\n", c.Date.Format(DateFormat), c.Currency)
	meta := c.Meta
	if c.Name != "" {
		meta = make(Metadata, len(c.Meta)+1)
		for k, v := range c.Meta {
			meta[k] = v
		}
		meta["name"] = c.Name
	}
	writeMetadata(sb, meta, indent)
}

// positionString renders units with optional cost and price clauses.
func positionString(p Posting) string {
	if p.Units.Currency == "" {
		return ""
	}
	var sb strings.Builder
	sb.WriteString(FormatAmount(p.Units))
	if p.Cost != nil {
		sb.WriteString(" {")
		sb.WriteString(formatCost(*p.Cost))
		sb.WriteString("}")
	}
	if p.Price != nil {
		sb.WriteString(" @ ")
		sb.WriteString(FormatAmount(*p.Price))
	}
	return sb.String()
}

func formatCost(c Cost) string {
	var parts []string
	if c.Currency != "" {
		parts = append(parts, FormatNumber(c.Number)+" "+c.Currency)
	}
	if !c.Date.IsZero() {
		parts = append(parts, c.Date.Format(DateFormat))
	}
	if c.Label != "" {
		parts = append(parts, quote(c.Label))
	}
	return strings.Join(parts, ", ")
}

// FormatAmount renders an amount as "<number> <currency>".
func FormatAmount(a Amount) string {
	return FormatNumber(a.Number) + " " + a.Currency
}

// FormatNumber renders a decimal keeping its precision (50.00 stays 50.00).
func FormatNumber(d decimal.Decimal) string {
	if exp := d.Exponent(); exp < 0 {
		return d.StringFixed(-exp)
	}
	return d.String()
}

// alignPositionStrings right-aligns the numbers of position strings so that
// their currencies start on the same column. Strings without a number are
// left-aligned. It returns the aligned strings and their common width.
func alignPositionStrings(strs []string) ([]string, int) {
	maxBefore, maxAfter, maxUnknown := 0, 0, 0
	indexes := make([]int, len(strs))
	for i, s := range strs {
		idx := strings.IndexFunc(s, func(r rune) bool { return r >= 'A' && r <= 'Z' })
		if idx > 0 {
			indexes[i] = idx
			maxBefore = max(maxBefore, idx)
			maxAfter = max(maxAfter, len(s)-idx)
			continue
		}
		indexes[i] = -1
		maxUnknown = max(maxUnknown, len(s))
	}

	maxTotal := max(maxBefore+maxAfter, maxUnknown)
	aligned := make([]string, len(strs))
	for i, s := range strs {
		if idx := indexes[i]; idx > 0 {
			aligned[i] = fmt.Sprintf("%*s%-*s", maxBefore, s[:idx], maxTotal-maxBefore, s[idx:])
		} else {
			aligned[i] = fmt.Sprintf("%-*s", maxTotal, s)
		}
	}
	return aligned, maxTotal
}

func writeMetadata(sb *strings.Builder, meta Metadata, prefix string) {
	if len(meta) == 0 {
		return
	}
	keys := make([]string, 0, len(meta))
	for k := range meta {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		sb.WriteString(prefix)
		sb.WriteString(k)
		sb.WriteString(": ")
		sb.WriteString(MetaValueString(meta[k]))
		sb.WriteString("\n")
	}
}

// MetaValueString renders a metadata value in ledger syntax.
func MetaValueString(v any) string {
	switch val := v.(type) {
	case string:
		return quote(val)
	case bool:
		if val {
			return "TRUE"
		}
		return "FALSE"
	case decimal.Decimal:
		return FormatNumber(val)
	case time.Time:
		return val.Format(DateFormat)
	case nil:
		return ""
	default:
		return quote(fmt.Sprint(val))
	}
}

func flagOrDefault(f Flag) string {
	if f == "" {
		return string(FlagCleared)
	}
	return string(f)
}

func quote(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `"`, `\"`)
	s = strings.ReplaceAll(s, "\n", `\n`)
	return `"` + s + `"`
}

func sortedSet(items []string) []string {
	if len(items) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(items))
	out := make([]string, 0, len(items))
	for _, it := range items {
		if !seen[it] {
			seen[it] = true
			out = append(out, it)
		}
	}
	sort.Strings(out)
	return out
}
