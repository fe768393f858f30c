package ledger

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/shopspring/decimal"

	"github.com/shunichi-ikebuchi/beancount-cli/pkg/beancount"
)

type entryKind int

const (
	entryOption entryKind = iota
	entryInclude
	entryOpen
	entryClose
	entryCommodity
	entryCustom
	entryTransaction
	entryOther
)

// entry is one parsed top-level directive.
type entry struct {
	kind entryKind
	line int
	date time.Time

	record  beancount.Record // open, commodity, transaction
	account string           // close
	name    string           // option name
	value   string           // option value
	path    string           // include pattern
	custom  CustomEntry
}

// ignoredDirectives are dated directives the tool does not need. Their
// metadata lines are consumed and dropped.
var ignoredDirectives = map[string]bool{
	"balance": true, "pad": true, "note": true, "document": true,
	"event": true, "price": true, "query": true,
}

var undatedIgnored = map[string]bool{
	"plugin": true, "pushtag": true, "poptag": true, "pushmeta": true, "popmeta": true,
}

type parser struct {
	file    string
	entries []*entry
	errs    []LoadError
	// lenient keeps a transaction whose body cannot be read as an opaque
	// entry instead of reporting it.
	lenient bool

	cur           *entry
	postingIndent int
}

// parse reads ledger text. It keeps going after errors so that every
// problem in a file is reported at once.
//
// A lenient parse accepts transactions using syntax this package does not
// model (arithmetic amounts, total costs and the like) and keeps them as
// opaque entries. Every other directive is checked the same way in both
// modes.
func parse(file string, r io.Reader, lenient bool) ([]*entry, []LoadError) {
	p := &parser{file: file, lenient: lenient}
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		raw := scanner.Text()
		if lineNo == 1 {
			raw = strings.TrimPrefix(raw, "\ufeff")
		}
		if strings.TrimSpace(raw) == "" {
			continue
		}
		start := lineNo
		for !comment(raw) && openString(raw) && scanner.Scan() {
			lineNo++
			raw += "\n" + scanner.Text()
		}
		p.line(raw, start)
	}
	if err := scanner.Err(); err != nil {
		p.errorf(lineNo, "read error: %v", err)
	}
	return p.entries, p.errs
}

// line handles one logical line, which spans several physical lines when
// it holds a multi-line string.
func (p *parser) line(raw string, lineNo int) {
	switch {
	case raw[0] == ' ' || raw[0] == '\t':
		p.indented(raw, lineNo)
	case comment(raw):
	default:
		p.cur = nil
		p.directive(raw, lineNo)
	}
}

// comment reports whether a column-0 line is a comment or an org-mode
// heading.
func comment(raw string) bool {
	return strings.ContainsRune(";#*%|", rune(raw[0]))
}

func (p *parser) errorf(line int, format string, args ...any) {
	p.errs = append(p.errs, LoadError{File: p.file, Line: line, Message: fmt.Sprintf(format, args...)})
}

func (p *parser) directive(raw string, line int) {
	toks, err := tokenize(raw)
	if err != nil {
		p.errorf(line, "%v", err)
		return
	}
	if len(toks) == 0 {
		return
	}
	head := toks[0]
	if head.kind != tokWord {
		p.errorf(line, "unexpected %q at start of line", head.text)
		return
	}

	switch {
	case head.text == "option":
		if len(toks) != 3 || toks[1].kind != tokString || toks[2].kind != tokString {
			p.errorf(line, `option expects two strings: option "name" "value"`)
			return
		}
		p.entries = append(p.entries, &entry{kind: entryOption, line: line, name: toks[1].text, value: toks[2].text})
	case head.text == "include":
		if len(toks) != 2 || toks[1].kind != tokString {
			p.errorf(line, `include expects one string: include "path"`)
			return
		}
		p.entries = append(p.entries, &entry{kind: entryInclude, line: line, path: toks[1].text})
	case undatedIgnored[head.text]:
		return
	case len(head.text) > 0 && head.text[0] >= '0' && head.text[0] <= '9':
		date, err := beancount.ParseDate(head.text)
		if err != nil {
			p.errorf(line, "%v", err)
			return
		}
		if len(toks) < 2 {
			p.errorf(line, "missing directive after date")
			return
		}
		p.dated(date, toks[1:], line)
	default:
		p.errorf(line, "unknown directive %q", head.text)
	}
}

func (p *parser) dated(date time.Time, toks []token, line int) {
	kw := toks[0]
	args := toks[1:]

	if kw.kind == tokWord {
		switch {
		case kw.text == "open":
			p.open(date, args, line)
			return
		case kw.text == "close":
			if len(args) != 1 || args[0].kind != tokWord {
				p.errorf(line, "close expects an account")
				return
			}
			p.push(&entry{kind: entryClose, line: line, date: date, account: args[0].text})
			return
		case kw.text == "commodity":
			if len(args) != 1 || args[0].kind != tokWord {
				p.errorf(line, "commodity expects a currency")
				return
			}
			p.push(&entry{kind: entryCommodity, line: line, date: date,
				record: &beancount.Commodity{Date: date, Currency: args[0].text}})
			return
		case kw.text == "custom":
			p.customEntry(date, args, line)
			return
		case ignoredDirectives[kw.text]:
			p.push(&entry{kind: entryOther, line: line, date: date})
			return
		case kw.text == "txn":
			p.transaction(date, beancount.FlagCleared, args, line)
			return
		case utf8.RuneCountInString(kw.text) == 1:
			p.transaction(date, beancount.Flag(kw.text), args, line)
			return
		}
	}
	if kw.kind == tokString {
		// flag-less transaction header is not valid, but report it clearly
		p.errorf(line, "transaction is missing a flag")
		return
	}
	p.errorf(line, "unknown directive %q", kw.text)
}

func (p *parser) push(e *entry) {
	p.entries = append(p.entries, e)
	p.cur = e
	p.postingIndent = 0
}

func (p *parser) open(date time.Time, args []token, line int) {
	if len(args) == 0 || args[0].kind != tokWord {
		p.errorf(line, "open expects an account")
		return
	}
	o := &beancount.Open{Date: date, Account: args[0].text}
	for _, t := range args[1:] {
		switch t.kind {
		case tokWord:
			o.Currencies = append(o.Currencies, t.text)
		case tokComma:
		case tokString:
			o.Booking = t.text
		default:
			p.errorf(line, "unexpected %q in open directive", t.text)
			return
		}
	}
	p.push(&entry{kind: entryOpen, line: line, date: date, record: o})
}

func (p *parser) customEntry(date time.Time, args []token, line int) {
	if len(args) == 0 || args[0].kind != tokString {
		p.errorf(line, `custom expects a type string: custom "type" values...`)
		return
	}
	c := CustomEntry{Date: date, Type: args[0].text, Line: line, File: p.file}
	rest := args[1:]
	for i := 0; i < len(rest); i++ {
		t := rest[i]
		switch {
		case t.kind == tokString:
			c.Values = append(c.Values, CustomValue{Kind: ValueString, Text: t.text})
		case t.kind != tokWord:
			p.errorf(line, "unexpected %q in custom directive", t.text)
			return
		case t.text == "TRUE" || t.text == "FALSE":
			c.Values = append(c.Values, CustomValue{Kind: ValueBool, Text: t.text})
		case isDate(t.text):
			c.Values = append(c.Values, CustomValue{Kind: ValueDate, Text: t.text})
		case isNumber(t.text):
			if i+1 < len(rest) && rest[i+1].kind == tokWord && beancount.IsValidCurrency(rest[i+1].text) {
				c.Values = append(c.Values, CustomValue{Kind: ValueAmount, Text: t.text + " " + rest[i+1].text})
				i++
			} else {
				c.Values = append(c.Values, CustomValue{Kind: ValueNumber, Text: t.text})
			}
		default:
			c.Values = append(c.Values, CustomValue{Kind: ValueAccount, Text: t.text})
		}
	}
	p.push(&entry{kind: entryCustom, line: line, date: date, custom: c})
}

func (p *parser) transaction(date time.Time, flag beancount.Flag, args []token, line int) {
	txn := &beancount.Transaction{Date: date, Flag: flag}
	var strs []string
	for _, t := range args {
		switch {
		case t.kind == tokString:
			strs = append(strs, t.text)
		case t.kind == tokWord && strings.HasPrefix(t.text, "#") && len(t.text) > 1:
			txn.Tags = append(txn.Tags, t.text[1:])
		case t.kind == tokWord && strings.HasPrefix(t.text, "^") && len(t.text) > 1:
			txn.Links = append(txn.Links, t.text[1:])
		default:
			p.opaque(line, fmt.Errorf("unexpected %q in transaction header", t.text))
			return
		}
	}
	switch len(strs) {
	case 0:
	case 1:
		txn.Narration = strs[0]
	case 2:
		txn.Payee, txn.Narration = strs[0], strs[1]
	default:
		p.opaque(line, fmt.Errorf("too many strings in transaction header"))
		return
	}
	p.push(&entry{kind: entryTransaction, line: line, date: date, record: txn})
}

// opaque gives up on the transaction being read. Its remaining lines are
// consumed without being parsed. A strict parser also reports err.
func (p *parser) opaque(line int, err error) {
	if !p.lenient {
		p.errorf(line, "%v", err)
	}
	if p.cur != nil && p.cur.kind == entryTransaction {
		p.cur.kind = entryOther
		p.cur.record = nil
		return
	}
	p.push(&entry{kind: entryOther, line: line})
}

func (p *parser) indented(raw string, line int) {
	trimmed := strings.TrimLeft(raw, " \t")
	if trimmed == "" || trimmed[0] == ';' {
		return
	}
	if p.cur == nil {
		p.errorf(line, "indented line outside of a directive")
		return
	}
	if p.cur.kind == entryOther {
		return
	}
	width := len(raw) - len(trimmed)
	txn, isTxn := p.cur.record.(*beancount.Transaction)

	toks, err := tokenize(trimmed)
	if err != nil {
		p.bodyError(isTxn, line, err)
		return
	}
	if len(toks) == 0 {
		return
	}

	if key, ok := metaKey(toks[0]); ok {
		value, err := parseMetaValue(toks[1:])
		if err != nil {
			p.bodyError(isTxn, line, fmt.Errorf("metadata %q: %w", key, err))
			return
		}
		p.metadata(key, value, width)
		return
	}

	if !isTxn {
		p.errorf(line, "unexpected indented line")
		return
	}

	if allTagsOrLinks(toks) && len(txn.Postings) == 0 {
		for _, t := range toks {
			if t.text[0] == '#' {
				txn.Tags = append(txn.Tags, t.text[1:])
			} else {
				txn.Links = append(txn.Links, t.text[1:])
			}
		}
		return
	}

	posting, err := parsePosting(toks)
	if err != nil {
		p.opaque(line, err)
		return
	}
	txn.Postings = append(txn.Postings, posting)
	p.postingIndent = width
}

func (p *parser) bodyError(inTxn bool, line int, err error) {
	if inTxn {
		p.opaque(line, err)
		return
	}
	p.errorf(line, "%v", err)
}

func (p *parser) metadata(key string, value any, width int) {
	switch rec := p.cur.record.(type) {
	case *beancount.Transaction:
		if n := len(rec.Postings); n > 0 && width > p.postingIndent {
			posting := &rec.Postings[n-1]
			if posting.Meta == nil {
				posting.Meta = beancount.Metadata{}
			}
			posting.Meta[key] = value
			return
		}
		if rec.Meta == nil {
			rec.Meta = beancount.Metadata{}
		}
		rec.Meta[key] = value
	case *beancount.Commodity:
		if name, ok := value.(string); ok && key == "name" {
			rec.Name = name
			return
		}
		if rec.Meta == nil {
			rec.Meta = beancount.Metadata{}
		}
		rec.Meta[key] = value
	case *beancount.Open:
		if rec.Meta == nil {
			rec.Meta = beancount.Metadata{}
		}
		rec.Meta[key] = value
	}
}

func metaKey(t token) (string, bool) {
	if t.kind != tokWord || !strings.HasSuffix(t.text, ":") {
		return "", false
	}
	key := strings.TrimSuffix(t.text, ":")
	if !beancount.IsValidMetaKey(key) {
		return "", false
	}
	return key, true
}

func parseMetaValue(toks []token) (any, error) {
	if len(toks) == 0 {
		return nil, nil
	}
	t := toks[0]
	if t.kind == tokString {
		if len(toks) > 1 {
			return nil, fmt.Errorf("unexpected %q after value", toks[1].text)
		}
		return t.text, nil
	}
	if t.kind != tokWord {
		return nil, fmt.Errorf("unexpected %q", t.text)
	}
	switch {
	case len(toks) == 1 && (t.text == "TRUE" || t.text == "FALSE"):
		return t.text == "TRUE", nil
	case len(toks) == 1 && isDate(t.text):
		return beancount.ParseDate(t.text)
	case len(toks) == 1 && isNumber(t.text):
		return parseNumber(t.text)
	}
	parts := make([]string, 0, len(toks))
	for _, tok := range toks {
		parts = append(parts, tok.text)
	}
	return strings.Join(parts, " "), nil
}

func parsePosting(toks []token) (beancount.Posting, error) {
	var p beancount.Posting
	i := 0
	if toks[0].kind == tokWord && isPostingFlag(toks[0].text) {
		p.Flag = toks[0].text
		i++
	}
	if i >= len(toks) || toks[i].kind != tokWord || !looksLikeAccount(toks[i].text) {
		return p, fmt.Errorf("invalid posting: expected an account")
	}
	p.Account = toks[i].text
	i++
	if i == len(toks) {
		// amount left to interpolation
		return p, nil
	}

	units, n, err := parseAmount(toks[i:])
	if err != nil {
		return p, fmt.Errorf("posting %s: %w", p.Account, err)
	}
	p.Units = units
	i += n

	if i < len(toks) && toks[i].kind == tokLBrace {
		cost, n, err := parseCost(toks[i:])
		if err != nil {
			return p, fmt.Errorf("posting %s: %w", p.Account, err)
		}
		p.Cost = cost
		i += n
	}

	if i < len(toks) && (toks[i].kind == tokAt || toks[i].kind == tokAtAt) {
		total := toks[i].kind == tokAtAt
		price, n, err := parseAmount(toks[i+1:])
		if err != nil {
			return p, fmt.Errorf("posting %s price: %w", p.Account, err)
		}
		if total && !p.Units.Number.IsZero() {
			price.Number = price.Number.Div(p.Units.Number.Abs())
		}
		p.Price = &price
		i += 1 + n
	}

	if i != len(toks) {
		return p, fmt.Errorf("posting %s: unexpected %q", p.Account, toks[i].text)
	}
	return p, nil
}

func parseAmount(toks []token) (beancount.Amount, int, error) {
	if len(toks) < 2 || toks[0].kind != tokWord || toks[1].kind != tokWord {
		return beancount.Amount{}, 0, fmt.Errorf("expected <number> <currency>")
	}
	n, err := parseNumber(toks[0].text)
	if err != nil {
		return beancount.Amount{}, 0, fmt.Errorf("invalid number %q", toks[0].text)
	}
	return beancount.Amount{Number: n, Currency: toks[1].text}, 2, nil
}

// parseCost parses "{number currency[, date][, "label"]}".
func parseCost(toks []token) (*beancount.Cost, int, error) {
	cost := &beancount.Cost{}
	i := 1
	for {
		if i >= len(toks) {
			return nil, 0, fmt.Errorf("unterminated cost")
		}
		t := toks[i]
		switch {
		case t.kind == tokRBrace:
			return cost, i + 1, nil
		case t.kind == tokComma:
			i++
		case t.kind == tokString:
			cost.Label = t.text
			i++
		case t.kind == tokWord && isDate(t.text):
			d, err := beancount.ParseDate(t.text)
			if err != nil {
				return nil, 0, err
			}
			cost.Date = d
			i++
		case t.kind == tokWord && isNumber(t.text):
			amt, n, err := parseAmount(toks[i:])
			if err != nil {
				return nil, 0, fmt.Errorf("cost: %w", err)
			}
			cost.Number, cost.Currency = amt.Number, amt.Currency
			i += n
		default:
			return nil, 0, fmt.Errorf("unexpected %q in cost", t.text)
		}
	}
}

func allTagsOrLinks(toks []token) bool {
	for _, t := range toks {
		if t.kind != tokWord || len(t.text) < 2 || (t.text[0] != '#' && t.text[0] != '^') {
			return false
		}
	}
	return true
}

func isPostingFlag(s string) bool {
	return len(s) == 1 && strings.ContainsAny(s, "*!")
}

func looksLikeAccount(s string) bool {
	r, _ := utf8.DecodeRuneInString(s)
	return unicode.IsUpper(r) && strings.Contains(s, ":")
}

func isDate(s string) bool {
	_, err := beancount.ParseDate(s)
	return err == nil
}

func isNumber(s string) bool {
	_, err := parseNumber(s)
	return err == nil && s != "" && strings.IndexFunc(s, unicode.IsLetter) < 0
}

// parseNumber parses a decimal that may use commas between digit groups.
func parseNumber(s string) (decimal.Decimal, error) {
	return decimal.NewFromString(strings.ReplaceAll(s, ",", ""))
}
