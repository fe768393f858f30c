// Package converter turns JSON and YAML record payloads into ledger records.
package converter

import (
	"bytes"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/shunichi-ikebuchi/beancount-cli/pkg/beancount"
)

// Format is a payload encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// FormatFromPath picks the payload format from a file extension.
// Anything that is not .yaml or .yml is read as JSON.
func FormatFromPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatJSON
	}
}

// Converter converts payloads to records.
type Converter struct {
	today func() time.Time
	draft bool
}

// NewConverter creates a new Converter. today supplies the default date of
// account and commodity payloads (default time.Now).
func NewConverter(today func() time.Time) *Converter {
	if today == nil {
		today = time.Now
	}
	return &Converter{today: today}
}

// WithDraft returns a copy of c that marks every transaction as pending.
func (c *Converter) WithDraft(draft bool) *Converter {
	cp := *c
	cp.draft = draft
	return &cp
}

// Decode decodes a single payload or a list of payloads. Elements without a
// "kind" field are read as defaultKind; an empty defaultKind makes the field
// mandatory.
func (c *Converter) Decode(data []byte, format Format, defaultKind beancount.Kind) ([]beancount.Record, error) {
	var elements []element
	var err error
	switch format {
	case FormatJSON:
		elements, err = splitJSON(data)
	case FormatYAML:
		elements, err = splitYAML(data)
	default:
		return nil, fmt.Errorf("unsupported payload format %q", format)
	}
	if err != nil {
		return nil, err
	}
	if len(elements) == 0 {
		return nil, fmt.Errorf("payload contains no records")
	}

	records := make([]beancount.Record, 0, len(elements))
	for i, el := range elements {
		rec, err := c.decodeElement(el, defaultKind)
		if err != nil {
			if len(elements) == 1 {
				return nil, err
			}
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
		records = append(records, rec)
	}
	return records, nil
}

func (c *Converter) decodeElement(el element, defaultKind beancount.Kind) (beancount.Record, error) {
	var head struct {
		Kind string `json:"kind" yaml:"kind"`
	}
	if err := el.decode(&head); err != nil {
		return nil, fmt.Errorf("failed to parse payload: %w", err)
	}
	kind := beancount.Kind(head.Kind)
	if kind == "" {
		kind = defaultKind
	}

	switch kind {
	case beancount.KindTransaction:
		var p TransactionPayload
		if err := el.decode(&p); err != nil {
			return nil, fmt.Errorf("failed to parse transaction: %w", err)
		}
		return c.Transaction(p)
	case beancount.KindOpen:
		var p AccountPayload
		if err := el.decode(&p); err != nil {
			return nil, fmt.Errorf("failed to parse account: %w", err)
		}
		return c.Account(p)
	case beancount.KindCommodity:
		var p CommodityPayload
		if err := el.decode(&p); err != nil {
			return nil, fmt.Errorf("failed to parse commodity: %w", err)
		}
		return c.Commodity(p)
	case "":
		return nil, fmt.Errorf("record kind is required (one of %v)", beancount.Kinds)
	default:
		return nil, fmt.Errorf("unknown record kind %q (one of %v)", kind, beancount.Kinds)
	}
}

// Transaction converts a transaction payload.
func (c *Converter) Transaction(p TransactionPayload) (*beancount.Transaction, error) {
	if p.Date == "" {
		return nil, fmt.Errorf("transaction date is required")
	}
	date, err := beancount.ParseDate(p.Date)
	if err != nil {
		return nil, err
	}
	meta, err := beancount.NormalizeMetadata(p.Meta)
	if err != nil {
		return nil, err
	}

	flag := beancount.Flag(p.Flag)
	if flag == "" {
		flag = beancount.FlagCleared
	}
	if c.draft {
		flag = beancount.FlagPending
	}

	txn := &beancount.Transaction{
		Date:      date,
		Flag:      flag,
		Payee:     p.Payee,
		Narration: p.Narration,
		Tags:      trimPrefixes(p.Tags, "#"),
		Links:     trimPrefixes(p.Links, "^"),
		Meta:      meta,
	}
	for i, pp := range p.Postings {
		posting, err := convertPosting(pp)
		if err != nil {
			return nil, fmt.Errorf("posting %d: %w", i, err)
		}
		txn.Postings = append(txn.Postings, posting)
	}
	return txn, nil
}

func convertPosting(p PostingPayload) (beancount.Posting, error) {
	if p.Account == "" {
		return beancount.Posting{}, fmt.Errorf("account is required")
	}
	meta, err := beancount.NormalizeMetadata(p.Meta)
	if err != nil {
		return beancount.Posting{}, err
	}
	posting := beancount.Posting{Flag: p.Flag, Account: p.Account, Meta: meta}

	if p.Units != nil {
		if p.Units.Currency == "" {
			return posting, fmt.Errorf("units currency is required")
		}
		posting.Units = beancount.Amount{Number: p.Units.Number, Currency: p.Units.Currency}
	} else if p.Cost != nil || p.Price != nil {
		return posting, fmt.Errorf("cost or price given without units")
	}

	if p.Cost != nil {
		cost := &beancount.Cost{Number: p.Cost.Number, Currency: p.Cost.Currency, Label: p.Cost.Label}
		if p.Cost.Date != "" {
			d, err := beancount.ParseDate(p.Cost.Date)
			if err != nil {
				return posting, fmt.Errorf("cost: %w", err)
			}
			cost.Date = d
		}
		posting.Cost = cost
	}
	if p.Price != nil {
		if p.Price.Currency == "" {
			return posting, fmt.Errorf("price currency is required")
		}
		posting.Price = &beancount.Amount{Number: p.Price.Number, Currency: p.Price.Currency}
	}
	return posting, nil
}

// Account converts an account payload. A missing open date means today.
func (c *Converter) Account(p AccountPayload) (*beancount.Open, error) {
	if p.Name == "" {
		return nil, fmt.Errorf("account name is required")
	}
	date, err := c.dateOrToday(p.OpenDate)
	if err != nil {
		return nil, err
	}
	meta, err := beancount.NormalizeMetadata(p.Meta)
	if err != nil {
		return nil, err
	}
	return &beancount.Open{
		Date:       date,
		Account:    p.Name,
		Currencies: p.Currencies,
		Booking:    p.Booking,
		Meta:       meta,
	}, nil
}

// Commodity converts a commodity payload. A missing date means today.
func (c *Converter) Commodity(p CommodityPayload) (*beancount.Commodity, error) {
	if p.Currency == "" {
		return nil, fmt.Errorf("commodity currency is required")
	}
	date, err := c.dateOrToday(p.Date)
	if err != nil {
		return nil, err
	}
	meta, err := beancount.NormalizeMetadata(p.Meta)
	if err != nil {
		return nil, err
	}
	return &beancount.Commodity{
		Date:     date,
		Currency: p.Currency,
		Name:     p.Name,
		Meta:     meta,
	}, nil
}

func (c *Converter) dateOrToday(s string) (time.Time, error) {
	if s == "" {
		now := c.today()
		return beancount.Date(now.Year(), now.Month(), now.Day()), nil
	}
	return beancount.ParseDate(s)
}

func trimPrefixes(items []string, prefix string) []string {
	if len(items) == 0 {
		return nil
	}
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = strings.TrimPrefix(it, prefix)
	}
	return out
}

// element is one undecoded payload.
type element struct {
	json json.RawMessage
	yaml *yaml.Node
}

func (e element) decode(v any) error {
	if e.yaml != nil {
		return e.yaml.Decode(v)
	}
	dec := json.NewDecoder(bytes.NewReader(e.json))
	dec.UseNumber()
	return dec.Decode(v)
}

func splitJSON(data []byte) ([]element, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("empty payload")
	}
	if trimmed[0] != '[' {
		return []element{{json: json.RawMessage(trimmed)}}, nil
	}
	var raws []json.RawMessage
	if err := json.Unmarshal(trimmed, &raws); err != nil {
		return nil, fmt.Errorf("failed to parse JSON list: %w", err)
	}
	elements := make([]element, len(raws))
	for i, raw := range raws {
		elements[i] = element{json: raw}
	}
	return elements, nil
}

func splitYAML(data []byte) ([]element, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 {
		return nil, fmt.Errorf("empty payload")
	}
	root := doc.Content[0]
	if root.Kind != yaml.SequenceNode {
		return []element{{yaml: root}}, nil
	}
	elements := make([]element, len(root.Content))
	for i, node := range root.Content {
		elements[i] = element{yaml: node}
	}
	return elements, nil
}
