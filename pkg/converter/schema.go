package converter

import (
	"reflect"
	"strings"

	"github.com/shopspring/decimal"
)

// SchemaDraft is the JSON Schema dialect produced by Schema.
const SchemaDraft = "https://json-schema.org/draft/2020-12/schema"

var decimalType = reflect.TypeOf(decimal.Decimal{})

// Schema returns the JSON Schema of a payload type, derived from its json
// tags. Fields without omitempty are required. Numbers accept a JSON number
// or a decimal string.
func Schema(title string, payload any) map[string]any {
	s := schemaOf(reflect.TypeOf(payload))
	s["$schema"] = SchemaDraft
	s["title"] = title
	return s
}

// TransactionSchema is the schema of the tx add payload.
func TransactionSchema() map[string]any {
	s := Schema("Transaction", TransactionPayload{})
	props := s["properties"].(map[string]any)
	props["kind"].(map[string]any)["enum"] = []string{"transaction"}
	props["date"].(map[string]any)["format"] = "date"
	props["flag"].(map[string]any)["enum"] = []string{"*", "!"}
	return s
}

func schemaOf(t reflect.Type) map[string]any {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t == decimalType {
		return map[string]any{"type": []string{"number", "string"}}
	}

	switch t.Kind() {
	case reflect.String:
		return map[string]any{"type": "string"}
	case reflect.Bool:
		return map[string]any{"type": "boolean"}
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return map[string]any{"type": "integer"}
	case reflect.Float32, reflect.Float64:
		return map[string]any{"type": "number"}
	case reflect.Slice, reflect.Array:
		return map[string]any{"type": "array", "items": schemaOf(t.Elem())}
	case reflect.Map:
		return map[string]any{"type": "object"}
	case reflect.Struct:
		props := map[string]any{}
		var required []string
		for i := 0; i < t.NumField(); i++ {
			f := t.Field(i)
			if !f.IsExported() {
				continue
			}
			name, opts, _ := strings.Cut(f.Tag.Get("json"), ",")
			if name == "-" {
				continue
			}
			if name == "" {
				name = f.Name
			}
			props[name] = schemaOf(f.Type)
			if !strings.Contains(opts, "omitempty") {
				required = append(required, name)
			}
		}
		s := map[string]any{"type": "object", "properties": props}
		if len(required) > 0 {
			s["required"] = required
		}
		return s
	default:
		return map[string]any{}
	}
}
