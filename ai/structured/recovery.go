// Package structured turns free-form LLM text into validated typed records.
//
// Generative models asked for JSON routinely return fenced blocks,
// single-quoted pseudo-JSON, doubled quotes around keys, or truncated
// objects. Recover runs a fixed chain of parsing strategies over the raw
// text and decodes the first candidate that satisfies the target schema.
package structured

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"
)

// Kind describes the expected type of a schema field.
type Kind int

const (
	// KindString accepts any string value.
	KindString Kind = iota
	// KindFloat accepts numeric values, optionally range-constrained.
	KindFloat
	// KindLabel accepts only values from a fixed literal set.
	KindLabel
)

// Field declares one field of the target record.
type Field struct {
	// Name is the canonical key, also used as the JSON tag of the target struct.
	Name string
	Kind Kind
	// Optional fields may be absent; they decode to the zero value.
	Optional bool
	// Literals is the allowed value set for KindLabel fields.
	Literals []string
	// Aliases maps lower-cased variants to canonical literals. Applied only
	// by the salvage strategy, mirroring how a validating parser would accept
	// canonical values but a best-effort one also common synonyms.
	Aliases map[string]string
	// Min/Max bound KindFloat values when non-nil.
	Min, Max *float64
}

// Schema is the ordered field list of a target record.
type Schema struct {
	Fields []Field
}

// FloatRange is a convenience constructor for bounded float fields.
func FloatRange(lo, hi float64) (*float64, *float64) {
	return &lo, &hi
}

var (
	fenceOpenRegex   = regexp.MustCompile("(?i)^```(?:json)?[ \\t]*\\n?")
	fenceCloseRegex  = regexp.MustCompile("\\n?[ \\t]*```$")
	keyNoiseRegex    = regexp.MustCompile(`^[\s'"]+|[\s'"]+$`)
	doubledKeyRegex  = regexp.MustCompile(`"{2,}\s*([A-Za-z_][\w\- ]*)\s*"{2,}\s*:`)
	braceSpanRegex   = regexp.MustCompile(`(?s)\{.*\}`)
	quotedValueRegex = regexp.MustCompile(`^".*"$`)
)

// Recover converts raw model output into a validated *T, or reports false
// when every strategy fails. It never panics and has no side effects.
//
// Strategy order, first success wins:
//  1. direct JSON parse
//  2. code-fence strip, then parse
//  3. single-quote to double-quote normalization (raw and fence-stripped)
//  4. doubled-quote key repair, then fence strip and parse
//  5. regex salvage of individual key/value pairs from the first {...} span
func Recover[T any](raw string, schema Schema) (*T, bool) {
	stripped := stripCodeFences(raw)

	type attempt struct {
		text      string
		normalize bool // apply single-quote and key-noise normalization
	}
	attempts := []attempt{
		{raw, false},
		{stripped, false},
		{raw, true},
		{stripped, true},
		{stripCodeFences(doubledKeyRegex.ReplaceAllString(raw, `"$1":`)), true},
	}

	for _, a := range attempts {
		obj, ok := parseObject(a.text, a.normalize)
		if !ok {
			continue
		}
		if out, ok := decode[T](obj, schema, false); ok {
			return out, true
		}
	}

	if obj, ok := salvage(raw, schema); ok {
		if out, ok := decode[T](obj, schema, true); ok {
			return out, true
		}
	}
	return nil, false
}

// stripCodeFences removes a leading/trailing Markdown code fence pair.
func stripCodeFences(text string) string {
	t := strings.TrimSpace(text)
	if strings.HasPrefix(t, "```") {
		t = fenceOpenRegex.ReplaceAllString(t, "")
		t = fenceCloseRegex.ReplaceAllString(t, "")
	}
	return strings.TrimSpace(t)
}

// parseObject parses text as a JSON object. With normalize set it first
// converts single-quote delimiters to double quotes and strips quote and
// whitespace noise from keys.
func parseObject(text string, normalize bool) (map[string]any, bool) {
	if normalize {
		text = strings.ReplaceAll(text, "'", `"`)
	}
	var obj map[string]any
	if err := json.Unmarshal([]byte(text), &obj); err != nil {
		return nil, false
	}
	if normalize {
		obj = normalizeKeys(obj)
	}
	return obj, true
}

func normalizeKeys(obj map[string]any) map[string]any {
	norm := make(map[string]any, len(obj))
	for k, v := range obj {
		norm[keyNoiseRegex.ReplaceAllString(k, "")] = v
	}
	return norm
}

// salvage extracts a best-effort field mapping from the first balanced-looking
// {...} span, tolerating quoted, numeric, boolean, and null value forms.
func salvage(raw string, schema Schema) (map[string]any, bool) {
	t := stripCodeFences(raw)
	if span := braceSpanRegex.FindString(t); span != "" {
		t = span
	}

	obj := map[string]any{}
	for _, f := range schema.Fields {
		pattern := `(?is)["'\s]*` + regexp.QuoteMeta(f.Name) +
			`["'\s]*\s*:\s*(".*?"|\d+(\.\d+)?|true|false|null|[^,}]+)`
		re, err := regexp.Compile(pattern)
		if err != nil {
			continue
		}
		m := re.FindStringSubmatch(t)
		if m == nil {
			continue
		}
		val := strings.TrimSpace(m[1])
		if quotedValueRegex.MatchString(val) {
			val = val[1 : len(val)-1]
		}
		obj[f.Name] = val
	}
	if len(obj) == 0 {
		return nil, false
	}
	return obj, true
}

// decode validates obj against the schema and materializes it as *T via a
// JSON round-trip keyed by canonical field names. In salvaged mode it
// additionally coerces float fields (defaulting to 0.0), applies the label
// alias table, and fills optional strings with empty defaults.
func decode[T any](obj map[string]any, schema Schema, salvaged bool) (*T, bool) {
	out := make(map[string]any, len(schema.Fields))
	for _, f := range schema.Fields {
		v, present := obj[f.Name]
		if v == nil {
			present = false
		}
		if !present {
			if f.Optional {
				continue
			}
			if salvaged && f.Kind == KindString {
				out[f.Name] = ""
				continue
			}
			return nil, false
		}

		switch f.Kind {
		case KindString:
			s, ok := v.(string)
			if !ok {
				return nil, false
			}
			out[f.Name] = s

		case KindFloat:
			fv, ok := toFloat(v)
			if !ok {
				if !salvaged {
					return nil, false
				}
				fv = 0.0
			}
			if f.Min != nil && fv < *f.Min {
				return nil, false
			}
			if f.Max != nil && fv > *f.Max {
				return nil, false
			}
			out[f.Name] = fv

		case KindLabel:
			s, ok := v.(string)
			if !ok {
				return nil, false
			}
			s = strings.TrimSpace(s)
			if salvaged && f.Aliases != nil {
				if canonical, ok := f.Aliases[strings.ToLower(s)]; ok {
					s = canonical
				}
			}
			if !containsLiteral(f.Literals, s) {
				return nil, false
			}
			out[f.Name] = s
		}
	}

	buf, err := json.Marshal(out)
	if err != nil {
		return nil, false
	}
	var record T
	if err := json.Unmarshal(buf, &record); err != nil {
		return nil, false
	}
	return &record, true
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

func containsLiteral(literals []string, s string) bool {
	for _, l := range literals {
		if l == s {
			return true
		}
	}
	return false
}
