package models

import (
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// ValueKind tags the variant held by a Value.
type ValueKind int

const (
	KindNull ValueKind = iota
	KindString
	KindNumber
	KindBool
	KindList
	KindMap
	KindReference
	KindUnresolved
)

func (k ValueKind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindString:
		return "string"
	case KindNumber:
		return "number"
	case KindBool:
		return "bool"
	case KindList:
		return "list"
	case KindMap:
		return "map"
	case KindReference:
		return "reference"
	case KindUnresolved:
		return "unresolved"
	default:
		return "unknown"
	}
}

// Value is a closed tagged variant over the attribute shapes found in IaC
// sources. Exactly one payload field is meaningful for a given Kind:
//   - KindString: Str
//   - KindNumber: Num
//   - KindBool: Bool
//   - KindList: List
//   - KindMap: Map
//   - KindReference: Str holds the raw expression, Refs the extracted targets
//   - KindUnresolved: Str holds a best-effort rendering of the raw input
type Value struct {
	Kind ValueKind
	Str  string
	Num  float64
	Bool bool
	List []Value
	Map  map[string]Value
	Refs []string
}

func NullValue() Value                 { return Value{Kind: KindNull} }
func StringValue(s string) Value       { return Value{Kind: KindString, Str: s} }
func NumberValue(n float64) Value      { return Value{Kind: KindNumber, Num: n} }
func BoolValue(b bool) Value           { return Value{Kind: KindBool, Bool: b} }
func ListValue(vs ...Value) Value      { return Value{Kind: KindList, List: vs} }
func UnresolvedValue(raw string) Value { return Value{Kind: KindUnresolved, Str: raw} }

// MapValue wraps m; a nil map is replaced by an empty one.
func MapValue(m map[string]Value) Value {
	if m == nil {
		m = map[string]Value{}
	}
	return Value{Kind: KindMap, Map: m}
}

// ReferenceValue builds a reference from a raw expression. The expression may
// be a bare traversal ("azurerm_subnet.aks.id") or a template containing one
// or more "${...}" interpolations.
func ReferenceValue(expr string, targets ...string) Value {
	if len(targets) == 0 {
		targets = extractReferences(expr)
	}
	return Value{Kind: KindReference, Str: expr, Refs: targets}
}

func (v Value) IsNull() bool { return v.Kind == KindNull }

func (v Value) AsString() (string, bool) {
	if v.Kind != KindString {
		return "", false
	}
	return v.Str, true
}

func (v Value) AsNumber() (float64, bool) {
	if v.Kind != KindNumber {
		return 0, false
	}
	return v.Num, true
}

// AsBool accepts native booleans and the string forms "true"/"false", which
// plan JSON and YAML sources sometimes produce.
func (v Value) AsBool() (bool, bool) {
	switch v.Kind {
	case KindBool:
		return v.Bool, true
	case KindString:
		b, err := strconv.ParseBool(v.Str)
		if err != nil {
			return false, false
		}
		return b, true
	}
	return false, false
}

func (v Value) AsList() ([]Value, bool) {
	if v.Kind != KindList {
		return nil, false
	}
	return v.List, true
}

func (v Value) AsMap() (map[string]Value, bool) {
	if v.Kind != KindMap {
		return nil, false
	}
	return v.Map, true
}

// Strings returns the string elements of a list, or the string itself as a
// one-element slice. Non-string elements are skipped.
func (v Value) Strings() []string {
	switch v.Kind {
	case KindString:
		return []string{v.Str}
	case KindList:
		out := make([]string, 0, len(v.List))
		for _, e := range v.List {
			if s, ok := e.AsString(); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

// Get walks path through nested maps. A single-element list is transparently
// unwrapped, matching how Terraform renders nested blocks; numeric segments
// index into lists.
func (v Value) Get(path ...string) (Value, bool) {
	cur := v
	for _, seg := range path {
		if cur.Kind == KindList {
			if i, err := strconv.Atoi(seg); err == nil {
				if i < 0 || i >= len(cur.List) {
					return Value{}, false
				}
				cur = cur.List[i]
				continue
			}
			if len(cur.List) != 1 {
				return Value{}, false
			}
			cur = cur.List[0]
		}
		if cur.Kind != KindMap {
			return Value{}, false
		}
		next, ok := cur.Map[seg]
		if !ok {
			return Value{}, false
		}
		cur = next
	}
	return cur, true
}

// References collects every reference target found in v, recursively, in a
// deterministic order.
func (v Value) References() []string {
	var out []string
	v.walkRefs(&out)
	return out
}

func (v Value) walkRefs(out *[]string) {
	switch v.Kind {
	case KindReference:
		*out = append(*out, v.Refs...)
	case KindList:
		for _, e := range v.List {
			e.walkRefs(out)
		}
	case KindMap:
		keys := make([]string, 0, len(v.Map))
		for k := range v.Map {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			v.Map[k].walkRefs(out)
		}
	}
}

// String renders v for messages. It is not a serialisation format.
func (v Value) String() string {
	switch v.Kind {
	case KindNull:
		return "null"
	case KindString, KindReference, KindUnresolved:
		return v.Str
	case KindNumber:
		return strconv.FormatFloat(v.Num, 'f', -1, 64)
	case KindBool:
		return strconv.FormatBool(v.Bool)
	case KindList:
		parts := make([]string, len(v.List))
		for i, e := range v.List {
			parts[i] = e.String()
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case KindMap:
		keys := make([]string, 0, len(v.Map))
		for k := range v.Map {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, len(keys))
		for i, k := range keys {
			parts[i] = k + " = " + v.Map[k].String()
		}
		return "{" + strings.Join(parts, ", ") + "}"
	}
	return ""
}

var (
	interpolationRe = regexp.MustCompile(`\$\{([^}]+)\}`)
	traversalRe     = regexp.MustCompile(`^(?:module\.[A-Za-z_][\w-]*(?:\[[^\]]*\])?(?:\.[\w-]+)*|data\.[A-Za-z_][\w-]*\.[\w-]+(?:\.[\w-]+)*|[a-z][a-z0-9]*_[a-z0-9_]+\.[A-Za-z_][\w-]*(?:\[[^\]]*\])?(?:\.[\w\[\]"*-]+)*)$`)
	tokenRe         = regexp.MustCompile(`(?:module|data|[a-z][a-z0-9]*_[a-z0-9_]+)\.[A-Za-z_][\w-]*(?:\[[^\]]*\])?(?:\.[\w-]+)*`)
)

// IsReferenceExpr reports whether s looks like a reference rather than a literal.
func IsReferenceExpr(s string) bool {
	s = strings.TrimSpace(s)
	if strings.Contains(s, "${") {
		return len(interpolationRe.FindAllStringSubmatch(s, -1)) > 0
	}
	return traversalRe.MatchString(s)
}

func extractReferences(expr string) []string {
	expr = strings.TrimSpace(expr)
	if !strings.Contains(expr, "${") {
		if traversalRe.MatchString(expr) {
			return []string{expr}
		}
		return nil
	}
	var refs []string
	for _, m := range interpolationRe.FindAllStringSubmatch(expr, -1) {
		inner := m[1]
		for _, loc := range tokenRe.FindAllStringIndex(inner, -1) {
			// RE2 has no lookbehind; reject matches that continue a longer
			// traversal such as var.resource_group.name.
			if loc[0] > 0 && isTraversalChar(inner[loc[0]-1]) {
				continue
			}
			refs = append(refs, inner[loc[0]:loc[1]])
		}
	}
	return refs
}

func isTraversalChar(c byte) bool {
	return c == '.' || c == '_' || c == '-' ||
		(c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}

// FromAny converts a decoded JSON or YAML value into a Value. Reference-like
// strings become KindReference; shapes that cannot be represented degrade to
// KindUnresolved instead of failing.
func FromAny(x any) Value {
	switch t := x.(type) {
	case nil:
		return NullValue()
	case Value:
		return t
	case string:
		if IsReferenceExpr(t) {
			return ReferenceValue(t)
		}
		return StringValue(t)
	case bool:
		return BoolValue(t)
	case float64:
		return NumberValue(t)
	case float32:
		return NumberValue(float64(t))
	case int:
		return NumberValue(float64(t))
	case int64:
		return NumberValue(float64(t))
	case uint64:
		return NumberValue(float64(t))
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return UnresolvedValue(t.String())
		}
		return NumberValue(f)
	case []any:
		out := make([]Value, len(t))
		for i, e := range t {
			out[i] = FromAny(e)
		}
		return ListValue(out...)
	case map[string]any:
		out := make(map[string]Value, len(t))
		for k, e := range t {
			out[k] = FromAny(e)
		}
		return MapValue(out)
	case map[any]any:
		out := make(map[string]Value, len(t))
		for k, e := range t {
			out[fmt.Sprint(k)] = FromAny(e)
		}
		return MapValue(out)
	default:
		return UnresolvedValue(fmt.Sprintf("%v", t))
	}
}
