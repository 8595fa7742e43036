package rules

import (
	"strconv"
	"strings"

	"github.com/pankaj-dahiya-devops/iacguard/internal/models"
)

// lookup returns the first present, non-null attribute among paths. Each path
// is dotted ("network_profile.network_policy"); alternatives cover the
// spellings used by Terraform and by the declaration format.
func lookup(node *models.ResourceNode, paths ...string) (models.Value, bool) {
	for _, p := range paths {
		v, ok := node.Attr(strings.Split(p, ".")...)
		if ok && !v.IsNull() {
			return v, true
		}
	}
	return models.Value{}, false
}

// boolAttr reports the boolean value of the first matching attribute.
// known is false when the attribute is absent or not a literal boolean
// (e.g. a reference resolved only at apply time).
func boolAttr(node *models.ResourceNode, paths ...string) (value, known bool) {
	v, ok := lookup(node, paths...)
	if !ok {
		return false, false
	}
	return v.AsBool()
}

// isTrue reports whether the attribute is literally true.
func isTrue(node *models.ResourceNode, paths ...string) bool {
	b, known := boolAttr(node, paths...)
	return known && b
}

// isFalse reports whether the attribute is literally false.
func isFalse(node *models.ResourceNode, paths ...string) bool {
	b, known := boolAttr(node, paths...)
	return known && !b
}

// notTrue reports whether the attribute is absent or literally false.
// References and other unknown values are given the benefit of the doubt.
func notTrue(node *models.ResourceNode, paths ...string) bool {
	v, ok := lookup(node, paths...)
	if !ok {
		return true
	}
	b, known := v.AsBool()
	return known && !b
}

func stringAttr(node *models.ResourceNode, paths ...string) (string, bool) {
	v, ok := lookup(node, paths...)
	if !ok {
		return "", false
	}
	return v.AsString()
}

// stringsAttr returns the literal strings of the first matching attribute,
// whether it holds a single string or a list.
func stringsAttr(node *models.ResourceNode, paths ...string) []string {
	v, ok := lookup(node, paths...)
	if !ok {
		return nil
	}
	return v.Strings()
}

// numberOf reads numbers and numeric strings.
func numberOf(v models.Value) (float64, bool) {
	if n, ok := v.AsNumber(); ok {
		return n, true
	}
	if s, ok := v.AsString(); ok {
		n, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		return n, err == nil
	}
	return 0, false
}

// blocks returns the elements of a repeated nested block, accepting both a
// list of maps and a single map.
func blocks(node *models.ResourceNode, name string) []models.Value {
	v, ok := node.Attributes[name]
	if !ok {
		return nil
	}
	switch v.Kind {
	case models.KindList:
		return v.List
	case models.KindMap:
		return []models.Value{v}
	}
	return nil
}

// field reads key from a block, trying each spelling in order.
func field(block models.Value, keys ...string) (models.Value, bool) {
	for _, k := range keys {
		if v, ok := block.Get(k); ok && !v.IsNull() {
			return v, true
		}
	}
	return models.Value{}, false
}

// plain converts a Value back into the generic Go shape produced by
// encoding/json so that embedded documents can be inspected uniformly.
func plain(v models.Value) any {
	switch v.Kind {
	case models.KindString, models.KindReference, models.KindUnresolved:
		return v.Str
	case models.KindNumber:
		return v.Num
	case models.KindBool:
		return v.Bool
	case models.KindList:
		out := make([]any, len(v.List))
		for i, e := range v.List {
			out[i] = plain(e)
		}
		return out
	case models.KindMap:
		out := make(map[string]any, len(v.Map))
		for k, e := range v.Map {
			out[k] = plain(e)
		}
		return out
	}
	return nil
}
