// Package compare implements result equality for judged submissions.
//
// Sequences are compared as multisets at every nesting level: each sequence
// is sorted by the canonical encoding of its elements before an element-wise
// structural comparison. Scalars compare structurally, with integers and
// floats compared by numeric value.
package compare

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"codejudge/internal/judge/value"
)

// Mode selects how sequences are compared.
type Mode string

const (
	// Unordered ignores element order at every nesting level.
	Unordered Mode = "unordered"
	// Ordered compares sequences element by element.
	Ordered Mode = "ordered"
)

// ParseMode maps a wire value onto a Mode. Empty selects Unordered.
func ParseMode(s string) (Mode, bool) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case "", Unordered:
		return Unordered, true
	case Ordered:
		return Ordered, true
	default:
		return "", false
	}
}

// Equal reports whether actual matches expected under mode.
func Equal(actual, expected value.Value, mode Mode) bool {
	if actual.IsList() && expected.IsList() && mode != Ordered {
		return structural(Normalize(actual), Normalize(expected))
	}
	return structural(actual, expected)
}

// Normalize sorts every nested sequence by canonical element encoding.
func Normalize(v value.Value) value.Value {
	if !v.IsList() {
		return v
	}
	items := make([]value.Value, v.Len())
	keys := make([]string, v.Len())
	for i, item := range v.Items() {
		items[i] = Normalize(item)
	}
	idx := make([]int, len(items))
	for i := range items {
		idx[i] = i
		keys[i] = Canonical(items[i])
	}
	sort.SliceStable(idx, func(a, b int) bool { return keys[idx[a]] < keys[idx[b]] })
	sorted := make([]value.Value, len(items))
	for i, j := range idx {
		sorted[i] = items[j]
	}
	return value.List(sorted...)
}

// Canonical returns the canonical encoding of v: compact JSON where numbers
// are written in plain decimal without a trailing ".0" (so 2 and 2.0 agree)
// and strings escape only quote, backslash and control characters.
// Sequences keep their order; call Normalize first for an order-insensitive
// key. Generated Java harnesses reproduce this encoding byte for byte.
func Canonical(v value.Value) string {
	var b strings.Builder
	writeCanonical(&b, v)
	return b.String()
}

func writeCanonical(b *strings.Builder, v value.Value) {
	switch v.Kind() {
	case value.KindNull:
		b.WriteString("null")
	case value.KindBool:
		b.WriteString(strconv.FormatBool(v.Bool()))
	case value.KindInt:
		b.WriteString(strconv.FormatInt(v.Int(), 10))
	case value.KindFloat:
		b.WriteString(canonicalFloat(v.Float()))
	case value.KindString:
		writeCanonicalString(b, v.Str())
	case value.KindList:
		b.WriteByte('[')
		for i, item := range v.Items() {
			if i > 0 {
				b.WriteByte(',')
			}
			writeCanonical(b, item)
		}
		b.WriteByte(']')
	}
}

func canonicalFloat(f float64) string {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "Infinity"
	case math.IsInf(f, -1):
		return "-Infinity"
	case f == 0:
		return "0"
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func writeCanonicalString(b *strings.Builder, s string) {
	b.WriteByte('"')
	for _, r := range s {
		switch {
		case r == '"':
			b.WriteString(`\"`)
		case r == '\\':
			b.WriteString(`\\`)
		case r < 0x20:
			fmt.Fprintf(b, `\u%04x`, r)
		default:
			b.WriteRune(r)
		}
	}
	b.WriteByte('"')
}

func structural(a, b value.Value) bool {
	if a.IsNumber() && b.IsNumber() {
		if a.Kind() == value.KindInt && b.Kind() == value.KindInt {
			return a.Int() == b.Int()
		}
		return a.Number() == b.Number()
	}
	if a.Kind() != b.Kind() {
		return false
	}
	switch a.Kind() {
	case value.KindNull:
		return true
	case value.KindBool:
		return a.Bool() == b.Bool()
	case value.KindString:
		return a.Str() == b.Str()
	case value.KindList:
		if a.Len() != b.Len() {
			return false
		}
		bi := b.Items()
		for i, item := range a.Items() {
			if !structural(item, bi[i]) {
				return false
			}
		}
		return true
	default:
		return false
	}
}
