package value

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	appErr "codejudge/pkg/errors"
)

// Syntax selects the target language of a literal.
type Syntax int

const (
	SyntaxPython Syntax = iota
	SyntaxJavaScript
	SyntaxJava
)

func (s Syntax) String() string {
	switch s {
	case SyntaxPython:
		return "python"
	case SyntaxJavaScript:
		return "javascript"
	case SyntaxJava:
		return "java"
	default:
		return "unknown"
	}
}

// MaxDepth is the deepest sequence nesting Format accepts for the syntax.
// Java is limited to typed one and two dimensional arrays.
func (s Syntax) MaxDepth() int {
	switch s {
	case SyntaxJava:
		return 2
	default:
		return 32
	}
}

// Format renders v as a source literal of the target syntax. Shapes the
// syntax cannot express fail with UnsupportedValueShape.
func Format(v Value, syntax Syntax) (string, error) {
	if d := v.Depth(); d > syntax.MaxDepth() {
		return "", appErr.Newf(appErr.UnsupportedValueShape,
			"%s literals support nesting depth %d, value has depth %d", syntax, syntax.MaxDepth(), d)
	}
	var b strings.Builder
	var err error
	switch syntax {
	case SyntaxPython:
		writePython(&b, v)
	case SyntaxJavaScript:
		writeJavaScript(&b, v)
	case SyntaxJava:
		err = writeJava(&b, v)
	default:
		err = appErr.Newf(appErr.UnsupportedValueShape, "unknown literal syntax %d", int(syntax))
	}
	if err != nil {
		return "", err
	}
	return b.String(), nil
}

func writePython(b *strings.Builder, v Value) {
	switch v.kind {
	case KindNull:
		b.WriteString("None")
	case KindBool:
		if v.b {
			b.WriteString("True")
		} else {
			b.WriteString("False")
		}
	case KindInt:
		b.WriteString(strconv.FormatInt(v.i, 10))
	case KindFloat:
		switch {
		case math.IsNaN(v.f):
			b.WriteString(`float("nan")`)
		case math.IsInf(v.f, 1):
			b.WriteString(`float("inf")`)
		case math.IsInf(v.f, -1):
			b.WriteString(`float("-inf")`)
		default:
			b.WriteString(FormatFloat(v.f))
		}
	case KindString:
		b.WriteString(quoteC(v.s))
	case KindList:
		b.WriteByte('[')
		for i, item := range v.list {
			if i > 0 {
				b.WriteString(", ")
			}
			writePython(b, item)
		}
		b.WriteByte(']')
	}
}

func writeJavaScript(b *strings.Builder, v Value) {
	switch v.kind {
	case KindNull:
		b.WriteString("null")
	case KindBool:
		b.WriteString(strconv.FormatBool(v.b))
	case KindInt:
		b.WriteString(strconv.FormatInt(v.i, 10))
	case KindFloat:
		switch {
		case math.IsNaN(v.f):
			b.WriteString("NaN")
		case math.IsInf(v.f, 1):
			b.WriteString("Infinity")
		case math.IsInf(v.f, -1):
			b.WriteString("-Infinity")
		default:
			b.WriteString(FormatFloat(v.f))
		}
	case KindString:
		raw, _ := json.Marshal(v.s)
		b.Write(raw)
	case KindList:
		b.WriteByte('[')
		for i, item := range v.list {
			if i > 0 {
				b.WriteString(", ")
			}
			writeJavaScript(b, item)
		}
		b.WriteByte(']')
	}
}

// quoteC produces a double-quoted literal using only escapes shared by
// Python and Java: \\ \" \n \r \t and three-digit octal.
func quoteC(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 2)
	b.WriteByte('"')
	for _, r := range s {
		switch r {
		case '\\':
			b.WriteString(`\\`)
		case '"':
			b.WriteString(`\"`)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\t':
			b.WriteString(`\t`)
		default:
			if r < 0x20 || r == 0x7f {
				fmt.Fprintf(&b, `\%03o`, r)
				continue
			}
			b.WriteRune(r)
		}
	}
	b.WriteByte('"')
	return b.String()
}

func writeJava(b *strings.Builder, v Value) error {
	if v.kind != KindList {
		writeJavaScalar(b, v, "")
		return nil
	}
	elem, dims, err := javaArrayType(v)
	if err != nil {
		return err
	}
	b.WriteString("new ")
	b.WriteString(elem)
	b.WriteString(strings.Repeat("[]", dims))
	writeJavaInitializer(b, v, elem)
	return nil
}

func writeJavaInitializer(b *strings.Builder, v Value, elem string) {
	b.WriteByte('{')
	for i, item := range v.list {
		if i > 0 {
			b.WriteString(", ")
		}
		if item.kind == KindList {
			writeJavaInitializer(b, item, elem)
			continue
		}
		writeJavaScalar(b, item, elem)
	}
	b.WriteByte('}')
}

// writeJavaScalar renders a scalar; elem is the enclosing array element type
// or empty for a standalone argument.
func writeJavaScalar(b *strings.Builder, v Value, elem string) {
	switch v.kind {
	case KindNull:
		b.WriteString("null")
	case KindBool:
		b.WriteString(strconv.FormatBool(v.b))
	case KindInt:
		switch {
		case elem == "double":
			b.WriteString(FormatFloat(float64(v.i)))
		case elem == "long" || v.i > math.MaxInt32 || v.i < math.MinInt32:
			b.WriteString(strconv.FormatInt(v.i, 10))
			b.WriteByte('L')
		default:
			b.WriteString(strconv.FormatInt(v.i, 10))
		}
	case KindFloat:
		switch {
		case math.IsNaN(v.f):
			b.WriteString("Double.NaN")
		case math.IsInf(v.f, 1):
			b.WriteString("Double.POSITIVE_INFINITY")
		case math.IsInf(v.f, -1):
			b.WriteString("Double.NEGATIVE_INFINITY")
		default:
			b.WriteString(FormatFloat(v.f))
		}
	case KindString:
		b.WriteString(quoteC(v.s))
	}
}

// javaArrayType infers the element type and dimension count of a Java array
// literal. Nested lists must be uniformly nested and leaves homogeneous.
func javaArrayType(v Value) (string, int, error) {
	dims := v.Depth()
	kinds := make(map[Kind]bool)
	wide := false
	var walk func(Value, int) error
	walk = func(x Value, level int) error {
		for _, item := range x.list {
			if level < dims {
				if item.kind != KindList {
					return appErr.Newf(appErr.UnsupportedValueShape,
						"java arrays must be rectangular in depth: found %s at depth %d", item.kind, level)
				}
				if err := walk(item, level+1); err != nil {
					return err
				}
				continue
			}
			if item.kind == KindList {
				return appErr.Newf(appErr.UnsupportedValueShape, "java arrays must be uniformly nested")
			}
			kinds[item.kind] = true
			if item.kind == KindInt && (item.i > math.MaxInt32 || item.i < math.MinInt32) {
				wide = true
			}
		}
		return nil
	}
	if err := walk(v, 1); err != nil {
		return "", 0, err
	}
	switch {
	case len(kinds) == 0:
		return "int", dims, nil
	case onlyKinds(kinds, KindInt):
		if wide {
			return "long", dims, nil
		}
		return "int", dims, nil
	case onlyKinds(kinds, KindInt, KindFloat):
		return "double", dims, nil
	case onlyKinds(kinds, KindBool):
		return "boolean", dims, nil
	case onlyKinds(kinds, KindString, KindNull):
		return "String", dims, nil
	default:
		names := make([]string, 0, len(kinds))
		for k := range kinds {
			names = append(names, k.String())
		}
		return "", 0, appErr.Newf(appErr.UnsupportedValueShape,
			"java arrays need a single element type, got %s", strings.Join(names, ","))
	}
}

func onlyKinds(set map[Kind]bool, allowed ...Kind) bool {
	for k := range set {
		ok := false
		for _, a := range allowed {
			if k == a {
				ok = true
				break
			}
		}
		if !ok {
			return false
		}
	}
	return true
}
