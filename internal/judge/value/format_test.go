package value

import (
	"strings"
	"testing"

	appErr "codejudge/pkg/errors"
)

func TestFormatPython(t *testing.T) {
	cases := []struct {
		name string
		in   Value
		want string
	}{
		{name: "bool", in: Bool(true), want: "True"},
		{name: "null", in: Null(), want: "None"},
		{name: "float", in: Float(2), want: "2.0"},
		{name: "string escapes", in: String("a\"b\\c\n"), want: `"a\"b\\c\n"`},
		{name: "control char", in: String("\x01"), want: `"\001"`},
		{name: "nested", in: List(List(Int(2), Int(7)), Int(9), Bool(false)), want: "[[2, 7], 9, False]"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Format(tc.in, SyntaxPython)
			if err != nil {
				t.Fatalf("format failed: %v", err)
			}
			if got != tc.want {
				t.Fatalf("expected %s, got %s", tc.want, got)
			}
		})
	}
}

func TestFormatJavaScript(t *testing.T) {
	got, err := Format(List(String("x"), Null(), Float(1.5), Bool(true)), SyntaxJavaScript)
	if err != nil {
		t.Fatalf("format failed: %v", err)
	}
	if want := `["x", null, 1.5, true]`; got != want {
		t.Fatalf("expected %s, got %s", want, got)
	}
}

func TestFormatJavaArrays(t *testing.T) {
	cases := []struct {
		name string
		in   Value
		want string
	}{
		{name: "int", in: Int(9), want: "9"},
		{name: "long", in: Int(1 << 40), want: "1099511627776L"},
		{name: "int array", in: List(Int(2), Int(7), Int(11)), want: "new int[]{2, 7, 11}"},
		{name: "empty array", in: List(), want: "new int[]{}"},
		{name: "widened double", in: List(Int(1), Float(2.5)), want: "new double[]{1.0, 2.5}"},
		{name: "long array", in: List(Int(1), Int(1<<40)), want: "new long[]{1L, 1099511627776L}"},
		{name: "string array", in: List(String("a"), Null()), want: `new String[]{"a", null}`},
		{name: "boolean array", in: List(Bool(true)), want: "new boolean[]{true}"},
		{name: "matrix", in: List(List(Int(1), Int(2)), List(Int(3))), want: "new int[][]{{1, 2}, {3}}"},
		{name: "string", in: String("hi"), want: `"hi"`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Format(tc.in, SyntaxJava)
			if err != nil {
				t.Fatalf("format failed: %v", err)
			}
			if got != tc.want {
				t.Fatalf("expected %s, got %s", tc.want, got)
			}
		})
	}
}

func TestFormatJavaRejectsUnsupportedShapes(t *testing.T) {
	cases := []struct {
		name string
		in   Value
	}{
		{name: "too deep", in: List(List(List(Int(1))))},
		{name: "mixed types", in: List(Int(1), String("a"))},
		{name: "ragged depth", in: List(List(Int(1)), Int(2))},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Format(tc.in, SyntaxJava)
			if err == nil {
				t.Fatalf("expected error")
			}
			if !appErr.Is(err, appErr.UnsupportedValueShape) {
				t.Fatalf("expected UnsupportedValueShape, got %v", err)
			}
		})
	}
}

func TestFormatRejectsExcessiveDepth(t *testing.T) {
	v := Int(1)
	for i := 0; i <= SyntaxPython.MaxDepth(); i++ {
		v = List(v)
	}
	_, err := Format(v, SyntaxPython)
	if err == nil || !strings.Contains(err.Error(), "nesting depth") {
		t.Fatalf("expected depth error, got %v", err)
	}
}
