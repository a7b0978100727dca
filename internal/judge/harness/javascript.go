package harness

import (
	"fmt"
	"strings"

	"codejudge/internal/judge/compare"
	"codejudge/internal/judge/model"
	"codejudge/internal/judge/value"
)

// JavaScript generates node harnesses. The same harness serves TypeScript
// when node strips type annotations before running it.
type JavaScript struct {
	fileName string
	resolver Resolver
}

// NewJavaScript creates a JavaScript generator writing fileName.
func NewJavaScript(fileName string) *JavaScript {
	if fileName == "" {
		fileName = "main.js"
	}
	return &JavaScript{fileName: fileName, resolver: LastDefinedResolver{Flavor: FlavorJavaScript}}
}

func (g *JavaScript) Generate(src string, cases []model.TestCase) (Program, error) {
	res := g.resolver.Resolve(src)
	entry, ok := res.EntryPoint()
	if !ok {
		return Program{}, res.Err()
	}
	table, err := JSCaseTable(cases)
	if err != nil {
		return Program{}, err
	}

	var b strings.Builder
	b.WriteString(jsPrelude)
	b.WriteString(src)
	b.WriteString("\n;\n")
	b.WriteString(JSRuntime)
	b.WriteString("const __judgeCases = ")
	b.WriteString(table)
	b.WriteString(";\n")
	fmt.Fprintf(&b, "__judgeEmit(__judgeRun(%s, __judgeCases));\n", entry.Name)

	return Program{FileName: g.fileName, Source: b.String(), Entry: entry}, nil
}

// JSCaseTable renders cases as a JavaScript array of
// [input, expected, callStyle, ordered] tuples.
func JSCaseTable(cases []model.TestCase) (string, error) {
	var b strings.Builder
	b.WriteString("[\n")
	for _, tc := range cases {
		input, err := value.Format(tc.Input, value.SyntaxJavaScript)
		if err != nil {
			return "", err
		}
		expected, err := value.Format(tc.ExpectedOutput, value.SyntaxJavaScript)
		if err != nil {
			return "", err
		}
		fmt.Fprintf(&b, "  [%s, %s, %q, %t],\n", input, expected, string(tc.Style()), tc.Mode() == compare.Ordered)
	}
	b.WriteString("]")
	return b.String(), nil
}

// jsPrelude silences console output so stdout carries only results.
const jsPrelude = `const __judgeWrite = process.stdout.write.bind(process.stdout);
console.log = console.info = console.debug = console.trace = function () {};
process.stdout.write = function () { return true; };
`

// JSRuntime defines the comparison and case loop shared by the node harness
// and the in-process evaluator. __judgeNow must be callable.
const JSRuntime = `function __judgeNow() {
  return typeof performance !== "undefined" ? performance.now() : Date.now();
}

function __judgePlain(v) {
  if (Array.isArray(v)) return v.map(__judgePlain);
  if (typeof v === "number" && Object.is(v, -0)) return 0;
  if (v === undefined) return null;
  return v;
}

function __judgeKey(v) {
  return JSON.stringify(v);
}

function __judgeSorted(v) {
  if (!Array.isArray(v)) return v;
  const items = v.map(__judgeSorted);
  const keyed = items.map((item) => [__judgeKey(item), item]);
  keyed.sort((a, b) => (a[0] < b[0] ? -1 : a[0] > b[0] ? 1 : 0));
  return keyed.map((pair) => pair[1]);
}

function __judgeSame(a, e) {
  if (Array.isArray(a) && Array.isArray(e)) {
    if (a.length !== e.length) return false;
    for (let i = 0; i < a.length; i++) {
      if (!__judgeSame(a[i], e[i])) return false;
    }
    return true;
  }
  return a === e;
}

function __judgeEqual(actual, expected, ordered) {
  let a = __judgePlain(actual);
  let e = __judgePlain(expected);
  if (!ordered && Array.isArray(a) && Array.isArray(e)) {
    a = __judgeSorted(a);
    e = __judgeSorted(e);
  }
  return __judgeSame(a, e);
}

function __judgeResolve(target) {
  if (typeof target !== "function") {
    throw new TypeError("entry point is not callable");
  }
  const text = Function.prototype.toString.call(target);
  const names = target.prototype
    ? Object.getOwnPropertyNames(target.prototype).filter(
        (n) => n !== "constructor" && !n.startsWith("_") && typeof target.prototype[n] === "function"
      )
    : [];
  if (/^class[\s{]/.test(text) || (names.length > 0 && /^[A-Z]/.test(target.name))) {
    if (names.length === 0) {
      throw new TypeError("class " + target.name + " defines no public method");
    }
    const instance = new target();
    const method = instance[names[names.length - 1]];
    return { fn: method.bind(instance), arity: method.length };
  }
  return { fn: target, arity: target.length };
}

function __judgeOutput(v) {
  if (v === undefined) return null;
  if (typeof v === "number" && !Number.isFinite(v)) return String(v);
  if (typeof v === "bigint") return Number(v);
  try {
    JSON.stringify(v);
    return v;
  } catch (err) {
    return String(v);
  }
}

function __judgeRunCase(entry, data, expected, style, ordered) {
  const spread = Array.isArray(data) && (style === "spread" || (style === "auto" && entry.arity > 1));
  const start = __judgeNow();
  try {
    const out = spread ? entry.fn(...data) : entry.fn(data);
    const elapsed = __judgeNow() - start;
    return { passed: __judgeEqual(out, expected, ordered), output: __judgeOutput(out), error: null, executionTime: elapsed };
  } catch (err) {
    const elapsed = __judgeNow() - start;
    const message = err && err.name ? err.name + ": " + err.message : String(err);
    return { passed: false, output: null, error: message, executionTime: elapsed };
  }
}

function __judgeRun(target, cases) {
  const entry = __judgeResolve(target);
  return cases.map((c) => __judgeRunCase(entry, c[0], c[1], c[2], c[3]));
}

function __judgeEmit(results) {
  __judgeWrite(JSON.stringify(results) + "\n");
}
`
