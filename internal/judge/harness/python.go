package harness

import (
	"fmt"
	"regexp"
	"strings"

	"codejudge/internal/judge/compare"
	"codejudge/internal/judge/model"
	"codejudge/internal/judge/value"
)

var pyFuturePattern = regexp.MustCompile(`(?m)^from[ \t]+__future__[ \t]+import[^\n]*\n?`)

// Python generates harnesses for Python 3.
type Python struct {
	fileName string
	resolver Resolver
}

// NewPython creates a Python generator writing fileName.
func NewPython(fileName string) *Python {
	if fileName == "" {
		fileName = "main.py"
	}
	return &Python{fileName: fileName, resolver: LastDefinedResolver{Flavor: FlavorPython}}
}

func (g *Python) Generate(src string, cases []model.TestCase) (Program, error) {
	res := g.resolver.Resolve(src)
	entry, ok := res.EntryPoint()
	if !ok {
		return Program{}, res.Err()
	}

	var table strings.Builder
	for _, tc := range cases {
		input, err := value.Format(tc.Input, value.SyntaxPython)
		if err != nil {
			return Program{}, err
		}
		expected, err := value.Format(tc.ExpectedOutput, value.SyntaxPython)
		if err != nil {
			return Program{}, err
		}
		fmt.Fprintf(&table, "    (%s, %s, %q, %s),\n", input, expected, string(tc.Style()), pyBool(tc.Mode() == compare.Ordered))
	}

	futures := strings.Join(pyFuturePattern.FindAllString(src, -1), "")
	if futures != "" && !strings.HasSuffix(futures, "\n") {
		futures += "\n"
	}
	body := pyFuturePattern.ReplaceAllString(src, "\n")

	var b strings.Builder
	b.WriteString(futures)
	b.WriteString(pyPrelude)
	b.WriteString(body)
	if !strings.HasSuffix(body, "\n") {
		b.WriteByte('\n')
	}
	b.WriteString(pyRuntime)
	b.WriteString("\n_judge_cases = [\n")
	b.WriteString(table.String())
	b.WriteString("]\n\n")
	fmt.Fprintf(&b, "_judge_main(%s, _judge_cases)\n", entry.Name)

	return Program{FileName: g.fileName, Source: b.String(), Entry: entry}, nil
}

func pyBool(v bool) string {
	if v {
		return "True"
	}
	return "False"
}

// pyPrelude runs before user code so that anything it prints is discarded.
const pyPrelude = `import sys as _judge_sys
import os as _judge_os
import json as _judge_json
import time as _judge_time
import inspect as _judge_inspect

_judge_stdout = _judge_sys.stdout
_judge_sys.stdout = open(_judge_os.devnull, "w")

`

const pyRuntime = `

def _judge_plain(v):
    if v is None or isinstance(v, (bool, str)):
        return v
    if isinstance(v, int):
        return v
    if isinstance(v, float):
        if v.is_integer() and abs(v) <= 9007199254740992:
            return int(v)
        return v
    if isinstance(v, (list, tuple)):
        return [_judge_plain(x) for x in v]
    return v


def _judge_key(v):
    return _judge_json.dumps(v, separators=(",", ":"), sort_keys=True, default=repr)


def _judge_sorted(v):
    if isinstance(v, list):
        return sorted((_judge_sorted(x) for x in v), key=_judge_key)
    return v


def _judge_same(a, e):
    if isinstance(a, bool) or isinstance(e, bool):
        return type(a) is type(e) and a == e
    if isinstance(a, list) and isinstance(e, list):
        return len(a) == len(e) and all(_judge_same(x, y) for x, y in zip(a, e))
    if isinstance(a, (int, float)) and isinstance(e, (int, float)):
        return a == e
    return type(a) is type(e) and a == e


def _judge_equal(actual, expected, ordered):
    a, e = _judge_plain(actual), _judge_plain(expected)
    if not ordered and isinstance(a, list) and isinstance(e, list):
        a, e = _judge_sorted(a), _judge_sorted(e)
    return _judge_same(a, e)


def _judge_jsonable(v):
    if isinstance(v, tuple):
        v = list(v)
    try:
        _judge_json.dumps(v, allow_nan=False)
        return v
    except (TypeError, ValueError):
        return repr(v)


def _judge_resolve(target):
    if _judge_inspect.isclass(target):
        methods = [n for n, m in vars(target).items() if callable(m) and not n.startswith("_")]
        if not methods:
            raise TypeError("class %s defines no public method" % target.__name__)
        return getattr(target(), methods[-1])
    return target


def _judge_arity(fn):
    try:
        params = _judge_inspect.signature(fn).parameters.values()
    except (TypeError, ValueError):
        return 1
    return sum(1 for p in params if p.kind in (p.POSITIONAL_ONLY, p.POSITIONAL_OR_KEYWORD))


def _judge_main(target, cases):
    fn = _judge_resolve(target)
    arity = _judge_arity(fn)
    results = []
    for data, expected, style, ordered in cases:
        if style == "spread":
            spread = isinstance(data, list)
        elif style == "single":
            spread = False
        else:
            spread = isinstance(data, list) and arity > 1
        start = _judge_time.perf_counter()
        try:
            out = fn(*data) if spread else fn(data)
            elapsed = (_judge_time.perf_counter() - start) * 1000.0
            results.append({
                "passed": bool(_judge_equal(out, expected, ordered)),
                "output": _judge_jsonable(out),
                "error": None,
                "executionTime": elapsed,
            })
        except BaseException as err:
            elapsed = (_judge_time.perf_counter() - start) * 1000.0
            results.append({
                "passed": False,
                "output": None,
                "error": "%s: %s" % (type(err).__name__, err),
                "executionTime": elapsed,
            })
    _judge_stdout.write(_judge_json.dumps(results, allow_nan=False))
    _judge_stdout.write("\n")
    _judge_stdout.flush()
`
