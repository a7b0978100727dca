package harness

import (
	"strings"
	"testing"

	"codejudge/internal/judge/compare"
	"codejudge/internal/judge/model"
	"codejudge/internal/judge/sandbox/profile"
	"codejudge/internal/judge/value"
	appErr "codejudge/pkg/errors"
)

func ints(xs ...int64) value.Value {
	items := make([]value.Value, len(xs))
	for i, x := range xs {
		items[i] = value.Int(x)
	}
	return value.List(items...)
}

func twoSumCases() []model.TestCase {
	return []model.TestCase{
		{Input: value.List(ints(2, 7, 11, 15), value.Int(9)), ExpectedOutput: ints(0, 1)},
		{Input: value.List(ints(3, 2, 4), value.Int(6)), ExpectedOutput: ints(1, 2), Compare: compare.Ordered},
	}
}

func TestForLanguage(t *testing.T) {
	for _, lang := range profile.DefaultLanguages() {
		gen, err := ForLanguage(lang)
		if err != nil {
			t.Fatalf("ForLanguage(%s): %v", lang.ID, err)
		}
		if gen == nil {
			t.Fatalf("nil generator for %s", lang.ID)
		}
	}
	if _, err := ForLanguage(profile.LanguageSpec{Harness: "cobol"}); !appErr.Is(err, appErr.LanguageNotSupported) {
		t.Fatalf("expected LanguageNotSupported, got %v", err)
	}
}

func TestPythonGenerate(t *testing.T) {
	src := "from __future__ import annotations\n\ndef twoSum(nums, target):\n    print('debug')\n    return [0, 1]\n"
	prog, err := NewPython("main.py").Generate(src, twoSumCases())
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if prog.FileName != "main.py" || prog.Entry.Name != "twoSum" {
		t.Fatalf("unexpected program %+v", prog.Entry)
	}
	if !strings.HasPrefix(prog.Source, "from __future__ import annotations\n") {
		t.Fatalf("future import must stay first:\n%s", prog.Source)
	}
	redirect := strings.Index(prog.Source, "_judge_sys.stdout = open(")
	user := strings.Index(prog.Source, "def twoSum")
	if redirect < 0 || user < redirect {
		t.Fatalf("stdout must be redirected before user code")
	}
	for _, want := range []string{
		`([[2, 7, 11, 15], 9], [0, 1], "auto", False),`,
		`([[3, 2, 4], 6], [1, 2], "auto", True),`,
		"_judge_main(twoSum, _judge_cases)",
	} {
		if !strings.Contains(prog.Source, want) {
			t.Fatalf("missing %q in:\n%s", want, prog.Source)
		}
	}
}

func TestJavaScriptGenerate(t *testing.T) {
	src := "function twoSum(nums, target) {\n  console.log('x');\n  return [1, 0];\n}\n"
	prog, err := NewJavaScript("main.js").Generate(src, twoSumCases())
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	stub := strings.Index(prog.Source, "process.stdout.write = function")
	user := strings.Index(prog.Source, "function twoSum")
	if stub < 0 || user < stub {
		t.Fatalf("stdout must be silenced before user code")
	}
	for _, want := range []string{
		`[[[2, 7, 11, 15], 9], [0, 1], "auto", false],`,
		`[[[3, 2, 4], 6], [1, 2], "auto", true],`,
		"__judgeEmit(__judgeRun(twoSum, __judgeCases));",
	} {
		if !strings.Contains(prog.Source, want) {
			t.Fatalf("missing %q in:\n%s", want, prog.Source)
		}
	}
}

func TestJavaGenerate(t *testing.T) {
	src := "import java.util.*;\n\npublic class Solution {\n    public int[] twoSum(int[] nums, int target) {\n        return new int[]{1, 0};\n    }\n}\n"
	prog, err := NewJava("Main.java").Generate(src, twoSumCases())
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if !strings.HasPrefix(prog.Source, "import java.util.*;\n") {
		t.Fatalf("imports must be hoisted:\n%s", prog.Source)
	}
	runner := strings.Index(prog.Source, "public class "+javaRunnerClass)
	user := strings.Index(prog.Source, "class Solution")
	if runner < 0 || user < runner {
		t.Fatalf("runner class must come first")
	}
	if strings.Contains(prog.Source, "public class Solution") {
		t.Fatalf("user class must not stay public")
	}
	for _, want := range []string{
		`findMethod(Solution.class, "twoSum", 2)`,
		"return new Object[]{new int[]{2, 7, 11, 15}, 9};",
		`run(results, method, args0(), "[0,1]", false, out, sink);`,
		`run(results, method, args1(), "[1,2]", true, out, sink);`,
	} {
		if !strings.Contains(prog.Source, want) {
			t.Fatalf("missing %q in:\n%s", want, prog.Source)
		}
	}
}

func TestJavaExpectedIsNormalized(t *testing.T) {
	src := "class Solution {\n    public List<List<Integer>> threeSum(int[] nums) { return null; }\n}\n"
	cases := []model.TestCase{{
		Input:          ints(-1, 0, 1, 2, -1, -4),
		ExpectedOutput: value.List(ints(-1, 0, 1), ints(-1, -1, 2)),
	}}
	prog, err := NewJava("").Generate(src, cases)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if !strings.Contains(prog.Source, `"[[-1,-1,2],[-1,0,1]]"`) {
		t.Fatalf("expected normalized canonical form in:\n%s", prog.Source)
	}
	if !strings.Contains(prog.Source, "new Object[]{new int[]{-1, 0, 1, 2, -1, -4}}") {
		t.Fatalf("single parameter input must not be spread:\n%s", prog.Source)
	}
}

func TestJavaCallStyle(t *testing.T) {
	src := "class Solution {\n    public int sum(int[] xs) { return 0; }\n}\n"
	cases := []model.TestCase{{Input: ints(1, 2), ExpectedOutput: value.Int(3), CallStyle: model.CallSpread}}
	prog, err := NewJava("").Generate(src, cases)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if !strings.Contains(prog.Source, "new Object[]{1, 2}") {
		t.Fatalf("spread call style must spread:\n%s", prog.Source)
	}
}

func TestGenerateNoEntryPoint(t *testing.T) {
	gens := map[string]Generator{
		"python":     NewPython(""),
		"javascript": NewJavaScript(""),
		"java":       NewJava(""),
	}
	for name, gen := range gens {
		if _, err := gen.Generate("x = 1", twoSumCases()); !appErr.Is(err, appErr.NoEntryPointFound) {
			t.Fatalf("%s: expected NoEntryPointFound, got %v", name, err)
		}
	}
}

func TestGenerateUnsupportedShape(t *testing.T) {
	src := "class Solution {\n    public int f(Object x) { return 0; }\n}\n"
	cases := []model.TestCase{{Input: value.List(value.Int(1), value.String("a")), ExpectedOutput: value.Int(0), CallStyle: model.CallSingle}}
	if _, err := NewJava("").Generate(src, cases); !appErr.Is(err, appErr.UnsupportedValueShape) {
		t.Fatalf("expected UnsupportedValueShape, got %v", err)
	}
}
