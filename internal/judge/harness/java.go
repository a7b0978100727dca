package harness

import (
	"fmt"
	"regexp"
	"strings"

	"codejudge/internal/judge/compare"
	"codejudge/internal/judge/model"
	"codejudge/internal/judge/value"
)

const javaRunnerClass = "CodeJudgeRunner"

var (
	javaImportPattern     = regexp.MustCompile(`(?m)^[ \t]*import[ \t]+(?:static[ \t]+)?[\w.*]+[ \t]*;[ \t]*$`)
	javaPublicTypePattern = regexp.MustCompile(`(?m)^([ \t]*)public[ \t]+((?:(?:final|abstract|sealed)[ \t]+)*)(class|interface|enum|record)\b`)
)

// Java generates single-file harnesses for the java source launcher. The
// runner class comes first so the launcher picks its main method.
type Java struct {
	fileName string
	resolver Resolver
}

// NewJava creates a Java generator writing fileName.
func NewJava(fileName string) *Java {
	if fileName == "" {
		fileName = "Main.java"
	}
	return &Java{fileName: fileName, resolver: PublicMethodResolver{}}
}

func (g *Java) Generate(src string, cases []model.TestCase) (Program, error) {
	res := g.resolver.Resolve(src)
	entry, ok := res.EntryPoint()
	if !ok {
		return Program{}, res.Err()
	}

	var caseMethods, calls strings.Builder
	for i, tc := range cases {
		args, err := javaArguments(tc, entry.Params)
		if err != nil {
			return Program{}, err
		}
		expected := tc.ExpectedOutput
		if tc.Mode() != compare.Ordered {
			expected = compare.Normalize(expected)
		}
		expectedLit, err := value.Format(value.String(compare.Canonical(expected)), value.SyntaxJava)
		if err != nil {
			return Program{}, err
		}
		fmt.Fprintf(&caseMethods, "    static Object[] args%d() {\n        return new Object[]{%s};\n    }\n\n", i, strings.Join(args, ", "))
		fmt.Fprintf(&calls, "        run(results, method, args%d(), %s, %t, out, sink);\n", i, expectedLit, tc.Mode() == compare.Ordered)
	}

	imports := javaImportPattern.FindAllString(src, -1)
	body := javaImportPattern.ReplaceAllString(src, "")
	body = javaPublicTypePattern.ReplaceAllString(body, "$1$2$3")

	var b strings.Builder
	for _, imp := range imports {
		b.WriteString(strings.TrimSpace(imp))
		b.WriteByte('\n')
	}
	b.WriteByte('\n')
	fmt.Fprintf(&b, "public class %s {\n", javaRunnerClass)
	b.WriteString("    public static void main(String[] args) throws Exception {\n")
	b.WriteString("        java.io.PrintStream out = System.out;\n")
	b.WriteString("        java.io.PrintStream sink = new java.io.PrintStream(java.io.OutputStream.nullOutputStream());\n")
	fmt.Fprintf(&b, "        java.lang.reflect.Method method = findMethod(%s.class, %q, %d);\n", entry.Name, entry.Method, entry.Params)
	b.WriteString("        StringBuilder results = new StringBuilder(\"[\");\n")
	b.WriteString(calls.String())
	b.WriteString("        results.append(']');\n")
	b.WriteString("        out.println(results);\n")
	b.WriteString("        out.flush();\n")
	b.WriteString("    }\n\n")
	b.WriteString(caseMethods.String())
	b.WriteString(javaRuntime)
	b.WriteString("}\n\n")
	b.WriteString(strings.TrimSpace(body))
	b.WriteByte('\n')

	return Program{FileName: g.fileName, Source: b.String(), Entry: entry}, nil
}

// javaArguments renders the invocation arguments of one case. Java needs the
// spread decision up front because arrays are typed at compile time.
func javaArguments(tc model.TestCase, params int) ([]string, error) {
	if model.Spread(tc.Style(), tc.Input, params) {
		args := make([]string, 0, tc.Input.Len())
		for _, item := range tc.Input.Items() {
			lit, err := value.Format(item, value.SyntaxJava)
			if err != nil {
				return nil, err
			}
			args = append(args, lit)
		}
		return args, nil
	}
	lit, err := value.Format(tc.Input, value.SyntaxJava)
	if err != nil {
		return nil, err
	}
	return []string{lit}, nil
}

// javaRuntime holds the static helpers of the runner class. canon mirrors
// compare.Canonical.
const javaRuntime = `    static java.lang.reflect.Method findMethod(Class<?> type, String name, int params) {
        for (java.lang.reflect.Method m : type.getDeclaredMethods()) {
            if (m.getName().equals(name) && m.getParameterCount() == params
                    && java.lang.reflect.Modifier.isPublic(m.getModifiers())) {
                m.setAccessible(true);
                return m;
            }
        }
        throw new IllegalStateException("public method " + name + " not found in " + type.getName());
    }

    static Object instantiate(java.lang.reflect.Method method) throws Exception {
        if (java.lang.reflect.Modifier.isStatic(method.getModifiers())) {
            return null;
        }
        java.lang.reflect.Constructor<?> ctor = method.getDeclaringClass().getDeclaredConstructor();
        ctor.setAccessible(true);
        return ctor.newInstance();
    }

    static void run(StringBuilder results, java.lang.reflect.Method method, Object[] args, String expected,
            boolean ordered, java.io.PrintStream out, java.io.PrintStream sink) {
        if (results.length() > 1) {
            results.append(',');
        }
        long start = System.nanoTime();
        try {
            Object instance = instantiate(method);
            Class<?>[] types = method.getParameterTypes();
            for (int i = 0; i < args.length && i < types.length; i++) {
                args[i] = adapt(args[i], types[i]);
            }
            System.setOut(sink);
            start = System.nanoTime();
            Object actual = method.invoke(instance, args);
            double elapsed = (System.nanoTime() - start) / 1e6;
            System.setOut(out);
            boolean passed = canon(actual, !ordered).equals(expected);
            results.append("{\"passed\":").append(passed)
                    .append(",\"output\":").append(json(actual))
                    .append(",\"error\":null,\"executionTime\":").append(elapsed).append('}');
        } catch (Throwable t) {
            double elapsed = (System.nanoTime() - start) / 1e6;
            System.setOut(out);
            Throwable cause = t;
            if (t instanceof java.lang.reflect.InvocationTargetException && t.getCause() != null) {
                cause = t.getCause();
            }
            String message = cause.getClass().getSimpleName();
            if (cause.getMessage() != null) {
                message += ": " + cause.getMessage();
            }
            results.append("{\"passed\":false,\"output\":null,\"error\":").append(quote(message))
                    .append(",\"executionTime\":").append(elapsed).append('}');
        }
    }

    static Object adapt(Object arg, Class<?> type) {
        if (arg == null || !arg.getClass().isArray() || type.isInstance(arg)) {
            return arg;
        }
        int n = java.lang.reflect.Array.getLength(arg);
        if (type.isArray()) {
            Class<?> component = type.getComponentType();
            Object out = java.lang.reflect.Array.newInstance(component, n);
            for (int i = 0; i < n; i++) {
                java.lang.reflect.Array.set(out, i, adapt(java.lang.reflect.Array.get(arg, i), component));
            }
            return out;
        }
        if (type.isAssignableFrom(java.util.ArrayList.class)) {
            java.util.List<Object> out = new java.util.ArrayList<>(n);
            for (int i = 0; i < n; i++) {
                out.add(adapt(java.lang.reflect.Array.get(arg, i), java.util.List.class));
            }
            return out;
        }
        return arg;
    }

    static java.util.List<Object> elements(Object v) {
        if (v == null) {
            return null;
        }
        if (v.getClass().isArray()) {
            int n = java.lang.reflect.Array.getLength(v);
            java.util.List<Object> items = new java.util.ArrayList<>(n);
            for (int i = 0; i < n; i++) {
                items.add(java.lang.reflect.Array.get(v, i));
            }
            return items;
        }
        if (v instanceof Iterable<?> it) {
            java.util.List<Object> items = new java.util.ArrayList<>();
            for (Object o : it) {
                items.add(o);
            }
            return items;
        }
        return null;
    }

    static String canon(Object v, boolean sort) {
        if (v == null) {
            return "null";
        }
        if (v instanceof Boolean) {
            return v.toString();
        }
        if (v instanceof Character || v instanceof CharSequence) {
            return quote(v.toString());
        }
        if (v instanceof Float f) {
            return canonDecimal(f.isNaN() || f.isInfinite() ? null : Float.toString(f), f.doubleValue());
        }
        if (v instanceof Double d) {
            return canonDecimal(d.isNaN() || d.isInfinite() ? null : Double.toString(d), d);
        }
        if (v instanceof java.math.BigDecimal bd) {
            return bd.signum() == 0 ? "0" : bd.stripTrailingZeros().toPlainString();
        }
        if (v instanceof Number) {
            return v.toString();
        }
        java.util.List<Object> items = elements(v);
        if (items == null) {
            return quote(String.valueOf(v));
        }
        java.util.List<String> parts = new java.util.ArrayList<>(items.size());
        for (Object item : items) {
            parts.add(canon(item, sort));
        }
        if (sort) {
            parts.sort((a, b) -> java.util.Arrays.compareUnsigned(
                    a.getBytes(java.nio.charset.StandardCharsets.UTF_8),
                    b.getBytes(java.nio.charset.StandardCharsets.UTF_8)));
        }
        return "[" + String.join(",", parts) + "]";
    }

    static String canonDecimal(String text, double d) {
        if (Double.isNaN(d)) {
            return "NaN";
        }
        if (Double.isInfinite(d)) {
            return d > 0 ? "Infinity" : "-Infinity";
        }
        if (d == 0) {
            return "0";
        }
        return new java.math.BigDecimal(text).stripTrailingZeros().toPlainString();
    }

    static String json(Object v) {
        if (v == null) {
            return "null";
        }
        if (v instanceof Boolean) {
            return v.toString();
        }
        if (v instanceof Character || v instanceof CharSequence) {
            return quote(v.toString());
        }
        if (v instanceof Double d && (d.isNaN() || d.isInfinite())) {
            return quote(d.toString());
        }
        if (v instanceof Float f && (f.isNaN() || f.isInfinite())) {
            return quote(f.toString());
        }
        if (v instanceof Number) {
            return v.toString();
        }
        java.util.List<Object> items = elements(v);
        if (items == null) {
            return quote(String.valueOf(v));
        }
        StringBuilder b = new StringBuilder("[");
        for (int i = 0; i < items.size(); i++) {
            if (i > 0) {
                b.append(',');
            }
            b.append(json(items.get(i)));
        }
        return b.append(']').toString();
    }

    static String quote(String s) {
        StringBuilder b = new StringBuilder(s.length() + 2).append('"');
        for (int i = 0; i < s.length(); i++) {
            char c = s.charAt(i);
            if (c == '"' || c == '\\') {
                b.append('\\').append(c);
            } else if (c < 0x20) {
                b.append(String.format("\\u%04x", (int) c));
            } else {
                b.append(c);
            }
        }
        return b.append('"').toString();
    }
`
