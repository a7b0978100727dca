package harness

import (
	"regexp"
	"sort"
	"strings"
)

// Flavor selects the declaration grammar a LastDefinedResolver scans.
type Flavor int

const (
	FlavorPython Flavor = iota
	FlavorJavaScript
)

// reservedPrefix marks names generated harnesses use for their own helpers.
const reservedPrefix = "_judge"

var (
	pyDefPattern    = regexp.MustCompile(`(?m)^(?:async[ \t]+)?def[ \t]+([A-Za-z_]\w*)[ \t]*\(`)
	pyClassPattern  = regexp.MustCompile(`(?m)^class[ \t]+([A-Za-z_]\w*)[ \t]*[:(]`)
	pyLambdaPattern = regexp.MustCompile(`(?m)^([A-Za-z_]\w*)[ \t]*(?::[^=\n]+)?=[ \t]*lambda\b`)

	jsFunctionPattern = regexp.MustCompile(`(?m)^[ \t]*(?:export[ \t]+)?(?:async[ \t]+)?function[ \t]*\*?[ \t]*([A-Za-z_$][\w$]*)[ \t]*[<(]`)
	jsBindingPattern  = regexp.MustCompile(`(?m)^[ \t]*(?:export[ \t]+)?(?:const|let|var)[ \t]+([A-Za-z_$][\w$]*)[ \t]*(?::[^=\n]+)?=[ \t]*(?:async[ \t]+)?(?:function\b|(?:<[^>\n]*>[ \t]*)?\([^)]*\)[ \t]*(?::[^=\n]*)?=>|[A-Za-z_$][\w$]*[ \t]*=>)`)
	jsClassPattern    = regexp.MustCompile(`(?m)^[ \t]*(?:export[ \t]+)?(?:default[ \t]+)?(?:abstract[ \t]+)?class[ \t]+([A-Za-z_$][\w$]*)`)
)

// reservedNames are never chosen as entry points.
var reservedNames = map[string]bool{
	"run_tests": true,
}

// LastDefinedResolver picks the last top-level function or class defined in
// the source. Comments and string literals are ignored. A top-level Python
// declaration starts at column zero; a top-level JavaScript declaration is
// one outside every brace. Parameter counts are left to the harness, which
// inspects the callable at run time.
type LastDefinedResolver struct {
	Flavor Flavor
}

type declaration struct {
	pos  int
	name string
	kind EntryKind
}

func (r LastDefinedResolver) Resolve(src string) Resolution {
	var decls []declaration
	var depth []int
	collect := func(re *regexp.Regexp, text string, kind EntryKind) {
		for _, m := range re.FindAllStringSubmatchIndex(text, -1) {
			if depth != nil && depth[m[2]] != 0 {
				continue
			}
			decls = append(decls, declaration{pos: m[0], name: text[m[2]:m[3]], kind: kind})
		}
	}
	switch r.Flavor {
	case FlavorPython:
		masked := maskPython(src)
		collect(pyDefPattern, masked, EntryFunction)
		collect(pyClassPattern, masked, EntryClass)
		collect(pyLambdaPattern, masked, EntryFunction)
	default:
		masked := maskCLike(src)
		depth = braceDepths(masked)
		collect(jsFunctionPattern, masked, EntryFunction)
		collect(jsBindingPattern, masked, EntryFunction)
		collect(jsClassPattern, masked, EntryClass)
	}
	sort.SliceStable(decls, func(i, j int) bool { return decls[i].pos < decls[j].pos })

	for i := len(decls) - 1; i >= 0; i-- {
		d := decls[i]
		if isReserved(d.name) {
			continue
		}
		return Found(EntryPoint{Kind: d.kind, Name: d.name, Params: -1})
	}
	return NotFound("no top-level function or class is defined")
}

func isReserved(name string) bool {
	return reservedNames[name] || strings.HasPrefix(name, reservedPrefix) || strings.HasPrefix(name, "_"+reservedPrefix)
}

var (
	javaClassPattern  = regexp.MustCompile(`\bclass\s+([A-Za-z_$][\w$]*)`)
	javaMethodPattern = regexp.MustCompile(`\bpublic\s+(?:(?:static|final|synchronized|strictfp)\s+)*(?:<[^>{;]*>\s*)?[\w$.<>\[\],? ]+?\s+([A-Za-z_$][\w$]*)\s*\(([^)]*)\)`)
)

// PublicMethodResolver picks the first public method of the first top-level
// class that declares one. main is ignored. The parameter count is taken
// from the declaration.
type PublicMethodResolver struct{}

func (PublicMethodResolver) Resolve(src string) Resolution {
	masked := maskCLike(src)
	depth := braceDepths(masked)

	type class struct {
		name       string
		start, end int
	}
	var classes []class
	for _, m := range javaClassPattern.FindAllStringSubmatchIndex(masked, -1) {
		if depth[m[0]] != 0 {
			continue
		}
		open := strings.IndexByte(masked[m[1]:], '{')
		if open < 0 {
			continue
		}
		open += m[1]
		classes = append(classes, class{name: masked[m[2]:m[3]], start: open, end: matchingBrace(masked, open)})
	}
	if len(classes) == 0 {
		return NotFound("no top-level class is declared")
	}

	methods := javaMethodPattern.FindAllStringSubmatchIndex(masked, -1)
	for _, c := range classes {
		for _, m := range methods {
			if m[0] <= c.start || m[0] >= c.end || depth[m[0]] != 1 {
				continue
			}
			name := masked[m[2]:m[3]]
			if name == "main" || name == c.name {
				continue
			}
			return Found(EntryPoint{
				Kind:   EntryClass,
				Name:   c.name,
				Method: name,
				Params: countParams(masked[m[4]:m[5]]),
			})
		}
	}
	return NotFound("no class declares a public method")
}

// countParams counts comma separated parameters, ignoring commas inside
// generic type arguments.
func countParams(list string) int {
	if strings.TrimSpace(list) == "" {
		return 0
	}
	count, angle := 1, 0
	for _, ch := range list {
		switch ch {
		case '<':
			angle++
		case '>':
			if angle > 0 {
				angle--
			}
		case ',':
			if angle == 0 {
				count++
			}
		}
	}
	return count
}

// maskCLike blanks comments and string or character literals of C-like
// source, keeping byte offsets and newlines intact.
func maskCLike(src string) string {
	out := []byte(src)
	blank := func(from, to int) {
		for i := from; i < to && i < len(out); i++ {
			if out[i] != '\n' {
				out[i] = ' '
			}
		}
	}
	for i := 0; i < len(src); {
		switch {
		case strings.HasPrefix(src[i:], "//"):
			end := strings.IndexByte(src[i:], '\n')
			if end < 0 {
				end = len(src) - i
			}
			blank(i, i+end)
			i += end
		case strings.HasPrefix(src[i:], "/*"):
			end := strings.Index(src[i+2:], "*/")
			if end < 0 {
				blank(i, len(src))
				return string(out)
			}
			blank(i, i+2+end+2)
			i += 2 + end + 2
		case src[i] == '"' || src[i] == '\'' || src[i] == '`':
			quote := src[i]
			j := i + 1
			for j < len(src) && src[j] != quote {
				if src[j] == '\\' {
					j++
				} else if src[j] == '\n' && quote != '`' {
					break
				}
				j++
			}
			blank(i+1, j)
			i = j + 1
		default:
			i++
		}
	}
	return string(out)
}

// maskPython blanks comments and string literals of Python source,
// triple-quoted ones included, keeping byte offsets and newlines intact.
func maskPython(src string) string {
	out := []byte(src)
	blank := func(from, to int) {
		for i := from; i < to && i < len(out); i++ {
			if out[i] != '\n' {
				out[i] = ' '
			}
		}
	}
	for i := 0; i < len(src); {
		switch {
		case src[i] == '#':
			end := strings.IndexByte(src[i:], '\n')
			if end < 0 {
				end = len(src) - i
			}
			blank(i, i+end)
			i += end
		case strings.HasPrefix(src[i:], `"""`) || strings.HasPrefix(src[i:], "'''"):
			delim := src[i : i+3]
			j := i + 3
			for j < len(src) && !strings.HasPrefix(src[j:], delim) {
				if src[j] == '\\' {
					j++
				}
				j++
			}
			blank(i+3, j)
			i = j + 3
		case src[i] == '"' || src[i] == '\'':
			quote := src[i]
			j := i + 1
			for j < len(src) && src[j] != quote && src[j] != '\n' {
				if src[j] == '\\' {
					j++
				}
				j++
			}
			blank(i+1, j)
			i = j + 1
		default:
			i++
		}
	}
	return string(out)
}

// braceDepths returns, for every byte offset, the number of unclosed '{'
// before it.
func braceDepths(masked string) []int {
	depth := make([]int, len(masked)+1)
	d := 0
	for i := 0; i < len(masked); i++ {
		depth[i] = d
		switch masked[i] {
		case '{':
			d++
		case '}':
			if d > 0 {
				d--
			}
		}
	}
	depth[len(masked)] = d
	return depth
}

func matchingBrace(masked string, open int) int {
	d := 0
	for i := open; i < len(masked); i++ {
		switch masked[i] {
		case '{':
			d++
		case '}':
			d--
			if d == 0 {
				return i
			}
		}
	}
	return len(masked)
}
