// Package harness generates driver programs that load a submission, call its
// entry point once per test case and print the results as a JSON array.
//
// Generation is pure: a Generator only produces source text. Running it is
// the sandbox's job.
package harness

import (
	"codejudge/internal/judge/model"
	"codejudge/internal/judge/sandbox/profile"
	appErr "codejudge/pkg/errors"
)

// EntryKind distinguishes free functions from classes.
type EntryKind int

const (
	EntryFunction EntryKind = iota
	EntryClass
)

// EntryPoint is the callable a harness invokes.
type EntryPoint struct {
	Kind EntryKind
	// Name is the function or class name.
	Name string
	// Method is the method invoked on a fresh instance, when resolved statically.
	Method string
	// Params is the declared parameter count, or -1 when only known at run time.
	Params int
}

// Resolution is the tagged outcome of entry point discovery.
type Resolution struct {
	found  bool
	entry  EntryPoint
	reason string
}

// Found wraps a resolved entry point.
func Found(ep EntryPoint) Resolution {
	return Resolution{found: true, entry: ep}
}

// NotFound records why no entry point could be chosen.
func NotFound(reason string) Resolution {
	return Resolution{reason: reason}
}

// EntryPoint returns the resolved entry point and whether one was found.
func (r Resolution) EntryPoint() (EntryPoint, bool) {
	return r.entry, r.found
}

// Reason explains a NotFound resolution.
func (r Resolution) Reason() string {
	return r.reason
}

// Err converts a NotFound resolution into a NoEntryPointFound error.
func (r Resolution) Err() error {
	if r.found {
		return nil
	}
	return appErr.New(appErr.NoEntryPointFound).WithMessage("No entry point found: " + r.reason)
}

// Resolver locates the entry point of user source.
type Resolver interface {
	Resolve(src string) Resolution
}

// Program is a generated harness ready to be written to disk.
type Program struct {
	FileName string
	Source   string
	Entry    EntryPoint
}

// Generator builds a harness for one language family.
type Generator interface {
	Generate(src string, cases []model.TestCase) (Program, error)
}

// ForLanguage returns the generator matching lang.Harness.
func ForLanguage(lang profile.LanguageSpec) (Generator, error) {
	switch lang.Harness {
	case profile.HarnessPython:
		return NewPython(lang.SourceFile), nil
	case profile.HarnessJavaScript:
		return NewJavaScript(lang.SourceFile), nil
	case profile.HarnessJava:
		return NewJava(lang.SourceFile), nil
	default:
		return nil, appErr.Newf(appErr.LanguageNotSupported, "no harness generator for %q", lang.Harness)
	}
}
