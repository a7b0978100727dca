package command

import (
	"encoding/json"
	"fmt"
	"strings"

	"codejudge/internal/judge/compare"
	"codejudge/internal/judge/model"
)

const (
	CommandRun       = "run"
	CommandLanguages = "languages"
)

// Registry returns all CLI commands keyed by name.
func Registry() map[string]Command {
	commands := []Command{
		{
			Name:  CommandRun,
			Usage: "run language=python source_file=./main.py cases_file=./cases.json [call_style=auto|spread|single] [compare=unordered|ordered] [format=json]",
			Fields: []Field{
				{Name: "language", Aliases: []string{"lang"}, Prompt: "language", Required: true},
				{Name: "source_file", Aliases: []string{"file", "src"}, Prompt: "source file"},
				{Name: "code", Prompt: "source code"},
				{Name: "cases_file", Aliases: []string{"tests"}, Prompt: "test cases file"},
				{Name: "cases", Prompt: "test cases (json array)"},
				{Name: "id", Aliases: []string{"submission_id"}},
				{Name: "call_style", Aliases: []string{"style"}},
				{Name: "compare"},
				{Name: "format"},
			},
		},
		{
			Name:  CommandLanguages,
			Usage: "languages",
		},
	}
	out := make(map[string]Command, len(commands))
	for _, cmd := range commands {
		out[cmd.Name] = cmd
	}
	return out
}

// BuildSubmission assembles a submission from run params. Source comes from
// source_file or code; test cases from cases_file or inline cases.
func BuildSubmission(params Params) (model.Submission, error) {
	sub := model.Submission{
		ID:       params.Get("id"),
		Language: strings.TrimSpace(params.Get("language")),
	}
	if sub.Language == "" {
		return sub, fmt.Errorf("language is required")
	}

	switch {
	case params.Get("source_file") != "":
		code, err := ReadFile(params.Get("source_file"))
		if err != nil {
			return sub, err
		}
		sub.SourceCode = code
	case params.Get("code") != "":
		sub.SourceCode = params.Get("code")
	default:
		return sub, fmt.Errorf("source_file or code is required")
	}

	rawCases := params.Get("cases")
	if path := params.Get("cases_file"); path != "" {
		content, err := ReadFile(path)
		if err != nil {
			return sub, err
		}
		rawCases = content
	}
	if strings.TrimSpace(rawCases) == "" {
		return sub, fmt.Errorf("cases_file or cases is required")
	}
	raw, err := ParseJSON(rawCases)
	if err != nil {
		return sub, fmt.Errorf("parse test cases failed: %w", err)
	}
	if err := json.Unmarshal(raw, &sub.TestCases); err != nil {
		return sub, fmt.Errorf("parse test cases failed: %w", err)
	}

	style := model.CallStyle(strings.ToLower(params.Get("call_style")))
	mode := compare.Mode(strings.ToLower(params.Get("compare")))
	for i := range sub.TestCases {
		if style != "" {
			sub.TestCases[i].CallStyle = style
		}
		if mode != "" {
			sub.TestCases[i].Compare = mode
		}
	}
	if err := sub.Normalize(); err != nil {
		return sub, err
	}
	return sub, nil
}
