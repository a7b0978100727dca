package repl

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"codejudge/internal/cli/command"
	httpclient "codejudge/internal/cli/http"
	"codejudge/internal/judge/model"
	"codejudge/internal/judge/result"

	"github.com/google/shlex"
)

// Judge executes submissions.
type Judge interface {
	Execute(ctx context.Context, sub model.Submission) (result.AggregateResult, error)
}

// LanguageLister lists server languages.
type LanguageLister interface {
	Languages(ctx context.Context) ([]httpclient.Language, error)
}

// Session holds REPL state.
type Session struct {
	judge        Judge
	client       *httpclient.Client
	commands     map[string]command.Command
	prettyJSON   bool
	input        *bufio.Reader
	outputWriter *bufio.Writer
}

// New creates a session. client may be nil when judge is not HTTP based.
func New(judge Judge, client *httpclient.Client, commands map[string]command.Command, prettyJSON bool, in io.Reader, out io.Writer) *Session {
	return &Session{
		judge:        judge,
		client:       client,
		commands:     commands,
		prettyJSON:   prettyJSON,
		input:        bufio.NewReader(in),
		outputWriter: bufio.NewWriter(out),
	}
}

var errExit = errors.New("exit")

func (s *Session) Run(ctx context.Context) {
	for {
		_, _ = s.outputWriter.WriteString("judge> ")
		_ = s.outputWriter.Flush()
		line, err := s.input.ReadString('\n')
		if err != nil && line == "" {
			if !errors.Is(err, io.EOF) {
				s.printLine("read input failed: %v", err)
			}
			return
		}
		if err := s.Exec(ctx, line); err != nil {
			if errors.Is(err, errExit) {
				s.printLine("bye")
				return
			}
			s.printLine("error: %v", err)
		}
	}
}

// Exec runs one command line.
func (s *Session) Exec(ctx context.Context, line string) error {
	line = strings.TrimSpace(line)
	if line == "" {
		return nil
	}
	if s.handleSystemCommand(line) {
		return nil
	}
	switch line {
	case "exit", "quit":
		return errExit
	}
	return s.handleCommand(ctx, line)
}

func (s *Session) handleSystemCommand(line string) bool {
	if line == "help" {
		s.printHelp()
		return true
	}
	if strings.HasPrefix(line, "set ") {
		s.handleSet(strings.TrimSpace(strings.TrimPrefix(line, "set ")))
		return true
	}
	return false
}

func (s *Session) handleSet(args string) {
	parts := strings.Fields(args)
	if len(parts) == 0 {
		s.printLine("usage: set base|timeout|pretty")
		return
	}
	switch parts[0] {
	case "base":
		if s.client == nil {
			s.printLine("base is only used by the http transport")
			return
		}
		if len(parts) < 2 {
			s.printLine("usage: set base http://127.0.0.1:8085")
			return
		}
		s.client.SetBaseURL(parts[1])
		s.printLine("base set to %s", parts[1])
	case "timeout":
		if s.client == nil {
			s.printLine("timeout is only used by the http transport")
			return
		}
		if len(parts) < 2 {
			s.printLine("usage: set timeout 30s")
			return
		}
		dur, err := time.ParseDuration(parts[1])
		if err != nil {
			s.printLine("invalid duration: %v", err)
			return
		}
		s.client.SetTimeout(dur)
		s.printLine("timeout set to %s", dur)
	case "pretty":
		s.prettyJSON = len(parts) < 2 || parts[1] != "off"
		s.printLine("pretty json: %t", s.prettyJSON)
	default:
		s.printLine("unknown set command")
	}
}

func (s *Session) handleCommand(ctx context.Context, line string) error {
	tokens, err := shlex.Split(line)
	if err != nil {
		return fmt.Errorf("parse command failed: %w", err)
	}
	if len(tokens) == 0 {
		return nil
	}
	cmd, ok := s.commands[tokens[0]]
	if !ok {
		return fmt.Errorf("unknown command: %s", tokens[0])
	}
	params, err := command.ParseParams(tokens[1:])
	if err != nil {
		return err
	}
	params.Canonicalize(cmd.Fields)
	if err := s.promptMissing(cmd, params); err != nil {
		return err
	}

	switch cmd.Name {
	case command.CommandLanguages:
		return s.listLanguages(ctx)
	case command.CommandRun:
		sub, err := command.BuildSubmission(params)
		if err != nil {
			return err
		}
		start := time.Now()
		agg, err := s.judge.Execute(ctx, sub)
		if err != nil {
			return err
		}
		if params.Get("format") == "json" {
			return s.renderJSON(result.NewReport(agg))
		}
		s.renderReport(agg, time.Since(start))
		return nil
	}
	return fmt.Errorf("command %s is not runnable", cmd.Name)
}

func (s *Session) listLanguages(ctx context.Context) error {
	lister, ok := s.judge.(LanguageLister)
	if !ok {
		return fmt.Errorf("languages are only available over http")
	}
	langs, err := lister.Languages(ctx)
	if err != nil {
		return err
	}
	sort.Slice(langs, func(i, j int) bool { return langs[i].ID < langs[j].ID })
	for _, lang := range langs {
		aliases := ""
		if len(lang.Aliases) > 0 {
			aliases = " (" + strings.Join(lang.Aliases, ", ") + ")"
		}
		s.printLine("%-12s %s%s  %s, %dms", lang.ID, lang.Name, aliases, lang.Strategy, lang.TimeoutMs)
	}
	return nil
}

func (s *Session) promptMissing(cmd command.Command, params command.Params) error {
	for _, field := range cmd.Fields {
		if !field.Required || params.Get(field.Name) != "" {
			continue
		}
		value, err := s.promptValue(field.Prompt)
		if err != nil {
			return err
		}
		params.Set(field.Name, value)
	}
	return nil
}

func (s *Session) promptValue(prompt string) (string, error) {
	s.printLine("%s:", prompt)
	line, err := s.input.ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("read input failed: %w", err)
	}
	return strings.TrimSpace(line), nil
}

func (s *Session) renderReport(agg result.AggregateResult, elapsed time.Duration) {
	s.printLine("%s: %d/%d passed (%s)", result.Classify(agg), agg.TestsPassed, agg.TotalTests, elapsed.Round(time.Millisecond))
	if agg.Failure != nil {
		s.printLine("%s", agg.Failure.Message)
		return
	}
	for i, r := range agg.Results {
		mark := "FAIL"
		if r.Passed {
			mark = "ok"
		}
		var b strings.Builder
		fmt.Fprintf(&b, "  #%d %-4s", i+1, mark)
		if r.Output != nil {
			fmt.Fprintf(&b, " output=%s", r.Output.String())
		}
		if r.ExecutionTimeMs != nil {
			fmt.Fprintf(&b, " %.3fms", *r.ExecutionTimeMs)
		}
		if r.Error != "" {
			fmt.Fprintf(&b, " error=%q", r.Error)
		}
		s.printLine("%s", b.String())
	}
}

func (s *Session) renderJSON(v interface{}) error {
	var (
		data []byte
		err  error
	)
	if s.prettyJSON {
		data, err = json.MarshalIndent(v, "", "  ")
	} else {
		data, err = json.Marshal(v)
	}
	if err != nil {
		return err
	}
	s.printLine("%s", string(data))
	return nil
}

func (s *Session) printHelp() {
	s.printLine("usage: <command> key=value ...")
	s.printLine("system: help | exit | set base|timeout|pretty")
	names := make([]string, 0, len(s.commands))
	for name := range s.commands {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		s.printLine("  %s", s.commands[name].Usage)
	}
	s.printLine("examples:")
	s.printLine("  run lang=py file=./two_sum.py cases='[{\"input\":[[2,7,11,15],9],\"expectedOutput\":[0,1]}]'")
}

func (s *Session) printLine(format string, args ...interface{}) {
	_, _ = fmt.Fprintf(s.outputWriter, format+"\n", args...)
	_ = s.outputWriter.Flush()
}
