package command

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// Field defines a CLI input field.
type Field struct {
	Name     string
	Aliases  []string
	Prompt   string
	Required bool
}

// Command defines a CLI command.
type Command struct {
	Name   string
	Usage  string
	Fields []Field
}

// Params holds parsed input params.
type Params map[string]string

func (p Params) Get(key string) string {
	return p[strings.ToLower(key)]
}

func (p Params) Set(key, value string) {
	p[strings.ToLower(key)] = value
}

func (p Params) Has(key string) bool {
	_, ok := p[strings.ToLower(key)]
	return ok
}

func (p Params) Canonicalize(fields []Field) {
	for _, field := range fields {
		for _, alias := range field.Aliases {
			aliasKey := strings.ToLower(alias)
			if value, ok := p[aliasKey]; ok {
				p[strings.ToLower(field.Name)] = value
				delete(p, aliasKey)
			}
		}
	}
}

// ParseParams parses key=value tokens.
func ParseParams(tokens []string) (Params, error) {
	params := Params{}
	for _, token := range tokens {
		parts := strings.SplitN(token, "=", 2)
		if len(parts) != 2 || parts[0] == "" {
			return nil, fmt.Errorf("invalid param: %s", token)
		}
		params.Set(parts[0], parts[1])
	}
	return params, nil
}

func ReadFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read file failed: %w", err)
	}
	return string(data), nil
}

func ParseJSON(value string) (json.RawMessage, error) {
	raw := strings.TrimSpace(value)
	if !json.Valid([]byte(raw)) {
		return nil, fmt.Errorf("invalid json content")
	}
	return json.RawMessage(raw), nil
}
