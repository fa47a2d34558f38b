package command

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

// Registry returns all CLI commands keyed by "service action".
func Registry() map[string]Command {
	commands := []Command{
		{
			Service:      "lang",
			Action:       "list",
			Method:       http.MethodGet,
			PathTemplate: "/api/v1/languages",
		},
		{
			Service:      "run",
			Action:       "exec",
			Method:       http.MethodPost,
			PathTemplate: "/api/v1/runs",
			Fields: []Field{
				{Name: "language_id", Aliases: []string{"lang", "language"}, Prompt: "language_id", Type: FieldString, Required: true},
				{Name: "source_code", Aliases: []string{"code"}, Prompt: "source_code", Type: FieldString, Required: true},
				{Name: "source_file", Aliases: []string{"file"}, Prompt: "source_file", Type: FieldFile},
				{Name: "input", Aliases: []string{"stdin"}, Prompt: "input", Type: FieldString},
				{Name: "input_file", Prompt: "input_file", Type: FieldFile},
			},
		},
		{
			Service:      "run",
			Action:       "get",
			Method:       http.MethodGet,
			PathTemplate: "/api/v1/runs/:id",
			Fields: []Field{
				{Name: "id", Aliases: []string{"run_id"}, Prompt: "run_id", Type: FieldString, Required: true},
			},
		},
	}

	result := make(map[string]Command, len(commands))
	for _, cmd := range commands {
		result[cmd.Service+" "+cmd.Action] = cmd
	}
	return result
}

// BuildRequest renders cmd with params into an HTTP request.
func BuildRequest(cmd Command, params Params) (RequestSpec, error) {
	params.Canonicalize(cmd.Fields)
	path, err := buildPath(cmd.PathTemplate, params)
	if err != nil {
		return RequestSpec{}, err
	}

	var body []byte
	if cmd.Method != http.MethodGet {
		payload, err := buildPayload(cmd, params)
		if err != nil {
			return RequestSpec{}, err
		}
		if payload != nil {
			body, err = json.Marshal(payload)
			if err != nil {
				return RequestSpec{}, fmt.Errorf("marshal request body failed: %w", err)
			}
		}
	}

	return RequestSpec{
		Method: cmd.Method,
		Path:   path,
		Body:   body,
	}, nil
}

func buildPath(template string, params Params) (string, error) {
	path := template
	placeholder := ":id"
	if strings.Contains(path, placeholder) {
		value := params.Get("id")
		if value == "" {
			return "", fmt.Errorf("missing path parameter: id")
		}
		path = strings.ReplaceAll(path, placeholder, value)
	}
	return path, nil
}

func buildPayload(cmd Command, params Params) (interface{}, error) {
	if cmd.Service == "run" && cmd.Action == "exec" {
		return buildRunPayload(params)
	}
	return nil, nil
}

func buildRunPayload(params Params) (interface{}, error) {
	sourceCode, err := valueOrFile(params, "source_code", "source_file")
	if err != nil {
		return nil, err
	}
	if sourceCode == "" {
		return nil, fmt.Errorf("source_code is required")
	}
	input, err := valueOrFile(params, "input", "input_file")
	if err != nil {
		return nil, err
	}

	payload := map[string]string{
		"language_id": params.Get("language_id"),
		"source_code": sourceCode,
	}
	if input != "" {
		payload["input"] = input
	}
	return payload, nil
}

// valueOrFile prefers an inline value and falls back to reading fileKey.
func valueOrFile(params Params, key, fileKey string) (string, error) {
	value := params.Get(key)
	if (value == "" || value == FileMarker) && params.Get(fileKey) != "" {
		return ReadFile(params.Get(fileKey))
	}
	if value == FileMarker {
		return "", nil
	}
	return value, nil
}

// FileMarker stands in for a required value that a *_file param supplies.
const FileMarker = "_file_"
