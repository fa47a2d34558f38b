package repl

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"coderun/internal/cli/command"
	httpclient "coderun/internal/cli/http"
)

type request struct {
	method string
	path   string
	body   []byte
}

type fakeClient struct {
	requests []request
	baseURL  string
	timeout  time.Duration
}

func (f *fakeClient) Do(ctx context.Context, method, path string, body []byte) (httpclient.ResponseInfo, error) {
	f.requests = append(f.requests, request{method: method, path: path, body: body})
	return httpclient.ResponseInfo{StatusCode: http.StatusOK, Body: []byte(`{"code":0,"data":{"stdout":"121\n"}}`)}, nil
}

func (f *fakeClient) SetBaseURL(baseURL string) { f.baseURL = baseURL }

func (f *fakeClient) SetTimeout(timeout time.Duration) { f.timeout = timeout }

func TestExecRunWithSourceFile(t *testing.T) {
	source := filepath.Join(t.TempDir(), "prog.py")
	if err := os.WriteFile(source, []byte("print(121)\n"), 0o644); err != nil {
		t.Fatalf("write source failed: %v", err)
	}
	client := &fakeClient{}
	var out bytes.Buffer
	session := New(client, command.Registry(), false, strings.NewReader(""), &out)

	if err := session.Exec(context.Background(), "run exec lang=python3 file="+source); err != nil {
		t.Fatalf("exec failed: %v", err)
	}
	if len(client.requests) != 1 {
		t.Fatalf("expected one request, got %d", len(client.requests))
	}
	var body map[string]string
	if err := json.Unmarshal(client.requests[0].body, &body); err != nil {
		t.Fatalf("decode body failed: %v", err)
	}
	if body["language_id"] != "python3" || body["source_code"] != "print(121)\n" {
		t.Fatalf("unexpected body %v", body)
	}
	if !strings.Contains(out.String(), "HTTP 200") {
		t.Fatalf("response not rendered: %q", out.String())
	}
}

func TestExecPromptsForMissingFields(t *testing.T) {
	client := &fakeClient{}
	var out bytes.Buffer
	session := New(client, command.Registry(), true, strings.NewReader("run-42\n"), &out)

	if err := session.Exec(context.Background(), "run get"); err != nil {
		t.Fatalf("exec failed: %v", err)
	}
	if client.requests[0].path != "/api/v1/runs/run-42" {
		t.Fatalf("unexpected path %s", client.requests[0].path)
	}
	if !strings.Contains(out.String(), "run_id:") {
		t.Fatalf("expected prompt, got %q", out.String())
	}
}

func TestExecErrors(t *testing.T) {
	cases := []struct {
		line string
		want string
	}{
		{line: "run", want: "invalid command"},
		{line: "run fly", want: "unknown command"},
		{line: "run get id", want: "invalid param"},
		{line: `run exec code="unterminated`, want: "parse command failed"},
	}
	for _, tc := range cases {
		session := New(&fakeClient{}, command.Registry(), false, strings.NewReader(""), &bytes.Buffer{})
		err := session.Exec(context.Background(), tc.line)
		if err == nil || !strings.Contains(err.Error(), tc.want) {
			t.Fatalf("%q: expected error containing %q, got %v", tc.line, tc.want, err)
		}
	}
}

func TestRunHandlesSystemCommands(t *testing.T) {
	client := &fakeClient{}
	var out bytes.Buffer
	in := strings.NewReader("help\nset base http://other:1\nset timeout 3s\nlang list\nexit\nlang list\n")
	New(client, command.Registry(), false, in, &out).Run(context.Background())

	if client.baseURL != "http://other:1" || client.timeout != 3*time.Second {
		t.Fatalf("set commands not applied: %+v", client)
	}
	if len(client.requests) != 1 || client.requests[0].path != "/api/v1/languages" {
		t.Fatalf("expected a single languages request before exit, got %+v", client.requests)
	}
	if !strings.Contains(out.String(), "bye") {
		t.Fatalf("expected exit message, got %q", out.String())
	}
}
