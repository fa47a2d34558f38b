package command

import (
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestBuildRunRequest(t *testing.T) {
	cmd := Registry()["run exec"]
	params := Params{}
	params.Set("lang", "python3")
	params.Set("code", "print(input())")
	params.Set("stdin", "hi\n")

	req, err := BuildRequest(cmd, params)
	if err != nil {
		t.Fatalf("build request failed: %v", err)
	}
	if req.Method != http.MethodPost || req.Path != "/api/v1/runs" {
		t.Fatalf("unexpected request %s %s", req.Method, req.Path)
	}
	var body map[string]string
	if err := json.Unmarshal(req.Body, &body); err != nil {
		t.Fatalf("decode body failed: %v", err)
	}
	if body["language_id"] != "python3" || body["source_code"] != "print(input())" || body["input"] != "hi\n" {
		t.Fatalf("unexpected body %v", body)
	}
}

func TestBuildRunRequestReadsFiles(t *testing.T) {
	dir := t.TempDir()
	source := filepath.Join(dir, "prog.c")
	input := filepath.Join(dir, "prog.in")
	if err := os.WriteFile(source, []byte("int main(void){return 0;}"), 0o644); err != nil {
		t.Fatalf("write source failed: %v", err)
	}
	if err := os.WriteFile(input, []byte("42\n"), 0o644); err != nil {
		t.Fatalf("write input failed: %v", err)
	}

	params := Params{}
	params.Set("language_id", "c")
	params.Set("source_code", FileMarker)
	params.Set("file", source)
	params.Set("input_file", input)
	req, err := BuildRequest(Registry()["run exec"], params)
	if err != nil {
		t.Fatalf("build request failed: %v", err)
	}
	if !strings.Contains(string(req.Body), "int main(void)") || !strings.Contains(string(req.Body), `"input":"42\n"`) {
		t.Fatalf("file contents missing from body: %s", req.Body)
	}
}

func TestBuildRequestErrors(t *testing.T) {
	cases := []struct {
		name   string
		cmd    string
		params map[string]string
		want   string
	}{
		{name: "missing run id", cmd: "run get", want: "missing path parameter"},
		{name: "missing source", cmd: "run exec", params: map[string]string{"language_id": "c"}, want: "source_code is required"},
		{name: "unreadable file", cmd: "run exec", params: map[string]string{"language_id": "c", "source_file": "/nonexistent/prog.c"}, want: "read file failed"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			params := Params{}
			for k, v := range tc.params {
				params.Set(k, v)
			}
			_, err := BuildRequest(Registry()[tc.cmd], params)
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected error containing %q, got %v", tc.want, err)
			}
		})
	}
}

func TestBuildGetRequest(t *testing.T) {
	params := Params{}
	params.Set("run_id", "abc-123")
	req, err := BuildRequest(Registry()["run get"], params)
	if err != nil {
		t.Fatalf("build request failed: %v", err)
	}
	if req.Path != "/api/v1/runs/abc-123" || req.Body != nil {
		t.Fatalf("unexpected request %+v", req)
	}
}
