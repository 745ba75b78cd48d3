package main

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gofhir/disorder/config"
	"github.com/gofhir/disorder/pkg/logger"
	"github.com/gofhir/disorder/vocabulary"
)

const testCodeSystem = `{
	"resourceType": "CodeSystem",
	"url": "https://omim.org",
	"status": "active",
	"content": "fragment",
	"concept": [
		{"code": "190685", "display": "Down Syndrome"},
		{"code": "219700", "display": "Cystic Fibrosis"}
	]
}`

func writeCodeSystem(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "CodeSystem-omim.json")
	if err := os.WriteFile(path, []byte(testCodeSystem), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	// Keep the environment from leaking into the command's config.
	t.Setenv(config.EnvEndpointURL, "")
	t.Setenv(config.EnvEndpointMode, "")

	var out, errOut bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestResolve_LocalVocabulary(t *testing.T) {
	out, err := execute(t, "resolve", "--codesystem", writeCodeSystem(t), "190685", "MIM:219700", "Unlisted syndrome")
	if err != nil {
		t.Fatalf("resolve error = %v", err)
	}

	want := []string{
		"190685\tDown Syndrome",
		"MIM:219700\tCystic Fibrosis",
		"Unlisted syndrome\tUnlisted syndrome",
	}
	for _, w := range want {
		if !strings.Contains(out, w+"\n") {
			t.Errorf("output missing %q:\n%s", w, out)
		}
	}
}

func TestResolve_JSONAndFailures(t *testing.T) {
	out, err := execute(t, "resolve", "--codesystem", writeCodeSystem(t), "--format", "json", "190685", "MIM:1")
	if err == nil || !strings.Contains(err.Error(), "1 of 2") {
		t.Errorf("resolve error = %v; want one failed lookup", err)
	}

	var outputs []ResolveOutput
	if err := json.Unmarshal([]byte(out), &outputs); err != nil {
		t.Fatalf("invalid JSON output: %v\n%s", err, out)
	}
	if len(outputs) != 2 {
		t.Fatalf("got %d outputs; want 2", len(outputs))
	}
	if outputs[0].Name != "Down Syndrome" || outputs[0].State != "resolved" {
		t.Errorf("outputs[0] = %+v", outputs[0])
	}
	if outputs[1].Name != "MIM:1" || outputs[1].State != "failed" || outputs[1].Error == "" {
		t.Errorf("outputs[1] = %+v", outputs[1])
	}
}

func TestResolve_RemoteEndpoint(t *testing.T) {
	vocab := vocabulary.NewService()
	vocab.Add("MIM:190685", "Down Syndrome")
	srv := httptest.NewServer(vocab.Handler(logger.Discard()))
	defer srv.Close()

	out, err := execute(t, "resolve", "--endpoint", srv.URL+"/disorders/{code}", "190685")
	if err != nil {
		t.Fatalf("resolve error = %v", err)
	}
	if out != "190685\tDown Syndrome\n" {
		t.Errorf("output = %q", out)
	}
}

func TestResolve_Errors(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"no ids", []string{"resolve"}},
		{"bad format", []string{"resolve", "--format", "xml", "190685"}},
		{"bad mode", []string{"resolve", "--mode", "soap", "190685"}},
		{"template without placeholder", []string{"resolve", "--endpoint", "http://x/disorders", "190685"}},
		{"missing codesystem", []string{"resolve", "--codesystem", "/nonexistent/cs.json", "190685"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := execute(t, tt.args...); err == nil {
				t.Errorf("execute(%v) should fail", tt.args)
			}
		})
	}
}

func TestServeHandler(t *testing.T) {
	g := &globalOptions{codeSystems: []string{writeCodeSystem(t)}}
	cfg := config.Default()
	log := logger.Discard()

	vocab, err := g.loadVocabulary(log)
	if err != nil {
		t.Fatal(err)
	}
	svc, err := g.newService(cfg, vocab, log)
	if err != nil {
		t.Fatal(err)
	}
	h, err := newServeHandler(svc, vocab, log)
	if err != nil {
		t.Fatal(err)
	}
	srv := httptest.NewServer(h)
	defer srv.Close()

	get := func(path string) (int, string) {
		t.Helper()
		resp, err := http.Get(srv.URL + path)
		if err != nil {
			t.Fatal(err)
		}
		defer resp.Body.Close()
		body, _ := io.ReadAll(resp.Body)
		return resp.StatusCode, string(body)
	}

	if code, body := get("/disorders/MIM:190685"); code != http.StatusOK || !strings.Contains(body, "Down Syndrome") {
		t.Errorf("/disorders = %d %s", code, body)
	}

	code, body := get("/resolve/219700")
	if code != http.StatusOK {
		t.Fatalf("/resolve status = %d", code)
	}
	var out ResolveOutput
	if err := json.Unmarshal([]byte(body), &out); err != nil {
		t.Fatalf("invalid /resolve body: %v", err)
	}
	if out.Name != "Cystic Fibrosis" || out.State != "resolved" {
		t.Errorf("/resolve = %+v", out)
	}

	if code, body := get("/metrics"); code != http.StatusOK || !strings.Contains(body, `disorder_lookups_total{outcome="resolved"} 1`) {
		t.Errorf("/metrics = %d, missing resolved counter", code)
	}
}
