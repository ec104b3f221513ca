package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Comcast/blockwright/store"
)

func testService(t *testing.T) *Service {
	t.Helper()

	defs := t.TempDir()
	if err := os.MkdirAll(filepath.Join(defs, "Messages"), 0755); err != nil {
		t.Fatal(err)
	}
	files := map[string]string{
		"Messages/.color": "330",
		"Messages/say.yaml": `
type: say
message: "say %1"
args:
  - kind: field_text
    name: text
previous: true
next: true
max: 1
generator: |
  return "reply('" + field('text') + "');";
`,
	}
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(defs, name), []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
	}

	return &Service{
		Config: &Config{DefsDir: defs},
		Store:  store.NewMem(),
		CanConfigure: func(actor, guild string) bool {
			return actor == "alice"
		},
		Example: []byte("<xml>example</xml>"),
	}
}

func postSave(t *testing.T, svc *Service, guild, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest("POST", "/save?guild="+guild, bytes.NewReader([]byte(body)))
	w := httptest.NewRecorder()
	svc.mux().ServeHTTP(w, req)
	return w
}

func TestSaveAndEditor(t *testing.T) {
	svc := testService(t)

	body := `{
		"actor": "alice",
		"workspace": "<xml>real</xml>",
		"program": {"events": {"message": [{"type":"say","fields":{"text":"hi"}}]}}
	}`

	if w := postSave(t, svc, "g1", body); w.Code != 200 {
		t.Fatalf("save: %d %s", w.Code, w.Body.String())
	}

	// The bundle landed.
	b, err := svc.Store.ReadBundle(context.Background(), "g1")
	if err != nil {
		t.Fatal(err)
	}
	if b == nil || b.PerEvent["message"] != "reply('hi');" {
		t.Fatalf("bundle: %#v", b)
	}

	// The editor now sees the saved workspace rather than the
	// example.
	req := httptest.NewRequest("GET", "/editor?guild=g1", nil)
	w := httptest.NewRecorder()
	svc.mux().ServeHTTP(w, req)
	if w.Code != 200 {
		t.Fatalf("editor: %d %s", w.Code, w.Body.String())
	}

	var resp struct {
		Workspace  string `json:"workspace"`
		ToolboxXML string `json:"toolboxXml"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Workspace != "<xml>real</xml>" {
		t.Fatalf("workspace: %q", resp.Workspace)
	}
	if !strings.Contains(resp.ToolboxXML, `<block type="say">`) {
		t.Fatalf("toolbox: %q", resp.ToolboxXML)
	}
}

func TestEditorExample(t *testing.T) {
	svc := testService(t)

	req := httptest.NewRequest("GET", "/editor?guild=g1", nil)
	w := httptest.NewRecorder()
	svc.mux().ServeHTTP(w, req)

	var resp struct {
		Workspace string `json:"workspace"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Workspace != "<xml>example</xml>" {
		t.Fatalf("workspace: %q", resp.Workspace)
	}
}

func TestSaveForbidden(t *testing.T) {
	svc := testService(t)

	body := `{"actor": "mallory", "program": {"events": {}}}`
	if w := postSave(t, svc, "g1", body); w.Code != 403 {
		t.Fatalf("got %d", w.Code)
	}
}

func TestSaveViolations(t *testing.T) {
	svc := testService(t)

	// Two instances of a max-1 block: reported, not saved.
	body := `{
		"actor": "alice",
		"program": {"events": {"message": [
			{"type":"say","fields":{"text":"a"}},
			{"type":"say","fields":{"text":"b"}}
		]}}
	}`

	w := postSave(t, svc, "g1", body)
	if w.Code != 422 {
		t.Fatalf("got %d %s", w.Code, w.Body.String())
	}

	b, err := svc.Store.ReadBundle(context.Background(), "g1")
	if err != nil {
		t.Fatal(err)
	}
	if b != nil {
		t.Fatalf("violating program was saved: %#v", b)
	}
}

func TestSaveCompileError(t *testing.T) {
	svc := testService(t)

	body := `{"actor": "alice", "program": {"events": {"message": [{"type":"nope"}]}}}`
	w := postSave(t, svc, "g1", body)
	if w.Code != 422 {
		t.Fatalf("got %d %s", w.Code, w.Body.String())
	}

	var resp struct {
		Error *struct {
			Kind string `json:"kind"`
		} `json:"error"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Error == nil || resp.Error.Kind != "unknown-block-type" {
		t.Fatalf("got %s", w.Body.String())
	}
}
