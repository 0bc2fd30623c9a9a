package notes

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/cognicore/oncostage/pkg/oncostage/internalerr"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestReadText(t *testing.T) {
	path := writeFile(t, t.TempDir(), "note1.txt", "Glottic carcinoma, cT2N0M0.\n")
	n, err := Read(path)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if n.Name != "note1.txt" || n.Text != "Glottic carcinoma, cT2N0M0.\n" {
		t.Errorf("Read = %+v", n)
	}
}

func TestReadHTML(t *testing.T) {
	src := `<html><head><title>Export</title><style>p{color:red}</style></head>
<body><h1>Pathology</h1><p>Invasive   ductal carcinoma,<br>pT1c pN0.</p>
<script>alert("x")</script><ul><li>ER positive</li></ul></body></html>`
	path := writeFile(t, t.TempDir(), "note.html", src)

	n, err := Read(path)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	want := "Pathology\nInvasive ductal carcinoma,\npT1c pN0.\nER positive"
	if n.Text != want {
		t.Errorf("Text = %q, want %q", n.Text, want)
	}
	if strings.Contains(n.Text, "alert") || strings.Contains(n.Text, "color") {
		t.Error("script and style content must be dropped")
	}
}

func TestReadMissing(t *testing.T) {
	_, err := Read(filepath.Join(t.TempDir(), "nope.txt"))
	if !errors.Is(err, internalerr.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestListSortedAndFiltered(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "b.txt", "b")
	writeFile(t, dir, "a.md", "a")
	writeFile(t, dir, "c.HTML", "<p>c</p>")
	writeFile(t, dir, "ignore.pdf", "x")
	os.Mkdir(filepath.Join(dir, "sub.txt"), 0755)

	paths, err := List(dir)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	var names []string
	for _, p := range paths {
		names = append(names, filepath.Base(p))
	}
	if got := strings.Join(names, ","); got != "a.md,b.txt,c.HTML" {
		t.Errorf("List = %s", got)
	}
}

func TestListEmptyDir(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "readme.pdf", "x")
	if _, err := List(dir); !errors.Is(err, internalerr.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if _, err := ReadDir(filepath.Join(dir, "missing")); !errors.Is(err, internalerr.ErrNotFound) {
		t.Errorf("missing dir should be ErrNotFound, got %v", err)
	}
}

func TestReadDirWithBatch(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.txt", "lung adenocarcinoma")
	writeFile(t, dir, "b.jsonl", `{"name": "case-7", "text": "glottic carcinoma"}

{"text": "merkel cell carcinoma"}
{"name": "empty", "text": "  "}
`)

	got, err := ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 notes, got %d: %+v", len(got), got)
	}
	if got[0].Name != "a.txt" || got[1].Name != "case-7" || got[2].Name != "b.jsonl#3" {
		t.Errorf("names = %q, %q, %q", got[0].Name, got[1].Name, got[2].Name)
	}
}

func TestLoadJSONLMalformed(t *testing.T) {
	path := writeFile(t, t.TempDir(), "bad.jsonl", "{\"text\": \"ok\"}\n{broken\n")
	_, err := LoadJSONL(path)
	if !errors.Is(err, internalerr.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
	if !strings.Contains(err.Error(), "line 2") {
		t.Errorf("error should name the line: %v", err)
	}
}
