package notes

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"golang.org/x/net/html"

	"github.com/cognicore/oncostage/pkg/oncostage/internalerr"
)

// Note is one free-text medical note.
type Note struct {
	Name string // file name, or the record name for batch files
	Path string
	Text string
}

// Extensions read by List and ReadDir.
var Extensions = []string{".txt", ".md", ".html", ".htm", ".jsonl"}

// Read loads a single note. HTML exports are reduced to their text; every
// other file is read as UTF-8 text.
func Read(path string) (Note, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Note{}, fmt.Errorf("notes: %s: %w", path, internalerr.ErrNotFound)
		}
		return Note{}, fmt.Errorf("notes: read %s: %w", path, err)
	}

	text := string(data)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".html", ".htm":
		text, err = HTMLText(strings.NewReader(text))
		if err != nil {
			return Note{}, fmt.Errorf("notes: parse %s: %w", path, err)
		}
	}
	return Note{Name: filepath.Base(path), Path: path, Text: text}, nil
}

// List returns the note files in dir, sorted by name.
func List(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("notes: %s: %w", dir, internalerr.ErrNotFound)
		}
		return nil, fmt.Errorf("notes: list %s: %w", dir, err)
	}

	var paths []string
	for _, e := range entries {
		if e.IsDir() || !noteExt(e.Name()) {
			continue
		}
		paths = append(paths, filepath.Join(dir, e.Name()))
	}
	sort.Strings(paths)
	if len(paths) == 0 {
		return nil, fmt.Errorf("notes: no note files in %s: %w", dir, internalerr.ErrNotFound)
	}
	return paths, nil
}

// ReadDir reads every note in dir. Batch files (.jsonl) contribute one note
// per record.
func ReadDir(dir string) ([]Note, error) {
	paths, err := List(dir)
	if err != nil {
		return nil, err
	}
	var out []Note
	for _, p := range paths {
		if strings.EqualFold(filepath.Ext(p), ".jsonl") {
			batch, err := LoadJSONL(p)
			if err != nil {
				return nil, err
			}
			out = append(out, batch...)
			continue
		}
		n, err := Read(p)
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, nil
}

func noteExt(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, e := range Extensions {
		if ext == e {
			return true
		}
	}
	return false
}

// batchRecord is one line of a .jsonl note batch.
type batchRecord struct {
	Name string `json:"name"`
	Text string `json:"text"`
}

// LoadJSONL reads a batch of notes, one JSON object per line. Blank lines and
// records without text are skipped; a malformed line is an error naming it.
func LoadJSONL(path string) ([]Note, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("notes: open %s: %w", path, err)
	}
	defer f.Close()

	var out []Note
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	line := 0
	for sc.Scan() {
		line++
		raw := strings.TrimSpace(sc.Text())
		if raw == "" {
			continue
		}
		var rec batchRecord
		if err := json.Unmarshal([]byte(raw), &rec); err != nil {
			return nil, fmt.Errorf("notes: %s line %d: %v: %w", path, line, err, internalerr.ErrInvalidInput)
		}
		if strings.TrimSpace(rec.Text) == "" {
			continue
		}
		name := rec.Name
		if name == "" {
			name = fmt.Sprintf("%s#%d", filepath.Base(path), line)
		}
		out = append(out, Note{Name: name, Path: path, Text: rec.Text})
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("notes: scan %s: %w", path, err)
	}
	return out, nil
}

// blockTags end a line of text when they close.
var blockTags = map[string]bool{
	"p": true, "div": true, "br": true, "li": true, "tr": true, "table": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"pre": true, "section": true, "article": true, "header": true, "footer": true,
}

// HTMLText extracts the visible text of an HTML document. Script and style
// content is dropped and block elements end a line.
func HTMLText(r io.Reader) (string, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return "", err
	}

	var buf strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && (n.Data == "script" || n.Data == "style" || n.Data == "head") {
			return
		}
		if n.Type == html.TextNode {
			buf.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
		if n.Type == html.ElementNode && blockTags[n.Data] {
			buf.WriteByte('\n')
		}
	}
	walk(doc)

	lines := strings.Split(buf.String(), "\n")
	kept := lines[:0]
	for _, l := range lines {
		l = strings.Join(strings.Fields(l), " ")
		if l != "" {
			kept = append(kept, l)
		}
	}
	return strings.Join(kept, "\n"), nil
}
