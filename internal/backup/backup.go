// Package backup exports and restores the full task and settings state as a
// single JSON document.
package backup

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/atotto/clipboard"
	"github.com/dori/chalk/internal/model"
	jsonschema "github.com/santhosh-tekuri/jsonschema/v5"
)

// CurrentVersion is written into every exported document
const CurrentVersion = 1

//go:embed schema.json
var schemaJSON string

const schemaURL = "chalk-backup.schema.json"

// ErrMalformed is returned when the input is not JSON at all
var ErrMalformed = errors.New("backup is not valid JSON")

// ValidationError describes the first schema violation found
type ValidationError struct {
	Path    string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("invalid backup at %s: %s", e.Path, e.Message)
	}
	return "invalid backup: " + e.Message
}

// Document is the on-disk backup format
type Document struct {
	Version    int            `json:"version"`
	ExportedAt time.Time      `json:"exportedAt"`
	Tasks      []model.Task   `json:"tasks"`
	Settings   model.Settings `json:"settings"`
}

// NewDocument snapshots tasks and settings for export
func NewDocument(tasks []model.Task, settings model.Settings, now time.Time) Document {
	if tasks == nil {
		tasks = []model.Task{}
	}
	settings = settings.Clone()
	return Document{
		Version:    CurrentVersion,
		ExportedAt: now.UTC(),
		Tasks:      tasks,
		Settings:   settings,
	}
}

// Export writes doc as indented JSON
func Export(w io.Writer, doc Document) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("encode backup: %w", err)
	}
	return nil
}

// FileName returns the export file name for a backup taken at t
func FileName(t time.Time) string {
	return fmt.Sprintf("chalk-backup-%s.json", t.Local().Format("20060102-150405"))
}

// WriteFile writes doc into dir and returns the file path
func WriteFile(dir string, doc Document) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("create export dir: %w", err)
	}

	var buf bytes.Buffer
	if err := Export(&buf, doc); err != nil {
		return "", err
	}

	path := filepath.Join(dir, FileName(doc.ExportedAt))
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		return "", fmt.Errorf("write backup: %w", err)
	}
	return path, nil
}

// CopyToClipboard puts the backup JSON on the system clipboard
func CopyToClipboard(doc Document) error {
	var buf bytes.Buffer
	if err := Export(&buf, doc); err != nil {
		return err
	}
	if err := clipboard.WriteAll(buf.String()); err != nil {
		return fmt.Errorf("copy backup to clipboard: %w", err)
	}
	return nil
}

// ReadFile parses and validates the backup at path
func ReadFile(path string) (*Document, error) {
	f, err := os.Open(expandHome(path))
	if err != nil {
		return nil, fmt.Errorf("open backup: %w", err)
	}
	defer f.Close()
	return Parse(f)
}

// Parse decodes and validates a backup. Nothing is returned unless the whole
// document is valid.
func Parse(r io.Reader) (*Document, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read backup: %w", err)
	}

	var raw interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	schema, err := compiledSchema()
	if err != nil {
		return nil, err
	}
	if err := schema.Validate(raw); err != nil {
		return nil, toValidationError(err)
	}

	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return &doc, nil
}

var (
	schemaOnce sync.Once
	schema     *jsonschema.Schema
	schemaErr  error
)

func compiledSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		compiler.AssertFormat = true
		if err := compiler.AddResource(schemaURL, strings.NewReader(schemaJSON)); err != nil {
			schemaErr = fmt.Errorf("load backup schema: %w", err)
			return
		}
		schema, schemaErr = compiler.Compile(schemaURL)
		if schemaErr != nil {
			schemaErr = fmt.Errorf("compile backup schema: %w", schemaErr)
		}
	})
	return schema, schemaErr
}

// toValidationError reduces a schema error tree to its first leaf.
func toValidationError(err error) error {
	var ve *jsonschema.ValidationError
	if !errors.As(err, &ve) {
		return &ValidationError{Message: err.Error()}
	}
	for len(ve.Causes) > 0 {
		ve = ve.Causes[0]
	}
	return &ValidationError{
		Path:    jsonPointerToPath(ve.InstanceLocation),
		Message: ve.Message,
	}
}

// jsonPointerToPath turns /tasks/0/id into tasks[0].id
func jsonPointerToPath(ptr string) string {
	ptr = strings.TrimPrefix(strings.TrimPrefix(ptr, "#"), "/")
	if ptr == "" {
		return ""
	}
	var b strings.Builder
	for i, part := range strings.Split(ptr, "/") {
		if isIndex(part) {
			b.WriteString("[" + part + "]")
			continue
		}
		if i > 0 {
			b.WriteByte('.')
		}
		b.WriteString(part)
	}
	return b.String()
}

func isIndex(s string) bool {
	if s == "" {
		return false
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

func expandHome(p string) string {
	if strings.HasPrefix(p, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, p[2:])
		}
	}
	return p
}
