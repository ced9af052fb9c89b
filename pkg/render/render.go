// Package render executes the HTML templates embedded in the binary.
package render

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"strings"
)

//go:embed templates/*.tmpl
var templatesFS embed.FS

// Engine renders the embedded templates.
type Engine struct {
	templates *template.Template
}

// New parses every embedded template.
func New() (*Engine, error) {
	t, err := template.New("render").Funcs(template.FuncMap{
		"upper": strings.ToUpper,
	}).ParseFS(templatesFS, "templates/*.tmpl")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	return &Engine{templates: t}, nil
}

// Render executes the named template with data.
func (e *Engine) Render(name string, data any) ([]byte, error) {
	if e == nil || e.templates == nil {
		return nil, errors.New("nil engine")
	}

	var buf bytes.Buffer
	if err := e.templates.ExecuteTemplate(&buf, name, data); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
