package mail

import (
	"bytes"
	"embed"
	"fmt"
	"html"
	"html/template"
	"io/fs"
	"path"
	"strings"
)

//go:embed templates/*.html
var templateFS embed.FS

// Template names.
const (
	TemplateOTP           = "otp"
	TemplatePasswordReset = "password_reset"
	TemplateWelcome       = "welcome"
	TemplateTaskAssigned  = "task_assigned"
	TemplateTaskSubmitted = "task_submitted"
	TemplateTaskReviewed  = "task_reviewed"
	TemplateProjectMember = "project_member"
)

// TemplateData is the union of fields used by the message templates.
type TemplateData struct {
	Name      string
	Email     string
	Code      string
	Password  string
	ExpiresAt string
	Title     string
	Actor     string
	DueDate   string
	Approved  bool
}

// Renderer turns a template name and data into a subject and HTML body.
type Renderer struct {
	templates map[string]*template.Template
}

// NewRenderer parses the embedded templates. Each file defines a "subject"
// and a "body" block.
func NewRenderer() (*Renderer, error) {
	entries, err := fs.ReadDir(templateFS, "templates")
	if err != nil {
		return nil, err
	}

	r := &Renderer{templates: make(map[string]*template.Template, len(entries))}
	for _, entry := range entries {
		name := strings.TrimSuffix(entry.Name(), path.Ext(entry.Name()))
		tmpl, err := template.ParseFS(templateFS, path.Join("templates", entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("parse template %s: %w", name, err)
		}
		if tmpl.Lookup("subject") == nil || tmpl.Lookup("body") == nil {
			return nil, fmt.Errorf("template %s must define subject and body", name)
		}
		r.templates[name] = tmpl
	}
	return r, nil
}

// Render executes the named template.
func (r *Renderer) Render(name string, data TemplateData) (subject, body string, err error) {
	tmpl, ok := r.templates[name]
	if !ok {
		return "", "", fmt.Errorf("unknown mail template %q", name)
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "subject", data); err != nil {
		return "", "", fmt.Errorf("render %s subject: %w", name, err)
	}
	// headers are plain text
	subject = html.UnescapeString(strings.TrimSpace(buf.String()))

	buf.Reset()
	if err := tmpl.ExecuteTemplate(&buf, "body", data); err != nil {
		return "", "", fmt.Errorf("render %s body: %w", name, err)
	}
	return subject, strings.TrimSpace(buf.String()), nil
}
