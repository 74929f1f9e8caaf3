package email

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
)

//go:embed templates/*.html
var templateFS embed.FS

type baseEmailData struct {
	Title      string
	Heading    string
	Subheading string
}

type leadAssignedEmailData struct {
	baseEmailData
	Lead LeadNotice
}

type followUpDueEmailData struct {
	baseEmailData
	Lead          LeadNotice
	ScheduledDate string
}

func renderEmailTemplate(name string, data any) (string, error) {
	templates := []string{"templates/base.html", "templates/lead_details.html", "templates/" + name}
	tmpl, err := template.New("base.html").ParseFS(templateFS, templates...)
	if err != nil {
		return "", fmt.Errorf("parse email template %s: %w", name, err)
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "email", data); err != nil {
		return "", fmt.Errorf("execute email template %s: %w", name, err)
	}
	return buf.String(), nil
}

func leadName(lead LeadNotice) string {
	if lead.LeadName == "" {
		return "unnamed lead"
	}
	return lead.LeadName
}
