// Package template provides templating for personalised journey action content.
package template

import (
	"fmt"
	"strings"
	"text/template"

	"github.com/dukex/journey/pkg/models"
)

var funcs = template.FuncMap{
	"upper": strings.ToUpper,
	"lower": strings.ToLower,
	"title": func(s string) string {
		if s == "" {
			return s
		}

		return strings.ToUpper(s[:1]) + s[1:]
	},
	"default": func(fallback string, value any) string {
		if value == nil {
			return fallback
		}

		if s := fmt.Sprint(value); s != "" {
			return s
		}

		return fallback
	},
}

// NeedsTemplating reports whether input contains template actions.
func NeedsTemplating(input string) bool {
	return strings.Contains(input, "{{")
}

// Render executes templateStr against data. Missing keys render as empty strings.
func Render(templateStr string, data any) (string, error) {
	if !NeedsTemplating(templateStr) {
		return templateStr, nil
	}

	tmpl, err := template.
		New("content").
		Option("missingkey=zero").
		Funcs(funcs).
		Parse(templateStr)
	if err != nil {
		return "", fmt.Errorf("failed to parse template '%s': %w", templateStr, err)
	}

	var buf strings.Builder

	err = tmpl.Execute(&buf, data)
	if err != nil {
		return "", fmt.Errorf("failed to execute template '%s': %w", templateStr, err)
	}

	return strings.ReplaceAll(buf.String(), "<no value>", ""), nil
}

// ActionData builds the data an action template is rendered with.
func ActionData(journey *models.Journey, contactID string, contact models.SimulationContact) map[string]any {
	return map[string]any{
		"contact":    contact.TemplateData(),
		"contact_id": contactID,
		"journey": map[string]any{
			"id":   journey.ID,
			"name": journey.Name,
		},
	}
}

// RenderAction renders every text field of an action. On failure the original
// configuration is returned together with the first error.
func RenderAction(action models.ActionConfig, data any) (models.ActionConfig, error) {
	rendered := action

	fields := []*string{&rendered.Title, &rendered.Body, &rendered.CTALabel, &rendered.CTAURL}
	for _, field := range fields {
		out, err := Render(*field, data)
		if err != nil {
			return action, err
		}

		*field = out
	}

	return rendered, nil
}
