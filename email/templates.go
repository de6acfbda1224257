package email

import (
	"bytes"
	"fmt"

	"github.com/gofiber/template/html"
)

const (
	TemplateWelcome      = "welcome"
	TemplateDailyTasks   = "daily_tasks"
	TemplateTaskAssigned = "task_assigned"
)

// Templates renders the HTML e-mail bodies found in a directory.
type Templates struct {
	engine *html.Engine
}

func LoadTemplates(dir string) (*Templates, error) {
	engine := html.New(dir, ".html")
	if err := engine.Load(); err != nil {
		return nil, fmt.Errorf("failed to load email templates from %s: %w", dir, err)
	}
	return &Templates{engine: engine}, nil
}

func (t *Templates) Render(name string, data interface{}) (string, error) {
	var buf bytes.Buffer
	if err := t.engine.Render(&buf, name, data); err != nil {
		return "", fmt.Errorf("failed to render email template %s: %w", name, err)
	}
	return buf.String(), nil
}
