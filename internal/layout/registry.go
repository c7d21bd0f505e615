// Package layout holds the fallback field layouts used when detection fails.
package layout

import (
	"fmt"
	"log"
	"sort"
	"strings"
	"sync"

	"github.com/spf13/viper"

	"github.com/a3tai/mcp-form-filler/internal/form"
)

// DefaultTemplateID names the built-in template
const DefaultTemplateID = "default"

// defaultTemplate is calibrated to the paper application form the service
// was first deployed against (A4, points, top-left origin).
var defaultTemplate = []form.Field{
	{Name: "Tarih", X: 450, Y: 120, Width: 100, Height: 20},
	{Name: "Adı", X: 150, Y: 200, Width: 200, Height: 20},
	{Name: "Soyadı", X: 150, Y: 230, Width: 200, Height: 20},
	{Name: "E-posta", X: 150, Y: 260, Width: 250, Height: 20},
	{Name: "Adres", X: 150, Y: 290, Width: 350, Height: 20},
}

// Registry maps template ids to their field lists
type Registry struct {
	mu        sync.RWMutex
	templates map[string][]form.Field
}

// NewRegistry returns a registry holding the built-in default template
func NewRegistry() *Registry {
	return &Registry{
		templates: map[string][]form.Field{
			DefaultTemplateID: form.CloneFields(defaultTemplate),
		},
	}
}

// Register adds or replaces a template. Ids are case-insensitive.
func (r *Registry) Register(id string, fields []form.Field) error {
	id = normalizeID(id)
	if id == "" {
		return fmt.Errorf("template id cannot be empty")
	}
	if len(fields) == 0 {
		return fmt.Errorf("template %q has no fields", id)
	}
	for i, f := range fields {
		if strings.TrimSpace(f.Name) == "" {
			return fmt.Errorf("template %q: field %d has no name", id, i)
		}
		if f.X < 0 || f.Y < 0 || f.Width < 0 || f.Height < 0 {
			return fmt.Errorf("template %q: field %q has negative geometry", id, f.Name)
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.templates[id] = form.CloneFields(fields)
	return nil
}

// Lookup returns a copy of the template's fields and the id that was
// actually used. Unknown ids fall back to the default template.
func (r *Registry) Lookup(id string) ([]form.Field, string) {
	key := normalizeID(id)
	if key == "" {
		key = DefaultTemplateID
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	if fields, ok := r.templates[key]; ok {
		return form.CloneFields(fields), key
	}
	log.Printf("layout: unknown template %q, using %q", id, DefaultTemplateID)
	return form.CloneFields(r.templates[DefaultTemplateID]), DefaultTemplateID
}

// Has reports whether a template with this id is registered
func (r *Registry) Has(id string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.templates[normalizeID(id)]
	return ok
}

// IDs returns the registered template ids in sorted order
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, 0, len(r.templates))
	for id := range r.templates {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// LoadFile registers every template found under the "templates" key of a
// YAML, JSON or TOML file:
//
//	templates:
//	  bank_form:
//	    - {name: Tarih, x: 430, y: 95, width: 100, height: 18}
func (r *Registry) LoadFile(path string) error {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("failed to read templates file: %w", err)
	}

	var templates map[string][]form.Field
	if err := v.UnmarshalKey("templates", &templates); err != nil {
		return fmt.Errorf("failed to decode templates: %w", err)
	}
	if len(templates) == 0 {
		return fmt.Errorf("no templates found in %s", path)
	}

	for id, fields := range templates {
		if err := r.Register(id, fields); err != nil {
			return err
		}
	}
	return nil
}

func normalizeID(id string) string {
	return strings.ToLower(strings.TrimSpace(id))
}
