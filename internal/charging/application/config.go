package application

import (
	"fmt"
	"os"
	"sort"
	"sync"

	"gopkg.in/yaml.v3"
)

// libraryFile is the on-disk shape of a template library: a named list
// of templates.
type libraryFile struct {
	Templates []Template `yaml:"templates"`
}

// TemplateLibrary holds the named charge templates available to the
// service. Loaded once at startup; Put exists so operators can push
// replacements at runtime.
type TemplateLibrary struct {
	mu        sync.RWMutex
	templates map[string]Template
}

// NewTemplateLibrary constructs an empty library.
func NewTemplateLibrary() *TemplateLibrary {
	return &TemplateLibrary{templates: make(map[string]Template)}
}

// LoadTemplateLibrary reads a YAML library file, validates every
// template, and returns the loaded library. Path comes from
// TEMPLATE_LIBRARY when empty.
func LoadTemplateLibrary(path string) (*TemplateLibrary, error) {
	if path == "" {
		path = os.Getenv("TEMPLATE_LIBRARY")
	}
	library := NewTemplateLibrary()
	if path == "" {
		return library, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var file libraryFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("template library: %w", err)
	}
	for _, template := range file.Templates {
		if err := library.Put(template); err != nil {
			return nil, err
		}
	}
	return library, nil
}

// Put validates and stores a template under its name.
func (l *TemplateLibrary) Put(template Template) error {
	if template.Name == "" {
		return fmt.Errorf("template library: template without a name")
	}
	if err := template.Validate(); err != nil {
		return fmt.Errorf("template library: %q: %w", template.Name, err)
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.templates[template.Name] = template
	return nil
}

// Get returns the named template.
func (l *TemplateLibrary) Get(name string) (Template, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	template, ok := l.templates[name]
	return template, ok
}

// Names lists the stored template names sorted.
func (l *TemplateLibrary) Names() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	names := make([]string, 0, len(l.templates))
	for name := range l.templates {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
