// Package slides holds the declarative workflow library and the placeholder
// renderer used to fill slides with customer data.
package slides

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed workflows/*.yaml
var builtin embed.FS

var ErrUnknownWorkflow = errors.New("unknown workflow")

type Message struct {
	Role string `yaml:"role" json:"role"` // assistant|user
	Text string `yaml:"text" json:"text"`
}

type Action struct {
	ID    string `yaml:"id" json:"id"`
	Label string `yaml:"label" json:"label"`
	Kind  string `yaml:"kind" json:"kind"` // next|create_task|schedule|complete
}

// Slide is one screen of a guided workflow: a chat script plus a markdown document.
type Slide struct {
	ID       string    `yaml:"id" json:"id"`
	Title    string    `yaml:"title" json:"title"`
	Chat     []Message `yaml:"chat" json:"chat"`
	Document string    `yaml:"document" json:"document"`
	Actions  []Action  `yaml:"actions" json:"actions"`
}

type Workflow struct {
	ID          string  `yaml:"id" json:"id"`
	Name        string  `yaml:"name" json:"name"`
	Description string  `yaml:"description" json:"description"`
	Slides      []Slide `yaml:"slides" json:"slides"`
}

func (w Workflow) validate() error {
	if strings.TrimSpace(w.ID) == "" {
		return errors.New("workflow id is required")
	}
	if len(w.Slides) == 0 {
		return fmt.Errorf("workflow %s has no slides", w.ID)
	}
	seen := make(map[string]bool, len(w.Slides))
	for i, s := range w.Slides {
		if s.ID == "" {
			return fmt.Errorf("workflow %s slide %d has no id", w.ID, i)
		}
		if seen[s.ID] {
			return fmt.Errorf("workflow %s has duplicate slide %s", w.ID, s.ID)
		}
		seen[s.ID] = true
	}
	return nil
}

// Library is an immutable set of workflows keyed by id.
type Library struct {
	byID map[string]Workflow
}

// Builtin loads the workflows embedded in the binary.
func Builtin() (*Library, error) {
	sub, err := fs.Sub(builtin, "workflows")
	if err != nil {
		return nil, err
	}
	return Load(sub)
}

// Load parses every *.yaml / *.yml file at the root of fsys.
func Load(fsys fs.FS) (*Library, error) {
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return nil, err
	}

	lib := &Library{byID: make(map[string]Workflow)}
	for _, e := range entries {
		ext := path.Ext(e.Name())
		if e.IsDir() || (ext != ".yaml" && ext != ".yml") {
			continue
		}
		raw, err := fs.ReadFile(fsys, e.Name())
		if err != nil {
			return nil, err
		}
		var w Workflow
		if err := yaml.Unmarshal(raw, &w); err != nil {
			return nil, fmt.Errorf("parse %s: %w", e.Name(), err)
		}
		if err := w.validate(); err != nil {
			return nil, fmt.Errorf("%s: %w", e.Name(), err)
		}
		if _, dup := lib.byID[w.ID]; dup {
			return nil, fmt.Errorf("%s: duplicate workflow id %s", e.Name(), w.ID)
		}
		lib.byID[w.ID] = w
	}
	return lib, nil
}

func (l *Library) Get(id string) (Workflow, error) {
	w, ok := l.byID[id]
	if !ok {
		return Workflow{}, fmt.Errorf("%w: %s", ErrUnknownWorkflow, id)
	}
	return w, nil
}

// List returns all workflows ordered by id.
func (l *Library) List() []Workflow {
	out := make([]Workflow, 0, len(l.byID))
	for _, w := range l.byID {
		out = append(out, w)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
