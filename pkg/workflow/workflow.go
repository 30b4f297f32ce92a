// Package workflow runs multi-step prompt pipelines. Each step's prompt may
// reference "{{name}}" variables: workflow inputs, or the output of an
// earlier step.
package workflow

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"slices"
	"strings"

	"github.com/BurntSushi/toml"
)

// Step types. They are labels only; every step is a prompt turn.
const (
	StepPrompt    = "prompt"
	StepTransform = "transform"
	StepCondition = "condition"
	StepOutput    = "output"
)

// Step is one prompt in a workflow.
type Step struct {
	ID             string `toml:"id"`
	Name           string `toml:"name"`
	Type           string `toml:"type"`
	Prompt         string `toml:"prompt"`
	OutputVariable string `toml:"output_variable"`
}

// Workflow is an ordered list of steps.
type Workflow struct {
	Name        string `toml:"name"`
	Description string `toml:"description"`
	Steps       []Step `toml:"steps"`
}

//go:embed templates/*.toml
var templates embed.FS

// Load reads a workflow TOML file.
func Load(file string) (*Workflow, error) {
	data, err := os.ReadFile(file)
	if err != nil {
		return nil, fmt.Errorf("reading workflow: %w", err)
	}
	return Parse(data)
}

// Parse decodes and validates a workflow document.
func Parse(data []byte) (*Workflow, error) {
	var wf Workflow
	md, err := toml.Decode(string(data), &wf)
	if err != nil {
		return nil, fmt.Errorf("parsing workflow: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("parsing workflow: unknown keys %v", undecoded)
	}
	if err := wf.Validate(); err != nil {
		return nil, err
	}
	return &wf, nil
}

// Validate checks that every step has a prompt and a unique id and output
// variable. Missing ids and types are filled in.
func (w *Workflow) Validate() error {
	if len(w.Steps) == 0 {
		return errors.New("workflow has no steps")
	}

	ids := map[string]bool{}
	outputs := map[string]bool{}
	for i := range w.Steps {
		s := &w.Steps[i]
		if s.ID == "" {
			s.ID = fmt.Sprintf("step-%d", i+1)
		}
		if s.Type == "" {
			s.Type = StepPrompt
		}
		if !slices.Contains([]string{StepPrompt, StepTransform, StepCondition, StepOutput}, s.Type) {
			return fmt.Errorf("step %s: unknown type %q", s.ID, s.Type)
		}
		if strings.TrimSpace(s.Prompt) == "" {
			return fmt.Errorf("step %s: prompt is required", s.ID)
		}
		if !identPattern.MatchString(s.OutputVariable) {
			return fmt.Errorf("step %s: invalid output variable %q", s.ID, s.OutputVariable)
		}
		if ids[s.ID] {
			return fmt.Errorf("duplicate step id %q", s.ID)
		}
		if outputs[s.OutputVariable] {
			return fmt.Errorf("duplicate output variable %q", s.OutputVariable)
		}
		ids[s.ID] = true
		outputs[s.OutputVariable] = true
	}
	return nil
}

// Templates returns the built-in workflows keyed by file name without
// extension.
func Templates() (map[string]*Workflow, error) {
	entries, err := fs.ReadDir(templates, "templates")
	if err != nil {
		return nil, err
	}
	out := make(map[string]*Workflow, len(entries))
	for _, e := range entries {
		data, err := fs.ReadFile(templates, "templates/"+e.Name())
		if err != nil {
			return nil, err
		}
		wf, err := Parse(data)
		if err != nil {
			return nil, fmt.Errorf("template %s: %w", e.Name(), err)
		}
		out[strings.TrimSuffix(e.Name(), path.Ext(e.Name()))] = wf
	}
	return out, nil
}
