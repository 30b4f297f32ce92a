package workflow

import "regexp"

var (
	variablePattern = regexp.MustCompile(`\{\{(\w+)\}\}`)
	identPattern    = regexp.MustCompile(`^\w+$`)
)

// RequiredInputs returns, in order of first use, the variables referenced by
// any step that no step produces.
func (w *Workflow) RequiredInputs() []string {
	produced := map[string]bool{}
	for _, s := range w.Steps {
		produced[s.OutputVariable] = true
	}

	seen := map[string]bool{}
	var inputs []string
	for _, s := range w.Steps {
		for _, m := range variablePattern.FindAllStringSubmatch(s.Prompt, -1) {
			name := m[1]
			if produced[name] || seen[name] {
				continue
			}
			seen[name] = true
			inputs = append(inputs, name)
		}
	}
	return inputs
}

// Substitute replaces each "{{name}}" in text with its value. References to
// unknown or empty variables are left as they are.
func Substitute(text string, vars map[string]string) string {
	return variablePattern.ReplaceAllStringFunc(text, func(ref string) string {
		name := variablePattern.FindStringSubmatch(ref)[1]
		if v := vars[name]; v != "" {
			return v
		}
		return ref
	})
}
