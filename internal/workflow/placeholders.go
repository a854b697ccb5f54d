package workflow

import (
	"fmt"
	"regexp"
	"strings"
)

// placeholderRe matches ${output}, ${input} and ${<step>.<output>}
var placeholderRe = regexp.MustCompile(`\$\{([^}.]+)(?:\.([^}]+))?\}`)

// Reference is a ${step.output} placeholder found in step parameters
type Reference struct {
	Step   string
	Output string
}

// vars holds the values placeholders resolve to
type vars struct {
	input   string
	output  string
	results map[string]map[string]string // step name -> outputs
}

// references lists the step outputs a value refers to, walking nested
// lists and maps.
func references(v interface{}) []Reference {
	var refs []Reference
	walkStrings(v, func(s string) {
		for _, m := range placeholderRe.FindAllStringSubmatch(s, -1) {
			if m[2] != "" {
				refs = append(refs, Reference{Step: m[1], Output: m[2]})
			}
		}
	})
	return refs
}

// usesInput reports whether v contains ${input}
func usesInput(v interface{}) bool {
	found := false
	walkStrings(v, func(s string) {
		if strings.Contains(s, "${input}") {
			found = true
		}
	})
	return found
}

func walkStrings(v interface{}, fn func(string)) {
	switch t := v.(type) {
	case string:
		fn(t)
	case []interface{}:
		for _, e := range t {
			walkStrings(e, fn)
		}
	case map[string]interface{}:
		for _, e := range t {
			walkStrings(e, fn)
		}
	}
}

// resolve returns a copy of v with every placeholder substituted
func (vs vars) resolve(v interface{}) (interface{}, error) {
	switch t := v.(type) {
	case string:
		return vs.resolveString(t)
	case []interface{}:
		out := make([]interface{}, len(t))
		for i, e := range t {
			r, err := vs.resolve(e)
			if err != nil {
				return nil, err
			}
			out[i] = r
		}
		return out, nil
	case map[string]interface{}:
		out := make(map[string]interface{}, len(t))
		for k, e := range t {
			r, err := vs.resolve(e)
			if err != nil {
				return nil, err
			}
			out[k] = r
		}
		return out, nil
	default:
		return v, nil
	}
}

func (vs vars) resolveString(s string) (string, error) {
	var firstErr error
	out := placeholderRe.ReplaceAllStringFunc(s, func(match string) string {
		m := placeholderRe.FindStringSubmatch(match)
		name, key := m[1], m[2]
		if key == "" {
			switch name {
			case "output":
				return vs.output
			case "input":
				if vs.input == "" && firstErr == nil {
					firstErr = fmt.Errorf("%s used but no workflow input was given", match)
				}
				return vs.input
			}
			if firstErr == nil {
				firstErr = fmt.Errorf("unknown placeholder %s", match)
			}
			return match
		}

		outputs, ok := vs.results[name]
		if !ok {
			if firstErr == nil {
				firstErr = fmt.Errorf("%s refers to step %q which has not run", match, name)
			}
			return match
		}
		val, ok := outputs[key]
		if !ok {
			if firstErr == nil {
				firstErr = fmt.Errorf("%s: step %q produced no output %q", match, name, key)
			}
			return match
		}
		return val
	})
	if firstErr != nil {
		return "", firstErr
	}
	return out, nil
}
