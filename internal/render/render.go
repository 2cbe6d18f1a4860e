// Package render resolves announcement templates against their variables.
//
// Templates use {name} placeholders with {{ and }} as literal braces.
// Rendering is total: any substitution problem yields the template
// unchanged.
package render

import (
	"fmt"
	"strings"

	"github.com/hammamikhairi/announcer/internal/domain"
)

// Render substitutes every {name} in template with vars[name]. If any
// placeholder is missing from vars or malformed, the raw template is
// returned. Keys in vars that the template does not use are ignored.
func Render(template string, vars map[string]string) string {
	out, err := Expand(template, vars)
	if err != nil {
		return template
	}
	return out
}

// Announcement renders a's template with a's variables.
func Announcement(a domain.Announcement) string {
	return Render(a.Template, a.Variables)
}

// Expand is Render with the failure reported. Errors wrap domain.ErrRender.
func Expand(template string, vars map[string]string) (string, error) {
	if !strings.ContainsAny(template, "{}") {
		return template, nil
	}

	var b strings.Builder
	b.Grow(len(template))
	err := scan(template, func(lit string) {
		b.WriteString(lit)
	}, func(name string) error {
		v, ok := vars[name]
		if !ok {
			return fmt.Errorf("%w: missing variable %q", domain.ErrRender, name)
		}
		b.WriteString(v)
		return nil
	})
	if err != nil {
		return "", err
	}
	return b.String(), nil
}

// Placeholders returns the distinct placeholder names in template, in order
// of first appearance.
func Placeholders(template string) ([]string, error) {
	var names []string
	seen := make(map[string]bool)
	err := scan(template, func(string) {}, func(name string) error {
		if !seen[name] {
			seen[name] = true
			names = append(names, name)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return names, nil
}

// Missing returns the placeholders of template that vars does not define.
func Missing(template string, vars map[string]string) ([]string, error) {
	names, err := Placeholders(template)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, n := range names {
		if _, ok := vars[n]; !ok {
			out = append(out, n)
		}
	}
	return out, nil
}

// scan walks template calling lit for literal runs and field for each
// placeholder name.
func scan(template string, lit func(string), field func(string) error) error {
	i := 0
	for i < len(template) {
		j := strings.IndexAny(template[i:], "{}")
		if j < 0 {
			lit(template[i:])
			return nil
		}
		j += i
		lit(template[i:j])

		c := template[j]
		if j+1 < len(template) && template[j+1] == c {
			lit(string(c))
			i = j + 2
			continue
		}
		if c == '}' {
			return fmt.Errorf("%w: single '}' at offset %d", domain.ErrRender, j)
		}

		end := strings.IndexAny(template[j+1:], "{}")
		if end < 0 || template[j+1+end] != '}' {
			return fmt.Errorf("%w: unclosed '{' at offset %d", domain.ErrRender, j)
		}
		name := template[j+1 : j+1+end]
		if err := checkName(name); err != nil {
			return err
		}
		if err := field(name); err != nil {
			return err
		}
		i = j + 1 + end + 1
	}
	return nil
}

// checkName accepts plain keyword names only. Positional fields, attribute
// or index access, conversions and format specs are rejected.
func checkName(name string) error {
	if name == "" {
		return fmt.Errorf("%w: empty placeholder", domain.ErrRender)
	}
	if strings.ContainsAny(name, ".[]!:") {
		return fmt.Errorf("%w: unsupported placeholder %q", domain.ErrRender, name)
	}
	if isDigits(name) {
		return fmt.Errorf("%w: positional placeholder %q", domain.ErrRender, name)
	}
	return nil
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
