// Package template renders {{variable}} placeholders in note content.
// Unknown variables are left untouched so the author can spot them.
package template

import (
	"regexp"
	"strings"
	"time"
)

var varRe = regexp.MustCompile(`\{\{([^}]+)\}\}`)

// Render substitutes {{name}} placeholders from vars, with built-in
// date, time, datetime, and title defaults. Caller-supplied vars win
// over the built-ins.
func Render(content string, vars map[string]string) string {
	now := time.Now()
	all := map[string]string{
		"date":     now.Format("2006-01-02"),
		"time":     now.Format("15:04"),
		"datetime": now.Format("2006-01-02 15:04"),
		"title":    "Untitled",
	}
	for k, v := range vars {
		all[k] = v
	}

	return varRe.ReplaceAllStringFunc(content, func(m string) string {
		name := strings.TrimSpace(m[2 : len(m)-2])
		if v, ok := all[name]; ok {
			return v
		}
		return m
	})
}

// Variables lists the distinct placeholder names in content.
func Variables(content string) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, m := range varRe.FindAllStringSubmatch(content, -1) {
		name := strings.TrimSpace(m[1])
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		out = append(out, name)
	}
	return out
}
