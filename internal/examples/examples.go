// Package examples bundles the station's example programs. They back the
// examples command, the workbench picker, and the API, and double as known
// good fixtures elsewhere.
package examples

import (
	"embed"
	"fmt"
	"path"
	"path/filepath"
	"strings"
)

//go:embed programs/*.robot
var programsFS embed.FS

// Extensions are the program file extensions the tool accepts
var Extensions = []string{".robot", ".txt", ".abb"}

// Example is one bundled program
type Example struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Source      string `json:"source"`
}

var descriptions = map[string]string{
	"basic":            "declare the arm, set a pace, drive each joint once",
	"negatives":        "negative values swing the arm the other way",
	"repeat-negatives": "a repeat block sweeping back and forth across the base",
	"pick-and-place":   "a full pick cycle with per-phase speed changes",
	"full-inspection":  "inspection loop in the original station's Spanish keywords",
}

// List returns every bundled example in name order
func List() []Example {
	entries, err := programsFS.ReadDir("programs")
	if err != nil {
		// The directory is embedded at build time; not having it is a
		// packaging bug, not a runtime condition.
		panic(fmt.Sprintf("examples: embedded programs missing: %v", err))
	}

	out := make([]Example, 0, len(entries))
	for _, entry := range entries {
		name := strings.TrimSuffix(entry.Name(), ".robot")
		src, err := programsFS.ReadFile(path.Join("programs", entry.Name()))
		if err != nil {
			panic(fmt.Sprintf("examples: read %s: %v", entry.Name(), err))
		}
		out = append(out, Example{
			Name:        name,
			Description: descriptions[name],
			Source:      string(src),
		})
	}
	return out
}

// Get returns the named example
func Get(name string) (Example, error) {
	for _, ex := range List() {
		if ex.Name == name {
			return ex, nil
		}
	}
	return Example{}, fmt.Errorf("examples: no example named %q (have %s)",
		name, strings.Join(Names(), ", "))
}

// Names returns the bundled example names in order
func Names() []string {
	list := List()
	names := make([]string, len(list))
	for i, ex := range list {
		names[i] = ex.Name
	}
	return names
}

// SupportedFile reports whether a path has a program extension
func SupportedFile(p string) bool {
	ext := strings.ToLower(filepath.Ext(p))
	for _, e := range Extensions {
		if ext == e {
			return true
		}
	}
	return false
}
