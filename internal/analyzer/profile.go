package analyzer

import (
	"fmt"
	"strings"

	"github.com/mbeltran/armlex/internal/lang/parser"
	"github.com/mbeltran/armlex/internal/quad"
)

// CommandSpec describes one command word: its canonical name, the inclusive
// value range the semantic pass enforces, and accepted aliases.
type CommandSpec struct {
	Name    string   `json:"name"`
	Min     int      `json:"min"`
	Max     int      `json:"max"`
	Aliases []string `json:"aliases,omitempty"`
}

// Contains reports whether v is inside the command's range
func (c CommandSpec) Contains(v int) bool {
	return v >= c.Min && v <= c.Max
}

// Profile is the language profile the analyzer checks programs against.
// Profiles come from station configuration; DefaultProfile matches the
// IRB 120 + 2F-85 station.
type Profile struct {
	Commands []CommandSpec
}

// DefaultProfile returns the built-in station profile. The arm axes are
// bidirectional, matching the IRB 120 joint envelope; the gripper range is
// the 2F-85 opening in millimeters. The Spanish aliases keep programs
// written for the original station analyzable unchanged.
func DefaultProfile() Profile {
	return Profile{
		Commands: []CommandSpec{
			{Name: "base", Min: -360, Max: 360},
			{Name: "shoulder", Min: -180, Max: 180, Aliases: []string{"hombro"}},
			{Name: "elbow", Min: -180, Max: 180, Aliases: []string{"codo"}},
			{Name: "gripper", Min: 0, Max: 85, Aliases: []string{"garra"}},
			{Name: quad.CmdSpeed, Min: 1, Max: 60, Aliases: []string{"velocidad"}},
			{Name: parser.CmdRepeat, Min: 1, Max: 100, Aliases: []string{"repetir"}},
		},
	}
}

// Lookup resolves a canonical command name
func (p Profile) Lookup(name string) (CommandSpec, bool) {
	for _, c := range p.Commands {
		if c.Name == name {
			return c, true
		}
	}
	return CommandSpec{}, false
}

// Aliases builds the alias table handed to the parser
func (p Profile) Aliases() map[string]string {
	out := map[string]string{}
	for _, c := range p.Commands {
		for _, a := range c.Aliases {
			out[strings.ToLower(a)] = c.Name
		}
	}
	return out
}

// Validate checks the profile is usable: non-empty, sane ranges, unique
// words, and the structural commands present.
func (p Profile) Validate() error {
	if len(p.Commands) == 0 {
		return fmt.Errorf("profile has no commands")
	}
	seen := map[string]string{}
	for _, c := range p.Commands {
		name := strings.ToLower(c.Name)
		if name == "" {
			return fmt.Errorf("profile has a command with no name")
		}
		if c.Min > c.Max {
			return fmt.Errorf("command %q: min %d exceeds max %d", c.Name, c.Min, c.Max)
		}
		words := append([]string{name}, c.Aliases...)
		for _, w := range words {
			w = strings.ToLower(w)
			if owner, dup := seen[w]; dup {
				return fmt.Errorf("word %q is claimed by both %q and %q", w, owner, c.Name)
			}
			seen[w] = c.Name
		}
	}
	for _, required := range []string{parser.CmdRepeat, quad.CmdSpeed} {
		if _, ok := p.Lookup(required); !ok {
			return fmt.Errorf("profile is missing the %q command", required)
		}
	}
	return nil
}
