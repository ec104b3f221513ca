package compiler

import (
	"fmt"
	"sort"

	"github.com/Comcast/blockwright/catalog"
)

// Violation is a semantic rule failure.  Distinct from Error: the
// program is structurally compilable but breaks a declared restriction
// or instance cap, so it must not be saved.
type Violation struct {
	// Kind is "restriction" or "max".
	Kind string `json:"kind"`

	BlockType string   `json:"blockType"`
	Message   string   `json:"message"`
	Path      []string `json:"path"`
}

// Validate checks the program against the registry's restriction and
// max-instance tables.  A capped type instantiated beyond its cap
// yields exactly one violation for that type, however many extra
// instances there are.
func Validate(prog *Program, reg *catalog.Registry) []Violation {
	var (
		acc    []Violation
		counts = map[string]int{}
		firsts = map[string][]string{}
	)

	prog.Walk(func(path []string, n *Node) {
		counts[n.Type]++
		if counts[n.Type] == 1 {
			firsts[n.Type] = path
		}

		for _, restriction := range reg.Restrictions[n.Type] {
			if restriction.Kind != "notempty" {
				continue
			}
			for _, arg := range restriction.Args {
				if filled(n, arg) {
					continue
				}
				acc = append(acc, Violation{
					Kind:      "restriction",
					BlockType: n.Type,
					Message:   restriction.Message,
					Path:      extend(path, arg),
				})
			}
		}
	})

	capped := make([]string, 0, len(reg.Max))
	for typ := range reg.Max {
		capped = append(capped, typ)
	}
	sort.Strings(capped)

	for _, typ := range capped {
		if max := reg.Max[typ]; max < counts[typ] {
			acc = append(acc, Violation{
				Kind:      "max",
				BlockType: typ,
				Message:   fmt.Sprintf("at most %d %q block(s) allowed, found %d", max, typ, counts[typ]),
				Path:      firsts[typ],
			})
		}
	}

	return acc
}

// filled reports whether the named arg has a field value, a value
// child, or a non-empty statement sequence.
func filled(n *Node, arg string) bool {
	if v, have := n.Fields[arg]; have && v != "" {
		return true
	}
	if _, have := n.Values[arg]; have {
		return true
	}
	if seq, have := n.Statements[arg]; have && 0 < len(seq) {
		return true
	}
	return false
}
