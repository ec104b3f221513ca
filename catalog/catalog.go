/* Copyright 2019 Comcast Cable Communications Management, LLC
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 * http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package catalog loads the block catalog: a tree of colored categories
// discovered from a definitions directory, plus the block records that
// live in those directories.
//
// A load produces an immutable Registry, which is the single source of
// truth for both the editor payload and the program compiler.  A Registry
// is rebuilt per request; nothing here is a process-wide singleton.
package catalog

import (
	"fmt"

	"github.com/dop251/goja"
)

// ArgKind discriminates the closed set of argument shapes a block record
// may declare.  Anything else is rejected at load time.
type ArgKind string

const (
	// ValueArg is a socket that accepts an expression block.
	ValueArg ArgKind = "value"

	// StatementArg is a socket that accepts a statement sequence.
	StatementArg ArgKind = "statement"

	// VariableArg is a variable picker.
	VariableArg ArgKind = "variable"

	// TextField is a literal text input.
	TextField ArgKind = "field_text"

	// NumberField is a literal numeric input.
	NumberField ArgKind = "field_number"

	// DropdownField is a literal chosen from declared options.
	DropdownField ArgKind = "field_dropdown"

	// ImageField is a decorative image.  Records don't usually declare
	// these directly; they come from icon decoration.
	ImageField ArgKind = "field_image"
)

func (k ArgKind) known() bool {
	switch k {
	case ValueArg, StatementArg, VariableArg, TextField, NumberField, DropdownField, ImageField:
		return true
	}
	return false
}

// IsField reports whether the arg renders as a literal input rather than
// a socket.
func (k ArgKind) IsField() bool {
	switch k {
	case TextField, NumberField, DropdownField, ImageField:
		return true
	}
	return false
}

// Arg is one argument of a block's message template.  Position in the
// Args slice maps 1:1 to placeholder indices in the message.
type Arg struct {
	Kind ArgKind `json:"kind" yaml:"kind"`
	Name string  `json:"name,omitempty" yaml:"name,omitempty"`

	// Check is the expected value type for a ValueArg ("" means
	// untyped).
	Check string `json:"check,omitempty" yaml:"check,omitempty"`

	// Default is the initial value for fields and variable pickers.
	Default string `json:"default,omitempty" yaml:"default,omitempty"`

	// Options holds [label, value] pairs for a DropdownField.
	Options [][]string `json:"options,omitempty" yaml:"options,omitempty"`

	// Src, Alt, Width, and Height describe an ImageField.
	Src    string `json:"src,omitempty" yaml:"src,omitempty"`
	Alt    string `json:"alt,omitempty" yaml:"alt,omitempty"`
	Width  int    `json:"width,omitempty" yaml:"width,omitempty"`
	Height int    `json:"height,omitempty" yaml:"height,omitempty"`
}

// Restriction is a semantic validation rule attached to a block type.
// Restrictions are evaluated against a program at validation time, never
// at compile time.
type Restriction struct {
	// Kind names the rule.  Currently only "notempty".
	Kind string `json:"kind" yaml:"kind"`

	// Message is what the editor shows when the rule is violated.
	Message string `json:"message" yaml:"message"`

	// Args names the block arguments the rule applies to.
	Args []string `json:"args" yaml:"args"`
}

func (r Restriction) known() bool {
	return r.Kind == "notempty"
}

// Shadow is a default value for an otherwise-unfilled value socket.  The
// compiler uses it verbatim, with its declared precedence.
type Shadow struct {
	Code  string `json:"code" yaml:"code"`
	Order int    `json:"order,omitempty" yaml:"order,omitempty"`
}

// Block is the canonical in-memory descriptor for one block type.
type Block struct {
	// Type is the globally unique id for this block shape.
	Type string `json:"type" yaml:"type"`

	// Message is the display template with 1-based positional
	// placeholders ("give %1 the role %2").
	Message string `json:"message" yaml:"message"`

	Args []Arg `json:"args,omitempty" yaml:"args,omitempty"`

	// Output gives the value type this block produces.  A block with
	// Output set is an expression and must not declare chaining.
	Output string `json:"output,omitempty" yaml:"output,omitempty"`

	// Previous and Next declare statement chaining.
	Previous bool `json:"previous,omitempty" yaml:"previous,omitempty"`
	Next     bool `json:"next,omitempty" yaml:"next,omitempty"`

	InputsInline bool `json:"inputsInline,omitempty" yaml:"inputsInline,omitempty"`

	// Colour is an optional hue override; blocks normally inherit
	// their category's colour in the editor.
	Colour int `json:"colour,omitempty" yaml:"colour,omitempty"`

	Tooltip string `json:"tooltip,omitempty" yaml:"tooltip,omitempty"`

	// Deprecated blocks still compile (saved programs keep working)
	// but are omitted from the toolbox.
	Deprecated bool `json:"deprecated,omitempty" yaml:"deprecated,omitempty"`
}

// Expression reports whether the block plugs into a value socket.
func (b *Block) Expression() bool {
	return b.Output != ""
}

// Arg finds an argument by name.
func (b *Block) Arg(name string) (Arg, bool) {
	for _, a := range b.Args {
		if a.Name == name {
			return a, true
		}
	}
	return Arg{}, false
}

// Category is one node in the editor's category tree.  Blocks lists the
// member block types of this node only; membership is not inherited by
// ancestors.
type Category struct {
	Name     string      `json:"name"`
	Colour   int         `json:"colour"`
	Children []*Category `json:"children"`
	Blocks   []string    `json:"blocks"`
}

// Find looks for a category by exact name, depth-first.
func Find(cats []*Category, name string) *Category {
	for _, c := range cats {
		if c.Name == name {
			return c
		}
		if sub := Find(c.Children, name); sub != nil {
			return sub
		}
	}
	return nil
}

// Generator is a block's compiled code generator: an ECMAScript function
// body from the block record, compiled once per load.  The compiler runs
// it with a host environment per program node.
type Generator struct {
	Type   string
	Source string

	prog *goja.Program
}

// Program returns the compiled form of the generator source.
func (g *Generator) Program() *goja.Program {
	return g.prog
}

func compileGenerator(typ, src string) (*Generator, error) {
	// Wrap so that a bare "return ..." in the source is legal.
	wrapped := fmt.Sprintf("(function() {\n%s\n}());\n", src)
	prog, err := goja.Compile(typ, wrapped, true)
	if err != nil {
		return nil, fmt.Errorf("generator for %s: %s", typ, err)
	}
	return &Generator{
		Type:   typ,
		Source: src,
		prog:   prog,
	}, nil
}

// Registry is the immutable aggregate produced by one catalog load.
type Registry struct {
	// Categories is the category tree with block membership recorded.
	Categories []*Category

	// Blocks holds every registered descriptor in load order,
	// including descriptors whose category wasn't found.
	Blocks []*Block

	// Max caps the number of instances of a type per program.
	Max map[string]int

	// Restrictions holds validation rules by type.
	Restrictions map[string][]Restriction

	byType     map[string]*Block
	generators map[string]*Generator
	shadows    map[string]map[string]Shadow
}

// Block looks up a descriptor by type.
func (r *Registry) Block(typ string) (*Block, bool) {
	b, have := r.byType[typ]
	return b, have
}

// Generator looks up the code generator for a type.  Absence is not a
// load-time problem: editor-only decorative blocks legitimately have no
// generator and are rejected only if a program tries to compile one.
func (r *Registry) Generator(typ string) (*Generator, bool) {
	g, have := r.generators[typ]
	return g, have
}

// Shadow returns the declared default for a value socket, if any.
func (r *Registry) Shadow(typ, arg string) (Shadow, bool) {
	ss, have := r.shadows[typ]
	if !have {
		return Shadow{}, false
	}
	s, have := ss[arg]
	return s, have
}

// Generators returns the generator table in block load order, which is
// what the editor payload wants.
func (r *Registry) Generators() []*Generator {
	acc := make([]*Generator, 0, len(r.generators))
	for _, b := range r.Blocks {
		if g, have := r.generators[b.Type]; have {
			acc = append(acc, g)
		}
	}
	return acc
}
