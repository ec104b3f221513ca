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

package catalog

import (
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/jsccast/yaml"
)

// record is the on-disk shape of one block definition.
type record struct {
	Type         string            `yaml:"type"`
	Message      string            `yaml:"message"`
	Args         []Arg             `yaml:"args"`
	Output       string            `yaml:"output"`
	Previous     bool              `yaml:"previous"`
	Next         bool              `yaml:"next"`
	InputsInline bool              `yaml:"inputsInline"`
	Colour       int               `yaml:"colour"`
	Tooltip      string            `yaml:"tooltip"`
	Deprecated   bool              `yaml:"deprecated"`
	Icons        []string          `yaml:"icons"`
	Max          int               `yaml:"max"`
	Restrictions []Restriction     `yaml:"restrictions"`
	Shadows      map[string]Shadow `yaml:"shadows"`
	Generator    string            `yaml:"generator"`
}

// Load builds a Registry from the definitions directory rooted at dir.
//
// The directory tree gives the category tree (see LoadCategories); every
// "*.yaml" file anywhere under dir is one block record.  icons maps icon
// keys (see Decorate) to image URLs.
//
// A malformed record is a fatal load error: the editor and the compiler
// both assume total coverage of referenced types, so the registry fails
// closed rather than serving a partial catalog silently.
func Load(dir string, icons map[string]string) (*Registry, error) {
	cats, err := LoadCategories(dir)
	if err != nil {
		return nil, err
	}
	return LoadBlocks(dir, cats, icons)
}

// LoadBlocks enumerates block records under dir and registers each into
// a fresh Registry built around the given category tree.
func LoadBlocks(dir string, cats []*Category, icons map[string]string) (*Registry, error) {
	r := &Registry{
		Categories:   cats,
		Blocks:       make([]*Block, 0, 64),
		Max:          make(map[string]int),
		Restrictions: make(map[string][]Restriction),
		byType:       make(map[string]*Block),
		generators:   make(map[string]*Generator),
		shadows:      make(map[string]map[string]Shadow),
	}

	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(d.Name(), ".yaml") {
			return nil
		}
		return r.load(path, icons)
	})
	if err != nil {
		return nil, err
	}

	return r, nil
}

func (r *Registry) load(path string, icons map[string]string) error {
	bs, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	var rec record
	if err := yaml.Unmarshal(bs, &rec); err != nil {
		return fmt.Errorf("%s: %s", path, err)
	}

	b, err := rec.block(icons)
	if err != nil {
		return fmt.Errorf("%s: %s", path, err)
	}

	if _, dup := r.byType[b.Type]; dup {
		return fmt.Errorf("%s: duplicate block type %q", path, b.Type)
	}

	r.Blocks = append(r.Blocks, b)
	r.byType[b.Type] = b

	// The record's immediate parent directory names the block's
	// category.  A miss leaves the block registered but invisible in
	// the toolbox, which is deliberate: "registered" and "browsable"
	// are decoupled.
	want := filepath.Base(filepath.Dir(path))
	if cat := Find(r.Categories, want); cat != nil {
		cat.Blocks = append(cat.Blocks, b.Type)
	} else {
		log.Printf("catalog: block %s: no category %q; block won't be browsable", b.Type, want)
	}

	if 0 < rec.Max {
		r.Max[b.Type] = rec.Max
	}
	if 0 < len(rec.Restrictions) {
		r.Restrictions[b.Type] = rec.Restrictions
	}
	if 0 < len(rec.Shadows) {
		r.shadows[b.Type] = rec.Shadows
	}
	if rec.Generator != "" {
		g, err := compileGenerator(b.Type, rec.Generator)
		if err != nil {
			return fmt.Errorf("%s: %s", path, err)
		}
		r.generators[b.Type] = g
	}

	return nil
}

// block checks the record's invariants and produces the decorated
// descriptor.
func (rec *record) block(icons map[string]string) (*Block, error) {
	if rec.Type == "" {
		return nil, fmt.Errorf("record has no type")
	}
	if rec.Message == "" {
		return nil, fmt.Errorf("record %q has no message", rec.Type)
	}
	if rec.Output != "" && (rec.Previous || rec.Next) {
		// An expression can't also chain as a statement.
		return nil, fmt.Errorf("record %q declares both output and chaining", rec.Type)
	}

	for _, a := range rec.Args {
		if !a.Kind.known() {
			return nil, fmt.Errorf("record %q: unknown arg kind %q", rec.Type, a.Kind)
		}
		if a.Kind != ImageField && a.Name == "" {
			return nil, fmt.Errorf("record %q: %s arg has no name", rec.Type, a.Kind)
		}
	}
	for _, restriction := range rec.Restrictions {
		if !restriction.known() {
			return nil, fmt.Errorf("record %q: unknown restriction kind %q",
				rec.Type, restriction.Kind)
		}
	}

	message, args, err := Decorate(rec.Message, rec.Args, rec.Icons, icons)
	if err != nil {
		return nil, fmt.Errorf("record %q: %s", rec.Type, err)
	}

	return &Block{
		Type:         rec.Type,
		Message:      message,
		Args:         args,
		Output:       rec.Output,
		Previous:     rec.Previous,
		Next:         rec.Next,
		InputsInline: rec.InputsInline,
		Colour:       rec.Colour,
		Tooltip:      rec.Tooltip,
		Deprecated:   rec.Deprecated,
	}, nil
}
