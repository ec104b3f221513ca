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

// Package compiler turns a tenant's serialized visual program into the
// source-text bundle that the dispatcher later executes.
//
// A program is a forest: one statement sequence per event-binding slot
// plus one shared sequence that runs before any event-specific code.
// Each node resolves to source text via its block's generator, an
// ECMAScript function carried in the block record and hosted here on
// goja with a small environment (field, value, statements, variable,
// Order).
package compiler

import (
	"encoding/json"
	"strconv"
)

// Node is one block instance in a program tree.
type Node struct {
	// Type names the block shape in the registry.
	Type string `json:"type"`

	// Fields holds literal input values by arg name.
	Fields map[string]string `json:"fields,omitempty"`

	// Values holds filled value sockets by arg name.
	Values map[string]*Node `json:"values,omitempty"`

	// Statements holds statement sequences by arg name, in declared
	// order.
	Statements map[string][]*Node `json:"statements,omitempty"`
}

// Program is one tenant's whole saved script.
type Program struct {
	// Shared runs on every event, before the event-specific sequence.
	Shared []*Node `json:"shared,omitempty"`

	// Events maps event kind to that slot's statement sequence.
	Events map[string][]*Node `json:"events,omitempty"`
}

// ParseProgram decodes the editor's serialized program.
func ParseProgram(bs []byte) (*Program, error) {
	var p Program
	if err := json.Unmarshal(bs, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// Bundle is the compiled output: generated source text for the shared
// unit and for each event slot.  Bundles are produced only here and
// consumed only by the dispatcher.
type Bundle struct {
	Shared   string            `json:"shared,omitempty"`
	PerEvent map[string]string `json:"perEvent,omitempty"`
}

// Walk calls f on every node of every sequence in the program,
// depth-first, with the node's path from its root.
func (p *Program) Walk(f func(path []string, n *Node)) {
	walkSeq([]string{"shared"}, p.Shared, f)
	for event, seq := range p.Events {
		walkSeq([]string{event}, seq, f)
	}
}

func walkSeq(path []string, seq []*Node, f func([]string, *Node)) {
	for i, n := range seq {
		walkNode(extend(path, strconv.Itoa(i)), n, f)
	}
}

func walkNode(path []string, n *Node, f func([]string, *Node)) {
	if n == nil {
		return
	}
	f(path, n)
	for name, child := range n.Values {
		walkNode(extend(path, name), child, f)
	}
	for name, seq := range n.Statements {
		walkSeq(extend(path, name), seq, f)
	}
}

// extend copies so that sibling paths don't share a backing array.
func extend(path []string, step string) []string {
	acc := make([]string, 0, len(path)+1)
	acc = append(acc, path...)
	return append(acc, step)
}
