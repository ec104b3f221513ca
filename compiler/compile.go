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

package compiler

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/Comcast/blockwright/catalog"

	"github.com/dop251/goja"
)

// Compile resolves every node of the program to source text and
// assembles one code unit per event slot plus the shared unit.
//
// Compilation is pure with respect to the program and the registry:
// re-compiling an unchanged program yields identical output.
func Compile(ctx context.Context, prog *Program, reg *catalog.Registry) (*Bundle, error) {
	bundle := &Bundle{
		PerEvent: make(map[string]string, len(prog.Events)),
	}

	if 0 < len(prog.Shared) {
		code, err := compileSeq(ctx, reg, []string{"shared"}, prog.Shared)
		if err != nil {
			return nil, err
		}
		bundle.Shared = code
	}

	events := make([]string, 0, len(prog.Events))
	for event := range prog.Events {
		events = append(events, event)
	}
	sort.Strings(events)

	for _, event := range events {
		code, err := compileSeq(ctx, reg, []string{event}, prog.Events[event])
		if err != nil {
			return nil, err
		}
		bundle.PerEvent[event] = code
	}

	return bundle, nil
}

// compileSeq compiles a statement sequence to newline-joined source in
// declared order.
func compileSeq(ctx context.Context, reg *catalog.Registry, path []string, seq []*Node) (string, error) {
	lines := make([]string, 0, len(seq))
	for i, n := range seq {
		code, _, expr, err := compileNode(ctx, reg, extend(path, fmt.Sprintf("%d", i)), n)
		if err != nil {
			return "", err
		}
		if expr {
			return "", &Error{
				Kind:      BadGenerator,
				BlockType: n.Type,
				Path:      extend(path, fmt.Sprintf("%d", i)),
				Detail:    "expression block in statement position",
			}
		}
		lines = append(lines, code)
	}
	return strings.Join(lines, "\n"), nil
}

// compileNode runs the node's generator and reports the code, its
// declared order, and whether the generator produced an expression
// ([code, order]) rather than a statement (bare string).
func compileNode(ctx context.Context, reg *catalog.Registry, path []string, n *Node) (string, int, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", 0, false, err
	}

	if _, have := reg.Block(n.Type); !have {
		return "", 0, false, &Error{
			Kind:      UnknownBlockType,
			BlockType: n.Type,
			Path:      path,
		}
	}

	gen, have := reg.Generator(n.Type)
	if !have {
		return "", 0, false, &Error{
			Kind:      MissingGenerator,
			BlockType: n.Type,
			Path:      path,
		}
	}

	var (
		vm     = goja.New()
		nested error
	)

	// A host callback that hits a compile error records it and raises
	// a Javascript exception to unwind the generator.
	fail := func(e error) {
		nested = e
		panic(vm.ToValue(e.Error()))
	}

	vm.Set("Order", orderTable)

	vm.Set("field", func(name string) string {
		return n.Fields[name]
	})

	vm.Set("variable", func(name string) string {
		return variableName(n.Fields[name])
	})

	vm.Set("value", func(name string, order int) string {
		child, filled := n.Values[name]
		if !filled {
			if shadow, have := reg.Shadow(n.Type, name); have {
				return parenthesize(shadow.Code, shadow.Order, order)
			}
			fail(&Error{
				Kind:      UnfilledRequiredSlot,
				BlockType: n.Type,
				Path:      extend(path, name),
			})
		}
		code, childOrder, expr, err := compileNode(ctx, reg, extend(path, name), child)
		if err != nil {
			fail(err)
		}
		if !expr {
			fail(&Error{
				Kind:      BadGenerator,
				BlockType: child.Type,
				Path:      extend(path, name),
				Detail:    "statement block in value position",
			})
		}
		return parenthesize(code, childOrder, order)
	})

	vm.Set("statements", func(name string) string {
		code, err := compileSeq(ctx, reg, extend(path, name), n.Statements[name])
		if err != nil {
			fail(err)
		}
		return code
	})

	v, err := vm.RunProgram(gen.Program())
	if err != nil {
		if nested != nil {
			return "", 0, false, nested
		}
		return "", 0, false, &Error{
			Kind:      BadGenerator,
			BlockType: n.Type,
			Path:      path,
			Detail:    err.Error(),
		}
	}

	return generated(n, path, v)
}

// generated interprets a generator's return value: a bare string for a
// statement block or a [code, order] pair for an expression block.
func generated(n *Node, path []string, v goja.Value) (string, int, bool, error) {
	bad := func(detail string) (string, int, bool, error) {
		return "", 0, false, &Error{
			Kind:      BadGenerator,
			BlockType: n.Type,
			Path:      path,
			Detail:    detail,
		}
	}

	switch x := v.Export().(type) {
	case string:
		return x, OrderNone, false, nil
	case []interface{}:
		if len(x) != 2 {
			return bad(fmt.Sprintf("generator returned %d values", len(x)))
		}
		code, is := x[0].(string)
		if !is {
			return bad(fmt.Sprintf("generated code is a %T", x[0]))
		}
		var order int
		switch o := x[1].(type) {
		case int64:
			order = int(o)
		case float64:
			order = int(o)
		default:
			return bad(fmt.Sprintf("generated order is a %T", x[1]))
		}
		return code, order, true, nil
	default:
		return bad(fmt.Sprintf("generator returned a %T", x))
	}
}

// parenthesize wraps code iff its declared order is weaker than the
// order the enclosing socket requires.
func parenthesize(code string, childOrder, want int) string {
	if want < childOrder {
		return "(" + code + ")"
	}
	return code
}

var unsafeVarChars = regexp.MustCompile(`[^A-Za-z0-9_$]`)

// variableName maps a user-chosen variable name to a safe identifier in
// the generated code's namespace.
func variableName(name string) string {
	name = unsafeVarChars.ReplaceAllString(name, "_")
	if name == "" {
		name = "_"
	}
	return "v_" + name
}
