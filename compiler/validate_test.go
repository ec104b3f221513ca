package compiler

import (
	"testing"

	"github.com/Comcast/blockwright/catalog"
)

var validated = map[string]string{
	"capped": `
type: capped
message: "do the capped thing"
previous: true
next: true
max: 1
generator: |
  return 'capped();';
`,
	"greet": `
type: greet
message: "greet %1"
args:
  - kind: value
    name: who
previous: true
next: true
restrictions:
  - kind: notempty
    message: "You must provide a value for the 'who' parameter"
    args: [who]
generator: |
  return 'greet(' + value('who', Order.NONE) + ');';
`,
	"name": `
type: name
message: "%1"
args:
  - kind: field_text
    name: value
output: String
generator: |
  return ["'" + field('value') + "'", Order.ATOMIC];
`,
}

func testReg(t *testing.T) *catalog.Registry {
	t.Helper()
	return testRegistry(t, validated)
}

func TestValidateMaxInstances(t *testing.T) {
	reg := testReg(t)

	prog := &Program{
		Events: map[string][]*Node{
			"message": {
				{Type: "capped"},
				{Type: "capped"},
				{Type: "capped"},
			},
		},
	}

	vs := Validate(prog, reg)

	// Exactly one violation for the type, however many extras.
	if len(vs) != 1 {
		t.Fatalf("got %d violations: %#v", len(vs), vs)
	}
	if vs[0].Kind != "max" || vs[0].BlockType != "capped" {
		t.Fatalf("got %#v", vs[0])
	}
}

func TestValidateMaxOK(t *testing.T) {
	reg := testReg(t)

	prog := &Program{
		Events: map[string][]*Node{
			"message": {{Type: "capped"}},
		},
	}

	if vs := Validate(prog, reg); len(vs) != 0 {
		t.Fatalf("got %#v", vs)
	}
}

func TestValidateNotEmpty(t *testing.T) {
	reg := testReg(t)

	empty := &Program{
		Events: map[string][]*Node{
			"message": {{Type: "greet"}},
		},
	}

	vs := Validate(empty, reg)
	if len(vs) != 1 {
		t.Fatalf("got %#v", vs)
	}
	if vs[0].Kind != "restriction" || vs[0].BlockType != "greet" {
		t.Fatalf("got %#v", vs[0])
	}
	if vs[0].Message == "" {
		t.Fatal("violation has no user-facing message")
	}

	filled := &Program{
		Events: map[string][]*Node{
			"message": {
				{
					Type: "greet",
					Values: map[string]*Node{
						"who": {Type: "name", Fields: map[string]string{"value": "pat"}},
					},
				},
			},
		},
	}

	if vs := Validate(filled, reg); len(vs) != 0 {
		t.Fatalf("got %#v", vs)
	}
}

func TestValidateCountsAcrossRoots(t *testing.T) {
	reg := testReg(t)

	// Instance caps apply program-wide, not per slot.
	prog := &Program{
		Shared: []*Node{{Type: "capped"}},
		Events: map[string][]*Node{
			"message": {{Type: "capped"}},
		},
	}

	vs := Validate(prog, reg)
	if len(vs) != 1 || vs[0].Kind != "max" {
		t.Fatalf("got %#v", vs)
	}
}
