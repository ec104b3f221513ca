package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/Comcast/blockwright/compiler"
)

func testBundle() *compiler.Bundle {
	return &compiler.Bundle{
		Shared: "var x = 1",
		PerEvent: map[string]string{
			"message": "reply(x)",
		},
	}
}

func testStores(t *testing.T) map[string]Store {
	t.Helper()

	ctx := context.Background()

	b := NewBolt(filepath.Join(t.TempDir(), "blockd.db"))
	if err := b.Open(ctx); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		if err := b.Close(ctx); err != nil {
			t.Fatal(err)
		}
	})

	return map[string]Store{
		"mem":  NewMem(),
		"bolt": b,
	}
}

func TestBundleRoundTrip(t *testing.T) {
	ctx := context.Background()

	for name, s := range testStores(t) {
		t.Run(name, func(t *testing.T) {
			// Absence is a normal state, not an error.
			got, err := s.ReadBundle(ctx, "g1")
			if err != nil {
				t.Fatal(err)
			}
			if got != nil {
				t.Fatalf("got %#v", got)
			}

			if err := s.WriteBundle(ctx, "g1", testBundle()); err != nil {
				t.Fatal(err)
			}

			got, err = s.ReadBundle(ctx, "g1")
			if err != nil {
				t.Fatal(err)
			}
			if got == nil || got.Shared != "var x = 1" || got.PerEvent["message"] != "reply(x)" {
				t.Fatalf("got %#v", got)
			}

			// Other tenants stay unaffected.
			other, err := s.ReadBundle(ctx, "g2")
			if err != nil {
				t.Fatal(err)
			}
			if other != nil {
				t.Fatalf("got %#v", other)
			}
		})
	}
}

func TestProgramRoundTrip(t *testing.T) {
	ctx := context.Background()

	for name, s := range testStores(t) {
		t.Run(name, func(t *testing.T) {
			got, err := s.ReadProgram(ctx, "g1")
			if err != nil {
				t.Fatal(err)
			}
			if got != nil {
				t.Fatalf("got %#v", got)
			}

			p := &SavedProgram{
				Workspace: []byte("<xml/>"),
				Program:   []byte(`{"events":{}}`),
			}
			if err := s.WriteProgram(ctx, "g1", p); err != nil {
				t.Fatal(err)
			}

			got, err = s.ReadProgram(ctx, "g1")
			if err != nil {
				t.Fatal(err)
			}
			if got == nil || string(got.Workspace) != "<xml/>" {
				t.Fatalf("got %#v", got)
			}
		})
	}
}

func TestOverwrite(t *testing.T) {
	ctx := context.Background()

	for name, s := range testStores(t) {
		t.Run(name, func(t *testing.T) {
			if err := s.WriteBundle(ctx, "g1", testBundle()); err != nil {
				t.Fatal(err)
			}
			if err := s.WriteBundle(ctx, "g1", &compiler.Bundle{Shared: "var x = 2"}); err != nil {
				t.Fatal(err)
			}
			got, err := s.ReadBundle(ctx, "g1")
			if err != nil {
				t.Fatal(err)
			}
			if got.Shared != "var x = 2" {
				t.Fatalf("got %#v", got)
			}
		})
	}
}
