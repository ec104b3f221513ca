package dispatch

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/Comcast/blockwright/compiler"
	"github.com/Comcast/blockwright/gateway"
	"github.com/Comcast/blockwright/sandbox"
	"github.com/Comcast/blockwright/store"
	. "github.com/Comcast/blockwright/util/testutil"
)

type sendRecorder struct {
	sync.Mutex
	sends [][2]string
}

func (r *sendRecorder) send(ctx context.Context, channel, text string) error {
	r.Lock()
	r.sends = append(r.sends, [2]string{channel, text})
	r.Unlock()
	return nil
}

func (r *sendRecorder) count() int {
	r.Lock()
	defer r.Unlock()
	return len(r.sends)
}

var pingBindings = []Binding{
	{
		Kind:       "ping",
		Parameters: []string{"guild", "channel"},
		Guard:      True,
		ScopePath:  "guild",
		OriginPath: "channel",
	},
}

func pingDispatcher(t *testing.T, bundles map[string]*compiler.Bundle) (*Dispatcher, *sendRecorder) {
	t.Helper()

	st := store.NewMem()
	for guild, b := range bundles {
		if err := st.WriteBundle(context.Background(), guild, b); err != nil {
			t.Fatal(err)
		}
	}

	r := &sendRecorder{}
	d := NewDispatcher(st, r.send)
	d.Bindings = pingBindings
	return d, r
}

func ping(guild string) gateway.Event {
	return gateway.Event{
		Kind: "ping",
		Params: map[string]interface{}{
			"guild":   guild,
			"channel": "c1",
		},
	}
}

func TestDispatchEndToEnd(t *testing.T) {
	d, r := pingDispatcher(t, map[string]*compiler.Bundle{
		"T1": {
			Shared:   "var x = 1",
			PerEvent: map[string]string{"ping": "reply(x)"},
		},
	})

	// T1 has a bundle: shared then per-event runs exactly once.
	d.Handle(context.Background(), ping("T1"))
	if r.count() != 1 {
		t.Fatalf("sends: %s", JS(r.sends))
	}
	if r.sends[0] != [2]string{"c1", "1"} {
		t.Fatalf("sends: %s", JS(r.sends))
	}

	// T2 has no bundle: no execution, no error.
	d.Handle(context.Background(), ping("T2"))
	if r.count() != 1 {
		t.Fatalf("sends after T2: %s", JS(r.sends))
	}
}

func TestDispatchGuardDiscards(t *testing.T) {
	d, r := pingDispatcher(t, map[string]*compiler.Bundle{
		"T1": {PerEvent: map[string]string{"ping": "reply('hi')"}},
	})
	d.Bindings = []Binding{
		{
			Kind:      "ping",
			Guard:     func(Params) bool { return false },
			ScopePath: "guild",
		},
	}

	d.Handle(context.Background(), ping("T1"))
	if r.count() != 0 {
		t.Fatalf("guard didn't discard: %#v", r.sends)
	}
}

func TestDispatchUnresolvableScope(t *testing.T) {
	d, r := pingDispatcher(t, map[string]*compiler.Bundle{
		"T1": {PerEvent: map[string]string{"ping": "reply('hi')"}},
	})

	d.Handle(context.Background(), gateway.Event{
		Kind:   "ping",
		Params: map[string]interface{}{"channel": "c1"},
	})
	if r.count() != 0 {
		t.Fatalf("unresolvable scope didn't discard: %#v", r.sends)
	}
}

func TestDispatchSharedOnly(t *testing.T) {
	// An absent per-event unit skips that step; the shared unit
	// still runs.
	d, r := pingDispatcher(t, map[string]*compiler.Bundle{
		"T1": {Shared: "reply('shared')"},
	})

	d.Handle(context.Background(), ping("T1"))
	if r.count() != 1 || r.sends[0][1] != "shared" {
		t.Fatalf("sends: %s", JS(r.sends))
	}
}

func TestDispatchFaultContained(t *testing.T) {
	d, r := pingDispatcher(t, map[string]*compiler.Bundle{
		"T1": {PerEvent: map[string]string{"ping": "throw 'boom'"}},
		"T2": {PerEvent: map[string]string{"ping": "reply('fine')"}},
	})

	// One tenant's faulty program is logged and contained; another
	// tenant's program still runs.
	d.Handle(context.Background(), ping("T1"))
	d.Handle(context.Background(), ping("T2"))

	if r.count() != 1 || r.sends[0][1] != "fine" {
		t.Fatalf("sends: %s", JS(r.sends))
	}
}

func TestDispatchTimeout(t *testing.T) {
	d, r := pingDispatcher(t, map[string]*compiler.Bundle{
		"T1": {PerEvent: map[string]string{"ping": "while (true) {}"}},
	})
	d.Timeout = 50 * time.Millisecond

	done := make(chan bool)
	go func() {
		d.Handle(context.Background(), ping("T1"))
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("hanging tenant code wasn't interrupted")
	}
	if r.count() != 0 {
		t.Fatalf("sends: %s", JS(r.sends))
	}
}

func TestDispatchConcurrentTenants(t *testing.T) {
	d, r := pingDispatcher(t, map[string]*compiler.Bundle{
		"T1": {PerEvent: map[string]string{"ping": "reply('one')"}},
		"T2": {PerEvent: map[string]string{"ping": "reply('two')"}},
	})

	var wg sync.WaitGroup
	for _, guild := range []string{"T1", "T2", "T1", "T2"} {
		wg.Add(1)
		go func(guild string) {
			defer wg.Done()
			d.Handle(context.Background(), ping(guild))
		}(guild)
	}
	wg.Wait()

	if r.count() != 4 {
		t.Fatalf("sends: %s", JS(r.sends))
	}
}

func TestDispatchExposesInterp(t *testing.T) {
	// NewDispatcher must leave the interpreter reachable so the
	// daemon can attach a Fetcher.
	d := NewDispatcher(store.NewMem(), nil)
	if d.Interp == nil {
		t.Fatal("no interpreter")
	}
	var _ *sandbox.Interpreter = d.Interp
}
