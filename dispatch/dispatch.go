/* Copyright 2021 Comcast Cable Communications Management, LLC
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

// Package dispatch binds arriving external events to tenant programs.
//
// Per event: evaluate the kind's static guard, resolve the tenant
// scope, load that tenant's compiled bundle, and execute the shared
// unit then the event-specific unit in the sandbox.  A guard miss, an
// unresolvable scope, or an absent bundle is a silent discard.  An
// execution fault is caught and logged with tenant and event context;
// it never propagates and is never retried.  One tenant's faulty
// program must not block delivery to other tenants, so handling runs
// concurrently across invocations with no shared mutable state.
package dispatch

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/Comcast/blockwright/gateway"
	"github.com/Comcast/blockwright/sandbox"
	"github.com/Comcast/blockwright/store"

	"github.com/google/uuid"
)

// DefaultTimeout is the per-invocation execution budget when the
// Dispatcher doesn't set one.
var DefaultTimeout = 5 * time.Second

var errNoOrigin = errors.New("this event has no reply origin")

// SendFunc delivers outbound text to a channel.  The daemon wires it to
// the gateway client.
type SendFunc func(ctx context.Context, channel, text string) error

// Dispatcher routes events to tenant programs.
type Dispatcher struct {
	Bindings []Binding
	Store    store.Store
	Interp   *sandbox.Interpreter
	Send     SendFunc

	// Timeout bounds one invocation's execution.
	Timeout time.Duration

	Debug bool
}

// NewDispatcher makes a Dispatcher with the default binding table and
// timeout.
func NewDispatcher(s store.Store, send SendFunc) *Dispatcher {
	return &Dispatcher{
		Bindings: DefaultBindings,
		Store:    s,
		Interp:   sandbox.NewInterpreter(),
		Send:     send,
		Timeout:  DefaultTimeout,
	}
}

func (d *Dispatcher) logf(format string, args ...interface{}) {
	if d.Debug {
		log.Printf("dispatch "+format, args...)
	}
}

// Run listens on the gateway until ctx is done.
func (d *Dispatcher) Run(ctx context.Context, gw gateway.Gateway) error {
	return gw.Listen(ctx, d.Dispatch)
}

// Dispatch accepts one arriving event and returns immediately; handling
// proceeds concurrently.
func (d *Dispatcher) Dispatch(ctx context.Context, e gateway.Event) {
	go d.Handle(ctx, e)
}

// Handle processes one event synchronously: guard, scope, bundle,
// execute.  It never returns an error; faults end here.
func (d *Dispatcher) Handle(ctx context.Context, e gateway.Event) {
	b, have := d.binding(e.Kind)
	if !have {
		// An event kind we don't bind isn't an error; the gateway
		// may carry more kinds than we care about.
		d.logf("no binding for %q", e.Kind)
		return
	}

	ps := Params(e.Params)

	if !b.Guard(ps) {
		return
	}

	guild, ok := b.Scope(ps)
	if !ok {
		return
	}

	bundle, err := d.Store.ReadBundle(ctx, guild)
	if err != nil {
		log.Printf("dispatch %s guild=%s: bundle read: %s", e.Kind, guild, err)
		return
	}
	if bundle == nil {
		// No program configured yet: normal, not an error.
		return
	}

	unit, have := bundle.PerEvent[e.Kind]
	if bundle.Shared == "" && (!have || unit == "") {
		return
	}

	var (
		id      = uuid.NewString()
		timeout = d.Timeout
	)
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	tctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	acts := &actions{
		send:   d.Send,
		origin: b.Origin(ps),
	}

	d.logf("%s guild=%s invocation=%s", e.Kind, guild, id)

	// Shared first, then the event-specific unit; both on one
	// runtime so shared definitions are visible.
	if err := d.Interp.Exec(tctx, []string{bundle.Shared, unit}, e.Params, acts); err != nil {
		// Caught and logged, never propagated, never retried: a
		// fault inside tenant code is the tenant program's own
		// responsibility.
		log.Printf("dispatch %s guild=%s invocation=%s: %s", e.Kind, guild, id, err)
	}
}

func (d *Dispatcher) binding(kind string) (Binding, bool) {
	for _, b := range d.Bindings {
		if b.Kind == kind {
			return b, true
		}
	}
	return Binding{}, false
}

// actions adapts the dispatcher's send path to the sandbox's capability
// surface for one invocation.
type actions struct {
	send   SendFunc
	origin string
}

func (a *actions) Reply(ctx context.Context, text string) error {
	if a.origin == "" {
		return errNoOrigin
	}
	return a.Send(ctx, a.origin, text)
}

func (a *actions) Send(ctx context.Context, channel, text string) error {
	if a.send == nil {
		return errors.New("no send path configured")
	}
	return a.send(ctx, channel, text)
}
