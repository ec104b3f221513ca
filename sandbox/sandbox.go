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

// Package sandbox executes tenant-authored generated code on Goja with
// a bounded budget.  Tenant code never runs as host code: it runs in a
// fresh ECMAScript runtime per invocation, with an interrupt tied to
// the invocation's context and a small, explicit capability surface.
package sandbox

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/url"
	"time"

	"github.com/dop251/goja"
	"github.com/google/uuid"
	"github.com/gorhill/cronexpr"
)

var (
	// InterruptedMessage is the string value of Interrupted.
	InterruptedMessage = "RuntimeError: timeout"

	// Interrupted is returned by Exec if the execution is cut off by
	// its context.
	Interrupted = errors.New(InterruptedMessage)
)

// Actions is the capability surface a tenant program gets for one
// invocation.  The daemon wires it to the gateway client; tests wire a
// recorder.
type Actions interface {
	// Reply responds at the arriving event's origin, when the event
	// has one.
	Reply(ctx context.Context, text string) error

	// Send delivers text to a named channel in the tenant's scope.
	Send(ctx context.Context, channel, text string) error
}

// Interpreter runs compiled bundles.
type Interpreter struct {
	// Testing exposes a sleep() function to tenant code, which some
	// tests use to exercise interruption.
	Testing bool

	// Fetcher, if non-nil, backs the fetch() function.
	Fetcher *Fetcher
}

// NewInterpreter makes a new Interpreter.
func NewInterpreter() *Interpreter {
	return &Interpreter{}
}

func protest(o *goja.Runtime, x interface{}) {
	panic(o.ToValue(x))
}

// Exec runs the given source units in order on a single fresh runtime,
// with the event's parameter tuple bound as globals.  Units share the
// runtime so the shared unit's variables are visible to the per-event
// unit.
//
// If ctx is canceled or times out, the runtime is interrupted and Exec
// returns Interrupted.
func (i *Interpreter) Exec(ctx context.Context, units []string, params map[string]interface{}, acts Actions) error {
	o := goja.New()

	for name, val := range params {
		o.Set(name, val)
	}

	env := map[string]interface{}{}
	o.Set("_", env)

	o.Set("reply", func(text string) {
		if acts == nil {
			protest(o, "no actions available")
		}
		if err := acts.Reply(ctx, text); err != nil {
			protest(o, err.Error())
		}
	})

	o.Set("send", func(channel, text string) {
		if acts == nil {
			protest(o, "no actions available")
		}
		if err := acts.Send(ctx, channel, text); err != nil {
			protest(o, err.Error())
		}
	})

	o.Set("log", func(x interface{}) interface{} {
		switch vv := x.(type) {
		case goja.Value:
			x = vv.Export()
		}
		js, err := json.Marshal(&x)
		if err != nil {
			log.Println("sandbox.log (can't marshal: " + err.Error() + ")")
		} else {
			log.Println(string(js))
		}
		return x
	})

	o.Set("esc", func(s string) string {
		return url.QueryEscape(s)
	})

	o.Set("gensym", func() string {
		return uuid.NewString()
	})

	o.Set("cronNext", func(expr string) string {
		c, err := cronexpr.Parse(expr)
		if err != nil {
			protest(o, err.Error())
		}
		return c.Next(time.Now()).UTC().Format(time.RFC3339Nano)
	})

	o.Set("fetch", func(rawurl string) map[string]interface{} {
		if i.Fetcher == nil {
			protest(o, "no fetch available")
		}
		resp, err := i.Fetcher.Get(ctx, rawurl)
		if err != nil {
			protest(o, err.Error())
		}
		return map[string]interface{}{
			"status": resp.StatusCode,
			"body":   resp.Body,
		}
	})

	if i.Testing {
		o.Set("sleep", func(ms int) {
			time.Sleep(time.Duration(ms) * time.Millisecond)
		})
	}

	// Terminate this goroutine as soon as possible.  If Exec cancels
	// after the last RunScript returns, the Interrupt is never
	// observed, which is the behavior we want.
	ictx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		<-ictx.Done()
		o.Interrupt(InterruptedMessage)
	}()

	for _, src := range units {
		if src == "" {
			continue
		}
		if _, err := o.RunScript("", src); err != nil {
			if _, is := err.(*goja.InterruptedError); is {
				return Interrupted
			}
			return err
		}
	}

	return nil
}
