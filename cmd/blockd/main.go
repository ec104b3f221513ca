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

// blockd is the block-program daemon: it serves the editor payload,
// accepts program saves, and dispatches gateway events to tenants'
// compiled programs.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"

	"github.com/Comcast/blockwright/dispatch"
	"github.com/Comcast/blockwright/gateway"
	"github.com/Comcast/blockwright/sandbox"
	"github.com/Comcast/blockwright/store"
)

func main() {
	var (
		configFile = flag.String("config", "blockd.yaml", "configuration file")
		debug      = flag.Bool("debug", false, "more logging")
	)
	flag.Parse()

	if err := run(*configFile, *debug); err != nil {
		log.Fatal(err)
	}
}

func run(configFile string, debug bool) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	config, err := LoadConfig(configFile)
	if err != nil {
		return err
	}
	config.Debug = config.Debug || debug

	var st store.Store
	if config.DataFile == "" {
		st = store.NewMem()
	} else {
		b := store.NewBolt(config.DataFile)
		b.Debug = config.Debug
		if err := b.Open(ctx); err != nil {
			return err
		}
		defer b.Close(ctx)
		st = b
	}

	gw, err := newGateway(config)
	if err != nil {
		return err
	}

	d := dispatch.NewDispatcher(st, gw.Send)
	d.Debug = config.Debug
	if timeout := config.ExecTimeout(); 0 < timeout {
		d.Timeout = timeout
	}

	fetcher, err := sandbox.NewFetcher()
	if err != nil {
		return err
	}
	d.Interp.Fetcher = fetcher

	svc := &Service{
		Config: config,
		Store:  st,

		// ToDo: Wire to the identity collaborator's membership
		// check instead of allowing everything.
		CanConfigure: func(actor, guild string) bool { return true },
	}

	if config.ExampleWorkspace != "" {
		bs, err := os.ReadFile(config.ExampleWorkspace)
		if err != nil {
			return err
		}
		svc.Example = bs
	}

	errs := make(chan error, 2)

	go func() {
		log.Printf("blockd dispatching from gateway (%s)", config.Gateway.Kind)
		errs <- d.Run(ctx, gw)
	}()

	go func() {
		log.Printf("blockd listening on %s", config.HTTPAddr)
		errs <- http.ListenAndServe(config.HTTPAddr, svc.mux())
	}()

	return <-errs
}

func newGateway(config *Config) (gateway.Gateway, error) {
	switch config.Gateway.Kind {
	case "", "ws":
		return &gateway.WS{
			URL:   config.Gateway.URL,
			Token: config.Gateway.Token,
			Debug: config.Debug,
		}, nil
	case "mqtt":
		return &gateway.MQTT{
			Broker:   config.Gateway.Broker,
			ClientID: config.Gateway.ClientID,
			Username: config.Gateway.Username,
			Password: config.Gateway.Password,
			Topic:    config.Gateway.Topic,
			OutTopic: config.Gateway.OutTopic,
			Debug:    config.Debug,
		}, nil
	default:
		return nil, fmt.Errorf("unknown gateway kind %q", config.Gateway.Kind)
	}
}
