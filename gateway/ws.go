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

package gateway

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
)

// WS is a websocket-backed Gateway.  The platform's gateway is a
// websocket that pushes event frames and accepts outbound commands on
// the same connection.
type WS struct {
	// URL is the gateway endpoint.
	URL string

	// Token, if set, rides along as an Authorization header.
	Token string

	Debug bool

	writeMu sync.Mutex
	conn    *websocket.Conn
}

func (g *WS) logf(format string, args ...interface{}) {
	if g.Debug {
		log.Printf("gateway.WS "+format, args...)
	}
}

// Listen dials the gateway and delivers decoded events to h until ctx
// is done or the read loop fails.
func (g *WS) Listen(ctx context.Context, h Handler) error {
	var header http.Header
	if g.Token != "" {
		header = http.Header{
			"Authorization": []string{g.Token},
		}
	}

	c, _, err := websocket.DefaultDialer.Dial(g.URL, header)
	if err != nil {
		return err
	}
	defer c.Close()

	g.writeMu.Lock()
	g.conn = c
	g.writeMu.Unlock()

	g.logf("listening: %s", g.URL)

	go func() {
		<-ctx.Done()
		g.logf("closing per ctx")
		c.Close()
	}()

	for {
		_, message, err := c.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return err
		}
		g.logf("heard %s", message)

		e, err := ParseEvent(message)
		if err != nil {
			log.Printf("gateway.WS dropping undecodable frame: %s", err)
			continue
		}

		h(ctx, e)
	}
}

// Send writes an outbound command on the gateway connection.
func (g *WS) Send(ctx context.Context, channel, text string) error {
	js, err := json.Marshal(&outbound{
		Op:      "send",
		Channel: channel,
		Text:    text,
	})
	if err != nil {
		return err
	}

	g.writeMu.Lock()
	defer g.writeMu.Unlock()
	if g.conn == nil {
		return ErrNotConnected
	}
	g.logf("writing %s", js)
	return g.conn.WriteMessage(websocket.TextMessage, js)
}
