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
	"errors"
	"fmt"
	"log"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// ErrNotConnected is returned by Send before a Listen has established a
// connection.
var ErrNotConnected = errors.New("gateway not connected")

// MQTT is a broker-backed Gateway for deployments where the platform
// events are republished on an MQTT bus instead of reaching us over the
// platform websocket directly.
type MQTT struct {
	// Broker is "tcp://host:port".
	Broker   string
	ClientID string
	Username string
	Password string

	// Topic is the subscription for inbound event frames.
	Topic string

	// OutTopic is where outbound send commands go.
	OutTopic string

	// Quiesce is the disconnection quiescence in milliseconds.
	Quiesce uint

	Debug bool

	client mqtt.Client
}

func (g *MQTT) logf(format string, args ...interface{}) {
	if g.Debug {
		log.Printf("gateway.MQTT "+format, args...)
	}
}

// Listen connects to the broker, subscribes, and delivers decoded
// events to h until ctx is done.
func (g *MQTT) Listen(ctx context.Context, h Handler) error {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(g.Broker)
	opts.SetClientID(g.ClientID)
	opts.Username = g.Username
	opts.Password = g.Password
	opts.SetKeepAlive(10 * time.Second)

	g.client = mqtt.NewClient(opts)

	if token := g.client.Connect(); token.Wait() && token.Error() != nil {
		return token.Error()
	}

	g.logf("connected: %s", g.Broker)

	token := g.client.Subscribe(g.Topic, 0, func(_ mqtt.Client, m mqtt.Message) {
		g.logf("heard %s %s", m.Topic(), m.Payload())
		e, err := ParseEvent(m.Payload())
		if err != nil {
			log.Printf("gateway.MQTT dropping undecodable frame: %s", err)
			return
		}
		h(ctx, e)
	})
	if token.Wait() && token.Error() != nil {
		return fmt.Errorf("subscribe %s: %s", g.Topic, token.Error())
	}

	<-ctx.Done()

	quiesce := g.Quiesce
	if quiesce == 0 {
		quiesce = 100
	}
	g.client.Disconnect(quiesce)
	return ctx.Err()
}

// Send publishes an outbound command.
func (g *MQTT) Send(ctx context.Context, channel, text string) error {
	if g.client == nil {
		return ErrNotConnected
	}
	js, err := json.Marshal(&outbound{
		Op:      "send",
		Channel: channel,
		Text:    text,
	})
	if err != nil {
		return err
	}
	token := g.client.Publish(g.OutTopic, 0, false, js)
	token.Wait()
	return token.Error()
}
