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

package dispatch

import (
	"fmt"
	"strings"
)

// Params is an arriving event's parameter tuple.
type Params map[string]interface{}

// Lookup resolves a dotted path ("message.author.bot") over nested
// maps.  The second result is false if any step is missing.
func Lookup(params Params, path string) (interface{}, bool) {
	var x interface{} = map[string]interface{}(params)
	for _, step := range strings.Split(path, ".") {
		m, is := x.(map[string]interface{})
		if !is {
			return nil, false
		}
		v, have := m[step]
		if !have {
			return nil, false
		}
		x = v
	}
	return x, true
}

// Predicate is a static guard over an event's parameters.  Guards are
// code-defined, never user data.
type Predicate func(Params) bool

// Present is true when the path resolves to something truthy.
func Present(path string) Predicate {
	return func(ps Params) bool {
		x, have := Lookup(ps, path)
		if !have {
			return false
		}
		switch v := x.(type) {
		case nil:
			return false
		case bool:
			return v
		case string:
			return v != ""
		}
		return true
	}
}

// Not negates a predicate.
func Not(p Predicate) Predicate {
	return func(ps Params) bool {
		return !p(ps)
	}
}

// All is predicate conjunction.
func All(preds ...Predicate) Predicate {
	return func(ps Params) bool {
		for _, p := range preds {
			if !p(ps) {
				return false
			}
		}
		return true
	}
}

// True accepts everything.
func True(Params) bool {
	return true
}

// Binding statically describes one supported event kind: its parameter
// names, the guard deciding whether the event is relevant at all, and
// where in the tuple the tenant scope (and optionally a reply origin)
// lives.
type Binding struct {
	// Kind is the event name on the wire.
	Kind string

	// Parameters names the tuple, in order, as documented by the
	// platform.
	Parameters []string

	// Guard decides relevance.  False is a silent discard, not an
	// error.
	Guard Predicate

	// ScopePath resolves the tenant (guild) id.
	ScopePath string

	// OriginPath, when non-empty, resolves the channel that reply()
	// targets for this event kind.
	OriginPath string
}

// Scope extracts the tenant id, stringifying the resolved value.
func (b Binding) Scope(ps Params) (string, bool) {
	x, have := Lookup(ps, b.ScopePath)
	if !have || x == nil {
		return "", false
	}
	switch v := x.(type) {
	case string:
		if v == "" {
			return "", false
		}
		return v, true
	case float64:
		return fmt.Sprintf("%.0f", v), true
	}
	return "", false
}

// Origin extracts the reply channel, if this kind has one.
func (b Binding) Origin(ps Params) string {
	if b.OriginPath == "" {
		return ""
	}
	x, have := Lookup(ps, b.OriginPath)
	if !have {
		return ""
	}
	s, is := x.(string)
	if !is {
		return ""
	}
	return s
}

// DefaultBindings mirrors the platform's gateway surface.  The
// "message" kind additionally requires that the author isn't a bot, so
// tenant programs can't be driven into reply loops by other bots.
var DefaultBindings = []Binding{
	{
		Kind:       "channelCreate",
		Parameters: []string{"channel"},
		Guard:      Present("channel.guild"),
		ScopePath:  "channel.guild.id",
		OriginPath: "channel.id",
	},
	{
		Kind:       "channelDelete",
		Parameters: []string{"channel"},
		Guard:      Present("channel.guild"),
		ScopePath:  "channel.guild.id",
	},
	{
		Kind:       "emojiCreate",
		Parameters: []string{"emoji"},
		Guard:      Present("emoji.guild"),
		ScopePath:  "emoji.guild.id",
	},
	{
		Kind:       "emojiDelete",
		Parameters: []string{"emoji"},
		Guard:      Present("emoji.guild"),
		ScopePath:  "emoji.guild.id",
	},
	{
		Kind:       "guildBanAdd",
		Parameters: []string{"guild", "user"},
		Guard:      Present("guild"),
		ScopePath:  "guild.id",
	},
	{
		Kind:       "guildBanRemove",
		Parameters: []string{"guild", "user"},
		Guard:      Present("guild"),
		ScopePath:  "guild.id",
	},
	{
		Kind:       "guildMemberAdd",
		Parameters: []string{"member"},
		Guard:      Present("member.guild"),
		ScopePath:  "member.guild.id",
	},
	{
		Kind:       "guildMemberRemove",
		Parameters: []string{"member"},
		Guard:      Present("member.guild"),
		ScopePath:  "member.guild.id",
	},
	{
		Kind:       "message",
		Parameters: []string{"message"},
		Guard:      All(Present("message.guild"), Not(Present("message.author.bot"))),
		ScopePath:  "message.guild.id",
		OriginPath: "message.channel.id",
	},
	{
		Kind:       "messageDelete",
		Parameters: []string{"message"},
		Guard:      Present("message.guild"),
		ScopePath:  "message.guild.id",
		OriginPath: "message.channel.id",
	},
	{
		Kind:       "roleCreate",
		Parameters: []string{"role"},
		Guard:      Present("role.guild"),
		ScopePath:  "role.guild.id",
	},
	{
		Kind:       "roleDelete",
		Parameters: []string{"role"},
		Guard:      Present("role.guild"),
		ScopePath:  "role.guild.id",
	},
}
