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

package store

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/Comcast/blockwright/compiler"

	bolt "go.etcd.io/bbolt"
)

var (
	programsBucket = []byte("programs")
	bundlesBucket  = []byte("bundles")
)

// Bolt is a bbolt-backed Store: one bucket for saved programs, one for
// compiled bundles, keyed by guild id.
type Bolt struct {
	Debug    bool
	filename string
	db       *bolt.DB
}

// NewBolt makes a Bolt for the given file.  Call Open before use.
func NewBolt(filename string) *Bolt {
	return &Bolt{
		filename: filename,
	}
}

// Open opens the database file and ensures the buckets exist.
func (s *Bolt) Open(ctx context.Context) error {
	opts := &bolt.Options{
		Timeout: time.Second,
	}

	db, err := bolt.Open(s.filename, 0644, opts)
	if err != nil {
		return err
	}
	s.db = db

	return s.db.Update(func(tx *bolt.Tx) error {
		for _, bucket := range [][]byte{programsBucket, bundlesBucket} {
			if _, err := tx.CreateBucketIfNotExists(bucket); err != nil {
				return err
			}
		}
		return nil
	})
}

// Close closes the database.
func (s *Bolt) Close(ctx context.Context) error {
	if s == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Bolt) logf(format string, args ...interface{}) {
	if s.Debug {
		log.Printf("BoltDB "+format, args...)
	}
}

func (s *Bolt) put(bucket []byte, guild string, x interface{}) error {
	js, err := json.Marshal(x)
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucket).Put([]byte(guild), js)
	})
}

func (s *Bolt) get(bucket []byte, guild string, x interface{}) (bool, error) {
	var found bool
	err := s.db.View(func(tx *bolt.Tx) error {
		bs := tx.Bucket(bucket).Get([]byte(guild))
		if bs == nil {
			return nil
		}
		found = true
		return json.Unmarshal(bs, x)
	})
	return found, err
}

func (s *Bolt) WriteProgram(ctx context.Context, guild string, p *SavedProgram) error {
	s.logf("WriteProgram %s", guild)
	return s.put(programsBucket, guild, p)
}

func (s *Bolt) ReadProgram(ctx context.Context, guild string) (*SavedProgram, error) {
	s.logf("ReadProgram %s", guild)
	var p SavedProgram
	found, err := s.get(programsBucket, guild, &p)
	if err != nil || !found {
		return nil, err
	}
	return &p, nil
}

func (s *Bolt) WriteBundle(ctx context.Context, guild string, b *compiler.Bundle) error {
	s.logf("WriteBundle %s", guild)
	return s.put(bundlesBucket, guild, b)
}

func (s *Bolt) ReadBundle(ctx context.Context, guild string) (*compiler.Bundle, error) {
	s.logf("ReadBundle %s", guild)
	var b compiler.Bundle
	found, err := s.get(bundlesBucket, guild, &b)
	if err != nil || !found {
		return nil, err
	}
	return &b, nil
}
