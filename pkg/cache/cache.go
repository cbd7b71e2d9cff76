// Package cache memoizes generated texture geometry.
//
// Entries are opaque kernel-encoded solids keyed by a content hash of the
// inputs that produced them. Storage is injected: DirStore persists one file
// per entry, MemStore keeps entries in memory for tests and short-lived
// processes. Every storage or decoding problem is reported as a miss, and
// failed writes are logged and dropped, so a broken cache only ever costs
// recomputation.
package cache

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync/atomic"

	"github.com/chazu/relief/pkg/kernel"
	"github.com/chazu/relief/pkg/logging"
	"github.com/ugorji/go/codec"
)

// ErrNotFound is returned by a Store when no entry exists for a key.
var ErrNotFound = errors.New("cache: entry not found")

// ErrInvalidKey is returned for keys that cannot name a store entry.
var ErrInvalidKey = errors.New("cache: invalid key")

// Key identifies a cache entry. Keys have the form <op>-<hex sha256>.
type Key string

// Store is a keyed blob store.
type Store interface {
	Read(key Key) ([]byte, error)
	Write(key Key, data []byte) error
}

// Codec serializes solids. kernel.Kernel implementations satisfy it.
type Codec interface {
	Encode(w io.Writer, s kernel.Solid) error
	Decode(r io.Reader) (kernel.Solid, error)
}

// Stats counts cache traffic.
type Stats struct {
	Hits     int64
	Misses   int64
	Writes   int64
	Failures int64 // unreadable entries and failed writes
}

// Cache reads and writes solids through a Store.
type Cache struct {
	store Store
	codec Codec

	hits, misses, writes, failures atomic.Int64
}

// New returns a cache over store using codec for (de)serialization.
func New(store Store, c Codec) *Cache {
	return &Cache{store: store, codec: c}
}

// Get returns the cached solid for key. Missing, unreadable and
// undecodable entries all report a miss.
func (c *Cache) Get(key Key) (kernel.Solid, bool) {
	log := logging.Logger()
	data, err := c.store.Read(key)
	if err != nil {
		c.misses.Add(1)
		if !errors.Is(err, ErrNotFound) {
			c.failures.Add(1)
			log.Warn("cache read failed", "key", string(key), "err", err)
		}
		return nil, false
	}
	s, err := c.codec.Decode(bytes.NewReader(data))
	if err != nil {
		c.misses.Add(1)
		c.failures.Add(1)
		log.Warn("cache entry unreadable, recomputing", "key", string(key), "err", err)
		return nil, false
	}
	c.hits.Add(1)
	log.Debug("cache hit", "key", string(key), "bytes", len(data))
	return s, true
}

// Put stores s under key. Failures are logged and otherwise ignored.
func (c *Cache) Put(key Key, s kernel.Solid) {
	log := logging.Logger()
	var buf bytes.Buffer
	if err := c.codec.Encode(&buf, s); err != nil {
		c.failures.Add(1)
		log.Warn("cache encode failed", "key", string(key), "err", err)
		return
	}
	if err := c.store.Write(key, buf.Bytes()); err != nil {
		c.failures.Add(1)
		log.Warn("cache write failed", "key", string(key), "err", err)
		return
	}
	c.writes.Add(1)
	log.Debug("cache write", "key", string(key), "bytes", buf.Len())
}

// Stats returns a snapshot of the cache counters.
func (c *Cache) Stats() Stats {
	return Stats{
		Hits:     c.hits.Load(),
		Misses:   c.misses.Load(),
		Writes:   c.writes.Load(),
		Failures: c.failures.Load(),
	}
}

var keyHandle = func() *codec.CborHandle {
	h := &codec.CborHandle{}
	h.Canonical = true
	return h
}()

// NewKey hashes op and fields into a key. Fields are encoded as canonical
// CBOR, so equal values always produce equal keys regardless of map order.
func NewKey(op string, fields ...any) (Key, error) {
	if op == "" || strings.ContainsAny(op, `/\.`) {
		return "", fmt.Errorf("%w: operation %q", ErrInvalidKey, op)
	}
	h := sha256.New()
	enc := codec.NewEncoder(h, keyHandle)
	if err := enc.Encode(append([]any{op}, fields...)); err != nil {
		return "", fmt.Errorf("cache: hashing key fields: %w", err)
	}
	return Key(op + "-" + hex.EncodeToString(h.Sum(nil))), nil
}

func validKey(key Key) error {
	if key == "" || strings.ContainsAny(string(key), `/\`) || strings.Contains(string(key), "..") {
		return fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	return nil
}
