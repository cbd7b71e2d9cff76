package cache

import (
	"bytes"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/chazu/relief/pkg/kernel/sdfx"
	"github.com/chazu/relief/pkg/logging"
)

func TestNewKey(t *testing.T) {
	type spec struct {
		Width float64
		Depth float64
	}
	a, err := NewKey("brick", spec{8, 1.5}, "top")
	if err != nil {
		t.Fatalf("NewKey: %v", err)
	}
	b, _ := NewKey("brick", spec{8, 1.5}, "top")
	c, _ := NewKey("brick", spec{8, 2}, "top")
	d, _ := NewKey("hex", spec{8, 1.5}, "top")

	if a != b {
		t.Errorf("equal inputs gave different keys: %s vs %s", a, b)
	}
	if a == c || a == d {
		t.Error("different inputs gave the same key")
	}
	if !strings.HasPrefix(string(a), "brick-") || len(a) != len("brick-")+64 {
		t.Errorf("unexpected key format %q", a)
	}
}

func TestNewKeyMapOrder(t *testing.T) {
	m1 := map[string]float64{"a": 1, "b": 2, "c": 3}
	m2 := map[string]float64{"c": 3, "b": 2, "a": 1}
	k1, _ := NewKey("op", m1)
	k2, _ := NewKey("op", m2)
	if k1 != k2 {
		t.Error("map iteration order leaked into the key")
	}
}

func TestNewKeyInvalidOp(t *testing.T) {
	for _, op := range []string{"", "../x", "a/b", "a.b"} {
		if _, err := NewKey(op); !errors.Is(err, ErrInvalidKey) {
			t.Errorf("NewKey(%q) = %v, want ErrInvalidKey", op, err)
		}
	}
}

func TestCacheRoundTrip(t *testing.T) {
	k := sdfx.New()
	store := NewMemStore()
	c := New(store, k)

	key, _ := NewKey("test", 1)
	if _, ok := c.Get(key); ok {
		t.Fatal("empty cache reported a hit")
	}

	box := k.Box(4, 5, 6)
	c.Put(key, box)
	got, ok := c.Get(key)
	if !ok {
		t.Fatal("expected a hit after Put")
	}
	wantMin, wantMax := box.BoundingBox()
	gotMin, gotMax := got.BoundingBox()
	if wantMin != gotMin || wantMax != gotMax {
		t.Errorf("cached solid bounds %v..%v, want %v..%v", gotMin, gotMax, wantMin, wantMax)
	}

	st := c.Stats()
	if st.Hits != 1 || st.Misses != 1 || st.Writes != 1 || st.Failures != 0 {
		t.Errorf("stats = %+v", st)
	}
}

func TestCacheCorruptEntryIsMiss(t *testing.T) {
	store := NewMemStore()
	c := New(store, sdfx.New())
	key, _ := NewKey("test", "corrupt")
	if err := store.Write(key, []byte{0xff, 0x00, 0x13}); err != nil {
		t.Fatal(err)
	}
	if _, ok := c.Get(key); ok {
		t.Fatal("corrupt entry reported a hit")
	}
	if st := c.Stats(); st.Failures != 1 || st.Misses != 1 {
		t.Errorf("stats = %+v", st)
	}
}

type failingStore struct{}

func (failingStore) Read(Key) ([]byte, error)  { return nil, errors.New("disk on fire") }
func (failingStore) Write(Key, []byte) error   { return errors.New("disk on fire") }

func TestCacheStoreFailures(t *testing.T) {
	k := sdfx.New()
	c := New(failingStore{}, k)
	key, _ := NewKey("test", 2)

	c.Put(key, k.Box(1, 1, 1))
	if _, ok := c.Get(key); ok {
		t.Fatal("failing store reported a hit")
	}
	st := c.Stats()
	if st.Failures != 2 || st.Writes != 0 {
		t.Errorf("stats = %+v", st)
	}
}

func TestDirStore(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "caches")
	store := NewDirStore(dir)
	key, _ := NewKey("hex", 42)

	if _, err := store.Read(key); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Read before write = %v, want ErrNotFound", err)
	}
	if err := store.Write(key, []byte("payload")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	data, err := store.Read(key)
	if err != nil || string(data) != "payload" {
		t.Fatalf("Read = %q, %v", data, err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].Name() != string(key)+FileExt {
		t.Errorf("directory holds %v, want a single %s file", entries, FileExt)
	}

	if err := store.Write("../escape", nil); !errors.Is(err, ErrInvalidKey) {
		t.Errorf("Write(../escape) = %v, want ErrInvalidKey", err)
	}
}

func TestDirStoreWithCache(t *testing.T) {
	k := sdfx.New()
	dir := t.TempDir()
	key, _ := NewKey("brick", "persisted")

	New(NewDirStore(dir), k).Put(key, k.Box(2, 2, 2))

	// A fresh cache over the same directory sees the entry.
	c := New(NewDirStore(dir), k)
	if _, ok := c.Get(key); !ok {
		t.Fatal("entry did not survive across cache instances")
	}

	// Truncating the file turns the entry into a miss.
	if err := os.WriteFile(filepath.Join(dir, string(key)+FileExt), []byte{}, 0o644); err != nil {
		t.Fatal(err)
	}
	if _, ok := c.Get(key); ok {
		t.Error("truncated entry reported a hit")
	}
}

func TestCacheTrafficLogsAtDebug(t *testing.T) {
	var buf bytes.Buffer
	logging.SetLogger(slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))
	defer logging.SetLogger(nil)

	k := sdfx.New()
	c := New(NewMemStore(), k)
	key, _ := NewKey("test", 2)
	c.Put(key, k.Box(1, 1, 1))
	if _, ok := c.Get(key); !ok {
		t.Fatal("expected a hit")
	}

	out := buf.String()
	for _, msg := range []string{"cache write", "cache hit"} {
		line := ""
		for _, l := range strings.Split(out, "\n") {
			if strings.Contains(l, "msg=\""+msg+"\"") {
				line = l
			}
		}
		if !strings.Contains(line, "level=DEBUG") {
			t.Errorf("%s not logged at debug: %q", msg, line)
		}
	}
}
