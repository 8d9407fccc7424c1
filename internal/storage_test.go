package internal

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/iksnae/synapse-chat/testutil"
)

func openTestStores(t *testing.T) map[string]Store {
	t.Helper()
	dir := testutil.CreateTempDir(t)

	sqliteStore, err := NewStore(BackendSQLite, filepath.Join(dir, "synapse.db"))
	if err != nil {
		t.Fatalf("NewStore(sqlite) error = %v", err)
	}
	boltStore, err := NewStore(BackendBolt, filepath.Join(dir, "synapse.bolt"))
	if err != nil {
		t.Fatalf("NewStore(bolt) error = %v", err)
	}
	stores := map[string]Store{
		BackendSQLite: sqliteStore,
		BackendBolt:   boltStore,
		BackendMemory: NewMemoryStore(),
	}
	t.Cleanup(func() {
		for _, s := range stores {
			s.Close()
		}
	})
	return stores
}

func TestStore_GetPutDelete(t *testing.T) {
	for name, store := range openTestStores(t) {
		t.Run(name, func(t *testing.T) {
			if _, err := store.Get("missing"); !errors.Is(err, ErrNotFound) {
				t.Errorf("Get(missing) error = %v, want ErrNotFound", err)
			}

			if err := store.Put("auth_token", []byte(`"abc"`)); err != nil {
				t.Fatalf("Put() error = %v", err)
			}
			if err := store.Put("auth_token", []byte(`"def"`)); err != nil {
				t.Fatalf("Put() overwrite error = %v", err)
			}
			got, err := store.Get("auth_token")
			if err != nil {
				t.Fatalf("Get() error = %v", err)
			}
			if string(got) != `"def"` {
				t.Errorf("Get() = %s, want \"def\"", got)
			}

			if err := store.Delete("auth_token"); err != nil {
				t.Fatalf("Delete() error = %v", err)
			}
			if err := store.Delete("auth_token"); err != nil {
				t.Errorf("Delete() of missing key error = %v", err)
			}
			if _, err := store.Get("auth_token"); !errors.Is(err, ErrNotFound) {
				t.Errorf("Get() after Delete() error = %v, want ErrNotFound", err)
			}
		})
	}
}

func TestStore_Keys(t *testing.T) {
	for name, store := range openTestStores(t) {
		t.Run(name, func(t *testing.T) {
			for _, k := range []string{"conversations:user:2", "conversations:device:1", "guest_request_count:device:1", "auth_user"} {
				if err := store.Put(k, []byte("1")); err != nil {
					t.Fatalf("Put(%s) error = %v", k, err)
				}
			}

			keys, err := store.Keys("conversations")
			if err != nil {
				t.Fatalf("Keys() error = %v", err)
			}
			want := []string{"conversations:device:1", "conversations:user:2"}
			if len(keys) != len(want) {
				t.Fatalf("Keys() = %v, want %v", keys, want)
			}
			for i := range want {
				if keys[i] != want[i] {
					t.Errorf("Keys()[%d] = %q, want %q", i, keys[i], want[i])
				}
			}
		})
	}
}

func TestStore_Reopen(t *testing.T) {
	dir := testutil.CreateTempDir(t)
	for _, backend := range []string{BackendSQLite, BackendBolt} {
		t.Run(backend, func(t *testing.T) {
			path := filepath.Join(dir, "reopen-"+backend)
			store, err := NewStore(backend, path)
			if err != nil {
				t.Fatalf("NewStore() error = %v", err)
			}
			if err := store.Put("device_id", []byte(`"d1"`)); err != nil {
				t.Fatalf("Put() error = %v", err)
			}
			store.Close()

			store, err = NewStore(backend, path)
			if err != nil {
				t.Fatalf("NewStore() reopen error = %v", err)
			}
			defer store.Close()
			got, err := store.Get("device_id")
			if err != nil || string(got) != `"d1"` {
				t.Errorf("Get() after reopen = %s, %v", got, err)
			}
		})
	}
}

func TestNewStore_UnsupportedBackend(t *testing.T) {
	if _, err := NewStore("redis", ""); err == nil {
		t.Error("NewStore(redis) should fail")
	}
}

func TestMemoryStore_FailWrites(t *testing.T) {
	store := NewMemoryStore()
	store.SetFailWrites(true)

	err := store.Put("k", []byte("v"))
	var storageErr *StorageError
	if !errors.As(err, &storageErr) {
		t.Fatalf("Put() error = %v, want StorageError", err)
	}

	store.SetFailWrites(false)
	if err := store.Put("k", []byte("v")); err != nil {
		t.Errorf("Put() after re-enabling writes error = %v", err)
	}
}
