package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"strconv"
	"sync"
	"testing"

	"github.com/sakif/pulse-dashboard/internal/apperror"
)

// newTestDB returns a fresh in-memory database, closed when the test ends.
func newTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := New(":memory:")
	if err != nil {
		t.Fatalf("failed to create test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestGet_MissingKeyIsNotFound(t *testing.T) {
	db := newTestDB(t)

	_, err := db.Get(context.Background(), "users")
	if err == nil {
		t.Fatal("Get() should fail for a key that was never written")
	}
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("Get() error = %v, want ErrNotFound", err)
	}
}

func TestPutGet_RoundTrip(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	if err := db.Put(ctx, "users", []byte(`[{"email":"a@b.c"}]`)); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	got, err := db.Get(ctx, "users")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if string(got) != `[{"email":"a@b.c"}]` {
		t.Errorf("Get() = %s", got)
	}
}

func TestPut_OverwritesExistingValue(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	if err := db.Put(ctx, "users", []byte(`[]`)); err != nil {
		t.Fatalf("first Put() error = %v", err)
	}
	if err := db.Put(ctx, "users", []byte(`[1]`)); err != nil {
		t.Fatalf("second Put() error = %v", err)
	}

	got, err := db.Get(ctx, "users")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if string(got) != `[1]` {
		t.Errorf("Get() = %s, want [1]", got)
	}
}

func TestPut_KeysAreIndependent(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	if err := db.Put(ctx, "users", []byte(`"u"`)); err != nil {
		t.Fatalf("Put(users) error = %v", err)
	}
	if err := db.Put(ctx, "other", []byte(`"o"`)); err != nil {
		t.Fatalf("Put(other) error = %v", err)
	}

	got, _ := db.Get(ctx, "users")
	if string(got) != `"u"` {
		t.Errorf("Get(users) = %s, want \"u\"", got)
	}
}

func TestNew_PersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dashboard.db")
	ctx := context.Background()

	db, err := New(path)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if err := db.Put(ctx, "users", []byte(`["kept"]`)); err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	db.Close()

	reopened, err := New(path)
	if err != nil {
		t.Fatalf("reopen error = %v", err)
	}
	defer reopened.Close()

	got, err := reopened.Get(ctx, "users")
	if err != nil {
		t.Fatalf("Get() after reopen error = %v", err)
	}
	if string(got) != `["kept"]` {
		t.Errorf("Get() after reopen = %s", got)
	}
}

func TestUpdate_CreatesMissingKey(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	err := db.Update(ctx, "users", func(current []byte) ([]byte, error) {
		if current != nil {
			t.Errorf("current = %s, want nil for a missing key", current)
		}
		return []byte(`["first"]`), nil
	})
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	got, err := db.Get(ctx, "users")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if string(got) != `["first"]` {
		t.Errorf("Get() = %s", got)
	}
}

func TestUpdate_CallbackErrorWritesNothing(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	if err := db.Put(ctx, "users", []byte(`["kept"]`)); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	taken := apperror.DuplicateEmail("a@x.com")
	err := db.Update(ctx, "users", func([]byte) ([]byte, error) {
		return nil, taken
	})
	if err != taken {
		t.Fatalf("Update() error = %v, want the callback's error unchanged", err)
	}

	got, _ := db.Get(ctx, "users")
	if string(got) != `["kept"]` {
		t.Errorf("Get() = %s, want the value from before the failed update", got)
	}
}

// TestUpdate_SerializesWritersAcrossConnections opens the same file twice,
// the way the server and the admin CLI do, and increments one counter from
// both. Every increment must survive.
func TestUpdate_SerializesWritersAcrossConnections(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dashboard.db")
	ctx := context.Background()

	var handles [2]*DB
	for i := range handles {
		db, err := New(path)
		if err != nil {
			t.Fatalf("New() #%d error = %v", i, err)
		}
		t.Cleanup(func() { db.Close() })
		handles[i] = db
	}

	const perHandle = 25
	increment := func(current []byte) ([]byte, error) {
		n := 0
		if current != nil {
			var err error
			if n, err = strconv.Atoi(string(current)); err != nil {
				return nil, err
			}
		}
		return []byte(strconv.Itoa(n + 1)), nil
	}

	var wg sync.WaitGroup
	errs := make(chan error, len(handles)*perHandle)
	for _, db := range handles {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range perHandle {
				if err := db.Update(ctx, "counter", increment); err != nil {
					errs <- err
				}
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Errorf("Update() error = %v", err)
	}

	got, err := handles[0].Get(ctx, "counter")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if want := strconv.Itoa(len(handles) * perHandle); string(got) != want {
		t.Errorf("counter = %s, want %s", got, want)
	}
}
