package credentials

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/pulse-dashboard/internal/apperror"
	"github.com/sakif/pulse-dashboard/internal/auth"
	"github.com/sakif/pulse-dashboard/internal/repository"
	"github.com/sakif/pulse-dashboard/internal/repository/sqlite"
)

// fakeKV is an in-memory repository.KVStore that counts writes and can be
// told to fail.
type fakeKV struct {
	data   map[string][]byte
	puts   int
	putErr error
	getErr error
}

func newFakeKV() *fakeKV {
	return &fakeKV{data: make(map[string][]byte)}
}

func (f *fakeKV) Get(_ context.Context, key string) ([]byte, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	v, ok := f.data[key]
	if !ok {
		return nil, apperror.NotFound("record", key)
	}
	return append([]byte(nil), v...), nil
}

func (f *fakeKV) Put(_ context.Context, key string, value []byte) error {
	if f.putErr != nil {
		return f.putErr
	}
	f.puts++
	f.data[key] = append([]byte(nil), value...)
	return nil
}

func (f *fakeKV) Update(ctx context.Context, key string, fn repository.UpdateFunc) error {
	current, err := f.Get(ctx, key)
	if errors.Is(err, apperror.ErrNotFound) {
		current, err = nil, nil
	}
	if err != nil {
		return err
	}
	next, err := fn(current)
	if err != nil {
		return err
	}
	return f.Put(ctx, key, next)
}

func newTestStore(kv *fakeKV) *Store {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewStore(kv, auth.NewPasswordServiceForTest(4), logger)
}

func TestDisplayName(t *testing.T) {
	tests := []struct {
		email string
		want  string
	}{
		{"jane99@x.com", "jane"},
		{"j4n3@x.com", "jn"},
		{"plain@x.com", "plain"},
		{"2024@x.com", ""},
		{"Mary.Ann7@x.com", "Mary.Ann"},
		{"a@b@c", "a"},
	}

	for _, tt := range tests {
		t.Run(tt.email, func(t *testing.T) {
			assert.Equal(t, tt.want, DisplayName(tt.email))
		})
	}
}

func TestRegister_DerivesDisplayName(t *testing.T) {
	store := newTestStore(newFakeKV())

	rec, err := store.Register(context.Background(), "jane99@x.com", "p1", "female")
	require.NoError(t, err)

	assert.Equal(t, "jane", rec.DisplayName)
	assert.Equal(t, "jane99@x.com", rec.Email)
	assert.Equal(t, "female", rec.Gender)
	assert.NotEmpty(t, rec.ID)
	assert.NotEqual(t, "p1", rec.PasswordHash, "password must not be stored in clear")
}

func TestRegister_DuplicateEmailFailsWithoutWriting(t *testing.T) {
	kv := newFakeKV()
	store := newTestStore(kv)
	ctx := context.Background()

	_, err := store.Register(ctx, "jane99@x.com", "p1", "female")
	require.NoError(t, err)
	before := string(kv.data[usersKey])
	puts := kv.puts

	_, err = store.Register(ctx, "jane99@x.com", "other", "male")

	require.Error(t, err)
	assert.True(t, errors.Is(err, apperror.ErrDuplicateEmail))
	assert.Equal(t, puts, kv.puts, "a failed registration must not write")
	assert.Equal(t, before, string(kv.data[usersKey]))
}

func TestRegister_EmailMatchIsCaseSensitive(t *testing.T) {
	store := newTestStore(newFakeKV())
	ctx := context.Background()

	_, err := store.Register(ctx, "jane@x.com", "p1", "female")
	require.NoError(t, err)

	_, err = store.Register(ctx, "Jane@x.com", "p1", "female")
	assert.NoError(t, err, "emails differing only in case are distinct records")

	users, _ := store.List(ctx)
	assert.Len(t, users, 2)
}

func TestRegister_ValidationFailures(t *testing.T) {
	tests := []struct {
		name      string
		email     string
		password  string
		gender    string
		wantField string
	}{
		{"missing at", "jane.x.com", "p1", "female", "email"},
		{"empty local part", "@x.com", "p1", "female", "email"},
		{"empty domain", "jane@", "p1", "female", "email"},
		{"empty password", "jane@x.com", "", "female", "password"},
		{"unknown gender", "jane@x.com", "p1", "other", "gender"},
		{"empty gender", "jane@x.com", "p1", "", "gender"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			kv := newFakeKV()
			store := newTestStore(kv)

			_, err := store.Register(context.Background(), tt.email, tt.password, tt.gender)

			require.True(t, errors.Is(err, apperror.ErrValidation), "got %v", err)
			var appErr *apperror.AppError
			require.True(t, errors.As(err, &appErr))
			assert.Equal(t, tt.wantField, appErr.Field)
			assert.Zero(t, kv.puts)
		})
	}
}

func TestRegister_StorageFailureIsPropagated(t *testing.T) {
	kv := newFakeKV()
	kv.putErr = errors.New("disk full")
	store := newTestStore(kv)

	_, err := store.Register(context.Background(), "jane@x.com", "p1", "female")
	require.Error(t, err)

	kv.putErr = nil
	users, err := store.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, users)
}

func TestRegister_AppendsInOrder(t *testing.T) {
	store := newTestStore(newFakeKV())
	ctx := context.Background()

	for _, email := range []string{"a@x.com", "b@x.com", "c@x.com"} {
		_, err := store.Register(ctx, email, "pw", "male")
		require.NoError(t, err)
	}

	users, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, users, 3)
	assert.Equal(t, "a@x.com", users[0].Email)
	assert.Equal(t, "c@x.com", users[2].Email)
}

func TestAuthenticate(t *testing.T) {
	store := newTestStore(newFakeKV())
	ctx := context.Background()
	_, err := store.Register(ctx, "jane99@x.com", "p1", "female")
	require.NoError(t, err)

	tests := []struct {
		name     string
		email    string
		password string
		wantOK   bool
	}{
		{"exact match", "jane99@x.com", "p1", true},
		{"wrong password", "jane99@x.com", "p2", false},
		{"unknown email", "john@x.com", "p1", false},
		{"email differs in case", "Jane99@x.com", "p1", false},
		{"email with whitespace", " jane99@x.com", "p1", false},
		{"password with whitespace", "jane99@x.com", "p1 ", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, err := store.Authenticate(ctx, tt.email, tt.password)
			if tt.wantOK {
				require.NoError(t, err)
				assert.Equal(t, "jane", rec.DisplayName)
				assert.Equal(t, "female", rec.Gender)
				return
			}
			assert.True(t, errors.Is(err, apperror.ErrInvalidCredentials), "got %v", err)
		})
	}
}

func TestAuthenticate_EmptyStore(t *testing.T) {
	store := newTestStore(newFakeKV())

	_, err := store.Authenticate(context.Background(), "jane@x.com", "p1")
	assert.True(t, errors.Is(err, apperror.ErrInvalidCredentials))
}

func TestAuthenticate_StorageFailure(t *testing.T) {
	kv := newFakeKV()
	kv.getErr = errors.New("database is locked")
	store := newTestStore(kv)

	_, err := store.Authenticate(context.Background(), "jane@x.com", "p1")
	require.Error(t, err)
	assert.False(t, errors.Is(err, apperror.ErrInvalidCredentials),
		"infrastructure failures are not credential failures")
}

func TestStore_CorruptRecord(t *testing.T) {
	kv := newFakeKV()
	kv.data[usersKey] = []byte("{not json")
	store := newTestStore(kv)

	_, err := store.List(context.Background())
	assert.Error(t, err)
}

func TestStore_OnSQLite(t *testing.T) {
	db, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := NewStore(db, auth.NewPasswordServiceForTest(4), logger)
	ctx := context.Background()

	_, err = store.Register(ctx, "jane99@x.com", "p1", "female")
	require.NoError(t, err)

	_, err = store.Register(ctx, "jane99@x.com", "p1", "female")
	assert.True(t, errors.Is(err, apperror.ErrDuplicateEmail))

	rec, err := store.Authenticate(ctx, "jane99@x.com", "p1")
	require.NoError(t, err)
	assert.Equal(t, "jane", rec.DisplayName)
}

// openShared returns n stores, each on its own connection to one file, like
// the server and the admin CLI running side by side.
func openShared(t *testing.T, n int) []*Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "dashboard.db")
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	stores := make([]*Store, n)
	for i := range stores {
		db, err := sqlite.New(path)
		require.NoError(t, err)
		t.Cleanup(func() { db.Close() })
		stores[i] = NewStore(db, auth.NewPasswordServiceForTest(4), logger)
	}
	return stores
}

func TestRegister_ConcurrentProcessesKeepBothRecords(t *testing.T) {
	stores := openShared(t, 2)
	ctx := context.Background()
	emails := []string{"server@x.com", "admin@x.com"}

	var wg sync.WaitGroup
	errs := make([]error, len(stores))
	for i, store := range stores {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = store.Register(ctx, emails[i], "pw", "female")
		}()
	}
	wg.Wait()

	require.NoError(t, errs[0])
	require.NoError(t, errs[1])

	users, err := stores[0].List(ctx)
	require.NoError(t, err)
	var got []string
	for _, u := range users {
		got = append(got, u.Email)
	}
	assert.ElementsMatch(t, emails, got, "a concurrent registration must not drop the other")
}

func TestRegister_ConcurrentSameEmailAcrossProcesses(t *testing.T) {
	stores := openShared(t, 2)
	ctx := context.Background()

	var wg sync.WaitGroup
	errs := make([]error, len(stores))
	for i, store := range stores {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = store.Register(ctx, "jane99@x.com", "pw", "female")
		}()
	}
	wg.Wait()

	var ok, dup int
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, apperror.ErrDuplicateEmail):
			dup++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, ok, "exactly one registration wins")
	assert.Equal(t, 1, dup)

	users, err := stores[1].List(ctx)
	require.NoError(t, err)
	assert.Len(t, users, 1)
}
