package catalog

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T, cfg StoreConfig) *Store {
	t.Helper()
	if cfg.Path == "" {
		cfg.Path = filepath.Join(t.TempDir(), "data", "data.xlsx")
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	store, err := NewStore(cfg)
	require.NoError(t, err)
	return store
}

func TestStoreSeedsMissingFile(t *testing.T) {
	store := newTestStore(t, StoreConfig{})
	ctx := context.Background()

	products, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, DefaultSeed(), products)

	_, err = os.Stat(store.Path())
	require.NoError(t, err, "seed must be persisted")

	p, ok, err := store.Get(ctx, "8999876543210")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "Kasur Lipat Iskra 6cm", p.Name)

	_, ok, err = store.Get(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStoreDoesNotReseedExistingFile(t *testing.T) {
	store := newTestStore(t, StoreConfig{})
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, []Product{{ID: "only", Name: "One"}}))
	require.NoError(t, store.EnsureInitialized(ctx))

	products, err := store.Load(ctx)
	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.Equal(t, "only", products[0].ID)
}

func TestStoreEmptySeed(t *testing.T) {
	store := newTestStore(t, StoreConfig{Seed: []Product{}})
	products, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, products)
}

func TestStoreSaveLoadRoundTrip(t *testing.T) {
	store := newTestStore(t, StoreConfig{Schema: NewSchema(SchemaOptions{MediaColumns: true})})
	ctx := context.Background()

	in := []Product{
		{ID: "001", Name: "Guling", Cost: -12, Profit: 3, TieredPrice: 4, Price: 5, Source: "A", Notes: " spasi ", Photo: "g.jpg", Barcode: "899"},
		{ID: "8991234567890", Name: "  Bantal ", Price: 50000},
	}
	require.NoError(t, store.Save(ctx, in))

	out, err := store.Load(ctx)
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, in[0], out[0])
	assert.Equal(t, "Bantal", out[1].Name, "writes are normalized")
	assert.Equal(t, "8991234567890", out[1].ID)
}

func TestStoreUpsertMerge(t *testing.T) {
	store := newTestStore(t, StoreConfig{Seed: []Product{{ID: "1", Name: "A"}, {ID: "2", Name: "B"}}})
	ctx := context.Background()

	result, err := store.UpsertMerge(ctx, RawTable{
		Header: []string{"kode", "nama"},
		Rows:   [][]any{{"2", "B2"}, {"3", "C"}, {"", "dropped"}},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Inserted)
	assert.Equal(t, 1, result.Updated)
	assert.Equal(t, 1, result.DroppedRows)

	products, err := store.Load(ctx)
	require.NoError(t, err)
	got := make([]string, 0, len(products))
	for _, p := range products {
		got = append(got, p.ID+":"+p.Name)
	}
	assert.Equal(t, []string{"1:A", "2:B2", "3:C"}, got)
}

func TestStoreUpsertMergeMissingIDLeavesFile(t *testing.T) {
	store := newTestStore(t, StoreConfig{})
	ctx := context.Background()
	require.NoError(t, store.EnsureInitialized(ctx))

	_, err := store.UpsertMerge(ctx, RawTable{Header: []string{"nama"}, Rows: [][]any{{"x"}}})
	require.ErrorIs(t, err, ErrMissingRequiredColumn)

	products, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, DefaultSeed(), products)
}

func TestStoreReplace(t *testing.T) {
	store := newTestStore(t, StoreConfig{})
	ctx := context.Background()

	result, err := store.Replace(ctx, RawTable{
		Header: []string{"id", "harga"},
		Rows:   [][]any{{"9", "Rp 1.500"}},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Inserted)

	products, err := store.Load(ctx)
	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.Equal(t, int64(1500), products[0].Price)
}

func TestStoreCorruptFilePolicies(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.xlsx")
	require.NoError(t, os.WriteFile(path, []byte("definitely not a workbook"), 0o644))
	ctx := context.Background()

	failing := newTestStore(t, StoreConfig{Path: path})
	_, err := failing.Load(ctx)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrFileParse))
	assert.Equal(t, CodeFileParse, CodeOf(err))

	degraded := newTestStore(t, StoreConfig{Path: path, OnCorrupt: CorruptDegrade})
	products, err := degraded.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, products)

	_, err = degraded.UpsertMerge(ctx, RawTable{Header: []string{"id"}, Rows: [][]any{{"1"}}})
	assert.ErrorIs(t, err, ErrFileParse, "writers never merge over a corrupt file")
}

func TestNewStoreValidatesConfig(t *testing.T) {
	_, err := NewStore(StoreConfig{})
	assert.Error(t, err)

	_, err = NewStore(StoreConfig{Path: "x.xlsx", OnCorrupt: "ignore"})
	assert.Error(t, err)
}

func TestStoreConcurrentUpserts(t *testing.T) {
	store := newTestStore(t, StoreConfig{Seed: []Product{}})
	ctx := context.Background()

	const writers = 8
	var wg sync.WaitGroup
	errs := make(chan error, writers)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := store.UpsertMerge(ctx, RawTable{
				Header: []string{"id", "name"},
				Rows:   [][]any{{fmt.Sprintf("id-%d", i), "n"}},
			})
			errs <- err
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	products, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Len(t, products, writers)
}

func TestStoreCancelledContext(t *testing.T) {
	store := newTestStore(t, StoreConfig{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := store.Save(ctx, DefaultSeed())
	assert.ErrorIs(t, err, context.Canceled)
}
