package catalog

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"sync"

	"golang.org/x/sync/singleflight"
)

// CorruptPolicy decides what Load does with a backing file it cannot parse.
type CorruptPolicy string

const (
	// CorruptFail surfaces ErrFileParse to the caller.
	CorruptFail CorruptPolicy = "fail"
	// CorruptDegrade logs a warning and returns an empty table.
	CorruptDegrade CorruptPolicy = "degrade"
)

// StoreConfig configures a Store.
type StoreConfig struct {
	// Path of the xlsx backing file.
	Path string
	// Schema defaults to DefaultSchema.
	Schema *Schema
	// Seed is written when the backing file does not exist. Nil means
	// DefaultSeed; use an empty non-nil slice for an empty store.
	Seed []Product
	// OnCorrupt defaults to CorruptFail. Writers always fail on a corrupt
	// file regardless of the policy.
	OnCorrupt CorruptPolicy
	Logger    *slog.Logger
}

// Store is a file-backed product table. Writers are serialized; every write
// replaces the file atomically so readers never see a partial workbook.
type Store struct {
	path       string
	normalizer *Normalizer
	seed       []Product
	onCorrupt  CorruptPolicy
	logger     *slog.Logger

	mu    sync.Mutex
	loads singleflight.Group
}

// NewStore validates cfg and constructs a Store. It does not touch the
// filesystem.
func NewStore(cfg StoreConfig) (*Store, error) {
	if cfg.Path == "" {
		return nil, errors.New("catalog: store path required")
	}
	switch cfg.OnCorrupt {
	case "":
		cfg.OnCorrupt = CorruptFail
	case CorruptFail, CorruptDegrade:
	default:
		return nil, fmt.Errorf("catalog: unknown corrupt-file policy %q", cfg.OnCorrupt)
	}
	if cfg.Seed == nil {
		cfg.Seed = DefaultSeed()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Store{
		path:       cfg.Path,
		normalizer: NewNormalizer(cfg.Schema),
		seed:       slices.Clone(cfg.Seed),
		onCorrupt:  cfg.OnCorrupt,
		logger:     cfg.Logger,
	}, nil
}

// Path returns the backing file location.
func (s *Store) Path() string {
	return s.path
}

// Schema returns the canonical schema of the store.
func (s *Store) Schema() *Schema {
	return s.normalizer.Schema()
}

// Normalizer returns the normalizer applied to every read and write.
func (s *Store) Normalizer() *Normalizer {
	return s.normalizer
}

// EnsureInitialized writes the seed records when the backing file is absent.
func (s *Store) EnsureInitialized(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ensure(ctx)
}

// Load returns the canonical table read fresh from the backing file.
// Concurrent callers share one read.
func (s *Store) Load(ctx context.Context) ([]Product, error) {
	if err := s.EnsureInitialized(ctx); err != nil {
		return nil, err
	}
	v, err, _ := s.loads.Do(s.path, func() (any, error) {
		return s.read()
	})
	if err != nil {
		if s.onCorrupt == CorruptDegrade && errors.Is(err, ErrFileParse) {
			s.logger.Warn("catalog file unreadable, serving empty table",
				slog.String("path", s.path), slog.Any("error", err))
			return []Product{}, nil
		}
		return nil, err
	}
	return slices.Clone(v.([]Product)), nil
}

// Get returns the product with the given id.
func (s *Store) Get(ctx context.Context, id string) (Product, bool, error) {
	products, err := s.Load(ctx)
	if err != nil {
		return Product{}, false, err
	}
	p, ok := Find(products, id)
	return p, ok, nil
}

// Save normalizes products and overwrites the backing file.
func (s *Store) Save(ctx context.Context, products []Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensure(ctx); err != nil {
		return err
	}
	_, err := s.write(ctx, products)
	return err
}

// Replace normalizes an imported table and makes it the whole catalog.
func (s *Store) Replace(ctx context.Context, raw RawTable) (Result, error) {
	result, err := s.normalizer.Normalize(raw)
	if err != nil {
		return Result{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensure(ctx); err != nil {
		return Result{}, err
	}
	written, err := s.write(ctx, result.Products)
	if err != nil {
		return Result{}, err
	}
	result.Products = written
	result.Inserted = len(written)
	return result, nil
}

// UpsertMerge merges an imported table into the stored one by id: stored rows
// come first, imported rows after, and the last occurrence of each id wins.
// Output keeps the order in which ids were first seen.
func (s *Store) UpsertMerge(ctx context.Context, raw RawTable) (Result, error) {
	result, err := s.normalizer.Normalize(raw)
	if err != nil {
		return Result{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensure(ctx); err != nil {
		return Result{}, err
	}
	existing, err := s.read()
	if err != nil {
		return Result{}, err
	}
	merged, inserted, updated := Merge(existing, result.Products)
	written, err := s.write(ctx, merged)
	if err != nil {
		return Result{}, err
	}
	result.Products = written
	result.Inserted = inserted
	result.Updated = updated
	return result, nil
}

// ensure must be called with mu held.
func (s *Store) ensure(ctx context.Context) error {
	_, err := os.Stat(s.path)
	if err == nil {
		return nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return newError(CodeFileRead, "stat", ErrFileRead, err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return newError(CodeFileWrite, "create data dir", ErrFileWrite, err)
	}
	if _, err := s.write(ctx, s.seed); err != nil {
		return err
	}
	s.logger.Info("catalog file seeded", slog.String("path", s.path), slog.Int("rows", len(s.seed)))
	return nil
}

func (s *Store) read() ([]Product, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, newError(CodeFileRead, "load", ErrFileRead, err)
	}
	raw, err := ReadWorkbook(bytes.NewReader(data))
	if err != nil {
		return nil, newError(CodeFileParse, "load", ErrFileParse, err)
	}
	products, err := s.normalizer.Products(raw)
	if err != nil {
		return nil, newError(CodeFileParse, "load", ErrFileParse, err)
	}
	return products, nil
}

// write must be called with mu held. It returns the normalized rows written.
func (s *Store) write(ctx context.Context, products []Product) ([]Product, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	normalized, err := s.normalizer.Products(s.Schema().Table(products))
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := WriteWorkbook(&buf, s.Schema().Table(normalized)); err != nil {
		return nil, newError(CodeFileWrite, "encode", ErrFileWrite, err)
	}
	if err := writeFileAtomic(s.path, buf.Bytes()); err != nil {
		return nil, newError(CodeFileWrite, "save", ErrFileWrite, err)
	}
	return normalized, nil
}

func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}
