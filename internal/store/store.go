package store

import (
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"PriceStation/internal/model"
	"PriceStation/internal/statefile"
)

// ShapeError rejects a merge whose observations don't fit the series schema.
type ShapeError struct {
	Symbol string
	Field  string
}

func (e *ShapeError) Error() string {
	return fmt.Sprintf("store: %s: field %q is not part of the series schema", e.Symbol, e.Field)
}

// Config tunes a Store.
type Config struct {
	// Retention is how long observations keep full granularity. Older ones
	// collapse to one per day. Zero or negative disables the collapse.
	Retention time.Duration
	// Backup copies the previous file to <name>.bak.csv before each save.
	Backup bool
}

// Store persists one CSV file per symbol under a data directory.
// It assumes a single writing process.
type Store struct {
	dir string
	cfg Config
	Now func() time.Time

	mu      sync.RWMutex
	schemas map[string]model.Schema
}

// New creates the data directory if needed and returns a Store.
func New(dir string, cfg Config) (*Store, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	return &Store{
		dir:     dir,
		cfg:     cfg,
		Now:     time.Now,
		schemas: make(map[string]model.Schema),
	}, nil
}

// Register sets the schema for symbol. Unregistered symbols use model.MarketSchema.
func (s *Store) Register(symbol string, schema model.Schema) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.schemas[symbol] = schema
}

// SchemaFor returns the schema used for symbol.
func (s *Store) SchemaFor(symbol string) model.Schema {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if schema, ok := s.schemas[symbol]; ok {
		return schema
	}
	return model.MarketSchema
}

// Dir returns the data directory.
func (s *Store) Dir() string { return s.dir }

// Path returns the file backing symbol.
func (s *Store) Path(symbol string) string {
	return filepath.Join(s.dir, FileName(symbol))
}

// FileName maps a symbol such as "TWD=X" or "BTC-USD" to a safe file name.
func FileName(symbol string) string {
	safe := strings.NewReplacer("=", "_", "-", "_", "/", "_", `\`, "_").Replace(symbol)
	return safe + ".csv"
}

// Files lists the series files in the data directory, skipping backups and
// quarantined copies.
func (s *Store) Files() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("list data dir: %w", err)
	}
	var out []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".csv") ||
			strings.HasSuffix(name, ".bak.csv") || strings.Contains(name, ".corrupt-") {
			continue
		}
		out = append(out, name)
	}
	return out, nil
}

// Load returns the stored series. A missing or corrupt file yields an empty series.
func (s *Store) Load(symbol string) model.Series {
	series, err := s.load(symbol)
	if err != nil {
		log.Printf("[WARN] store: load %s: %v, treating as empty", symbol, err)
		return model.Series{Symbol: symbol, Schema: s.SchemaFor(symbol)}
	}
	return series
}

// Latest returns the newest stored observation.
func (s *Store) Latest(symbol string) (model.Observation, bool) {
	return s.Load(symbol).Latest()
}

// Range returns the stored observations whose day lies in r.
func (s *Store) Range(symbol string, r model.DateRange) model.Series {
	return s.Load(symbol).Between(r)
}

func (s *Store) load(symbol string) (model.Series, error) {
	schema := s.SchemaFor(symbol)
	series := model.Series{Symbol: symbol, Schema: schema}

	data, err := os.ReadFile(s.Path(symbol))
	if err != nil {
		if os.IsNotExist(err) {
			return series, nil
		}
		return series, fmt.Errorf("read %s: %w", symbol, err)
	}
	obs, err := decode(symbol, schema, data)
	if err != nil {
		return series, err
	}
	obs, dropped := filterComplete(schema, obs)
	if dropped > 0 {
		log.Printf("[WARN] store: %s: dropped %d incomplete rows on load", symbol, dropped)
	}
	series.Observations = Dedupe(obs)
	return series, nil
}

// Save replaces the stored series. The previous file survives a failed write.
func (s *Store) Save(symbol string, series model.Series) error {
	schema := s.SchemaFor(symbol)
	obs, _ := filterComplete(schema, series.Observations)
	data, err := encode(schema, Dedupe(obs))
	if err != nil {
		return fmt.Errorf("encode %s: %w", symbol, err)
	}

	path := s.Path(symbol)
	if s.cfg.Backup {
		if err := s.backup(path); err != nil {
			log.Printf("[WARN] store: backup %s: %v", symbol, err)
		}
	}
	if err := statefile.WriteAtomic(path, data, 0644); err != nil {
		return fmt.Errorf("save %s: %w", symbol, err)
	}
	return nil
}

func (s *Store) backup(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	return statefile.WriteAtomic(strings.TrimSuffix(path, ".csv")+".bak.csv", data, 0644)
}

// Merge unions incoming observations into the stored series, keeps the newest
// version of each timestamp, collapses old intraday rows and saves the result.
// Incomplete observations are dropped; if none remain the store is unchanged.
func (s *Store) Merge(symbol string, incoming []model.Observation) (model.Series, error) {
	schema := s.SchemaFor(symbol)
	if err := validate(symbol, schema, incoming); err != nil {
		return model.Series{}, err
	}

	fresh, dropped := filterComplete(schema, incoming)
	if dropped > 0 {
		log.Printf("[WARN] store: %s: dropped %d incomplete observations", symbol, dropped)
	}

	existing, err := s.load(symbol)
	if err != nil && !errors.Is(err, ErrCorrupt) {
		return model.Series{}, err
	}
	if len(fresh) == 0 {
		return existing, nil
	}
	if err != nil {
		if qerr := s.quarantine(symbol); qerr != nil {
			return model.Series{}, fmt.Errorf("quarantine corrupt %s: %w", symbol, qerr)
		}
	}

	all := make([]model.Observation, 0, len(existing.Observations)+len(fresh))
	all = append(all, existing.Observations...)
	all = append(all, fresh...)
	merged := Collapse(Dedupe(all), s.cutoff())

	result := model.Series{Symbol: symbol, Schema: schema, Observations: merged}
	if err := s.Save(symbol, result); err != nil {
		return model.Series{}, err
	}
	return result, nil
}

// Cleanup applies the retention collapse to the stored series.
func (s *Store) Cleanup(symbol string) (removed int, err error) {
	series, err := s.load(symbol)
	if err != nil {
		return 0, err
	}
	collapsed := Collapse(series.Observations, s.cutoff())
	removed = series.Len() - len(collapsed)
	if removed == 0 {
		return 0, nil
	}
	series.Observations = collapsed
	return removed, s.Save(symbol, series)
}

func (s *Store) cutoff() time.Time {
	if s.cfg.Retention <= 0 {
		return time.Time{}
	}
	return s.Now().Add(-s.cfg.Retention)
}

// quarantine moves an unreadable file aside so a merge never silently destroys it.
func (s *Store) quarantine(symbol string) error {
	path := s.Path(symbol)
	dst := fmt.Sprintf("%s.corrupt-%d.csv", strings.TrimSuffix(path, ".csv"), s.Now().Unix())
	log.Printf("[WARN] store: %s is corrupt, moved to %s", path, dst)
	return os.Rename(path, dst)
}

func validate(symbol string, schema model.Schema, obs []model.Observation) error {
	for _, o := range obs {
		for name := range o.Fields {
			if !schema.Has(name) {
				return &ShapeError{Symbol: symbol, Field: name}
			}
		}
	}
	return nil
}
