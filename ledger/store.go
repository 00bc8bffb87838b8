package ledger

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"dcabot/fault"
)

// DefaultFile is the ledger location used when none is configured or the
// configured one is rejected.
const DefaultFile = "purchases.json"

// Store performs whole-document load/store of the ledger book. There is
// exactly one writer (the engine), so no file locking is used; external
// readers see eventually-consistent snapshots thanks to atomic renames.
type Store struct {
	path string
	log  *zap.Logger
}

func NewStore(path string, log *zap.Logger) *Store {
	if log == nil {
		log = zap.NewNop()
	}
	return &Store{path: path, log: log}
}

func (s *Store) Path() string { return s.path }

// Load reads the whole book. An absent file is an empty book. A document
// that cannot be read or parsed is logged and replaced with an empty book:
// losing prior state is explicitly preferred over refusing to start.
func (s *Store) Load() (Book, error) {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return Book{}, nil
	}
	if err != nil {
		s.log.Warn("ledger unreadable, reinitializing empty",
			zap.String("path", s.path), zap.Error(fault.New(fault.Data, "ledger.load", err)))
		return Book{}, nil
	}

	book := Book{}
	if err := json.Unmarshal(data, &book); err != nil {
		s.log.Warn("ledger corrupt, reinitializing empty",
			zap.String("path", s.path), zap.Error(fault.New(fault.Data, "ledger.load", err)))
		return Book{}, nil
	}
	return book, nil
}

// Save writes the whole book synchronously. The document is written to a
// temporary file in the same directory and renamed over the target, so a
// concurrent reader never observes a partially written ledger.
func (s *Store) Save(book Book) error {
	data, err := json.MarshalIndent(book, "", "  ")
	if err != nil {
		return fault.New(fault.Data, "ledger.save", err)
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, ".purchases-*.tmp")
	if err != nil {
		return fault.New(fault.Data, "ledger.save", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fault.New(fault.Data, "ledger.save", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fault.New(fault.Data, "ledger.save", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fault.New(fault.Data, "ledger.save", err)
	}
	return nil
}

// ResolvePath validates a configured ledger path against a trusted base
// directory and the allowed .json extension. A path escaping the base or
// carrying another extension is rejected with a warning and the default
// inside the base is used instead.
func ResolvePath(raw, base string, log *zap.Logger) string {
	if log == nil {
		log = zap.NewNop()
	}
	fallback := filepath.Join(base, DefaultFile)
	if strings.TrimSpace(raw) == "" {
		return fallback
	}

	p := raw
	if !filepath.IsAbs(p) {
		p = filepath.Join(base, p)
	}
	p = filepath.Clean(p)

	rel, err := filepath.Rel(base, p)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		log.Warn("ledger path escapes trusted base, using default",
			zap.String("path", raw), zap.String("base", base))
		return fallback
	}
	if !strings.EqualFold(filepath.Ext(p), ".json") {
		log.Warn("ledger path has disallowed extension, using default",
			zap.String("path", raw))
		return fallback
	}
	return p
}

// Summary is a compact per-instrument view for the status command.
type Summary struct {
	Instrument string
	State      string
	Buys       int
	Sells      int
	Spent      float64
	Held       float64
	AvgPrice   float64
}

// Summarize flattens the book into display rows, sorted by instrument
// order as given.
func Summarize(book Book, instruments []string) []Summary {
	out := make([]Summary, 0, len(instruments))
	for _, inst := range instruments {
		l, ok := book[inst]
		if !ok {
			out = append(out, Summary{Instrument: inst, State: Planned.String()})
			continue
		}
		out = append(out, Summary{
			Instrument: inst,
			State:      l.State().String(),
			Buys:       len(l.Purchased),
			Sells:      len(l.Sold),
			Spent:      l.TotalSpent(),
			Held:       l.HeldQuantity(),
			AvgPrice:   l.AvgBuyPrice(),
		})
	}
	return out
}
