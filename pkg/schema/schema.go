// Package schema holds the table metadata corpus the agents ground
// natural-language requests against. The corpus is built once (from a JSON
// artifact produced offline, or from the built-in WRDS seed) and is
// read-only afterward, so concurrent runs share it without locking.
package schema

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strings"
	"sync"
)

// ErrUnavailable is returned when the corpus failed to load. Callers degrade
// to an empty brief rather than aborting the process.
var ErrUnavailable = fmt.Errorf("schema store unavailable")

// Column describes one column of a warehouse table.
type Column struct {
	Name        string `json:"name"`
	Type        string `json:"type"`
	Description string `json:"description"`
}

// Entry describes one warehouse table: its columns, the semantic aliases
// that map free-text financial terms onto it, and how it links to other
// tables. Entries are immutable once the store is built.
type Entry struct {
	Table       string   `json:"table"`
	Description string   `json:"description"`
	Columns     []Column `json:"columns"`
	Aliases     []string `json:"aliases"`
	PrimaryKeys []string `json:"primary_keys"`
	LinkingInfo string   `json:"linking_info"`
}

// Match ranks for the default Ranker, strongest first.
const (
	RankAliasExact      = 3
	RankColumnSubstring = 2
	RankTableSubstring  = 1
)

// Ranker scores how strongly a lookup term matches an entry.
// Zero means no match. Higher scores sort first.
type Ranker func(term string, e *Entry) int

// DefaultRanker matches exact aliases above column-name substrings above
// table-name substrings.
func DefaultRanker(term string, e *Entry) int {
	t := strings.ToLower(strings.TrimSpace(term))
	if t == "" {
		return 0
	}
	for _, alias := range e.Aliases {
		if strings.ToLower(alias) == t {
			return RankAliasExact
		}
	}
	for _, col := range e.Columns {
		if strings.Contains(strings.ToLower(col.Name), t) {
			return RankColumnSubstring
		}
	}
	if strings.Contains(strings.ToLower(e.Table), t) {
		return RankTableSubstring
	}
	return 0
}

// Store is the read-only schema corpus. The underlying entries are built
// lazily on first use, guarded so concurrent first-use runs the loader
// exactly once.
type Store struct {
	log    *slog.Logger
	loader func() ([]*Entry, error)
	rank   Ranker

	once    sync.Once
	entries []*Entry
	byTable map[string]*Entry
	loadErr error
}

// Option configures a Store.
type Option func(*Store)

// WithLogger attaches a logger to the store.
func WithLogger(log *slog.Logger) Option {
	return func(s *Store) { s.log = log }
}

// WithRanker overrides the default lookup ranking function.
func WithRanker(r Ranker) Option {
	return func(s *Store) { s.rank = r }
}

// New creates a Store over a fixed set of entries.
func New(entries []*Entry, opts ...Option) *Store {
	return NewLazy(func() ([]*Entry, error) { return entries, nil }, opts...)
}

// NewLazy creates a Store whose entries are produced by loader on first use.
func NewLazy(loader func() ([]*Entry, error), opts ...Option) *Store {
	s := &Store{
		loader: loader,
		rank:   DefaultRanker,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewFromFile creates a Store backed by a JSON corpus file. The file maps
// table name to entry metadata; it is produced offline by the documentation
// extractor and only read here.
func NewFromFile(path string, opts ...Option) *Store {
	return NewLazy(func() ([]*Entry, error) {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read schema corpus %s: %w", path, err)
		}
		return parseCorpus(data)
	}, opts...)
}

func parseCorpus(data []byte) ([]*Entry, error) {
	var raw map[string]Entry
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse schema corpus: %w", err)
	}

	names := make([]string, 0, len(raw))
	for name := range raw {
		names = append(names, name)
	}
	sort.Strings(names)

	entries := make([]*Entry, 0, len(raw))
	for _, name := range names {
		e := raw[name]
		e.Table = name
		entries = append(entries, &e)
	}
	return entries, nil
}

func (s *Store) load() error {
	s.once.Do(func() {
		entries, err := s.loader()
		if err != nil {
			s.loadErr = fmt.Errorf("%w: %v", ErrUnavailable, err)
			return
		}
		byTable := make(map[string]*Entry, len(entries))
		for _, e := range entries {
			if _, dup := byTable[e.Table]; dup {
				s.loadErr = fmt.Errorf("%w: duplicate table %q in corpus", ErrUnavailable, e.Table)
				return
			}
			byTable[e.Table] = e
		}
		s.entries = entries
		s.byTable = byTable
		if s.log != nil {
			s.log.Info("schema store loaded", "tables", len(entries))
		}
	})
	return s.loadErr
}

// Lookup returns entries matching term, strongest match first. Ties keep
// corpus order. An empty result is valid; an error means the corpus itself
// is unavailable.
func (s *Store) Lookup(term string) ([]*Entry, error) {
	if err := s.load(); err != nil {
		return nil, err
	}

	type scored struct {
		entry *Entry
		rank  int
		pos   int
	}
	var matches []scored
	for i, e := range s.entries {
		if r := s.rank(term, e); r > 0 {
			matches = append(matches, scored{entry: e, rank: r, pos: i})
		}
	}
	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].rank != matches[j].rank {
			return matches[i].rank > matches[j].rank
		}
		return matches[i].pos < matches[j].pos
	})

	out := make([]*Entry, len(matches))
	for i, m := range matches {
		out[i] = m.entry
	}
	return out, nil
}

// Get returns the entry for an exact table name, or nil.
func (s *Store) Get(table string) (*Entry, error) {
	if err := s.load(); err != nil {
		return nil, err
	}
	return s.byTable[table], nil
}

// AllEntries returns every entry in corpus order.
func (s *Store) AllEntries() ([]*Entry, error) {
	if err := s.load(); err != nil {
		return nil, err
	}
	return s.entries, nil
}

// FormatEntries renders entries as readable text for inclusion in prompts.
func FormatEntries(entries []*Entry) string {
	var sb strings.Builder
	for _, e := range entries {
		sb.WriteString(e.Table + ":\n")
		if e.Description != "" {
			sb.WriteString("  Description: " + e.Description + "\n")
		}
		if len(e.PrimaryKeys) > 0 {
			sb.WriteString("  Primary keys: " + strings.Join(e.PrimaryKeys, ", ") + "\n")
		}
		if e.LinkingInfo != "" {
			sb.WriteString("  Linking: " + e.LinkingInfo + "\n")
		}
		for _, col := range e.Columns {
			if col.Description != "" {
				sb.WriteString("  - " + col.Name + " (" + col.Type + "): " + col.Description + "\n")
			} else {
				sb.WriteString("  - " + col.Name + " (" + col.Type + ")\n")
			}
		}
		sb.WriteString("\n")
	}
	return strings.TrimRight(sb.String(), "\n")
}
