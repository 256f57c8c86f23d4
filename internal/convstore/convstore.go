// Package convstore holds the workspace conversation state: three
// independent append-only message sequences, the shared analysis result, and
// the source URL list. Every mutation is persisted best-effort through the
// storage layer and restored on startup.
package convstore

import (
	"sync"

	"github.com/nvoskan/equiterm/internal/model"
	"github.com/nvoskan/equiterm/internal/storage"
	"go.uber.org/zap"
)

// persistedHistories mirrors the stored blob layout, one slot per surface.
type persistedHistories struct {
	Chat  []model.Message `json:"chat"`
	Viz   []model.Message `json:"viz"`
	Excel []model.Message `json:"excel"`
}

// Store is the per-workspace conversation state store.
type Store struct {
	kv  *storage.Store
	log *zap.Logger

	mu         sync.Mutex
	analysis   *model.Analysis
	histories  map[model.Surface][]model.Message
	urls       []string
	generation uint64
}

// New restores the store from kv. A missing or malformed persisted blob
// falls back to empty state.
func New(kv *storage.Store, log *zap.Logger) *Store {
	s := &Store{
		kv:        kv,
		log:       log,
		histories: emptyHistories(),
	}

	var a model.Analysis
	if kv.Get(storage.KeyAnalysis, &a) && a.IndexName != "" {
		s.analysis = &a
	}
	var ph persistedHistories
	if kv.Get(storage.KeyHistories, &ph) {
		s.histories[model.SurfaceChat] = ph.Chat
		s.histories[model.SurfaceViz] = ph.Viz
		s.histories[model.SurfaceExcel] = ph.Excel
	}
	var urls []string
	if kv.Get(storage.KeyURLs, &urls) {
		s.urls = urls
	}
	return s
}

// Analysis returns the current workspace analysis result, nil before the
// first successful analyze.
func (s *Store) Analysis() *model.Analysis {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.analysis == nil {
		return nil
	}
	a := *s.analysis
	return &a
}

// SetAnalysis installs a new analysis result. The previous result and every
// surface's history are replaced wholesale; the workspace generation is
// bumped so in-flight settlements from the old workspace are dropped.
func (s *Store) SetAnalysis(a *model.Analysis) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cpy := *a
	s.analysis = &cpy
	s.histories = emptyHistories()
	s.generation++
	s.kv.Put(storage.KeyAnalysis, cpy)
	s.persistHistoriesLocked()
}

// Get returns a copy of surface's message sequence in append order.
func (s *Store) Get(surface model.Surface) []model.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.Message(nil), s.histories[surface]...)
}

// Append adds msg to the end of surface's sequence.
func (s *Store) Append(surface model.Surface, msg model.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.appendLocked(surface, msg)
}

// AppendIfCurrent appends msg only when gen still matches the live workspace
// generation; it reports whether the append happened. This is the staleness
// guard for responses that settle after a reset or logout.
func (s *Store) AppendIfCurrent(gen uint64, surface model.Surface, msg model.Message) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.generation {
		s.log.Debug("dropping stale append",
			zap.String("surface", string(surface)),
			zap.Uint64("gen", gen),
			zap.Uint64("current", s.generation))
		return false
	}
	s.appendLocked(surface, msg)
	return true
}

// Generation returns the current workspace generation counter.
func (s *Store) Generation() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.generation
}

// Invalidate bumps the generation without touching stored state, so late
// settlements are dropped while transcripts survive for the next login.
func (s *Store) Invalidate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.generation++
}

// History returns the bounded request window for surface: at most the last
// max messages, role and text only, attachments stripped.
func (s *Store) History(surface model.Surface, max int) []model.HistoryEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	msgs := s.histories[surface]
	if len(msgs) > max {
		msgs = msgs[len(msgs)-max:]
	}
	out := make([]model.HistoryEntry, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, model.HistoryEntry{Role: m.Role, Text: m.Text})
	}
	return out
}

// ResetAll clears every surface's sequence, not just the active one, and
// bumps the generation.
func (s *Store) ResetAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.histories = emptyHistories()
	s.generation++
	s.persistHistoriesLocked()
}

// Discard wipes the whole workspace: URLs, analysis result and all
// histories, removing the persisted keys as well.
func (s *Store) Discard() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.urls = nil
	s.analysis = nil
	s.histories = emptyHistories()
	s.generation++
	s.kv.Delete(storage.KeyURLs)
	s.kv.Delete(storage.KeyAnalysis)
	s.kv.Delete(storage.KeyHistories)
}

// URLs returns the stored source URL list.
func (s *Store) URLs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.urls...)
}

// SetURLs replaces the stored source URL list.
func (s *Store) SetURLs(urls []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.urls = append([]string(nil), urls...)
	s.kv.Put(storage.KeyURLs, s.urls)
}

func (s *Store) appendLocked(surface model.Surface, msg model.Message) {
	s.histories[surface] = append(s.histories[surface], msg)
	s.persistHistoriesLocked()
}

func (s *Store) persistHistoriesLocked() {
	s.kv.Put(storage.KeyHistories, persistedHistories{
		Chat:  s.histories[model.SurfaceChat],
		Viz:   s.histories[model.SurfaceViz],
		Excel: s.histories[model.SurfaceExcel],
	})
}

func emptyHistories() map[model.Surface][]model.Message {
	return map[model.Surface][]model.Message{
		model.SurfaceChat:  {},
		model.SurfaceViz:   {},
		model.SurfaceExcel: {},
	}
}
