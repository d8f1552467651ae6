package extractors

import (
	"sort"
	"sync"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.ExtractorRegistry = (*Registry)(nil)

// Registry implements ExtractorRegistry with priority-based selection.
// When multiple extractors handle a file type, the highest priority one is used.
type Registry struct {
	mu         sync.RWMutex
	extractors []driven.Extractor
}

// NewRegistry creates a new extractor registry.
func NewRegistry() *Registry {
	return &Registry{
		extractors: make([]driven.Extractor, 0),
	}
}

// Register registers an extractor.
func (r *Registry) Register(extractor driven.Extractor) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.extractors = append(r.extractors, extractor)
}

// Get retrieves the best extractor for a file type, or nil.
func (r *Registry) Get(fileType domain.FileType) driven.Extractor {
	matches := r.GetAll(fileType)
	if len(matches) == 0 {
		return nil
	}
	return matches[0]
}

// GetAll retrieves all extractors for a file type, sorted by priority (highest first).
func (r *Registry) GetAll(fileType domain.FileType) []driven.Extractor {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var matches []driven.Extractor
	for _, e := range r.extractors {
		for _, ft := range e.FileTypes() {
			if ft == fileType {
				matches = append(matches, e)
				break
			}
		}
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Priority() > matches[j].Priority()
	})
	return matches
}

// List returns all registered file types.
func (r *Registry) List() []domain.FileType {
	r.mu.RLock()
	defer r.mu.RUnlock()

	typeSet := make(map[domain.FileType]struct{})
	for _, e := range r.extractors {
		for _, ft := range e.FileTypes() {
			typeSet[ft] = struct{}{}
		}
	}

	types := make([]domain.FileType, 0, len(typeSet))
	for ft := range typeSet {
		types = append(types, ft)
	}
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })
	return types
}

// DefaultRegistry creates a registry with every built-in extractor.
func DefaultRegistry() *Registry {
	r := NewRegistry()

	r.Register(NewPlaintext())
	r.Register(NewMarkdown())
	r.Register(NewHTML())
	r.Register(NewDOCX())
	r.Register(NewPDF())

	return r
}
