package service

import (
	"context"
	"log"
	"net/url"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"portal/internal/model"
	"portal/internal/repository"
)

// ReferenceStore is the read-only reference provider.
type ReferenceStore interface {
	Catalog(ctx context.Context, key string) ([]model.CatalogItem, error)
	Companies(ctx context.Context, search string) ([]model.Company, error)
	Programs(ctx context.Context, search string) ([]model.Program, error)
	Subjects(ctx context.Context, search string) ([]model.Subject, error)
	Periods(ctx context.Context, filters url.Values) ([]model.Period, error)
}

type ReferenceService interface {
	Catalog(ctx context.Context, key string) ([]model.CatalogItem, error)
	Companies(ctx context.Context, search string) ([]model.Company, error)
	Programs(ctx context.Context, search string) ([]model.Program, error)
	Subjects(ctx context.Context, search string) ([]model.Subject, error)
	Periods(ctx context.Context, filters url.Values) ([]model.Period, error)
	RejectionReasons() []model.RejectionReason
}

type referenceService struct {
	store ReferenceStore
	cache repository.ReferenceCache
	ttl   time.Duration
}

func NewReferenceService(store ReferenceStore, cache repository.ReferenceCache, ttl time.Duration) ReferenceService {
	if cache == nil {
		cache = repository.NewMemoryReferenceCache()
	}
	return &referenceService{store: store, cache: cache, ttl: ttl}
}

func (s *referenceService) Catalog(ctx context.Context, key string) ([]model.CatalogItem, error) {
	var items []model.CatalogItem
	err := s.cached(ctx, "catalog:"+key, &items, func() (interface{}, error) {
		res, err := s.store.Catalog(ctx, key)
		items = res
		return res, err
	})
	return orEmpty(items), err
}

func (s *referenceService) Companies(ctx context.Context, search string) ([]model.Company, error) {
	term, ok := searchTerm(search, model.MinCompanySearchLength)
	if !ok {
		return []model.Company{}, nil
	}
	var companies []model.Company
	err := s.cached(ctx, "companies:"+term, &companies, func() (interface{}, error) {
		res, err := s.store.Companies(ctx, strings.TrimSpace(search))
		companies = res
		return res, err
	})
	return orEmpty(companies), err
}

func (s *referenceService) Programs(ctx context.Context, search string) ([]model.Program, error) {
	term, ok := searchTerm(search, model.MinProgramSearchLength)
	if !ok {
		return []model.Program{}, nil
	}
	var programs []model.Program
	err := s.cached(ctx, "programs:"+term, &programs, func() (interface{}, error) {
		res, err := s.store.Programs(ctx, strings.TrimSpace(search))
		programs = res
		return res, err
	})
	return orEmpty(programs), err
}

func (s *referenceService) Subjects(ctx context.Context, search string) ([]model.Subject, error) {
	term, ok := searchTerm(search, model.MinSubjectSearchLength)
	if !ok {
		return []model.Subject{}, nil
	}
	var subjects []model.Subject
	err := s.cached(ctx, "subjects:"+term, &subjects, func() (interface{}, error) {
		res, err := s.store.Subjects(ctx, strings.TrimSpace(search))
		subjects = res
		return res, err
	})
	return orEmpty(subjects), err
}

func (s *referenceService) Periods(ctx context.Context, filters url.Values) ([]model.Period, error) {
	var periods []model.Period
	err := s.cached(ctx, "periods:"+canonicalQuery(filters), &periods, func() (interface{}, error) {
		res, err := s.store.Periods(ctx, filters)
		periods = res
		return res, err
	})
	return orEmpty(periods), err
}

func (s *referenceService) RejectionReasons() []model.RejectionReason {
	out := make([]model.RejectionReason, len(model.RejectionCatalog))
	copy(out, model.RejectionCatalog)
	return out
}

// cached fills dest from the cache or, on a miss, from load. Cache failures
// only cost a round trip to the store.
func (s *referenceService) cached(ctx context.Context, key string, dest interface{}, load func() (interface{}, error)) error {
	found, err := s.cache.Get(ctx, key, dest)
	if err != nil {
		log.Printf("reference cache read %s: %v", key, err)
	}
	if found {
		return nil
	}

	value, err := load()
	if err != nil {
		return err
	}
	if err := s.cache.Set(ctx, key, value, s.ttl); err != nil {
		log.Printf("reference cache write %s: %v", key, err)
	}
	return nil
}

func searchTerm(search string, min int) (string, bool) {
	term := strings.ToLower(strings.TrimSpace(search))
	return term, utf8.RuneCountInString(term) >= min
}

func canonicalQuery(filters url.Values) string {
	keys := make([]string, 0, len(filters))
	for k := range filters {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+"="+strings.Join(filters[k], ","))
	}
	return strings.Join(parts, "&")
}

func orEmpty[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
