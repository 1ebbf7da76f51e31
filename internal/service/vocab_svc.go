package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/redstone-squid/Redstone-Squid/internal/model"
	"github.com/redstone-squid/Redstone-Squid/internal/repository"
)

// VocabService caches the tag vocabularies (types, restrictions, aliases)
// in memory. The tables are tiny and nearly static; every write goes
// through this service so the cache can be reloaded afterwards.
type VocabService struct {
	repo *repository.TagRepo

	mu                sync.RWMutex
	typesByName       map[string]model.Type
	typesByID         map[int32]model.Type
	restrictionsByID  map[int32]model.Restriction
	restrictionByName map[string]model.Restriction // includes aliases, lowercased
}

func NewVocabService(repo *repository.TagRepo) *VocabService {
	return &VocabService{repo: repo}
}

// Load (re)reads the vocabulary tables. Call at startup and after writes.
func (s *VocabService) Load(ctx context.Context) error {
	types, err := s.repo.ListTypes(ctx)
	if err != nil {
		return fmt.Errorf("load types: %w", err)
	}
	restrictions, err := s.repo.ListRestrictions(ctx)
	if err != nil {
		return fmt.Errorf("load restrictions: %w", err)
	}
	aliases, err := s.repo.ListAliases(ctx)
	if err != nil {
		return fmt.Errorf("load restriction aliases: %w", err)
	}

	typesByName := make(map[string]model.Type, len(types))
	typesByID := make(map[int32]model.Type, len(types))
	for _, t := range types {
		typesByName[strings.ToLower(t.Name)] = t
		typesByID[t.ID] = t
	}

	restrictionsByID := make(map[int32]model.Restriction, len(restrictions))
	restrictionByName := make(map[string]model.Restriction, len(restrictions)+len(aliases))
	for _, re := range restrictions {
		restrictionsByID[re.ID] = re
		restrictionByName[strings.ToLower(re.Name)] = re
	}
	for _, a := range aliases {
		if re, ok := restrictionsByID[a.RestrictionID]; ok {
			restrictionByName[strings.ToLower(a.Alias)] = re
		}
	}

	s.mu.Lock()
	s.typesByName = typesByName
	s.typesByID = typesByID
	s.restrictionsByID = restrictionsByID
	s.restrictionByName = restrictionByName
	s.mu.Unlock()
	return nil
}

// ResolveTypes maps type names to sorted ids. Unknown names are an error —
// the vocabulary is controlled, not free-form.
func (s *VocabService) ResolveTypes(names []string) ([]int32, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]int32, 0, len(names))
	for _, name := range names {
		t, ok := s.typesByName[strings.ToLower(name)]
		if !ok {
			return nil, fmt.Errorf("unknown type: %s", name)
		}
		ids = append(ids, t.ID)
	}
	sortIDs(ids)
	return ids, nil
}

// ResolveRestrictions maps restriction names or aliases to sorted ids.
func (s *VocabService) ResolveRestrictions(names []string) ([]int32, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]int32, 0, len(names))
	for _, name := range names {
		re, ok := s.restrictionByName[strings.ToLower(name)]
		if !ok {
			return nil, fmt.Errorf("unknown restriction: %s", name)
		}
		ids = append(ids, re.ID)
	}
	sortIDs(ids)
	return ids, nil
}

// TypeName returns the display name for a type id.
func (s *VocabService) TypeName(id int32) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.typesByID[id]
	return t.Name, ok
}

// Restriction returns the full restriction for an id.
func (s *VocabService) Restriction(id int32) (model.Restriction, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	re, ok := s.restrictionsByID[id]
	return re, ok
}

// AddType inserts a type tag and reloads the cache.
func (s *VocabService) AddType(ctx context.Context, t model.Type) (int32, error) {
	id, err := s.repo.CreateType(ctx, &t)
	if err != nil {
		return 0, err
	}
	return id, s.Load(ctx)
}

// AddRestriction inserts a restriction tag and reloads the cache.
func (s *VocabService) AddRestriction(ctx context.Context, re model.Restriction) (int32, error) {
	id, err := s.repo.CreateRestriction(ctx, &re)
	if err != nil {
		return 0, err
	}
	return id, s.Load(ctx)
}

// AddAlias registers an alias for a restriction and reloads the cache.
func (s *VocabService) AddAlias(ctx context.Context, restrictionID int32, alias string) error {
	if err := s.repo.AddAlias(ctx, restrictionID, alias); err != nil {
		return err
	}
	return s.Load(ctx)
}

func sortIDs(ids []int32) {
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
}
