package service

import (
	"context"
	"log"
	"math/bits"
	"sort"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/redstone-squid/Redstone-Squid/internal/model"
	"github.com/redstone-squid/Redstone-Squid/internal/repository"
)

// DefaultSubsetBound caps how many restriction tags of a single build are
// expanded into leaderboard subsets. Builds with more restrictions are
// still indexed, but only for subsets up to this size — an accepted
// approximation that keeps the fan-out bounded (2^n otherwise).
const DefaultSubsetBound = 8

// RecordService is the record index engine: it keeps smallest_door_records
// consistent with the builds/doors/tag tables. Mutation paths call
// OnBuildChanged; Rebuild is the recovery and bootstrap tool.
type RecordService struct {
	repo        *repository.RecordRepo
	cache       *CacheService
	subsetBound int

	// ObserveRebuild, when set, receives the wall time of each full
	// rebuild. OnCacheHit and OnCacheMiss fire per Lookup. All three feed
	// Prometheus collectors without a package cycle.
	ObserveRebuild func(time.Duration)
	OnCacheHit     func()
	OnCacheMiss    func()
}

func NewRecordService(repo *repository.RecordRepo, cache *CacheService, subsetBound int) *RecordService {
	if subsetBound <= 0 {
		subsetBound = DefaultSubsetBound
	}
	return &RecordService{repo: repo, cache: cache, subsetBound: subsetBound}
}

// restrictionSubsets enumerates every subset of ids with at most bound
// elements, the empty set included. ids must be sorted; each subset
// preserves that order, so subsets are canonical. Enumeration is a bitmask
// walk with a popcount skip rather than recursive power-set construction.
func restrictionSubsets(ids []int32, bound int) [][]int32 {
	n := len(ids)
	subsets := make([][]int32, 0, 1<<n)
	for mask := 0; mask < 1<<n; mask++ {
		if bits.OnesCount(uint(mask)) > bound {
			continue
		}
		subset := make([]int32, 0, bits.OnesCount(uint(mask)))
		for i := range n {
			if mask&(1<<i) != 0 {
				subset = append(subset, ids[i])
			}
		}
		subsets = append(subsets, subset)
	}
	return subsets
}

// slotKeys returns every record key a candidate competes in: one per
// restriction subset.
func slotKeys(c model.DoorCandidate, bound int) []model.RecordKey {
	subsets := restrictionSubsets(c.RestrictionIDs, bound)
	keys := make([]model.RecordKey, len(subsets))
	for i, subset := range subsets {
		keys[i] = model.RecordKey{
			Orientation:       c.Orientation,
			DoorWidth:         c.DoorWidth,
			DoorHeight:        c.DoorHeight,
			DoorDepth:         c.DoorDepth,
			TypeIDs:           c.TypeIDs,
			RestrictionSubset: subset,
		}
	}
	return keys
}

// beats reports whether candidate a outranks b for the same slot: smaller
// volume, ties to the lower build id.
func beats(aVolume int, aID int64, bVolume int, bID int64) bool {
	if aVolume != bVolume {
		return aVolume < bVolume
	}
	return aID < bID
}

// computeRecords derives the full record table from a candidate set. This
// is the ground truth the incremental path must match; output is sorted by
// canonical key so repeated runs over the same input are identical.
func computeRecords(cands []model.DoorCandidate, bound int) []model.RecordSlot {
	winners := make(map[string]model.RecordSlot)
	for _, c := range cands {
		for _, key := range slotKeys(c, bound) {
			ks := key.String()
			cur, ok := winners[ks]
			if !ok || beats(c.Volume, c.BuildID, cur.Volume, cur.BuildID) {
				winners[ks] = model.RecordSlot{RecordKey: key, BuildID: c.BuildID, Volume: c.Volume}
			}
		}
	}

	slots := make([]model.RecordSlot, 0, len(winners))
	for _, s := range winners {
		slots = append(slots, s)
	}
	sort.Slice(slots, func(i, j int) bool {
		return slots[i].RecordKey.String() < slots[j].RecordKey.String()
	})
	return slots
}

// Rebuild recomputes every record slot from scratch and swaps the table
// atomically. Idempotent; safe to invoke at any time.
func (s *RecordService) Rebuild(ctx context.Context) (int, error) {
	start := time.Now()

	cands, err := s.repo.AllCandidates(ctx)
	if err != nil {
		return 0, err
	}
	slots := computeRecords(cands, s.subsetBound)
	if err := s.repo.ReplaceAll(ctx, slots); err != nil {
		return 0, err
	}

	if s.cache != nil {
		if err := s.cache.InvalidateAllRecords(ctx); err != nil {
			log.Printf("record-engine: cache flush error: %v", err)
		}
	}

	elapsed := time.Since(start)
	if s.ObserveRebuild != nil {
		s.ObserveRebuild(elapsed)
	}
	log.Printf("record-engine: rebuild complete — %d candidates, %d slots (%s)",
		len(cands), len(slots), elapsed.Round(time.Millisecond))
	return len(slots), nil
}

// OnBuildChanged re-derives every record slot affected by a mutation of the
// build's door row, tag associations, dimensions, or status. Two phases in
// one transaction:
//
//  1. retract — drop every slot the build holds, remembering the freed
//     keys, and recontest each among the surviving candidates;
//  2. insert — expand the build's own subsets and claim each slot it now
//     beats (conditional upsert, so concurrent claims stay commutative).
//
// Retract must run before insert: a build whose own change shrank it can
// both lose old slots and win them back in the same call.
func (s *RecordService) OnBuildChanged(ctx context.Context, buildID int64) error {
	var touched []model.RecordKey

	err := s.repo.InTx(ctx, func(tx pgx.Tx) error {
		freed, err := s.repo.HeldKeys(ctx, tx, buildID)
		if err != nil {
			return err
		}
		if err := s.repo.DeleteByHolder(ctx, tx, buildID); err != nil {
			return err
		}
		for _, key := range freed {
			winner, err := s.repo.BestCandidate(ctx, tx, key)
			if err != nil {
				return err
			}
			if winner != nil {
				if err := s.repo.Upsert(ctx, tx, *winner); err != nil {
					return err
				}
			}
		}
		touched = freed

		cand, err := s.repo.Candidate(ctx, tx, buildID)
		if err != nil {
			return err
		}
		if cand == nil {
			// Build is gone or ineligible; retraction was all there is to do.
			return nil
		}
		for _, key := range slotKeys(*cand, s.subsetBound) {
			slot := model.RecordSlot{RecordKey: key, BuildID: cand.BuildID, Volume: cand.Volume}
			if err := s.repo.UpsertIfBetter(ctx, tx, slot); err != nil {
				return err
			}
			touched = append(touched, key)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.invalidateKeys(ctx, touched)
	return nil
}

// OnBuildDeleted removes a build via del and recontests every record slot
// it held, in one transaction. Ordering matters twice over: the held keys
// must be read before the row delete, or the foreign-key cascade strips the
// slots and loses them; and the recontest must run after it, or the
// departing build re-wins its own slots just before the cascade empties
// them again.
func (s *RecordService) OnBuildDeleted(ctx context.Context, buildID int64, del func(tx pgx.Tx) error) error {
	var freed []model.RecordKey

	err := s.repo.InTx(ctx, func(tx pgx.Tx) error {
		var err error
		freed, err = s.repo.HeldKeys(ctx, tx, buildID)
		if err != nil {
			return err
		}
		if err := del(tx); err != nil {
			return err
		}
		for _, key := range freed {
			winner, err := s.repo.BestCandidate(ctx, tx, key)
			if err != nil {
				return err
			}
			if winner != nil {
				if err := s.repo.Upsert(ctx, tx, *winner); err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.invalidateKeys(ctx, freed)
	return nil
}

func (s *RecordService) invalidateKeys(ctx context.Context, keys []model.RecordKey) {
	if s.cache == nil {
		return
	}
	for _, key := range keys {
		if err := s.cache.InvalidateRecord(ctx, key); err != nil {
			log.Printf("record-engine: cache invalidate error: %v", err)
		}
	}
}

// Lookup returns the current record holder for a key, cache-aside.
func (s *RecordService) Lookup(ctx context.Context, key model.RecordKey) (*model.RecordSlot, error) {
	if s.cache != nil {
		if slot, ok, err := s.cache.GetRecord(ctx, key); err != nil {
			log.Printf("record-engine: cache get error: %v", err)
		} else if ok {
			if s.OnCacheHit != nil {
				s.OnCacheHit()
			}
			return slot, nil
		}
		if s.OnCacheMiss != nil {
			s.OnCacheMiss()
		}
	}

	slot, err := s.repo.Lookup(ctx, key)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.SetRecord(ctx, key, slot); err != nil {
			log.Printf("record-engine: cache set error: %v", err)
		}
	}
	return slot, nil
}
