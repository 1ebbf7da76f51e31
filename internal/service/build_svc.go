package service

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/redstone-squid/Redstone-Squid/internal/model"
	"github.com/redstone-squid/Redstone-Squid/internal/repository"
)

// ErrBuildLocked means a vote session is open on the build; edits are
// deferred until it resolves. The lock is cooperative — this service and
// the session-open path are where it is enforced.
var ErrBuildLocked = repository.ErrBuildLocked

// BuildService is the mutation entry point for builds. Every write that can
// affect record eligibility ends with an OnBuildChanged call into the record
// index engine — that call is the contract the old trigger wiring enforced.
type BuildService struct {
	builds  *repository.BuildRepo
	records *RecordService
}

func NewBuildService(builds *repository.BuildRepo, records *RecordService) *BuildService {
	return &BuildService{builds: builds, records: records}
}

// Submit creates a pending build. Pending builds never hold records, so the
// engine is not consulted here.
func (s *BuildService) Submit(ctx context.Context, b *model.Build) (int64, error) {
	if b.Category == "" {
		b.Category = model.CategoryDoor
	}
	b.SubmissionStatus = model.StatusPending
	return s.builds.Create(ctx, b)
}

// Get loads a build with door and tag associations.
func (s *BuildService) Get(ctx context.Context, buildID int64) (*model.Build, error) {
	return s.builds.FindByID(ctx, buildID)
}

// SetDoor attaches or updates the door attributes of a build.
func (s *BuildService) SetDoor(ctx context.Context, d *model.Door) error {
	if err := s.checkUnlocked(ctx, d.BuildID); err != nil {
		return err
	}
	if err := s.builds.SetDoor(ctx, d); err != nil {
		return err
	}
	return s.records.OnBuildChanged(ctx, d.BuildID)
}

// SetTags replaces the build's type and restriction associations.
func (s *BuildService) SetTags(ctx context.Context, buildID int64, typeIDs, restrictionIDs []int32) error {
	if err := s.checkUnlocked(ctx, buildID); err != nil {
		return err
	}
	if err := s.builds.SetTypes(ctx, buildID, typeIDs); err != nil {
		return err
	}
	if err := s.builds.SetRestrictions(ctx, buildID, restrictionIDs); err != nil {
		return err
	}
	return s.records.OnBuildChanged(ctx, buildID)
}

// SetDimensions confirms or changes the build's structural dimensions.
func (s *BuildService) SetDimensions(ctx context.Context, buildID int64, width, height, depth *int) error {
	if err := s.checkUnlocked(ctx, buildID); err != nil {
		return err
	}
	if err := s.builds.UpdateDimensions(ctx, buildID, width, height, depth); err != nil {
		return err
	}
	return s.records.OnBuildChanged(ctx, buildID)
}

// Confirm accepts a pending submission, making it record-eligible.
func (s *BuildService) Confirm(ctx context.Context, buildID int64) error {
	return s.setStatus(ctx, buildID, model.StatusConfirmed)
}

// Deny rejects a submission; any records it held are recontested.
func (s *BuildService) Deny(ctx context.Context, buildID int64) error {
	return s.setStatus(ctx, buildID, model.StatusDenied)
}

func (s *BuildService) setStatus(ctx context.Context, buildID int64, status model.Status) error {
	if err := s.builds.UpdateStatus(ctx, buildID, status); err != nil {
		return err
	}
	return s.records.OnBuildChanged(ctx, buildID)
}

// MergeExtraInfo patches the free-form extension map. Metadata never
// affects record eligibility, so the engine is not consulted.
func (s *BuildService) MergeExtraInfo(ctx context.Context, buildID int64, patch map[string]json.RawMessage) error {
	if err := s.checkUnlocked(ctx, buildID); err != nil {
		return err
	}
	return s.builds.MergeExtraInfo(ctx, buildID, patch)
}

// Delete removes a build entirely: dependent rows cascade, orphaned vote
// sessions are garbage-collected, and its record slots are recontested.
// The record engine drives the transaction so the slots the build holds
// are captured before the cascade removes them.
func (s *BuildService) Delete(ctx context.Context, buildID int64) error {
	return s.records.OnBuildDeleted(ctx, buildID, func(tx pgx.Tx) error {
		return s.builds.Delete(ctx, tx, buildID)
	})
}

// ApplyChangeSet applies an approved vote session's change-set to the
// build. The session has already unlocked the build by the time the event
// reaches this path, so no lock check is made.
func (s *BuildService) ApplyChangeSet(ctx context.Context, buildID int64, changes json.RawMessage) error {
	var entries []model.ChangeEntry
	if err := json.Unmarshal(changes, &entries); err != nil {
		return fmt.Errorf("decode change-set: %w", err)
	}

	b, err := s.builds.FindByID(ctx, buildID)
	if err != nil {
		return err
	}

	width, height, depth := b.Width, b.Height, b.Depth
	dimsChanged := false
	for _, e := range entries {
		switch e.Field {
		case "submission_status":
			var status model.Status
			if err := json.Unmarshal(e.New, &status); err != nil {
				return fmt.Errorf("change-set %s: %w", e.Field, err)
			}
			if err := s.builds.UpdateStatus(ctx, buildID, status); err != nil {
				return err
			}
		case "width", "height", "depth":
			var v *int
			if err := json.Unmarshal(e.New, &v); err != nil {
				return fmt.Errorf("change-set %s: %w", e.Field, err)
			}
			switch e.Field {
			case "width":
				width = v
			case "height":
				height = v
			case "depth":
				depth = v
			}
			dimsChanged = true
		default:
			return fmt.Errorf("change-set field not applicable: %s", e.Field)
		}
	}
	if dimsChanged {
		if err := s.builds.UpdateDimensions(ctx, buildID, width, height, depth); err != nil {
			return err
		}
	}

	return s.records.OnBuildChanged(ctx, buildID)
}

func (s *BuildService) checkUnlocked(ctx context.Context, buildID int64) error {
	b, err := s.builds.FindByID(ctx, buildID)
	if err != nil {
		return err
	}
	if b.IsLocked {
		return ErrBuildLocked
	}
	return nil
}
