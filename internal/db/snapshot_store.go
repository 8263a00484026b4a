package db

import (
	"context" // Context for queries
	"errors"  // Error inspection

	"round_dao/internal/domain" // Importing domain models
	"round_dao/internal/engine" // Snapshot summary

	"github.com/sirupsen/logrus" // Logging library
	"gorm.io/gorm"               // GORM ORM library
)

// SnapshotStore keeps serialized engine states in the state_snapshots table
type SnapshotStore struct {
	db *gorm.DB
}

// NewSnapshotStore wraps an open connection
func NewSnapshotStore(db *gorm.DB) *SnapshotStore {
	return &SnapshotStore{db: db}
}

// Save inserts a new snapshot row
func (s *SnapshotStore) Save(ctx context.Context, payload []byte, summary engine.Summary) error {
	row := domain.StateSnapshot{
		Payload:   payload,           // Serialized state
		SizeBytes: len(payload),      // Payload size
		Users:     summary.Users,     // User count
		Proposals: summary.Proposals, // Live proposals
		Rounds:    summary.Rounds,    // Round results
		Payments:  summary.Payments,  // Payment history length
	}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return err
	}
	// Log the capture with its size
	logrus.WithFields(logrus.Fields{
		"snapshot_id": row.ID,        // Row id
		"size_bytes":  row.SizeBytes, // Payload size
		"users":       row.Users,     // User count
		"proposals":   row.Proposals, // Live proposals
	}).Info("State snapshot saved")
	return nil
}

// Latest returns the payload of the newest snapshot, if any
func (s *SnapshotStore) Latest(ctx context.Context) ([]byte, bool, error) {
	row, found, err := s.LatestRow(ctx)
	if err != nil || !found {
		return nil, found, err
	}
	return row.Payload, true, nil
}

// LatestRow returns the newest snapshot row, if any
func (s *SnapshotStore) LatestRow(ctx context.Context) (domain.StateSnapshot, bool, error) {
	var row domain.StateSnapshot
	err := s.db.WithContext(ctx).Order("id desc").First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.StateSnapshot{}, false, nil // No snapshot yet
	}
	if err != nil {
		return domain.StateSnapshot{}, false, err
	}
	return row, true, nil
}

// Prune deletes all but the newest keep snapshots and reports how many rows went
func (s *SnapshotStore) Prune(ctx context.Context, keep int) (int64, error) {
	if keep < 1 {
		keep = 1 // Never delete the newest snapshot
	}
	var ids []uint
	// Find the ids of the snapshots to keep
	if err := s.db.WithContext(ctx).Model(&domain.StateSnapshot{}).Order("id desc").Limit(keep).Pluck("id", &ids).Error; err != nil {
		return 0, err
	}
	if len(ids) < keep {
		return 0, nil // Nothing to prune
	}
	oldest := ids[len(ids)-1]
	res := s.db.WithContext(ctx).Where("id < ?", oldest).Delete(&domain.StateSnapshot{})
	if res.Error != nil {
		return 0, res.Error
	}
	if res.RowsAffected > 0 {
		logrus.WithField("deleted", res.RowsAffected).Info("Old state snapshots pruned")
	}
	return res.RowsAffected, nil
}
