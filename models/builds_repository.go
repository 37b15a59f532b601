package models

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// BuildsRepository keeps one build per session in the session_builds table.
type BuildsRepository struct {
	db *gorm.DB
}

func NewBuildsRepository(db *gorm.DB) *BuildsRepository {
	return &BuildsRepository{db: db}
}

// Get returns the stored build of the session, or an empty Build when the
// session has none yet.
func (r *BuildsRepository) Get(ctx context.Context, sessionID string) (Build, error) {
	var row SessionBuild
	err := r.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Build{}, nil
	}
	if err != nil {
		return Build{}, err
	}

	var build Build
	if len(row.Data) == 0 {
		return build, nil
	}
	if err := json.Unmarshal(row.Data, &build); err != nil {
		return Build{}, fmt.Errorf("decoding build of session %s: %w", sessionID, err)
	}
	return build, nil
}

// Save upserts the build of the session; the last write wins.
func (r *BuildsRepository) Save(ctx context.Context, sessionID string, build Build) error {
	data, err := json.Marshal(build)
	if err != nil {
		return fmt.Errorf("encoding build: %w", err)
	}

	row := SessionBuild{
		SessionID: sessionID,
		Data:      datatypes.JSON(data),
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "session_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"data", "updated_at"}),
		}).
		Create(&row).Error
}
