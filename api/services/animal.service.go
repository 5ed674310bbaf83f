package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"herdwatch/db"
	"herdwatch/pkg/fauna"
	"herdwatch/pkg/geometry"
	"herdwatch/pkg/ontology"
	"herdwatch/pkg/shared"
)

const animalColumns = `animal_id, pack_id, name, kind, x, y, heading, created_at, updated_at`

type AnimalService struct {
	store     *db.Service
	publisher Publisher
	logger    *zap.Logger
}

func NewAnimalService(store *db.Service, publisher Publisher, logger *zap.Logger) *AnimalService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AnimalService{
		store:     store,
		publisher: publisher,
		logger:    logger.Named("animal-service"),
	}
}

func (s *AnimalService) CreateAnimal(ctx context.Context, packID string, req *ontology.CreateAnimalRequest) (*ontology.AnimalRecord, error) {
	if req.Pose == nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidRequest, fauna.ErrNilPose)
	}
	if err := validatePose(*req.Pose); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	rec := &ontology.AnimalRecord{
		AnimalID:  uuid.New().String(),
		PackID:    packID,
		Name:      strings.TrimSpace(req.Name),
		Kind:      req.Kind,
		X:         req.Pose.X,
		Y:         req.Pose.Y,
		Heading:   req.Pose.Heading,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if rec.Name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalidRequest)
	}
	if rec.Kind == "" {
		rec.Kind = ontology.KindAnimal
	}
	if _, err := rec.Creature(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}

	err := s.store.Transaction(ctx, func(tx *sql.Tx) error {
		if err := packExists(ctx, tx, packID); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx,
			`INSERT INTO animals (`+animalColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			rec.AnimalID, rec.PackID, rec.Name, rec.Kind, rec.X, rec.Y, nullableFloat(rec.Heading),
			now.Format(timestampLayout), now.Format(timestampLayout),
		)
		if err != nil {
			return fmt.Errorf("failed to create animal: %w", err)
		}
		return insertHistory(ctx, tx, rec.AnimalID, *req.Pose, shared.SourceAPI, now)
	})
	if err != nil {
		return nil, err
	}

	s.publishAnimalEvent(rec, shared.EventTypeCreated)
	return rec, nil
}

func (s *AnimalService) ListAnimals(ctx context.Context, packID string) ([]ontology.AnimalRecord, error) {
	rows, err := s.store.DB.QueryContext(ctx,
		`SELECT `+animalColumns+` FROM animals WHERE pack_id = ? ORDER BY created_at`, packID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query animals: %w", err)
	}
	defer rows.Close()

	animals := []ontology.AnimalRecord{}
	for rows.Next() {
		rec, err := scanAnimal(rows)
		if err != nil {
			return nil, err
		}
		animals = append(animals, *rec)
	}

	return animals, rows.Err()
}

func (s *AnimalService) GetAnimal(ctx context.Context, packID, animalID string) (*ontology.AnimalRecord, error) {
	row := s.store.DB.QueryRowContext(ctx,
		`SELECT `+animalColumns+` FROM animals WHERE pack_id = ? AND animal_id = ?`,
		packID, animalID,
	)

	rec, err := scanAnimal(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("animal %s: %w", animalID, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// UpdatePose replaces the animal's pose and appends it to the pose history.
// A nil heading turns the animal's pose back into a bare point.
func (s *AnimalService) UpdatePose(ctx context.Context, packID, animalID string, pose ontology.PoseInput) (*ontology.AnimalRecord, error) {
	return s.updatePose(ctx, packID, animalID, pose, shared.SourceAPI, time.Now().UTC())
}

// ApplyPoseUpdate applies a telemetry pose update.
func (s *AnimalService) ApplyPoseUpdate(ctx context.Context, update ontology.PoseUpdate) error {
	at := update.Timestamp
	if at.IsZero() {
		at = time.Now().UTC()
	}
	pose := ontology.PoseInput{X: update.X, Y: update.Y, Heading: update.Heading}
	_, err := s.updatePose(ctx, update.PackID, update.AnimalID, pose, shared.SourceTelemetry, at.UTC())
	return err
}

// updatePose writes the pose and appends it to history. Telemetry carries its
// own timestamp and may arrive out of order, so a telemetry sample older than
// the stored pose only lands in history.
func (s *AnimalService) updatePose(ctx context.Context, packID, animalID string, pose ontology.PoseInput, source string, at time.Time) (*ontology.AnimalRecord, error) {
	if err := validatePose(pose); err != nil {
		return nil, err
	}

	stamp := at.Format(timestampLayout)
	query := `UPDATE animals SET x = ?, y = ?, heading = ?, updated_at = ? WHERE pack_id = ? AND animal_id = ?`
	args := []interface{}{pose.X, pose.Y, nullableFloat(pose.Heading), stamp, packID, animalID}
	if source == shared.SourceTelemetry {
		query += ` AND updated_at <= ?`
		args = append(args, stamp)
	}

	stale := false
	err := s.store.Transaction(ctx, func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx, query, args...)
		if err != nil {
			return fmt.Errorf("failed to update pose: %w", err)
		}
		if n, _ := result.RowsAffected(); n == 0 {
			if err := animalExists(ctx, tx, packID, animalID); err != nil {
				return err
			}
			stale = true
		}
		return insertHistory(ctx, tx, animalID, pose, source, at)
	})
	if err != nil {
		return nil, err
	}

	rec, err := s.GetAnimal(ctx, packID, animalID)
	if err != nil {
		return nil, err
	}

	if stale {
		s.logger.Debug("Recorded stale pose sample",
			zap.String("animal_id", animalID), zap.Time("recorded_at", at))
		return rec, nil
	}

	s.publishAnimalEvent(rec, shared.EventTypeMoved)
	return rec, nil
}

// Permanent reports whether err will fail again on every retry.
func (s *AnimalService) Permanent(err error) bool {
	return errors.Is(err, ErrNotFound) || errors.Is(err, ErrInvalidRequest)
}

// PoseHistory returns the most recent poses for an animal, newest first.
func (s *AnimalService) PoseHistory(ctx context.Context, packID, animalID string, limit int) ([]ontology.PoseSample, error) {
	if _, err := s.GetAnimal(ctx, packID, animalID); err != nil {
		return nil, err
	}
	if limit <= 0 || limit > 1000 {
		limit = 100
	}

	rows, err := s.store.DB.QueryContext(ctx,
		`SELECT history_id, animal_id, x, y, heading, source, recorded_at
		 FROM pose_history WHERE animal_id = ?
		 ORDER BY recorded_at DESC, rowid DESC LIMIT ?`,
		animalID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query pose history: %w", err)
	}
	defer rows.Close()

	samples := []ontology.PoseSample{}
	for rows.Next() {
		var sample ontology.PoseSample
		var heading sql.NullFloat64
		var recordedAt string
		if err := rows.Scan(&sample.HistoryID, &sample.AnimalID, &sample.X, &sample.Y, &heading, &sample.Source, &recordedAt); err != nil {
			return nil, fmt.Errorf("failed to scan pose sample: %w", err)
		}
		if heading.Valid {
			sample.Heading = &heading.Float64
		}
		sample.RecordedAt, _ = time.Parse(timestampLayout, recordedAt)
		samples = append(samples, sample)
	}

	return samples, rows.Err()
}

func (s *AnimalService) DeleteAnimal(ctx context.Context, packID, animalID string) error {
	rec, err := s.GetAnimal(ctx, packID, animalID)
	if err != nil {
		return err
	}

	result, err := s.store.DB.ExecContext(ctx,
		"DELETE FROM animals WHERE pack_id = ? AND animal_id = ?",
		packID, animalID,
	)
	if err != nil {
		return fmt.Errorf("failed to delete animal: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("animal %s: %w", animalID, ErrNotFound)
	}

	s.publishAnimalEvent(rec, shared.EventTypeDeleted)
	return nil
}

// Bearing measures from one animal to another in the same pack. When the
// source animal has a heading the result is relative to it; the target's
// heading never matters.
func (s *AnimalService) Bearing(ctx context.Context, packID, fromID, toID string) (*ontology.BearingResult, error) {
	from, err := s.GetAnimal(ctx, packID, fromID)
	if err != nil {
		return nil, err
	}
	to, err := s.GetAnimal(ctx, packID, toID)
	if err != nil {
		return nil, err
	}

	source, err := from.Creature()
	if err != nil {
		return nil, err
	}
	target, err := to.Creature()
	if err != nil {
		return nil, err
	}

	distance, heading := source.DistanceAndHeadingTo(target)
	return &ontology.BearingResult{
		FromID:   fromID,
		ToID:     toID,
		Distance: distance,
		Heading:  heading,
		Cardinal: geometry.Cardinal(heading),
		Relative: from.Heading != nil,
	}, nil
}

func (s *AnimalService) publishAnimalEvent(rec *ontology.AnimalRecord, eventType string) {
	if s.publisher == nil {
		return
	}

	now := time.Now().UTC()
	event := shared.Event{
		ID:      uuid.New().String(),
		Type:    eventType,
		Subject: shared.AnimalEventSubject(rec.PackID, eventType),
		Data: map[string]interface{}{
			"animal_id": rec.AnimalID,
			"pack_id":   rec.PackID,
			"name":      rec.Name,
			"kind":      rec.Kind,
		},
		Timestamp: now,
		Source:    "animal-service",
	}
	if eventType != shared.EventTypeDeleted {
		event.Data["animal"] = rec
	}

	data, err := json.Marshal(event)
	if err != nil {
		s.logger.Error("Failed to marshal animal event", zap.Error(err))
		return
	}

	msgID := fmt.Sprintf("%s-%s-%d", rec.AnimalID, eventType, now.UnixNano())
	if err := s.publisher.PublishWithDedup(event.Subject, data, msgID); err != nil {
		s.logger.Warn("Failed to publish animal event", zap.String("subject", event.Subject), zap.Error(err))
		return
	}
	s.logger.Debug("Published animal event", zap.String("type", eventType), zap.String("subject", event.Subject))
}

func packExists(ctx context.Context, tx *sql.Tx, packID string) error {
	var n int
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM packs WHERE pack_id = ?`, packID).Scan(&n); err != nil {
		return fmt.Errorf("failed to look up pack: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("pack %s: %w", packID, ErrNotFound)
	}
	return nil
}

func animalExists(ctx context.Context, tx *sql.Tx, packID, animalID string) error {
	var n int
	err := tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM animals WHERE pack_id = ? AND animal_id = ?`, packID, animalID,
	).Scan(&n)
	if err != nil {
		return fmt.Errorf("failed to look up animal: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("animal %s: %w", animalID, ErrNotFound)
	}
	return nil
}

func insertHistory(ctx context.Context, tx *sql.Tx, animalID string, pose ontology.PoseInput, source string, at time.Time) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO pose_history (history_id, animal_id, x, y, heading, source, recorded_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		uuid.New().String(), animalID, pose.X, pose.Y, nullableFloat(pose.Heading), source, at.Format(timestampLayout),
	)
	if err != nil {
		return fmt.Errorf("failed to record pose history: %w", err)
	}
	return nil
}

func validatePose(pose ontology.PoseInput) error {
	values := []float64{pose.X, pose.Y}
	if pose.Heading != nil {
		values = append(values, *pose.Heading)
	}
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: pose values must be finite", ErrInvalidRequest)
		}
	}
	return nil
}

func nullableFloat(v *float64) interface{} {
	if v == nil {
		return nil
	}
	return *v
}

func scanAnimal(scanner interface{ Scan(...interface{}) error }) (*ontology.AnimalRecord, error) {
	var rec ontology.AnimalRecord
	var heading sql.NullFloat64
	var createdAt, updatedAt string

	err := scanner.Scan(
		&rec.AnimalID, &rec.PackID, &rec.Name, &rec.Kind,
		&rec.X, &rec.Y, &heading, &createdAt, &updatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to scan animal: %w", err)
	}

	if heading.Valid {
		rec.Heading = &heading.Float64
	}
	rec.CreatedAt, _ = time.Parse(timestampLayout, createdAt)
	rec.UpdatedAt, _ = time.Parse(timestampLayout, updatedAt)
	return &rec, nil
}
