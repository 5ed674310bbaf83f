package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"herdwatch/pkg/ontology"
)

type PackService struct {
	db *sql.DB
}

func NewPackService(db *sql.DB) *PackService {
	return &PackService{db: db}
}

func (s *PackService) DB() *sql.DB {
	return s.db
}

func (s *PackService) CreatePack(ctx context.Context, req *ontology.CreatePackRequest) (*ontology.Pack, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalidRequest)
	}

	packID := uuid.New().String()
	now := time.Now().UTC()

	metadataJSON := "{}"
	if req.Metadata != nil {
		bytes, err := json.Marshal(req.Metadata)
		if err != nil {
			return nil, fmt.Errorf("%w: metadata: %v", ErrInvalidRequest, err)
		}
		metadataJSON = string(bytes)
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO packs (pack_id, name, territory, metadata, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		packID, name, req.Territory, metadataJSON, now.Format(timestampLayout), now.Format(timestampLayout),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create pack: %w", err)
	}

	return &ontology.Pack{
		PackID:    packID,
		Name:      name,
		Territory: req.Territory,
		Metadata:  metadataJSON,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

func (s *PackService) ListPacks(ctx context.Context) ([]ontology.Pack, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT pack_id, name, territory, metadata, created_at, updated_at FROM packs ORDER BY created_at`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query packs: %w", err)
	}
	defer rows.Close()

	packs := []ontology.Pack{}
	for rows.Next() {
		pack, err := scanPack(rows)
		if err != nil {
			return nil, err
		}
		packs = append(packs, *pack)
	}

	return packs, rows.Err()
}

func (s *PackService) GetPack(ctx context.Context, packID string) (*ontology.Pack, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT pack_id, name, territory, metadata, created_at, updated_at FROM packs WHERE pack_id = ?`,
		packID,
	)

	pack, err := scanPack(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("pack %s: %w", packID, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return pack, nil
}

func scanPack(scanner interface{ Scan(...interface{}) error }) (*ontology.Pack, error) {
	var pack ontology.Pack
	var createdAt, updatedAt string

	err := scanner.Scan(&pack.PackID, &pack.Name, &pack.Territory, &pack.Metadata, &createdAt, &updatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to scan pack: %w", err)
	}

	pack.CreatedAt, _ = time.Parse(timestampLayout, createdAt)
	pack.UpdatedAt, _ = time.Parse(timestampLayout, updatedAt)
	return &pack, nil
}
