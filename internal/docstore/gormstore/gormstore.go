// Package gormstore backs the document store with a Postgres JSONB table,
// one row per lobby document. Subscriptions are fanned out in-process after
// each committed write, so it suits a single-daemon deployment where remote
// clients reach the store through the websocket gateway.
package gormstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"github.com/project-alluminati/alluminati-backend/internal/docstore"
)

type lobbyRow struct {
	Code      string `gorm:"primaryKey;size:36"`
	Data      []byte `gorm:"type:jsonb"`
	UpdatedAt time.Time
}

func (lobbyRow) TableName() string { return "lobbies" }

type Store struct {
	db  *gorm.DB
	hub *docstore.Hub
}

var _ docstore.Store = (*Store)(nil)

func Open(dsn string) (*Store, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("gormstore: open: %w", err)
	}
	if err := db.AutoMigrate(&lobbyRow{}); err != nil {
		return nil, fmt.Errorf("gormstore: migrate: %w", err)
	}
	return &Store{db: db, hub: docstore.NewHub()}, nil
}

func (s *Store) Create(ctx context.Context, data map[string]any) (string, error) {
	code := uuid.NewString()
	return code, s.Set(ctx, code, data)
}

func (s *Store) Set(ctx context.Context, code string, data map[string]any) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("gormstore: encode %s: %w", code, err)
	}
	err = s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "code"}},
			DoUpdates: clause.AssignmentColumns([]string{"data", "updated_at"}),
		}).
		Create(&lobbyRow{Code: code, Data: raw, UpdatedAt: time.Now()}).Error
	if err != nil {
		return fmt.Errorf("gormstore: set %s: %w", code, err)
	}
	s.hub.Publish(docstore.Snapshot{Code: code, Exists: true, Data: docstore.CopyDoc(data)})
	return nil
}

func (s *Store) Get(ctx context.Context, code string) (map[string]any, error) {
	var row lobbyRow
	err := s.db.WithContext(ctx).First(&row, "code = ?", code).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, docstore.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("gormstore: get %s: %w", code, err)
	}
	return decodeRow(row)
}

func (s *Store) Update(ctx context.Context, code string, fields map[string]any) error {
	var doc map[string]any
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var row lobbyRow
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&row, "code = ?", code).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return docstore.ErrNotFound
		}
		if err != nil {
			return err
		}
		if doc, err = decodeRow(row); err != nil {
			return err
		}
		docstore.ApplyFields(doc, fields)
		raw, err := json.Marshal(doc)
		if err != nil {
			return err
		}
		return tx.Model(&lobbyRow{}).Where("code = ?", code).
			Updates(map[string]any{"data": raw, "updated_at": time.Now()}).Error
	})
	if errors.Is(err, docstore.ErrNotFound) {
		return docstore.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("gormstore: update %s: %w", code, err)
	}
	s.hub.Publish(docstore.Snapshot{Code: code, Exists: true, Data: doc})
	return nil
}

func (s *Store) Delete(ctx context.Context, code string) error {
	res := s.db.WithContext(ctx).Delete(&lobbyRow{}, "code = ?", code)
	if res.Error != nil {
		return fmt.Errorf("gormstore: delete %s: %w", code, res.Error)
	}
	if res.RowsAffected > 0 {
		s.hub.Publish(docstore.Snapshot{Code: code, Exists: false})
	}
	return nil
}

func (s *Store) ListAll(ctx context.Context) (map[string]map[string]any, error) {
	var rows []lobbyRow
	if err := s.db.WithContext(ctx).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("gormstore: list: %w", err)
	}
	out := make(map[string]map[string]any, len(rows))
	for _, row := range rows {
		doc, err := decodeRow(row)
		if err != nil {
			return nil, err
		}
		out[row.Code] = doc
	}
	return out, nil
}

func (s *Store) Subscribe(ctx context.Context, code string, fn func(docstore.Snapshot)) (docstore.UnsubscribeFunc, error) {
	sub := s.hub.Add(code, fn)
	doc, err := s.Get(ctx, code)
	switch {
	case errors.Is(err, docstore.ErrNotFound):
		sub.Send(docstore.Snapshot{Code: code, Exists: false})
	case err != nil:
		sub.Close()
		return nil, err
	default:
		sub.Send(docstore.Snapshot{Code: code, Exists: true, Data: doc})
	}
	return sub.Close, nil
}

func decodeRow(row lobbyRow) (map[string]any, error) {
	var doc map[string]any
	if err := json.Unmarshal(row.Data, &doc); err != nil {
		return nil, fmt.Errorf("gormstore: decode %s: %w", row.Code, err)
	}
	return doc, nil
}
