package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"fonteyn/internal/models"
)

// SyncAccommodations upserts catalog rows from config and refreshes the
// in-memory cache. The catalog has no mutation path at runtime.
func (db *DB) SyncAccommodations(ctx context.Context, accommodations []models.Accommodation) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	query := `INSERT INTO accommodations (id, name, address, price, capacity)
              VALUES (?, ?, ?, ?, ?)
              ON CONFLICT(id) DO UPDATE SET
                name = excluded.name,
                address = excluded.address,
                price = excluded.price,
                capacity = excluded.capacity`
	for _, a := range accommodations {
		if _, err := tx.ExecContext(ctx, query, a.ID, a.Name, a.Address, a.Price, a.Capacity); err != nil {
			return fmt.Errorf("failed to sync accommodation %q: %w", a.Name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit accommodations sync: %w", err)
	}

	db.setAccommodationsCache(accommodations)
	db.log.Info().Int("count", len(accommodations)).Msg("accommodations synced")
	return nil
}

func (db *DB) setAccommodationsCache(accommodations []models.Accommodation) {
	db.mu.Lock()
	defer db.mu.Unlock()

	db.accommodations = make(map[string]*models.Accommodation, len(accommodations))
	db.sortedByCatalog = make([]*models.Accommodation, 0, len(accommodations))
	for i := range accommodations {
		a := accommodations[i]
		db.accommodations[strings.ToLower(a.Name)] = &a
		db.sortedByCatalog = append(db.sortedByCatalog, &a)
	}
}

// GetAccommodations returns the catalog in seed order.
func (db *DB) GetAccommodations(ctx context.Context) ([]*models.Accommodation, error) {
	db.mu.RLock()
	if len(db.sortedByCatalog) > 0 {
		out := append([]*models.Accommodation(nil), db.sortedByCatalog...)
		db.mu.RUnlock()
		return out, nil
	}
	db.mu.RUnlock()

	query := `SELECT id, name, address, price, capacity FROM accommodations ORDER BY id`
	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to get accommodations: %w", err)
	}
	defer rows.Close()

	var accommodations []*models.Accommodation
	for rows.Next() {
		a := &models.Accommodation{}
		if err := rows.Scan(&a.ID, &a.Name, &a.Address, &a.Price, &a.Capacity); err != nil {
			return nil, fmt.Errorf("failed to scan accommodation: %w", err)
		}
		accommodations = append(accommodations, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read accommodations: %w", err)
	}
	return accommodations, nil
}

// GetAccommodationByName looks up a catalog entry case-insensitively.
func (db *DB) GetAccommodationByName(ctx context.Context, name string) (*models.Accommodation, error) {
	key := strings.ToLower(strings.TrimSpace(name))

	db.mu.RLock()
	cached, ok := db.accommodations[key]
	db.mu.RUnlock()
	if ok {
		return cached, nil
	}

	query := `SELECT id, name, address, price, capacity FROM accommodations WHERE LOWER(name) = ?`
	a := &models.Accommodation{}
	err := db.QueryRowContext(ctx, query, key).Scan(&a.ID, &a.Name, &a.Address, &a.Price, &a.Capacity)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get accommodation by name: %w", err)
	}
	return a, nil
}
