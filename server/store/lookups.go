package store

import (
	"fmt"
	"time"
)

type Lookup struct {
	ID        string    `db:"id" json:"id"`
	Category  string    `db:"category" json:"category"`
	Value     string    `db:"value" json:"value"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
}

func (db *DB) CreateLookup(lookup *Lookup) error {
	now := time.Now().UTC()
	lookup.CreatedAt = now
	lookup.UpdatedAt = now

	query := `INSERT INTO lookups (id, category, value, created_at, updated_at)
		VALUES (:id, :category, :value, :created_at, :updated_at)`

	if _, err := db.NamedExec(query, lookup); err != nil {
		return fmt.Errorf("failed to create lookup: %w", err)
	}
	return nil
}

func (db *DB) GetLookupByID(id string) (*Lookup, error) {
	var lookup Lookup
	err := db.Get(&lookup, `SELECT * FROM lookups WHERE id = ?`, id)
	if err != nil {
		return nil, err
	}
	return &lookup, nil
}

// ListLookups returns lookups for the given category, or all lookups
// when category is empty.
func (db *DB) ListLookups(category string) ([]Lookup, error) {
	lookups := []Lookup{}
	var err error
	if category == "" {
		err = db.Select(&lookups, `SELECT * FROM lookups ORDER BY category, value`)
	} else {
		err = db.Select(&lookups, `SELECT * FROM lookups WHERE category = ? ORDER BY value`, category)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list lookups: %w", err)
	}
	return lookups, nil
}

func (db *DB) UpdateLookup(lookup *Lookup) error {
	lookup.UpdatedAt = time.Now().UTC()

	query := `UPDATE lookups SET category = :category, value = :value, updated_at = :updated_at
		WHERE id = :id`

	res, err := db.NamedExec(query, lookup)
	if err != nil {
		return fmt.Errorf("failed to update lookup: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("lookup %s not found", lookup.ID)
	}
	return nil
}

func (db *DB) DeleteLookup(id string) error {
	res, err := db.Exec(`DELETE FROM lookups WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete lookup: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("lookup %s not found", id)
	}
	return nil
}
