package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/pbms/apiserver/types"
)

// BusinessUnitRepository handles persistence for business units.
type BusinessUnitRepository struct {
	db *sql.DB
}

func NewBusinessUnitRepository(db *sql.DB) *BusinessUnitRepository {
	return &BusinessUnitRepository{db: db}
}

func (r *BusinessUnitRepository) List(ctx context.Context) ([]types.BusinessUnit, error) {
	const query = `
		SELECT id, name, description, created_at, updated_at
		FROM business_units
		ORDER BY id`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var units []types.BusinessUnit
	for rows.Next() {
		var unit types.BusinessUnit
		if err := rows.Scan(&unit.ID, &unit.Name, &unit.Description, &unit.CreatedAt, &unit.UpdatedAt); err != nil {
			return nil, err
		}
		units = append(units, unit)
	}
	return units, rows.Err()
}

func (r *BusinessUnitRepository) Get(ctx context.Context, id int) (types.BusinessUnit, error) {
	const query = `
		SELECT id, name, description, created_at, updated_at
		FROM business_units
		WHERE id = $1`
	var unit types.BusinessUnit
	err := r.db.QueryRowContext(ctx, query, id).Scan(&unit.ID, &unit.Name, &unit.Description, &unit.CreatedAt, &unit.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.BusinessUnit{}, ErrNotFound
		}
		return types.BusinessUnit{}, err
	}
	return unit, nil
}

func (r *BusinessUnitRepository) Create(ctx context.Context, unit types.BusinessUnit) (types.BusinessUnit, error) {
	now := time.Now()
	unit.CreatedAt = now
	unit.UpdatedAt = now

	const query = `
		INSERT INTO business_units (name, description, created_at, updated_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id`
	if err := r.db.QueryRowContext(ctx, query, unit.Name, unit.Description, unit.CreatedAt, unit.UpdatedAt).Scan(&unit.ID); err != nil {
		return types.BusinessUnit{}, err
	}
	return unit, nil
}

func (r *BusinessUnitRepository) Update(ctx context.Context, unit types.BusinessUnit) (types.BusinessUnit, error) {
	unit.UpdatedAt = time.Now()

	const query = `
		UPDATE business_units
		SET name = $1, description = $2, updated_at = $3
		WHERE id = $4`
	result, err := r.db.ExecContext(ctx, query, unit.Name, unit.Description, unit.UpdatedAt, unit.ID)
	if err != nil {
		return types.BusinessUnit{}, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return types.BusinessUnit{}, err
	}
	if affected == 0 {
		return types.BusinessUnit{}, ErrNotFound
	}
	return unit, nil
}

func (r *BusinessUnitRepository) Delete(ctx context.Context, id int) error {
	const query = `DELETE FROM business_units WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}
