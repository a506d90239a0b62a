package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/iamyinka/reliefproj/internal/domain"

	"github.com/lib/pq"
)

// PostgresPackagesRepository packages + package_items
type PostgresPackagesRepository struct {
	db *sql.DB
}

func NewPostgresPackagesRepository(db *sql.DB) *PostgresPackagesRepository {
	return &PostgresPackagesRepository{db: db}
}

var _ PackagesRepository = (*PostgresPackagesRepository)(nil)

const activeTypeConstraint = "packages_active_type_key"

// packageWriteError maps the one-active-per-type index onto a field error.
func packageWriteError(op string, err error) error {
	if c, ok := uniqueViolation(err); ok && c == activeTypeConstraint {
		return domain.ActiveTypeTakenError()
	}
	return fmt.Errorf("failed to %s: %w", op, err)
}

const packageColumns = `
	id, name, package_type, description, cash_amount,
	total_quantity, available_quantity, is_active, created_at, updated_at`

func scanPackage(s rowScanner) (*domain.Package, error) {
	var p domain.Package
	if err := s.Scan(
		&p.ID,
		&p.Name,
		&p.Type,
		&p.Description,
		&p.CashAmount,
		&p.TotalQuantity,
		&p.AvailableQuantity,
		&p.IsActive,
		&p.CreatedAt,
		&p.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *PostgresPackagesRepository) ListPackages(ctx context.Context, activeOnly bool) ([]*domain.Package, error) {
	query := `SELECT` + packageColumns + ` FROM packages`
	if activeOnly {
		query += ` WHERE is_active = TRUE`
	}
	query += ` ORDER BY cash_amount, id`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list packages: %w", err)
	}
	defer rows.Close()

	var out []*domain.Package
	byID := map[int64]*domain.Package{}
	ids := []int64{}
	for rows.Next() {
		p, err := scanPackage(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan package: %w", err)
		}
		out = append(out, p)
		byID[p.ID] = p
		ids = append(ids, p.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate packages: %w", err)
	}
	if len(ids) == 0 {
		return out, nil
	}

	itemRows, err := r.db.QueryContext(ctx, `
		SELECT package_id, item_name, quantity, item_order
		FROM package_items
		WHERE package_id = ANY($1)
		ORDER BY package_id, item_order
	`, pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("failed to list package items: %w", err)
	}
	defer itemRows.Close()
	for itemRows.Next() {
		var pkgID int64
		var item domain.PackageItem
		if err := itemRows.Scan(&pkgID, &item.Name, &item.Quantity, &item.Order); err != nil {
			return nil, fmt.Errorf("failed to scan package item: %w", err)
		}
		if p, ok := byID[pkgID]; ok {
			p.Items = append(p.Items, item)
		}
	}
	return out, itemRows.Err()
}

func (r *PostgresPackagesRepository) GetPackage(ctx context.Context, id int64) (*domain.Package, error) {
	p, err := scanPackage(r.db.QueryRowContext(ctx, `SELECT`+packageColumns+` FROM packages WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("package %d: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get package: %w", err)
	}
	if err := r.loadItems(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (r *PostgresPackagesRepository) GetPackageByType(ctx context.Context, t domain.PackageType) (*domain.Package, error) {
	p, err := scanPackage(r.db.QueryRowContext(ctx, `
		SELECT`+packageColumns+`
		FROM packages
		WHERE package_type = $1
		ORDER BY is_active DESC, id
		LIMIT 1
	`, string(t)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("package type %s: %w", t, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get package by type: %w", err)
	}
	if err := r.loadItems(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (r *PostgresPackagesRepository) loadItems(ctx context.Context, p *domain.Package) error {
	return loadItems(ctx, r.db, p)
}

type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func loadItems(ctx context.Context, q queryer, p *domain.Package) error {
	rows, err := q.QueryContext(ctx, `
		SELECT item_name, quantity, item_order
		FROM package_items
		WHERE package_id = $1
		ORDER BY item_order
	`, p.ID)
	if err != nil {
		return fmt.Errorf("failed to load package items: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var item domain.PackageItem
		if err := rows.Scan(&item.Name, &item.Quantity, &item.Order); err != nil {
			return fmt.Errorf("failed to scan package item: %w", err)
		}
		p.Items = append(p.Items, item)
	}
	return rows.Err()
}

func (r *PostgresPackagesRepository) CreatePackage(ctx context.Context, p *domain.Package) (int64, error) {
	if err := p.Validate(); err != nil {
		return 0, err
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	var id int64
	err = tx.QueryRowContext(ctx, `
		INSERT INTO packages (name, package_type, description, cash_amount, total_quantity, available_quantity, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`, p.Name, string(p.Type), p.Description, p.CashAmount, p.TotalQuantity, p.AvailableQuantity, p.IsActive).Scan(&id)
	if err != nil {
		return 0, packageWriteError("insert package", err)
	}
	if err := insertItems(ctx, tx, id, p.Items); err != nil {
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit package: %w", err)
	}
	p.ID = id
	return id, nil
}

func insertItems(ctx context.Context, tx *sql.Tx, packageID int64, items []domain.PackageItem) error {
	for i, item := range items {
		order := item.Order
		if order == 0 {
			order = i + 1
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO package_items (package_id, item_order, item_name, quantity)
			VALUES ($1, $2, $3, $4)
		`, packageID, order, item.Name, item.Quantity); err != nil {
			return fmt.Errorf("failed to insert package item %q: %w", item.Name, err)
		}
	}
	return nil
}

func (r *PostgresPackagesRepository) UpdatePackage(ctx context.Context, id int64, mutate func(p *domain.Package) error) (*domain.Package, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	p, err := scanPackage(tx.QueryRowContext(ctx, `SELECT`+packageColumns+` FROM packages WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("package %d: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to lock package: %w", err)
	}
	if err := loadItems(ctx, tx, p); err != nil {
		return nil, err
	}
	if err := mutate(p); err != nil {
		return nil, err
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}

	err = tx.QueryRowContext(ctx, `
		UPDATE packages
		SET name = $2, description = $3, cash_amount = $4, is_active = $5, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at
	`, id, p.Name, p.Description, p.CashAmount, p.IsActive).Scan(&p.UpdatedAt)
	if err != nil {
		return nil, packageWriteError("update package", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM package_items WHERE package_id = $1`, id); err != nil {
		return nil, fmt.Errorf("failed to clear package items: %w", err)
	}
	if err := insertItems(ctx, tx, id, p.Items); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit package: %w", err)
	}
	return p, nil
}

func (r *PostgresPackagesRepository) Allocate(ctx context.Context, id int64) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE packages
		SET available_quantity = available_quantity - 1, updated_at = NOW()
		WHERE id = $1 AND available_quantity > 0
	`, id)
	if err != nil {
		return false, fmt.Errorf("failed to allocate package: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to allocate package: %w", err)
	}
	if n == 1 {
		return true, nil
	}

	var exists bool
	if err := r.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM packages WHERE id = $1)`, id).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check package: %w", err)
	}
	if !exists {
		return false, fmt.Errorf("package %d: %w", id, domain.ErrNotFound)
	}
	return false, nil
}

func (r *PostgresPackagesRepository) Restock(ctx context.Context, id int64, qty int) (int, error) {
	if qty < 1 {
		return 0, fmt.Errorf("restock quantity must be greater than 0, got %d", qty)
	}
	var available int
	err := r.db.QueryRowContext(ctx, `
		UPDATE packages
		SET available_quantity = available_quantity + $2,
		    total_quantity = total_quantity + $2,
		    updated_at = NOW()
		WHERE id = $1
		RETURNING available_quantity
	`, id, qty).Scan(&available)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, fmt.Errorf("package %d: %w", id, domain.ErrNotFound)
		}
		return 0, fmt.Errorf("failed to restock package: %w", err)
	}
	return available, nil
}
