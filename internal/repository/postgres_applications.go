package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/iamyinka/reliefproj/internal/domain"
)

const (
	constraintReferenceNumber = "applications_reference_number_key"
	constraintPickupCode      = "pickups_pickup_code_key"
	constraintPickupApp       = "pickups_application_id_key"
)

// PostgresApplicationsRepository applications table; approve also writes pickups
type PostgresApplicationsRepository struct {
	db *sql.DB
}

func NewPostgresApplicationsRepository(db *sql.DB) *PostgresApplicationsRepository {
	return &PostgresApplicationsRepository{db: db}
}

var _ ApplicationsRepository = (*PostgresApplicationsRepository)(nil)

const applicationColumns = `
	id::text, reference_number,
	first_name, last_name, phone, email, address,
	family_size, children_count, elderly_count, employment_status, special_needs, church_member,
	selected_package, package_flexibility,
	preferred_date, preferred_time, alternative_date, alternative_time,
	transportation_help, delivery_request, terms_agreement,
	status, reviewed_by, reviewed_at, review_notes,
	created_at, updated_at`

func scanApplication(s rowScanner) (*domain.Application, error) {
	var a domain.Application
	var altDate, reviewedAt sql.NullTime
	if err := s.Scan(
		&a.ID, &a.ReferenceNumber,
		&a.FirstName, &a.LastName, &a.Phone, &a.Email, &a.Address,
		&a.FamilySize, &a.ChildrenCount, &a.ElderlyCount, &a.EmploymentStatus, &a.SpecialNeeds, &a.ChurchMember,
		&a.SelectedPackage, &a.PackageFlexibility,
		&a.PreferredDate, &a.PreferredTime, &altDate, &a.AlternativeTime,
		&a.TransportationHelp, &a.DeliveryRequest, &a.TermsAgreement,
		&a.Status, &a.ReviewedBy, &reviewedAt, &a.ReviewNotes,
		&a.CreatedAt, &a.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if altDate.Valid {
		t := altDate.Time
		a.AlternativeDate = &t
	}
	if reviewedAt.Valid {
		t := reviewedAt.Time
		a.ReviewedAt = &t
	}
	return &a, nil
}

func (r *PostgresApplicationsRepository) CreateApplication(ctx context.Context, a *domain.Application) error {
	var altDate any
	if a.AlternativeDate != nil {
		altDate = domain.DateString(*a.AlternativeDate)
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO applications (
			id, reference_number,
			first_name, last_name, phone, email, address,
			family_size, children_count, elderly_count, employment_status, special_needs, church_member,
			selected_package, package_flexibility,
			preferred_date, preferred_time, alternative_date, alternative_time,
			transportation_help, delivery_request, terms_agreement,
			status, created_at, updated_at
		) VALUES (
			$1, $2,
			$3, $4, $5, $6, $7,
			$8, $9, $10, $11, $12, $13,
			$14, $15,
			$16, $17, $18, $19,
			$20, $21, $22,
			$23, $24, $24
		)
	`,
		a.ID, a.ReferenceNumber,
		a.FirstName, a.LastName, a.Phone, a.Email, a.Address,
		a.FamilySize, a.ChildrenCount, a.ElderlyCount, a.EmploymentStatus, a.SpecialNeeds, a.ChurchMember,
		string(a.SelectedPackage), a.PackageFlexibility,
		domain.DateString(a.PreferredDate), a.PreferredTime, altDate, a.AlternativeTime,
		a.TransportationHelp, a.DeliveryRequest, a.TermsAgreement,
		string(a.Status), a.CreatedAt,
	)
	if err != nil {
		if constraint, ok := uniqueViolation(err); ok && constraint == constraintReferenceNumber {
			return fmt.Errorf("reference number %s: %w", a.ReferenceNumber, domain.ErrCodeCollision)
		}
		return fmt.Errorf("failed to insert application: %w", err)
	}
	return nil
}

func (r *PostgresApplicationsRepository) getOne(ctx context.Context, where string, arg any) (*domain.Application, error) {
	a, err := scanApplication(r.db.QueryRowContext(ctx, `SELECT`+applicationColumns+` FROM applications WHERE `+where, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("application: %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get application: %w", err)
	}
	return a, nil
}

func (r *PostgresApplicationsRepository) GetApplication(ctx context.Context, id string) (*domain.Application, error) {
	return r.getOne(ctx, `id = $1`, id)
}

func (r *PostgresApplicationsRepository) GetApplicationByReference(ctx context.Context, ref string) (*domain.Application, error) {
	return r.getOne(ctx, `reference_number = $1`, strings.ToUpper(strings.TrimSpace(ref)))
}

func (r *PostgresApplicationsRepository) LatestApplicationByPhone(ctx context.Context, phone string) (*domain.Application, error) {
	return r.getOne(ctx, `phone = $1 ORDER BY created_at DESC LIMIT 1`, phone)
}

func (r *PostgresApplicationsRepository) ListApplications(ctx context.Context, filter ApplicationsFilter, page, size int) ([]*domain.Application, int, error) {
	page, size = normalizePage(page, size)

	where := []string{"1=1"}
	args := []any{}
	if filter.Status != "" {
		args = append(args, string(filter.Status))
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}
	if s := strings.TrimSpace(filter.Search); s != "" {
		args = append(args, "%"+escapeLike(s)+"%")
		n := len(args)
		where = append(where, fmt.Sprintf(`(reference_number ILIKE $%[1]d ESCAPE '\' OR phone ILIKE $%[1]d ESCAPE '\' OR first_name ILIKE $%[1]d ESCAPE '\' OR last_name ILIKE $%[1]d ESCAPE '\')`, n))
	}
	whereSQL := strings.Join(where, " AND ")

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM applications WHERE `+whereSQL, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count applications: %w", err)
	}

	args = append(args, size, (page-1)*size)
	query := fmt.Sprintf(`SELECT%s FROM applications WHERE %s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
		applicationColumns, whereSQL, len(args)-1, len(args))
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list applications: %w", err)
	}
	defer rows.Close()

	out := []*domain.Application{}
	for rows.Next() {
		a, err := scanApplication(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan application: %w", err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to iterate applications: %w", err)
	}
	return out, total, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// escapeLike makes s match literally inside an ILIKE pattern using ESCAPE '\'.
func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

// lockApplication selects the row FOR UPDATE inside tx.
func lockApplication(ctx context.Context, tx *sql.Tx, id string) (*domain.Application, error) {
	a, err := scanApplication(tx.QueryRowContext(ctx, `SELECT`+applicationColumns+` FROM applications WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("application %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to lock application: %w", err)
	}
	return a, nil
}

func updateReview(ctx context.Context, tx *sql.Tx, a *domain.Application) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE applications
		SET status = $2, reviewed_by = $3, reviewed_at = $4, review_notes = $5, updated_at = $4
		WHERE id = $1
	`, a.ID, string(a.Status), a.ReviewedBy, *a.ReviewedAt, a.ReviewNotes)
	if err != nil {
		return fmt.Errorf("failed to update application status: %w", err)
	}
	return nil
}

func (r *PostgresApplicationsRepository) ApproveApplication(ctx context.Context, id string, review domain.Review, voucher *domain.Voucher) (*domain.Application, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	a, err := lockApplication(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if err := a.Approve(review); err != nil {
		return nil, err
	}
	if err := updateReview(ctx, tx, a); err != nil {
		return nil, err
	}

	voucher.ApplicationID = a.ID
	err = tx.QueryRowContext(ctx, `
		INSERT INTO pickups (application_id, pickup_code, scheduled_date, scheduled_time, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $6)
		RETURNING id
	`, a.ID, voucher.PickupCode, domain.DateString(voucher.ScheduledDate), voucher.ScheduledTime,
		string(voucher.Status), voucher.CreatedAt).Scan(&voucher.ID)
	if err != nil {
		if constraint, ok := uniqueViolation(err); ok {
			switch constraint {
			case constraintPickupCode:
				return nil, fmt.Errorf("pickup code %s: %w", voucher.PickupCode, domain.ErrCodeCollision)
			case constraintPickupApp:
				return nil, fmt.Errorf("%w: application %s already has a pickup", domain.ErrInvalidTransition, a.ReferenceNumber)
			}
		}
		return nil, fmt.Errorf("failed to insert pickup: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit approval: %w", err)
	}
	voucher.UpdatedAt = voucher.CreatedAt
	return a, nil
}

func (r *PostgresApplicationsRepository) RejectApplication(ctx context.Context, id string, review domain.Review) (*domain.Application, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	a, err := lockApplication(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if err := a.Reject(review); err != nil {
		return nil, err
	}
	if err := updateReview(ctx, tx, a); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit rejection: %w", err)
	}
	return a, nil
}
