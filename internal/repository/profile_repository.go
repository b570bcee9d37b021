package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/school-admin-api/internal/models"
)

const profileSelect = `SELECT p.id, p.user_id, p.employee_id, p.department_id, p.role, p.phone, p.address, p.hire_date, p.is_active_employee, p.class_name, p.created_at, p.updated_at,
u.username, TRIM(u.first_name || ' ' || u.last_name) AS full_name, u.email, u.is_superuser
FROM user_profiles p JOIN users u ON u.id = p.user_id`

// ProfileRepository persists organisational profiles.
type ProfileRepository struct {
	db *sqlx.DB
}

// NewProfileRepository constructs the repository.
func NewProfileRepository(db *sqlx.DB) *ProfileRepository {
	return &ProfileRepository{db: db}
}

// FindByUserID loads the profile owned by a user.
func (r *ProfileRepository) FindByUserID(ctx context.Context, userID string) (*models.UserProfile, error) {
	var profile models.UserProfile
	if err := r.db.GetContext(ctx, &profile, profileSelect+` WHERE p.user_id = $1`, userID); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find profile by user: %w", err)
	}
	return &profile, nil
}

// FindByID loads a profile by its own identifier.
func (r *ProfileRepository) FindByID(ctx context.Context, id string) (*models.UserProfile, error) {
	var profile models.UserProfile
	if err := r.db.GetContext(ctx, &profile, profileSelect+` WHERE p.id = $1`, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find profile: %w", err)
	}
	return &profile, nil
}

// NextEmployeeNumber draws the next value of the employee number sequence.
func (r *ProfileRepository) NextEmployeeNumber(ctx context.Context) (int64, error) {
	var next int64
	if err := r.db.GetContext(ctx, &next, `SELECT nextval('employee_number_seq')`); err != nil {
		return 0, fmt.Errorf("next employee number: %w", err)
	}
	return next, nil
}

// Create inserts a profile. A concurrent insert for the same user surfaces as
// a unique violation on user_profiles_user_id_key.
func (r *ProfileRepository) Create(ctx context.Context, profile *models.UserProfile) error {
	if profile.ID == "" {
		profile.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if profile.CreatedAt.IsZero() {
		profile.CreatedAt = now
	}
	profile.UpdatedAt = now
	const query = `INSERT INTO user_profiles (id, user_id, employee_id, department_id, role, phone, address, hire_date, is_active_employee, class_name, created_at, updated_at)
VALUES (:id, :user_id, :employee_id, :department_id, :role, :phone, :address, :hire_date, :is_active_employee, :class_name, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, profile); err != nil {
		return fmt.Errorf("create profile: %w", err)
	}
	return nil
}

// Update modifies the editable profile fields.
func (r *ProfileRepository) Update(ctx context.Context, profile *models.UserProfile) error {
	profile.UpdatedAt = time.Now().UTC()
	const query = `UPDATE user_profiles SET department_id = :department_id, phone = :phone, address = :address, hire_date = :hire_date, is_active_employee = :is_active_employee, class_name = :class_name, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, profile); err != nil {
		return fmt.Errorf("update profile: %w", err)
	}
	return nil
}

// UpdateRole changes the role of a profile.
func (r *ProfileRepository) UpdateRole(ctx context.Context, id string, role models.Role) error {
	const query = `UPDATE user_profiles SET role = $2, updated_at = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, role, time.Now().UTC()); err != nil {
		return fmt.Errorf("update profile role: %w", err)
	}
	return nil
}

// FirstActiveByRole returns the earliest created active profile with the role,
// optionally restricted to a class name. It returns sql.ErrNoRows when none
// qualifies.
func (r *ProfileRepository) FirstActiveByRole(ctx context.Context, role models.Role, className string) (*models.UserProfile, error) {
	query := profileSelect + ` WHERE p.role = $1 AND p.is_active_employee = TRUE AND u.active = TRUE`
	args := []interface{}{role}
	if className != "" {
		query += ` AND p.class_name = $2`
		args = append(args, className)
	}
	query += ` ORDER BY p.created_at ASC, p.id ASC LIMIT 1`

	var profile models.UserProfile
	if err := r.db.GetContext(ctx, &profile, query, args...); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find first active %s: %w", role, err)
	}
	return &profile, nil
}

// ListActiveByRole returns active profiles with the role, optionally in a class.
func (r *ProfileRepository) ListActiveByRole(ctx context.Context, role models.Role, className string) ([]models.UserProfile, error) {
	query := profileSelect + ` WHERE p.role = $1 AND p.is_active_employee = TRUE`
	args := []interface{}{role}
	if className != "" {
		query += ` AND p.class_name = $2`
		args = append(args, className)
	}
	query += ` ORDER BY u.first_name ASC, u.last_name ASC`

	var profiles []models.UserProfile
	if err := r.db.SelectContext(ctx, &profiles, query, args...); err != nil {
		return nil, fmt.Errorf("list active %s: %w", role, err)
	}
	return profiles, nil
}

// CountActiveByRole counts active profiles with the role.
func (r *ProfileRepository) CountActiveByRole(ctx context.Context, role models.Role) (int, error) {
	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM user_profiles WHERE role = $1 AND is_active_employee = TRUE`, role); err != nil {
		return 0, fmt.Errorf("count %s profiles: %w", role, err)
	}
	return total, nil
}

// ListManageable returns the profiles inside scope, rendered as SQL filters.
func (r *ProfileRepository) ListManageable(ctx context.Context, scope models.ManageableScope, filter models.ProfileFilter) ([]models.UserProfile, int, error) {
	if scope.Empty() {
		return []models.UserProfile{}, 0, nil
	}

	base := ` WHERE 1=1`
	var conditions []string
	var args []interface{}

	if !scope.All {
		if scope.ExcludeSuperusers {
			conditions = append(conditions, "u.is_superuser = FALSE")
		}
		if len(scope.ExcludeRoles) > 0 {
			roles := make([]string, 0, len(scope.ExcludeRoles))
			for _, role := range scope.ExcludeRoles {
				roles = append(roles, string(role))
			}
			conditions = append(conditions, fmt.Sprintf("NOT (p.role = ANY($%d))", len(args)+1))
			args = append(args, pq.Array(roles))
		}
		if scope.ExcludeUserID != "" {
			conditions = append(conditions, fmt.Sprintf("p.user_id <> $%d", len(args)+1))
			args = append(args, scope.ExcludeUserID)
		}
	}
	if filter.Role != nil {
		conditions = append(conditions, fmt.Sprintf("p.role = $%d", len(args)+1))
		args = append(args, *filter.Role)
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(LOWER(u.username) LIKE $%d OR LOWER(u.first_name) LIKE $%d OR LOWER(u.last_name) LIKE $%d OR LOWER(p.employee_id) LIKE $%d)", len(args)+1, len(args)+1, len(args)+1, len(args)+1))
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}
	if len(conditions) > 0 {
		base += " AND " + strings.Join(conditions, " AND ")
	}

	page, size := models.NormalizePage(filter.Page, filter.PageSize)
	offset := (page - 1) * size

	listQuery := fmt.Sprintf("%s%s ORDER BY u.username ASC LIMIT %d OFFSET %d", profileSelect, base, size, offset)
	var profiles []models.UserProfile
	if err := r.db.SelectContext(ctx, &profiles, listQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("list manageable profiles: %w", err)
	}

	countQuery := "SELECT COUNT(*) FROM user_profiles p JOIN users u ON u.id = p.user_id" + base
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count manageable profiles: %w", err)
	}
	return profiles, total, nil
}
