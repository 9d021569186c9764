package companies

import (
	"context"
	"database/sql"
	"fmt"
)

// Store handles company and user persistence
type Store struct {
	db *sql.DB
}

// NewStore creates a new company store
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// GetCompany retrieves a company by ID
func (s *Store) GetCompany(ctx context.Context, companyID int64) (*Company, error) {
	query := `
		SELECT id, name, slug, is_active, created_at, updated_at
		FROM companies
		WHERE id = $1
	`

	var c Company
	err := s.db.QueryRowContext(ctx, query, companyID).Scan(
		&c.ID,
		&c.Name,
		&c.Slug,
		&c.IsActive,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, &NotFoundError{Entity: "company", ID: companyID}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get company: %w", err)
	}

	return &c, nil
}

// GetUser retrieves a user by ID
func (s *Store) GetUser(ctx context.Context, userID int64) (*User, error) {
	query := `
		SELECT id, company_id, username, email, full_name, role, is_active, created_at, updated_at
		FROM users
		WHERE id = $1
	`

	var u User
	var email, fullName sql.NullString
	err := s.db.QueryRowContext(ctx, query, userID).Scan(
		&u.ID,
		&u.CompanyID,
		&u.Username,
		&email,
		&fullName,
		&u.Role,
		&u.IsActive,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, &NotFoundError{Entity: "user", ID: userID}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	u.Email = email.String
	u.FullName = fullName.String
	return &u, nil
}

// UserBelongsTo reports whether the user is an active member of the company
func (s *Store) UserBelongsTo(ctx context.Context, userID, companyID int64) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM users
			WHERE id = $1 AND company_id = $2 AND is_active = true
		)
	`

	var belongs bool
	if err := s.db.QueryRowContext(ctx, query, userID, companyID).Scan(&belongs); err != nil {
		return false, fmt.Errorf("failed to check company membership: %w", err)
	}
	return belongs, nil
}

// ListCompanyUsers lists active users of a company
func (s *Store) ListCompanyUsers(ctx context.Context, companyID int64) ([]User, error) {
	query := `
		SELECT id, company_id, username, email, full_name, role, is_active, created_at, updated_at
		FROM users
		WHERE company_id = $1 AND is_active = true
		ORDER BY username ASC
	`

	rows, err := s.db.QueryContext(ctx, query, companyID)
	if err != nil {
		return nil, fmt.Errorf("failed to list company users: %w", err)
	}
	defer rows.Close()

	var users []User
	for rows.Next() {
		var u User
		var email, fullName sql.NullString
		if err := rows.Scan(
			&u.ID,
			&u.CompanyID,
			&u.Username,
			&email,
			&fullName,
			&u.Role,
			&u.IsActive,
			&u.CreatedAt,
			&u.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		u.Email = email.String
		u.FullName = fullName.String
		users = append(users, u)
	}

	return users, rows.Err()
}
