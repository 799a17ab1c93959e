package rbac

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// Dialect selects the SQL flavor for schema creation. Queries themselves
// use $n placeholders, which both drivers accept.
type Dialect string

const (
	DialectSQLite   Dialect = "sqlite"
	DialectPostgres Dialect = "postgres"
)

func (d Dialect) serialPK() string {
	if d == DialectPostgres {
		return "BIGSERIAL PRIMARY KEY"
	}
	return "INTEGER PRIMARY KEY AUTOINCREMENT"
}

// Store persists company-scoped custom roles and per-user permission
// overrides. Built-in roles are never stored; they live in the static table.
type Store struct {
	db      *sql.DB
	dialect Dialect
}

// NewStore creates a new RBAC store
func NewStore(db *sql.DB, dialect Dialect) *Store {
	if dialect == "" {
		dialect = DialectSQLite
	}
	return &Store{db: db, dialect: dialect}
}

// EnsureSchema creates the RBAC tables if they do not exist
func (s *Store) EnsureSchema(ctx context.Context) error {
	query := `
	CREATE TABLE IF NOT EXISTS custom_roles (
		id ` + s.dialect.serialPK() + `,
		name TEXT NOT NULL,
		display_name TEXT NOT NULL,
		level INTEGER NOT NULL DEFAULT 0,
		company_id INTEGER,
		permissions TEXT NOT NULL DEFAULT '[]',
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		UNIQUE(name, company_id)
	);

	CREATE TABLE IF NOT EXISTS user_permissions (
		user_id TEXT NOT NULL,
		resource TEXT NOT NULL,
		action TEXT NOT NULL,
		granted_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (user_id, resource, action)
	);
	`
	_, err := s.db.ExecContext(ctx, query)
	return err
}

// CreateRole creates a custom role scoped to a company
func (s *Store) CreateRole(ctx context.Context, role *Role) error {
	if role.IsBuiltIn {
		return fmt.Errorf("built-in roles are not stored")
	}
	permissionsJSON, err := json.Marshal(role.Permissions)
	if err != nil {
		return fmt.Errorf("failed to marshal permissions: %w", err)
	}

	query := `
		INSERT INTO custom_roles (name, display_name, level, company_id, permissions, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`

	now := time.Now()
	err = s.db.QueryRowContext(ctx, query,
		string(role.Name),
		role.DisplayName,
		role.Level,
		role.CompanyID,
		string(permissionsJSON),
		now,
		now,
	).Scan(&role.ID)
	if err != nil {
		return fmt.Errorf("failed to create role: %w", err)
	}

	role.CreatedAt = now
	role.UpdatedAt = now
	return nil
}

// GetRoleByName retrieves a custom role by name, preferring a company-scoped
// definition over a global one.
func (s *Store) GetRoleByName(ctx context.Context, name RoleName, companyID *int64) (*Role, error) {
	query := `
		SELECT id, name, display_name, level, company_id, permissions, created_at, updated_at
		FROM custom_roles
		WHERE name = $1 AND (company_id = $2 OR company_id IS NULL)
		ORDER BY company_id IS NULL
		LIMIT 1
	`

	var role Role
	var nameStr, permissionsJSON string
	var cID sql.NullInt64

	err := s.db.QueryRowContext(ctx, query, string(name), companyID).Scan(
		&role.ID,
		&nameStr,
		&role.DisplayName,
		&role.Level,
		&cID,
		&permissionsJSON,
		&role.CreatedAt,
		&role.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrRoleNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get role: %w", err)
	}

	role.Name = RoleName(nameStr)
	if cID.Valid {
		id := cID.Int64
		role.CompanyID = &id
	}
	if err := json.Unmarshal([]byte(permissionsJSON), &role.Permissions); err != nil {
		return nil, fmt.Errorf("failed to unmarshal permissions: %w", err)
	}

	return &role, nil
}

// ListRoles lists custom roles visible to a company (its own plus global)
func (s *Store) ListRoles(ctx context.Context, companyID *int64) ([]Role, error) {
	query := `
		SELECT id, name, display_name, level, company_id, permissions, created_at, updated_at
		FROM custom_roles
		WHERE company_id = $1 OR company_id IS NULL
		ORDER BY level DESC, name ASC
	`

	rows, err := s.db.QueryContext(ctx, query, companyID)
	if err != nil {
		return nil, fmt.Errorf("failed to list roles: %w", err)
	}
	defer rows.Close()

	var roles []Role
	for rows.Next() {
		var role Role
		var nameStr, permissionsJSON string
		var cID sql.NullInt64

		if err := rows.Scan(
			&role.ID,
			&nameStr,
			&role.DisplayName,
			&role.Level,
			&cID,
			&permissionsJSON,
			&role.CreatedAt,
			&role.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan role: %w", err)
		}

		role.Name = RoleName(nameStr)
		if cID.Valid {
			id := cID.Int64
			role.CompanyID = &id
		}
		if err := json.Unmarshal([]byte(permissionsJSON), &role.Permissions); err != nil {
			return nil, fmt.Errorf("failed to unmarshal permissions: %w", err)
		}

		roles = append(roles, role)
	}

	return roles, rows.Err()
}

// UpdateRole updates a custom role's display name, level and permissions
func (s *Store) UpdateRole(ctx context.Context, role *Role) error {
	permissionsJSON, err := json.Marshal(role.Permissions)
	if err != nil {
		return fmt.Errorf("failed to marshal permissions: %w", err)
	}

	query := `
		UPDATE custom_roles
		SET display_name = $1, level = $2, permissions = $3, updated_at = $4
		WHERE id = $5
	`

	role.UpdatedAt = time.Now()
	res, err := s.db.ExecContext(ctx, query,
		role.DisplayName,
		role.Level,
		string(permissionsJSON),
		role.UpdatedAt,
		role.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update role: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrRoleNotFound
	}
	return nil
}

// DeleteRole deletes a custom role
func (s *Store) DeleteRole(ctx context.Context, roleID int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM custom_roles WHERE id = $1`, roleID)
	if err != nil {
		return fmt.Errorf("failed to delete role: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrRoleNotFound
	}
	return nil
}

// GrantUserPermission records an explicit per-user permission override
func (s *Store) GrantUserPermission(ctx context.Context, userID string, p Permission) error {
	query := `
		INSERT INTO user_permissions (user_id, resource, action, granted_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id, resource, action) DO NOTHING
	`
	_, err := s.db.ExecContext(ctx, query, userID, string(p.Resource), string(p.Action), time.Now())
	if err != nil {
		return fmt.Errorf("failed to grant permission: %w", err)
	}
	return nil
}

// RevokeUserPermission removes a per-user permission override
func (s *Store) RevokeUserPermission(ctx context.Context, userID string, p Permission) error {
	query := `DELETE FROM user_permissions WHERE user_id = $1 AND resource = $2 AND action = $3`
	_, err := s.db.ExecContext(ctx, query, userID, string(p.Resource), string(p.Action))
	if err != nil {
		return fmt.Errorf("failed to revoke permission: %w", err)
	}
	return nil
}

// GetUserPermissions returns the explicit permission list for a user, in
// stable (resource, action) order. Empty means the user has no overrides and
// falls back to the role bundle.
func (s *Store) GetUserPermissions(ctx context.Context, userID string) ([]Permission, error) {
	query := `
		SELECT resource, action
		FROM user_permissions
		WHERE user_id = $1
		ORDER BY resource, action
	`

	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user permissions: %w", err)
	}
	defer rows.Close()

	var perms []Permission
	for rows.Next() {
		var resource, action string
		if err := rows.Scan(&resource, &action); err != nil {
			return nil, fmt.Errorf("failed to scan permission: %w", err)
		}
		perms = append(perms, Permission{Resource: Resource(resource), Action: Action(action)})
	}

	return perms, rows.Err()
}
