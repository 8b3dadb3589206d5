package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/brandpick/apiserver/types"
)

const userColumns = `id, name, email, role, password_hash, profile, services, created_at`

// UserRepository handles persistence for users.
type UserRepository struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (types.User, error) {
	const query = `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return scanUser(r.db.QueryRowContext(ctx, query, id))
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (types.User, error) {
	const query = `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	return scanUser(r.db.QueryRowContext(ctx, query, email))
}

// GetByServiceOrEmail finds the user linked to the given provider id, or
// failing that the user registered with email. An empty email never
// matches.
func (r *UserRepository) GetByServiceOrEmail(ctx context.Context, service, externalID, email string) (types.User, error) {
	const query = `
		SELECT ` + userColumns + `
		FROM users
		WHERE services ->> $1 = $2 OR (email = $3 AND $3 <> '')
		ORDER BY (services ->> $1 = $2) DESC NULLS LAST
		LIMIT 1`
	return scanUser(r.db.QueryRowContext(ctx, query, service, externalID, email))
}

func (r *UserRepository) Create(ctx context.Context, user types.User) (types.User, error) {
	if user.ID == "" {
		user.ID = NewID()
	}
	user.CreatedAt = time.Now()

	profileJSON, servicesJSON, err := marshalUserDocs(user)
	if err != nil {
		return types.User{}, err
	}

	const query = `
		INSERT INTO users (id, name, email, role, password_hash, profile, services, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	if _, err := r.db.ExecContext(
		ctx,
		query,
		user.ID,
		user.Name,
		user.Email,
		user.Role,
		user.PasswordHash,
		profileJSON,
		servicesJSON,
		user.CreatedAt,
	); err != nil {
		return types.User{}, mapWriteError(err)
	}
	return user, nil
}

// Update rewrites the mutable fields of a user. Role and email are kept.
func (r *UserRepository) Update(ctx context.Context, user types.User) (types.User, error) {
	profileJSON, servicesJSON, err := marshalUserDocs(user)
	if err != nil {
		return types.User{}, err
	}

	const query = `
		UPDATE users
		SET name = $1,
			password_hash = $2,
			profile = $3,
			services = $4
		WHERE id = $5`
	result, err := r.db.ExecContext(ctx, query, user.Name, user.PasswordHash, profileJSON, servicesJSON, user.ID)
	if err != nil {
		return types.User{}, mapWriteError(err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return types.User{}, err
	}
	if affected == 0 {
		return types.User{}, ErrNotFound
	}
	return r.GetByID(ctx, user.ID)
}

func (r *UserRepository) ListByRole(ctx context.Context, role string, offset, limit int) ([]types.User, int, error) {
	if offset < 0 {
		offset = 0
	}
	if limit < 1 {
		limit = 30
	}

	const countQuery = `SELECT COUNT(1) FROM users WHERE role = $1`
	var total int
	if err := r.db.QueryRowContext(ctx, countQuery, role).Scan(&total); err != nil {
		return nil, 0, err
	}

	const listQuery = `
		SELECT ` + userColumns + `
		FROM users
		WHERE role = $1
		ORDER BY created_at, id
		OFFSET $2 LIMIT $3`
	rows, err := r.db.QueryContext(ctx, listQuery, role, offset, limit)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	users := make([]types.User, 0, limit)
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, 0, err
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return users, total, nil
}

func scanUser(row rowScanner) (types.User, error) {
	var user types.User
	var profileJSON, servicesJSON []byte
	err := row.Scan(
		&user.ID,
		&user.Name,
		&user.Email,
		&user.Role,
		&user.PasswordHash,
		&profileJSON,
		&servicesJSON,
		&user.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.User{}, ErrNotFound
		}
		return types.User{}, err
	}

	if err := decodeUserDocs(&user, profileJSON, servicesJSON); err != nil {
		return types.User{}, err
	}
	return user, nil
}

func decodeUserDocs(user *types.User, profileJSON, servicesJSON []byte) error {
	if len(profileJSON) > 0 {
		var profile types.BrandProfile
		if err := json.Unmarshal(profileJSON, &profile); err != nil {
			return err
		}
		user.Profile = &profile
	}
	if len(servicesJSON) > 0 {
		if err := json.Unmarshal(servicesJSON, &user.Services); err != nil {
			return err
		}
	}
	return nil
}

// marshalUserDocs encodes the JSONB columns. A missing profile is stored
// as NULL.
func marshalUserDocs(user types.User) (profileJSON any, servicesJSON string, err error) {
	if user.Profile != nil {
		raw, err := json.Marshal(user.Profile)
		if err != nil {
			return nil, "", err
		}
		profileJSON = string(raw)
	}
	services := user.Services
	if services == nil {
		services = map[string]string{}
	}
	raw, err := json.Marshal(services)
	if err != nil {
		return nil, "", err
	}
	return profileJSON, string(raw), nil
}
