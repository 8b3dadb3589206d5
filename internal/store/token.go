package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/brandpick/apiserver/types"
)

// TokenRepository persists single-use tokens of one kind. Each kind lives
// in its own table.
type TokenRepository struct {
	db    *sql.DB
	table string
}

func NewTokenRepository(db *sql.DB, kind types.TokenKind) *TokenRepository {
	return &TokenRepository{db: db, table: string(kind)}
}

func (r *TokenRepository) Create(ctx context.Context, token types.Token) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (token, user_id, user_email, expires)
		VALUES ($1, $2, $3, $4)`, r.table)
	if _, err := r.db.ExecContext(ctx, query, token.Token, token.UserID, token.UserEmail, token.Expires); err != nil {
		return mapWriteError(err)
	}
	return nil
}

// FindAndDelete removes the token issued to email and returns it. Tokens
// are single use, so a second call returns ErrNotFound.
func (r *TokenRepository) FindAndDelete(ctx context.Context, email, token string) (types.Token, error) {
	query := fmt.Sprintf(`
		DELETE FROM %s
		WHERE user_email = $1 AND token = $2
		RETURNING token, user_id, user_email, expires`, r.table)

	var result types.Token
	err := r.db.QueryRowContext(ctx, query, email, token).Scan(
		&result.Token,
		&result.UserID,
		&result.UserEmail,
		&result.Expires,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Token{}, ErrNotFound
		}
		return types.Token{}, err
	}
	return result, nil
}
