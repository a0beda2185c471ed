package repository

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"strconv"
	"strings"
	"time"

	"debtster-dashboard/internal/domain"
)

var ErrEmptyToken = errors.New("empty token")

type PersonalAccessTokenRepository struct {
	db *sql.DB
}

func NewPersonalAccessTokenRepository(db *sql.DB) *PersonalAccessTokenRepository {
	return &PersonalAccessTokenRepository{db: db}
}

// HashToken splits an optional "<id>|" prefix off a plain token and returns
// the id (0 when absent) and the sha256 hex digest of the secret part.
func HashToken(plain string) (int64, string) {
	plain = strings.TrimSpace(plain)

	var id int64
	if idx := strings.Index(plain, "|"); idx > 0 {
		if parsed, err := strconv.ParseInt(plain[:idx], 10, 64); err == nil {
			id = parsed
		}
		plain = plain[idx+1:]
	}

	sum := sha256.Sum256([]byte(plain))
	return id, hex.EncodeToString(sum[:])
}

func (r *PersonalAccessTokenRepository) FindTokenByPlainToken(ctx context.Context, plainToken string) (*domain.PersonalAccessToken, error) {
	if strings.TrimSpace(plainToken) == "" {
		return nil, ErrEmptyToken
	}

	id, hash := HashToken(plainToken)

	query := `
		SELECT id, token, tokenable_id, abilities, expires_at
		FROM personal_access_tokens
		WHERE token = $1
		  AND (expires_at IS NULL OR expires_at > $2)
	`
	args := []any{hash, time.Now()}
	if id > 0 {
		query += " AND id = $3"
		args = append(args, id)
	}
	query += " ORDER BY created_at DESC LIMIT 1"

	var (
		pat       domain.PersonalAccessToken
		abilities sql.NullString
		expiresAt sql.NullTime
	)
	err := r.db.QueryRowContext(ctx, query, args...).Scan(
		&pat.ID,
		&pat.TokenHash,
		&pat.UserID,
		&abilities,
		&expiresAt,
	)
	if err != nil {
		return nil, storeErr("find token", err)
	}

	pat.Abilities = abilities.String
	if expiresAt.Valid {
		pat.ExpiresAt = &expiresAt.Time
	}
	return &pat, nil
}
