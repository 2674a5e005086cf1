package repository

import (
	"context"

	"proofchest/internal/models"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// CredentialRepository stores session-service logins.
type CredentialRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

func NewCredentialRepository(db *pgxpool.Pool, logger *zap.Logger) *CredentialRepository {
	return &CredentialRepository{
		db:     db,
		logger: logger,
	}
}

func (r *CredentialRepository) Create(ctx context.Context, cred models.Credential) error {
	query := squirrel.Insert("auth_credentials").
		Columns("email", "secret_hash", "user_id").
		Values(cred.Email, cred.SecretHash, cred.UserID).
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := query.ToSql()
	if err != nil {
		return err
	}

	_, err = r.db.Exec(ctx, sql, args...)
	return mapError(err)
}

func (r *CredentialRepository) GetByEmail(ctx context.Context, email string) (*models.Credential, error) {
	query := squirrel.Select("email", "secret_hash", "user_id::text", "created_at").
		From("auth_credentials").
		Where(squirrel.Eq{"email": email}).
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := query.ToSql()
	if err != nil {
		return nil, err
	}

	var cred models.Credential
	err = r.db.QueryRow(ctx, sql, args...).Scan(&cred.Email, &cred.SecretHash, &cred.UserID, &cred.CreatedAt)
	if err != nil {
		return nil, mapError(err)
	}
	return &cred, nil
}
