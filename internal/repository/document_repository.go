package repository

import (
	"context"

	"proofchest/internal/models"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

var documentColumns = []string{"id::text", "user_id::text", "category", "image_url", "extracted_text", "created_at"}

type DocumentRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

func NewDocumentRepository(db *pgxpool.Pool, logger *zap.Logger) *DocumentRepository {
	return &DocumentRepository{
		db:     db,
		logger: logger,
	}
}

func (r *DocumentRepository) Create(ctx context.Context, doc models.Document) (*models.Document, error) {
	query := squirrel.Insert("documents").
		Columns("user_id", "category", "image_url", "extracted_text", "created_at").
		Values(doc.OwnerID, string(doc.Category), doc.ImageReference, doc.ExtractedText, doc.CreatedAt).
		Suffix("RETURNING id::text, user_id::text, category, image_url, extracted_text, created_at").
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := query.ToSql()
	if err != nil {
		return nil, err
	}

	created, err := scanDocument(r.db.QueryRow(ctx, sql, args...))
	if err != nil {
		return nil, mapError(err)
	}
	return created, nil
}

// ListByOwnerAndCategory returns the owner's documents in one category, newest first.
func (r *DocumentRepository) ListByOwnerAndCategory(ctx context.Context, ownerID string, category models.Category) ([]*models.Document, error) {
	query := squirrel.Select(documentColumns...).
		From("documents").
		Where(squirrel.Eq{"user_id": ownerID, "category": string(category)}).
		OrderBy("created_at DESC", "id DESC").
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := query.ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var documents []*models.Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		documents = append(documents, doc)
	}

	return documents, mapError(rows.Err())
}

// DeleteOwned removes a document only when it belongs to ownerID.
func (r *DocumentRepository) DeleteOwned(ctx context.Context, ownerID, id string) error {
	query := squirrel.Delete("documents").
		Where(squirrel.Eq{"id": id, "user_id": ownerID}).
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := query.ToSql()
	if err != nil {
		return err
	}

	tag, err := r.db.Exec(ctx, sql, args...)
	if err != nil {
		return mapError(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanDocument(row pgx.Row) (*models.Document, error) {
	var doc models.Document
	var category string
	if err := row.Scan(&doc.ID, &doc.OwnerID, &category, &doc.ImageReference, &doc.ExtractedText, &doc.CreatedAt); err != nil {
		return nil, err
	}
	doc.Category = models.Category(category)
	return &doc, nil
}
