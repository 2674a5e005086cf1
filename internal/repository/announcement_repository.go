package repository

import (
	"context"

	"proofchest/internal/models"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

var announcementColumns = []string{"id::text", "title", "description", "image_url", "created_at", "updated_at"}

const announcementReturning = "RETURNING id::text, title, description, image_url, created_at, updated_at"

type AnnouncementRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

func NewAnnouncementRepository(db *pgxpool.Pool, logger *zap.Logger) *AnnouncementRepository {
	return &AnnouncementRepository{
		db:     db,
		logger: logger,
	}
}

func (r *AnnouncementRepository) List(ctx context.Context) ([]*models.Announcement, error) {
	query := squirrel.Select(announcementColumns...).
		From("avisos").
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

	var announcements []*models.Announcement
	for rows.Next() {
		a, err := scanAnnouncement(rows)
		if err != nil {
			return nil, err
		}
		announcements = append(announcements, a)
	}
	return announcements, mapError(rows.Err())
}

func (r *AnnouncementRepository) GetByID(ctx context.Context, id string) (*models.Announcement, error) {
	query := squirrel.Select(announcementColumns...).
		From("avisos").
		Where(squirrel.Eq{"id": id}).
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := query.ToSql()
	if err != nil {
		return nil, err
	}

	a, err := scanAnnouncement(r.db.QueryRow(ctx, sql, args...))
	if err != nil {
		return nil, mapError(err)
	}
	return a, nil
}

func (r *AnnouncementRepository) Create(ctx context.Context, a models.Announcement) (*models.Announcement, error) {
	query := squirrel.Insert("avisos").
		Columns("title", "description", "image_url").
		Values(a.Title, a.Description, a.ImageReference).
		Suffix(announcementReturning).
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := query.ToSql()
	if err != nil {
		return nil, err
	}

	created, err := scanAnnouncement(r.db.QueryRow(ctx, sql, args...))
	if err != nil {
		return nil, mapError(err)
	}
	return created, nil
}

// Update overwrites title and description. The image column is only touched
// when a new reference is supplied.
func (r *AnnouncementRepository) Update(ctx context.Context, id string, a models.Announcement) (*models.Announcement, error) {
	query := squirrel.Update("avisos").
		Set("title", a.Title).
		Set("description", a.Description).
		Set("updated_at", squirrel.Expr("NOW()")).
		Where(squirrel.Eq{"id": id}).
		Suffix(announcementReturning).
		PlaceholderFormat(squirrel.Dollar)
	if a.ImageReference != nil {
		query = query.Set("image_url", *a.ImageReference)
	}

	sql, args, err := query.ToSql()
	if err != nil {
		return nil, err
	}

	updated, err := scanAnnouncement(r.db.QueryRow(ctx, sql, args...))
	if err != nil {
		return nil, mapError(err)
	}
	return updated, nil
}

func (r *AnnouncementRepository) Delete(ctx context.Context, id string) error {
	query := squirrel.Delete("avisos").
		Where(squirrel.Eq{"id": id}).
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

func scanAnnouncement(row pgx.Row) (*models.Announcement, error) {
	var a models.Announcement
	if err := row.Scan(&a.ID, &a.Title, &a.Description, &a.ImageReference, &a.CreatedAt, &a.UpdatedAt); err != nil {
		return nil, err
	}
	return &a, nil
}
