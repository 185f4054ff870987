package db

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"
	"strings"

	"Gin_gorm_library_borrow/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repo is the GORM-backed book and borrow store.
type Repo struct{ DB *gorm.DB }

func NewRepo(db *gorm.DB) *Repo { return &Repo{DB: db} }

func (r *Repo) Ping(ctx context.Context) error {
	sqlDB, err := r.DB.DB()
	if err != nil {
		return err
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return models.Wrap(models.ErrUnavailable, err)
	}
	return nil
}

func (r *Repo) Close() error {
	sqlDB, err := r.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Books

func (r *Repo) CreateBook(ctx context.Context, b *models.Book) error {
	models.SyncAvailability(b)
	if err := r.DB.WithContext(ctx).Create(b).Error; err != nil {
		return fmt.Errorf("create book: %w", translate(err, models.ErrNotFound))
	}
	return nil
}

func (r *Repo) ListBooks(ctx context.Context, q models.BookQuery) ([]models.Book, error) {
	col := q.Column()
	if col == "" {
		col = "created_at"
	}
	tx := r.DB.WithContext(ctx).Model(&models.Book{})
	if q.Genre != "" {
		tx = tx.Where("genre = ?", q.Genre)
	}
	tx = tx.Order(clause.OrderByColumn{Column: clause.Column{Name: col}, Desc: q.Desc}).
		Order(clause.OrderByColumn{Column: clause.Column{Name: "id"}, Desc: q.Desc})
	if q.Limit > 0 {
		tx = tx.Limit(q.Limit)
	}

	books := []models.Book{}
	if err := tx.Find(&books).Error; err != nil {
		return nil, fmt.Errorf("list books: %w", translate(err, models.ErrNotFound))
	}
	return books, nil
}

// 按 ID 查
func (r *Repo) FindBookByID(ctx context.Context, id string) (*models.Book, error) {
	var b models.Book
	if err := r.DB.WithContext(ctx).First(&b, "id = ?", id).Error; err != nil {
		return nil, translate(err, models.ErrBookNotFound)
	}
	return &b, nil
}

// UpdateBook locks the row, lets apply mutate it, and writes it back in the
// same transaction so a concurrent borrow cannot interleave.
func (r *Repo) UpdateBook(ctx context.Context, id string, apply func(*models.Book) error) (*models.Book, error) {
	var b models.Book
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&b, "id = ?", id).Error; err != nil {
			return err
		}
		if err := apply(&b); err != nil {
			return err
		}
		models.SyncAvailability(&b)
		return tx.Model(&models.Book{}).
			Where("id = ?", b.ID).
			Updates(map[string]any{
				"title":       b.Title,
				"author":      b.Author,
				"genre":       b.Genre,
				"isbn":        b.ISBN,
				"description": b.Description,
				"copies":      b.Copies,
				"available":   b.Available,
				"updated_at":  b.UpdatedAt,
			}).Error
	})
	if err != nil {
		return nil, translate(err, models.ErrBookNotFound)
	}
	return &b, nil
}

func (r *Repo) DeleteBook(ctx context.Context, id string) error {
	res := r.DB.WithContext(ctx).Where("id = ?", id).Delete(&models.Book{})
	if res.Error != nil {
		return translate(res.Error, models.ErrBookNotFound)
	}
	if res.RowsAffected == 0 {
		return models.ErrBookNotFound
	}
	return nil
}

// translate maps driver and GORM errors onto domain codes. Errors that already
// carry a code pass through.
func translate(err error, notFound *models.Error) error {
	if err == nil || models.Code(err) != "" {
		return err
	}
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return notFound
	case errors.Is(err, gorm.ErrDuplicatedKey) || isDuplicate(err):
		return models.Wrap(models.ErrDuplicateKey, err)
	case errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, context.Canceled),
		errors.Is(err, driver.ErrBadConn),
		errors.Is(err, sql.ErrConnDone):
		return models.Wrap(models.ErrUnavailable, err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return models.Wrap(models.ErrUnavailable, err)
	}
	return err
}

// Fallback for drivers whose errors GORM does not translate.
func isDuplicate(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "duplicate key value") ||
		strings.Contains(msg, "Duplicate entry")
}
