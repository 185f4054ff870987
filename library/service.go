// Package library holds the catalog and borrow operations on top of a Store.
package library

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"Gin_gorm_library_borrow/models"

	"github.com/google/uuid"
)

// Store is the persistence contract. BorrowBook must decrement the book and
// insert the borrow atomically; UpdateBook must hold the book against
// concurrent writers while apply runs.
type Store interface {
	CreateBook(ctx context.Context, b *models.Book) error
	ListBooks(ctx context.Context, q models.BookQuery) ([]models.Book, error)
	FindBookByID(ctx context.Context, id string) (*models.Book, error)
	UpdateBook(ctx context.Context, id string, apply func(*models.Book) error) (*models.Book, error)
	DeleteBook(ctx context.Context, id string) error
	BorrowBook(ctx context.Context, br *models.Borrow) (*models.Book, error)
	BorrowedSummary(ctx context.Context) ([]models.SummaryRow, error)
	Ping(ctx context.Context) error
	Close() error
}

type Service struct {
	store Store
	log   *slog.Logger
	now   func() time.Time
	newID func() string
}

func NewService(store Store, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		store: store,
		log:   log,
		now:   func() time.Time { return time.Now().UTC() },
		newID: uuid.NewString,
	}
}

func (s *Service) Ping(ctx context.Context) error { return s.store.Ping(ctx) }

func (s *Service) CreateBook(ctx context.Context, in models.BookInput) (*models.Book, error) {
	b, err := in.NewBook(s.newID(), s.now())
	if err != nil {
		return nil, err
	}
	if err := s.store.CreateBook(ctx, b); err != nil {
		return nil, err
	}
	s.logSaved(b)
	return b, nil
}

func (s *Service) ListBooks(ctx context.Context, q models.BookQuery) ([]models.Book, error) {
	if q.SortBy != "" {
		if _, ok := models.SortFields[q.SortBy]; !ok {
			return nil, models.NewValidationError(map[string]string{"sortBy": "unknown sort field"})
		}
	}
	if q.Genre != "" && !q.Genre.Valid() {
		return nil, models.NewValidationError(map[string]string{"filter": "unknown genre"})
	}
	return s.store.ListBooks(ctx, q)
}

func (s *Service) GetBook(ctx context.Context, id string) (*models.Book, error) {
	id, err := checkID(id)
	if err != nil {
		return nil, err
	}
	return s.store.FindBookByID(ctx, id)
}

// UpdateBook applies a partial update. The merged book is validated and its
// availability re-derived before the store writes it.
func (s *Service) UpdateBook(ctx context.Context, id string, patch models.BookPatch) (*models.Book, error) {
	id, err := checkID(id)
	if err != nil {
		return nil, err
	}
	b, err := s.store.UpdateBook(ctx, id, func(b *models.Book) error {
		patch.Apply(b)
		if err := b.Validate(); err != nil {
			return err
		}
		b.UpdatedAt = s.now()
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logSaved(b)
	return b, nil
}

func (s *Service) DeleteBook(ctx context.Context, id string) error {
	id, err := checkID(id)
	if err != nil {
		return err
	}
	return s.store.DeleteBook(ctx, id)
}

// BorrowBook lends quantity copies of a book. Input errors are rejected
// before touching the store; stock checks happen inside the store transaction
// against the current row.
func (s *Service) BorrowBook(ctx context.Context, in models.BorrowInput) (*models.Borrow, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	bookID, err := checkID(in.BookID)
	if err != nil {
		return nil, err
	}
	in.BookID = bookID

	br := in.NewBorrow(s.newID(), s.now())
	b, err := s.store.BorrowBook(ctx, br)
	if err != nil {
		return nil, err
	}
	s.logSaved(b)
	s.log.Info("book borrowed", "borrow", br.ID, "book", br.BookID, "quantity", br.Quantity)
	return br, nil
}

func (s *Service) BorrowedSummary(ctx context.Context) ([]models.SummaryRow, error) {
	return s.store.BorrowedSummary(ctx)
}

func (s *Service) logSaved(b *models.Book) {
	s.log.Info("book saved", "id", b.ID, "title", b.Title, "copies", b.Copies)
}

func checkID(id string) (string, error) {
	u, err := uuid.Parse(strings.TrimSpace(id))
	if err != nil {
		return "", models.Wrap(models.ErrInvalidID, err)
	}
	return u.String(), nil
}
