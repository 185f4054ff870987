package mongostore_test

import (
	"context"
	"testing"
	"time"

	"Gin_gorm_library_borrow/models"
	"Gin_gorm_library_borrow/mongostore"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"
)

func bookDoc(id string, copies int32) bson.D {
	return bson.D{
		{Key: "_id", Value: id},
		{Key: "title", Value: "Dune"},
		{Key: "author", Value: "Herbert"},
		{Key: "genre", Value: "SCIENCE"},
		{Key: "isbn", Value: "123"},
		{Key: "copies", Value: copies},
		{Key: "available", Value: copies > 0},
	}
}

func borrowOf(bookID string, qty int) *models.Borrow {
	now := time.Now().UTC()
	return &models.Borrow{ID: "br1", BookID: bookID, Quantity: qty, DueDate: now.AddDate(0, 0, 14), CreatedAt: now, UpdatedAt: now}
}

func TestStore(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("create book", func(mt *mtest.T) {
		s := mongostore.New(mt.DB)
		mt.AddMockResponses(mtest.CreateSuccessResponse())

		b := &models.Book{ID: "b1", Title: "Dune", Author: "Herbert", Genre: models.GenreScience, ISBN: "123", Copies: 2}
		require.NoError(mt, s.CreateBook(context.Background(), b))
		assert.True(mt, b.Available)
	})

	mt.Run("create book duplicate isbn", func(mt *mtest.T) {
		s := mongostore.New(mt.DB)
		mt.AddMockResponses(mtest.CreateWriteErrorsResponse(mtest.WriteError{
			Index:   0,
			Code:    11000,
			Message: "E11000 duplicate key error collection: books index: isbn_1",
		}))

		err := s.CreateBook(context.Background(), &models.Book{ID: "b2", ISBN: "123"})
		assert.ErrorIs(mt, err, models.ErrDuplicateKey)
	})

	mt.Run("find book", func(mt *mtest.T) {
		s := mongostore.New(mt.DB)
		ns := mt.DB.Name() + ".books"
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch, bson.D{
			{Key: "_id", Value: "b1"},
			{Key: "title", Value: "Dune"},
			{Key: "genre", Value: "SCIENCE"},
			{Key: "isbn", Value: "123"},
			{Key: "copies", Value: int32(2)},
			{Key: "available", Value: true},
		}))

		b, err := s.FindBookByID(context.Background(), "b1")
		require.NoError(mt, err)
		assert.Equal(mt, "Dune", b.Title)
		assert.Equal(mt, models.GenreScience, b.Genre)
		assert.Equal(mt, 2, b.Copies)
	})

	mt.Run("find book not found", func(mt *mtest.T) {
		s := mongostore.New(mt.DB)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, mt.DB.Name()+".books", mtest.FirstBatch))

		_, err := s.FindBookByID(context.Background(), "missing")
		assert.ErrorIs(mt, err, models.ErrNotFound)
	})

	mt.Run("list books", func(mt *mtest.T) {
		s := mongostore.New(mt.DB)
		ns := mt.DB.Name() + ".books"
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch,
			bson.D{{Key: "_id", Value: "b1"}, {Key: "isbn", Value: "1"}, {Key: "createdAt", Value: time.Now()}},
			bson.D{{Key: "_id", Value: "b2"}, {Key: "isbn", Value: "2"}, {Key: "createdAt", Value: time.Now()}},
		))

		books, err := s.ListBooks(context.Background(), models.BookQuery{SortBy: "createdAt", Desc: true, Limit: 10})
		require.NoError(mt, err)
		require.Len(mt, books, 2)
		assert.Equal(mt, "b1", books[0].ID)
	})

	mt.Run("delete missing book", func(mt *mtest.T) {
		s := mongostore.New(mt.DB)
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 0}))

		assert.ErrorIs(mt, s.DeleteBook(context.Background(), "missing"), models.ErrNotFound)
	})

	mt.Run("delete book", func(mt *mtest.T) {
		s := mongostore.New(mt.DB)
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 1}))

		assert.NoError(mt, s.DeleteBook(context.Background(), "b1"))
	})

	mt.Run("borrowed summary", func(mt *mtest.T) {
		s := mongostore.New(mt.DB)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, mt.DB.Name()+".borrows", mtest.FirstBatch,
			bson.D{{Key: "title", Value: "Dune"}, {Key: "isbn", Value: "123"}, {Key: "totalQuantity", Value: int32(5)}},
		))

		rows, err := s.BorrowedSummary(context.Background())
		require.NoError(mt, err)
		assert.Equal(mt, []models.SummaryRow{{Title: "Dune", ISBN: "123", TotalQuantity: 5}}, rows)
	})

	mt.Run("borrow decrements copies", func(mt *mtest.T) {
		s := mongostore.New(mt.DB)
		mt.AddMockResponses(
			mtest.CreateCursorResponse(0, mt.DB.Name()+".books", mtest.FirstBatch, bookDoc("b1", 3)),
			mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 1}, bson.E{Key: "nModified", Value: 1}),
			mtest.CreateSuccessResponse(),
			mtest.CreateSuccessResponse(),
		)

		b, err := s.BorrowBook(context.Background(), borrowOf("b1", 2))
		require.NoError(mt, err)
		assert.Equal(mt, 1, b.Copies)
		assert.True(mt, b.Available)
	})

	mt.Run("borrow insufficient copies", func(mt *mtest.T) {
		s := mongostore.New(mt.DB)
		mt.AddMockResponses(
			mtest.CreateCursorResponse(0, mt.DB.Name()+".books", mtest.FirstBatch, bookDoc("b1", 1)),
			mtest.CreateSuccessResponse(),
		)

		_, err := s.BorrowBook(context.Background(), borrowOf("b1", 2))
		assert.ErrorIs(mt, err, models.ErrInsufficientCopies)
	})

	mt.Run("borrow loses guarded update", func(mt *mtest.T) {
		s := mongostore.New(mt.DB)
		mt.AddMockResponses(
			mtest.CreateCursorResponse(0, mt.DB.Name()+".books", mtest.FirstBatch, bookDoc("b1", 3)),
			mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 0}, bson.E{Key: "nModified", Value: 0}),
			mtest.CreateSuccessResponse(),
		)

		_, err := s.BorrowBook(context.Background(), borrowOf("b1", 2))
		assert.ErrorIs(mt, err, models.ErrUnavailable)
		assert.ErrorIs(mt, err, mongostore.ErrConcurrentUpdate)
	})

	mt.Run("update book", func(mt *mtest.T) {
		s := mongostore.New(mt.DB)
		mt.AddMockResponses(
			mtest.CreateCursorResponse(0, mt.DB.Name()+".books", mtest.FirstBatch, bookDoc("b1", 2)),
			mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 1}, bson.E{Key: "nModified", Value: 1}),
			mtest.CreateSuccessResponse(),
		)

		b, err := s.UpdateBook(context.Background(), "b1", func(b *models.Book) error {
			b.Copies = 0
			return nil
		})
		require.NoError(mt, err)
		assert.Equal(mt, 0, b.Copies)
		assert.False(mt, b.Available)
	})

	mt.Run("update book duplicate isbn", func(mt *mtest.T) {
		s := mongostore.New(mt.DB)
		mt.AddMockResponses(
			mtest.CreateCursorResponse(0, mt.DB.Name()+".books", mtest.FirstBatch, bookDoc("b1", 2)),
			mtest.CreateWriteErrorsResponse(mtest.WriteError{
				Index:   0,
				Code:    11000,
				Message: "E11000 duplicate key error collection: books index: isbn_1",
			}),
			mtest.CreateSuccessResponse(),
		)

		_, err := s.UpdateBook(context.Background(), "b1", func(b *models.Book) error {
			b.ISBN = "taken"
			return nil
		})
		assert.ErrorIs(mt, err, models.ErrDuplicateKey)
	})

	mt.Run("update book not found", func(mt *mtest.T) {
		s := mongostore.New(mt.DB)
		mt.AddMockResponses(
			mtest.CreateCursorResponse(0, mt.DB.Name()+".books", mtest.FirstBatch),
			mtest.CreateSuccessResponse(),
		)

		_, err := s.UpdateBook(context.Background(), "missing", func(*models.Book) error { return nil })
		assert.ErrorIs(mt, err, models.ErrNotFound)
	})
}
