// Package mongostore keeps books and borrows in MongoDB. It implements the
// same store contract as the GORM repo; the borrow runs in a multi-document
// transaction, so the server must be a replica set.
package mongostore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"Gin_gorm_library_borrow/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

var ErrConcurrentUpdate = errors.New("book copies changed concurrently")

type Store struct {
	client  *mongo.Client
	books   *mongo.Collection
	borrows *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{
		client:  db.Client(),
		books:   db.Collection(models.BookTable),
		borrows: db.Collection(models.BorrowTable),
	}
}

// Connect dials uri, checks the primary and ensures indexes on dbName.
func Connect(ctx context.Context, uri, dbName string) (*Store, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("mongo ping: %w", err)
	}
	s := New(client.Database(dbName))
	if err := s.EnsureIndexes(ctx); err != nil {
		_ = client.Disconnect(ctx)
		return nil, err
	}
	return s, nil
}

func (s *Store) EnsureIndexes(ctx context.Context) error {
	if _, err := s.books.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "isbn", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "genre", Value: 1}}},
	}); err != nil {
		return fmt.Errorf("books indexes: %w", err)
	}
	if _, err := s.borrows.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "book", Value: 1}},
	}); err != nil {
		return fmt.Errorf("borrows indexes: %w", err)
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx, readpref.Primary()); err != nil {
		return models.Wrap(models.ErrUnavailable, err)
	}
	return nil
}

func (s *Store) Close() error { return s.client.Disconnect(context.Background()) }

func (s *Store) CreateBook(ctx context.Context, b *models.Book) error {
	models.SyncAvailability(b)
	if _, err := s.books.InsertOne(ctx, b); err != nil {
		return fmt.Errorf("create book: %w", translate(err, models.ErrNotFound))
	}
	return nil
}

func (s *Store) ListBooks(ctx context.Context, q models.BookQuery) ([]models.Book, error) {
	filter := bson.D{}
	if q.Genre != "" {
		filter = append(filter, bson.E{Key: "genre", Value: q.Genre})
	}
	dir := 1
	if q.Desc {
		dir = -1
	}
	field := q.SortBy
	if field == "" {
		field = "createdAt"
	}
	if field == "id" {
		field = "_id"
	}
	opts := options.Find().SetSort(bson.D{{Key: field, Value: dir}, {Key: "_id", Value: dir}})
	if q.Limit > 0 {
		opts.SetLimit(int64(q.Limit))
	}

	cur, err := s.books.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("list books: %w", translate(err, models.ErrNotFound))
	}
	books := []models.Book{}
	if err := cur.All(ctx, &books); err != nil {
		return nil, fmt.Errorf("list books: %w", translate(err, models.ErrNotFound))
	}
	return books, nil
}

func (s *Store) FindBookByID(ctx context.Context, id string) (*models.Book, error) {
	var b models.Book
	if err := s.books.FindOne(ctx, bson.D{{Key: "_id", Value: id}}).Decode(&b); err != nil {
		return nil, translate(err, models.ErrBookNotFound)
	}
	return &b, nil
}

func (s *Store) UpdateBook(ctx context.Context, id string, apply func(*models.Book) error) (*models.Book, error) {
	var b models.Book
	err := s.withTx(ctx, func(sc mongo.SessionContext) error {
		if err := s.books.FindOne(sc, bson.D{{Key: "_id", Value: id}}).Decode(&b); err != nil {
			return err
		}
		read := b.Copies
		if err := apply(&b); err != nil {
			return err
		}
		models.SyncAvailability(&b)
		res, err := s.books.ReplaceOne(sc, bson.D{{Key: "_id", Value: id}, {Key: "copies", Value: read}}, b)
		if err != nil {
			return err
		}
		if res.MatchedCount == 0 {
			return models.Wrap(models.ErrUnavailable, ErrConcurrentUpdate)
		}
		return nil
	})
	if err != nil {
		return nil, translate(err, models.ErrBookNotFound)
	}
	return &b, nil
}

func (s *Store) DeleteBook(ctx context.Context, id string) error {
	res, err := s.books.DeleteOne(ctx, bson.D{{Key: "_id", Value: id}})
	if err != nil {
		return translate(err, models.ErrBookNotFound)
	}
	if res.DeletedCount == 0 {
		return models.ErrBookNotFound
	}
	return nil
}

// BorrowBook decrements copies guarded on the value read and inserts the
// borrow, both inside one transaction.
func (s *Store) BorrowBook(ctx context.Context, br *models.Borrow) (*models.Book, error) {
	var b models.Book
	err := s.withTx(ctx, func(sc mongo.SessionContext) error {
		if err := s.books.FindOne(sc, bson.D{{Key: "_id", Value: br.BookID}}).Decode(&b); err != nil {
			return err
		}
		if br.Quantity <= 0 {
			return models.ErrInvalidQuantity
		}
		if b.Copies < br.Quantity {
			return models.ErrInsufficientCopies
		}
		read := b.Copies
		b.Copies -= br.Quantity
		models.SyncAvailability(&b)
		b.UpdatedAt = br.CreatedAt

		res, err := s.books.UpdateOne(sc,
			bson.D{{Key: "_id", Value: b.ID}, {Key: "copies", Value: read}},
			bson.D{{Key: "$set", Value: bson.D{
				{Key: "copies", Value: b.Copies},
				{Key: "available", Value: b.Available},
				{Key: "updatedAt", Value: b.UpdatedAt},
			}}},
		)
		if err != nil {
			return err
		}
		if res.MatchedCount == 0 {
			return models.Wrap(models.ErrUnavailable, ErrConcurrentUpdate)
		}
		_, err = s.borrows.InsertOne(sc, br)
		return err
	})
	if err != nil {
		return nil, translate(err, models.ErrBookNotFound)
	}
	return &b, nil
}

func (s *Store) BorrowedSummary(ctx context.Context) ([]models.SummaryRow, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: "$book"},
			{Key: "totalQuantity", Value: bson.D{{Key: "$sum", Value: "$quantity"}}},
		}}},
		{{Key: "$lookup", Value: bson.D{
			{Key: "from", Value: models.BookTable},
			{Key: "localField", Value: "_id"},
			{Key: "foreignField", Value: "_id"},
			{Key: "as", Value: "bookInfo"},
		}}},
		{{Key: "$unwind", Value: "$bookInfo"}},
		{{Key: "$project", Value: bson.D{
			{Key: "_id", Value: 0},
			{Key: "title", Value: "$bookInfo.title"},
			{Key: "isbn", Value: "$bookInfo.isbn"},
			{Key: "totalQuantity", Value: 1},
		}}},
	}
	cur, err := s.borrows.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, translate(err, models.ErrNotFound)
	}
	rows := []models.SummaryRow{}
	if err := cur.All(ctx, &rows); err != nil {
		return nil, translate(err, models.ErrNotFound)
	}
	return rows, nil
}

// withTx runs fn in a transaction, committing on nil and aborting otherwise.
// Transient transaction errors are surfaced, not retried.
func (s *Store) withTx(ctx context.Context, fn func(sc mongo.SessionContext) error) error {
	sess, err := s.client.StartSession()
	if err != nil {
		return err
	}
	defer sess.EndSession(context.WithoutCancel(ctx))

	return mongo.WithSession(ctx, sess, func(sc mongo.SessionContext) error {
		if err := sess.StartTransaction(); err != nil {
			return err
		}
		if err := fn(sc); err != nil {
			_ = sess.AbortTransaction(context.WithoutCancel(sc))
			return err
		}
		return sess.CommitTransaction(sc)
	})
}

func translate(err error, notFound *models.Error) error {
	if err == nil || models.Code(err) != "" {
		return err
	}
	switch {
	case errors.Is(err, mongo.ErrNoDocuments):
		return notFound
	case mongo.IsDuplicateKeyError(err):
		return models.Wrap(models.ErrDuplicateKey, err)
	case mongo.IsTimeout(err), mongo.IsNetworkError(err),
		errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return models.Wrap(models.ErrUnavailable, err)
	}
	var se mongo.ServerError
	if errors.As(err, &se) && se.HasErrorLabel("TransientTransactionError") {
		return models.Wrap(models.ErrUnavailable, err)
	}
	return err
}
