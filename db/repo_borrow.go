package db

import (
	"context"
	"errors"

	"Gin_gorm_library_borrow/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrConcurrentUpdate is returned when the guarded copy update matched no row,
// i.e. the copy count changed between the locked read and the write.
var ErrConcurrentUpdate = errors.New("book copies changed concurrently")

// 借出：原子操作 = 锁住 book → 校验库存 → 扣减 copies → 新建 borrow
//
// BorrowBook runs the whole borrow in one transaction. The book row is read
// with FOR UPDATE and the decrement is also guarded on the copy count read.
func (r *Repo) BorrowBook(ctx context.Context, br *models.Borrow) (*models.Book, error) {
	var b models.Book
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// 1) 锁住该书
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&b, "id = ?", br.BookID).Error; err != nil {
			return err
		}
		// 2) 业务校验
		if br.Quantity <= 0 {
			return models.ErrInvalidQuantity
		}
		if b.Copies < br.Quantity {
			return models.ErrInsufficientCopies
		}
		// 3) 扣减（以读到的 copies 为条件）
		read := b.Copies
		b.Copies -= br.Quantity
		models.SyncAvailability(&b)
		b.UpdatedAt = br.CreatedAt
		res := tx.Model(&models.Book{}).
			Where("id = ? AND copies = ?", b.ID, read).
			Updates(map[string]any{
				"copies":     b.Copies,
				"available":  b.Available,
				"updated_at": b.UpdatedAt,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return models.Wrap(models.ErrUnavailable, ErrConcurrentUpdate)
		}
		// 4) 新建 Borrow
		return tx.Create(br).Error
	})
	if err != nil {
		return nil, translate(err, models.ErrBookNotFound)
	}
	return &b, nil
}

// 汇总：每本书被借出的总数量
func (r *Repo) BorrowedSummary(ctx context.Context) ([]models.SummaryRow, error) {
	rows := []models.SummaryRow{}
	err := r.DB.WithContext(ctx).
		Table(models.BorrowTable+" br").
		Select("b.title AS title, b.isbn AS isbn, SUM(br.quantity) AS total_quantity").
		Joins("JOIN "+models.BookTable+" b ON b.id = br.book_id").
		Group("br.book_id, b.title, b.isbn").
		Scan(&rows).Error
	if err != nil {
		return nil, translate(err, models.ErrNotFound)
	}
	return rows, nil
}
