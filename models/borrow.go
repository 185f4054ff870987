// models/borrow.go
package models

import (
	"encoding/json"
	"math"
	"strings"
	"time"
)

const BorrowTable = "borrows"

// Borrow is an immutable loan record; it is only written by the borrow transaction.
type Borrow struct {
	ID        string    `gorm:"size:36;primaryKey" json:"id" bson:"_id"`
	BookID    string    `gorm:"size:36;index;not null" json:"book" bson:"book"`
	Quantity  int       `gorm:"not null;check:chk_borrows_quantity,quantity >= 1" json:"quantity" bson:"quantity"`
	DueDate   time.Time `gorm:"not null" json:"dueDate" bson:"dueDate"`
	CreatedAt time.Time `json:"createdAt" bson:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt" bson:"updatedAt"`
}

func (Borrow) TableName() string { return BorrowTable }

// Quantity is a requested number of copies. Decoding never fails: any JSON
// value that is not a positive whole number leaves it invalid.
type Quantity struct {
	n     int
	valid bool
}

func NewQuantity(n int) *Quantity { return &Quantity{n: n, valid: n > 0} }

func (q *Quantity) UnmarshalJSON(b []byte) error {
	*q = Quantity{}
	var f float64
	if err := json.Unmarshal(b, &f); err != nil {
		return nil
	}
	if f > 0 && f == math.Trunc(f) && f <= math.MaxInt32 {
		q.n, q.valid = int(f), true
	}
	return nil
}

func (q Quantity) Int() int    { return q.n }
func (q Quantity) Valid() bool { return q.valid }

// BorrowInput is what a caller asks for.
type BorrowInput struct {
	BookID   string    `json:"book"`
	Quantity *Quantity `json:"quantity"`
	DueDate  *Date     `json:"dueDate"`
}

// Validate reports missing fields first, then a quantity that is not a
// positive whole number.
func (in BorrowInput) Validate() error {
	fields := map[string]string{}
	if strings.TrimSpace(in.BookID) == "" {
		fields["book"] = "Book is required"
	}
	if in.Quantity == nil {
		fields["quantity"] = "Quantity is required"
	}
	if in.DueDate == nil || in.DueDate.IsZero() {
		fields["dueDate"] = "dueDate is required"
	}
	if len(fields) > 0 {
		return &Error{Code: CodeValidation, Message: "Missing required fields", Fields: fields}
	}
	if !in.Quantity.Valid() {
		return ErrInvalidQuantity
	}
	return nil
}

// NewBorrow builds the record the transaction will insert. Call Validate first.
func (in BorrowInput) NewBorrow(id string, now time.Time) *Borrow {
	return &Borrow{
		ID:        id,
		BookID:    strings.TrimSpace(in.BookID),
		Quantity:  in.Quantity.Int(),
		DueDate:   in.DueDate.Time,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// SummaryRow is one line of the borrowed-books summary.
type SummaryRow struct {
	Title         string `json:"title" bson:"title"`
	ISBN          string `gorm:"column:isbn" json:"isbn" bson:"isbn"`
	TotalQuantity int64  `json:"totalQuantity" bson:"totalQuantity"`
}
