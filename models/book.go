// models/book.go
package models

import (
	"strings"
	"time"
)

const BookTable = "books"

type Genre string

const (
	GenreFiction    Genre = "FICTION"
	GenreNonFiction Genre = "NON_FICTION"
	GenreScience    Genre = "SCIENCE"
	GenreHistory    Genre = "HISTORY"
	GenreBiography  Genre = "BIOGRAPHY"
	GenreFantasy    Genre = "FANTASY"
)

var Genres = []Genre{GenreFiction, GenreNonFiction, GenreScience, GenreHistory, GenreBiography, GenreFantasy}

func (g Genre) Valid() bool {
	for _, v := range Genres {
		if g == v {
			return true
		}
	}
	return false
}

type Book struct {
	ID          string    `gorm:"size:36;primaryKey" json:"id" bson:"_id"`
	Title       string    `gorm:"size:255;not null" json:"title" bson:"title"`
	Author      string    `gorm:"size:255;not null" json:"author" bson:"author"`
	Genre       Genre     `gorm:"size:20;not null;index" json:"genre" bson:"genre"`
	ISBN        string    `gorm:"column:isbn;size:32;uniqueIndex;not null" json:"isbn" bson:"isbn"`
	Description string    `gorm:"type:text" json:"description" bson:"description"`
	Copies      int       `gorm:"not null;check:chk_books_copies,copies >= 0" json:"copies" bson:"copies"`
	Available   bool      `gorm:"not null;default:false" json:"available" bson:"available"` // 冗余列：copies > 0
	CreatedAt   time.Time `json:"createdAt" bson:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt" bson:"updatedAt"`
}

func (Book) TableName() string { return BookTable }

// IsAvailable is the single definition of the derived availability flag.
func IsAvailable(copies int) bool { return copies > 0 }

// SyncAvailability recomputes Available from Copies. Every path that writes a
// book calls it before persisting.
func SyncAvailability(b *Book) { b.Available = IsAvailable(b.Copies) }

// Validate checks the persisted shape of a book, collecting one message per field.
func (b *Book) Validate() error {
	fields := map[string]string{}
	if strings.TrimSpace(b.Title) == "" {
		fields["title"] = "Title is required"
	}
	if strings.TrimSpace(b.Author) == "" {
		fields["author"] = "Author is required"
	}
	if b.Genre == "" {
		fields["genre"] = "Genre is required"
	} else if !b.Genre.Valid() {
		fields["genre"] = "Genre must be one of " + genreList()
	}
	if strings.TrimSpace(b.ISBN) == "" {
		fields["isbn"] = "ISBN is required"
	}
	if b.Copies < 0 {
		fields["copies"] = "Copies must be a positive number"
	}
	if len(fields) > 0 {
		return NewValidationError(fields)
	}
	return nil
}

func genreList() string {
	s := make([]string, len(Genres))
	for i, g := range Genres {
		s[i] = string(g)
	}
	return strings.Join(s, ", ")
}

// BookInput is the create payload.
type BookInput struct {
	Title       string `json:"title" binding:"required"`
	Author      string `json:"author" binding:"required"`
	Genre       Genre  `json:"genre" binding:"required"`
	ISBN        string `json:"isbn" binding:"required"`
	Description string `json:"description"`
	Copies      *int   `json:"copies" binding:"required"`
}

// NewBook builds and validates an unsaved book from the input.
func (in BookInput) NewBook(id string, now time.Time) (*Book, error) {
	b := &Book{
		ID:          id,
		Title:       strings.TrimSpace(in.Title),
		Author:      strings.TrimSpace(in.Author),
		Genre:       in.Genre,
		ISBN:        strings.TrimSpace(in.ISBN),
		Description: in.Description,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if in.Copies != nil {
		b.Copies = *in.Copies
	}
	SyncAvailability(b)

	err := b.Validate()
	if in.Copies == nil {
		err = WithFieldError(err, "copies", "Copies is required")
	}
	if err != nil {
		return nil, err
	}
	return b, nil
}

// BookPatch is the update payload; nil fields keep their current value.
type BookPatch struct {
	Title       *string `json:"title"`
	Author      *string `json:"author"`
	Genre       *Genre  `json:"genre"`
	ISBN        *string `json:"isbn"`
	Description *string `json:"description"`
	Copies      *int    `json:"copies"`
}

// Apply merges the patch into b and re-derives Available.
func (p BookPatch) Apply(b *Book) {
	if p.Title != nil {
		b.Title = strings.TrimSpace(*p.Title)
	}
	if p.Author != nil {
		b.Author = strings.TrimSpace(*p.Author)
	}
	if p.Genre != nil {
		b.Genre = *p.Genre
	}
	if p.ISBN != nil {
		b.ISBN = strings.TrimSpace(*p.ISBN)
	}
	if p.Description != nil {
		b.Description = *p.Description
	}
	if p.Copies != nil {
		b.Copies = *p.Copies
	}
	SyncAvailability(b)
}
