// controllers/book_controller.go
package controllers

import (
	"errors"
	"io"
	"net/http"

	"Gin_gorm_library_borrow/app"
	"Gin_gorm_library_borrow/models"
)

type BookController struct{ *Srv }

func NewBookController(s *Srv) *BookController { return &BookController{Srv: s} }

// POST /api/books
func (bc *BookController) CreateBook(c *app.Ctx) {
	var in models.BookInput
	if err := c.ShouldBindJSON(&in); err != nil {
		bc.fail(c, app.BindingError(err))
		return
	}
	b, err := bc.Lib.CreateBook(c.Request.Context(), in)
	if err != nil {
		bc.fail(c, err)
		return
	}
	app.OK(c, http.StatusCreated, "Book created successfully", b)
}

// GET /api/books?filter=FICTION&sortBy=createdAt&sort=desc&limit=10
func (bc *BookController) ListBooks(c *app.Ctx) {
	q, err := models.ParseBookQuery(c.Query("filter"), c.Query("sortBy"), c.Query("sort"), c.Query("limit"))
	if err != nil {
		bc.fail(c, err)
		return
	}
	books, err := bc.Lib.ListBooks(c.Request.Context(), q)
	if err != nil {
		bc.fail(c, err)
		return
	}
	app.OK(c, http.StatusOK, "Books retrieved successfully", books)
}

// GET /api/books/:bookId
func (bc *BookController) GetBook(c *app.Ctx) {
	b, err := bc.Lib.GetBook(c.Request.Context(), c.Param("bookId"))
	if err != nil {
		bc.fail(c, err)
		return
	}
	app.OK(c, http.StatusOK, "Book retrieved successfully", b)
}

// PUT /api/books/:bookId, absent fields are left as they are.
func (bc *BookController) UpdateBook(c *app.Ctx) {
	var patch models.BookPatch
	if err := c.ShouldBindJSON(&patch); err != nil && !errors.Is(err, io.EOF) {
		bc.fail(c, app.BindingError(err))
		return
	}
	b, err := bc.Lib.UpdateBook(c.Request.Context(), c.Param("bookId"), patch)
	if err != nil {
		bc.fail(c, err)
		return
	}
	app.OK(c, http.StatusOK, "Book updated successfully", b)
}

// DELETE /api/books/:bookId
func (bc *BookController) DeleteBook(c *app.Ctx) {
	if err := bc.Lib.DeleteBook(c.Request.Context(), c.Param("bookId")); err != nil {
		bc.fail(c, err)
		return
	}
	app.OK(c, http.StatusOK, "Book deleted successfully", nil)
}
