// controllers/borrow_controller.go
package controllers

import (
	"errors"
	"io"
	"net/http"

	"Gin_gorm_library_borrow/app"
	"Gin_gorm_library_borrow/models"
)

type BorrowController struct{ *Srv }

func NewBorrowController(s *Srv) *BorrowController { return &BorrowController{Srv: s} }

// POST /api/borrow {"book": "<id>", "quantity": 2, "dueDate": "2026-11-01"}
func (bc *BorrowController) Borrow(c *app.Ctx) {
	var in models.BorrowInput
	// 空 body 交给 Validate 报 "Missing required fields"
	if err := c.ShouldBindJSON(&in); err != nil && !errors.Is(err, io.EOF) {
		bc.fail(c, app.BindingError(err))
		return
	}
	br, err := bc.Lib.BorrowBook(c.Request.Context(), in)
	if err != nil {
		bc.fail(c, err)
		return
	}
	app.OK(c, http.StatusCreated, "Book borrowed successfully", br)
}

// GET /api/borrow
func (bc *BorrowController) Summary(c *app.Ctx) {
	rows, err := bc.Lib.BorrowedSummary(c.Request.Context())
	if err != nil {
		bc.fail(c, err)
		return
	}
	app.OK(c, http.StatusOK, "Borrowed books summary retrieved successfully", rows)
}
