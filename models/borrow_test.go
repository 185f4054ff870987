package models_test

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"Gin_gorm_library_borrow/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func qty(raw string) *models.Quantity {
	var q models.Quantity
	_ = json.Unmarshal([]byte(raw), &q)
	return &q
}

func due(t *testing.T, s string) *models.Date {
	t.Helper()
	d, err := models.ParseDate(s)
	require.NoError(t, err)
	return &d
}

func TestBorrowInput_Validate(t *testing.T) {
	tests := []struct {
		name string
		in   models.BorrowInput
		code models.ErrCode
	}{
		{"ok", models.BorrowInput{BookID: "b", Quantity: qty("2"), DueDate: due(t, "2026-11-01")}, ""},
		{"missing all", models.BorrowInput{}, models.CodeValidation},
		{"missing due date", models.BorrowInput{BookID: "b", Quantity: qty("1")}, models.CodeValidation},
		{"zero due date", models.BorrowInput{BookID: "b", Quantity: qty("1"), DueDate: &models.Date{}}, models.CodeValidation},
		{"zero", models.BorrowInput{BookID: "b", Quantity: qty("0"), DueDate: due(t, "2026-11-01")}, models.CodeInvalidQuantity},
		{"negative", models.BorrowInput{BookID: "b", Quantity: qty("-3"), DueDate: due(t, "2026-11-01")}, models.CodeInvalidQuantity},
		{"fraction", models.BorrowInput{BookID: "b", Quantity: qty("1.5"), DueDate: due(t, "2026-11-01")}, models.CodeInvalidQuantity},
		{"numeric string", models.BorrowInput{BookID: "b", Quantity: qty(`"2"`), DueDate: due(t, "2026-11-01")}, models.CodeInvalidQuantity},
		{"word", models.BorrowInput{BookID: "b", Quantity: qty(`"abc"`), DueDate: due(t, "2026-11-01")}, models.CodeInvalidQuantity},
		{"object", models.BorrowInput{BookID: "b", Quantity: qty(`{"n":1}`), DueDate: due(t, "2026-11-01")}, models.CodeInvalidQuantity},
		{"too large", models.BorrowInput{BookID: "b", Quantity: qty("1e12"), DueDate: due(t, "2026-11-01")}, models.CodeInvalidQuantity},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.code, models.Code(tt.in.Validate()))
		})
	}
}

func TestBorrowInput_MissingFieldsMessage(t *testing.T) {
	err := models.BorrowInput{}.Validate()
	var e *models.Error
	require.True(t, errors.As(err, &e))
	assert.Equal(t, "Missing required fields", e.Message)
	assert.Len(t, e.Fields, 3)
}

func TestBorrowInput_NewBorrow(t *testing.T) {
	now := time.Date(2026, 10, 17, 12, 0, 0, 0, time.UTC)
	in := models.BorrowInput{BookID: " b1 ", Quantity: models.NewQuantity(3), DueDate: due(t, "2026-11-01")}

	br := in.NewBorrow("br1", now)

	assert.Equal(t, "br1", br.ID)
	assert.Equal(t, "b1", br.BookID)
	assert.Equal(t, 3, br.Quantity)
	assert.Equal(t, time.Date(2026, 11, 1, 0, 0, 0, 0, time.UTC), br.DueDate)
	assert.Equal(t, now, br.CreatedAt)
}

func TestDate_UnmarshalJSON(t *testing.T) {
	var in models.BorrowInput
	require.NoError(t, json.Unmarshal([]byte(`{"book":"x","quantity":2,"dueDate":"2026-11-01T10:00:00Z"}`), &in))
	require.NotNil(t, in.DueDate)
	assert.Equal(t, 10, in.DueDate.Hour())
	assert.True(t, in.Quantity.Valid())
	assert.Equal(t, 2, in.Quantity.Int())

	require.NoError(t, json.Unmarshal([]byte(`{"dueDate":"2026-11-01"}`), &in))
	assert.Equal(t, time.November, in.DueDate.Month())

	var empty models.BorrowInput
	require.NoError(t, json.Unmarshal([]byte(`{"book":"x","quantity":1,"dueDate":""}`), &empty))
	var e *models.Error
	require.True(t, errors.As(empty.Validate(), &e))
	assert.Equal(t, "Missing required fields", e.Message)
	assert.Contains(t, e.Fields, "dueDate")

	for _, raw := range []string{`{"dueDate":"next week"}`, `{"dueDate":12}`} {
		err := json.Unmarshal([]byte(raw), &in)
		require.True(t, errors.As(err, &e), raw)
		assert.Equal(t, models.CodeValidation, e.Code)
		assert.Contains(t, e.Fields, "dueDate")
	}
}

func TestQuantity_UnmarshalNeverFails(t *testing.T) {
	var in models.BorrowInput
	require.NoError(t, json.Unmarshal([]byte(`{"quantity":"abc"}`), &in))
	require.NotNil(t, in.Quantity)
	assert.False(t, in.Quantity.Valid())

	require.NoError(t, json.Unmarshal([]byte(`{"quantity":null}`), &in))
	assert.Nil(t, in.Quantity)

	assert.False(t, models.NewQuantity(0).Valid())
	assert.True(t, models.NewQuantity(4).Valid())
}

func TestParseBookQuery(t *testing.T) {
	q, err := models.ParseBookQuery("", "", "", "")
	require.NoError(t, err)
	assert.Equal(t, models.BookQuery{SortBy: "createdAt", Desc: true, Limit: models.DefaultListLimit}, q)
	assert.Equal(t, "created_at", q.Column())

	q, err = models.ParseBookQuery("fantasy", "title", "asc", "5")
	require.NoError(t, err)
	assert.Equal(t, models.GenreFantasy, q.Genre)
	assert.Equal(t, "title", q.Column())
	assert.False(t, q.Desc)
	assert.Equal(t, 5, q.Limit)

	q, err = models.ParseBookQuery("", "copies", "anything", "")
	require.NoError(t, err)
	assert.True(t, q.Desc)

	_, err = models.ParseBookQuery("POETRY", "price", "", "-1")
	var e *models.Error
	require.True(t, errors.As(err, &e))
	assert.Contains(t, e.Fields, "filter")
	assert.Contains(t, e.Fields, "sortBy")
	assert.Contains(t, e.Fields, "limit")
}
