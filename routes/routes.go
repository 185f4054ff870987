package routes

import (
	"Gin_gorm_library_borrow/app"
	"Gin_gorm_library_borrow/controllers"

	"github.com/gin-gonic/gin"
)

func RegisterRoutes(r *gin.Engine, a *app.App) {
	// 控制器与依赖
	s := controllers.GetSrv(a)
	bookCtl := controllers.NewBookController(s)
	borrowCtl := controllers.NewBorrowController(s)

	idemMW := app.Idempotent(a.Idempotency(), "borrow", a.Log)

	r.GET("/health", s.Health)
	r.GET("/healthz", s.Ready)

	// ------------------------------
	// 图书 CRUD
	// ------------------------------
	books := r.Group("/api/books")
	{
		books.POST("", bookCtl.CreateBook)
		books.GET("", bookCtl.ListBooks) // ?filter=&sortBy=&sort=&limit=
		books.GET("/:bookId", bookCtl.GetBook)
		books.PUT("/:bookId", bookCtl.UpdateBook)
		books.DELETE("/:bookId", bookCtl.DeleteBook)
	}

	// ------------------------------
	// 借阅
	// ------------------------------
	borrow := r.Group("/api/borrow")
	{
		borrow.GET("", borrowCtl.Summary)
		borrow.POST("", idemMW, borrowCtl.Borrow)
	}
}
