package handler

import (
	"go-inventory-uom/internal/middleware"

	"github.com/gofiber/fiber/v2"
)

// Register mounts every protected route on router, which must already run RequireAuth.
func Register(router fiber.Router, th *TransformationHandler, sh *StockHandler, mh *MasterDataHandler) {
	// Transformation Routes
	tr := router.Group("/transformations")
	tr.Get("/items", th.GetTransformableItems)
	tr.Get("/options/:baseProduct", th.GetConversionOptions)
	tr.Get("/history", th.GetTransformationHistory)
	tr.Post("/validate", th.ValidateTransformation)
	tr.Post("/preview", th.PreviewTransformation)
	tr.Post("/", middleware.RequirePrivilege(middleware.PrivilegeTransformationExecute), th.ExecuteTransformation)
	tr.Get("/:id", th.GetTransformation)

	// Stock Routes (static paths before /:code)
	st := router.Group("/stock")
	st.Get("/statistics", sh.GetStockStatistics)
	st.Get("/backup", sh.GetLatestBackup)
	st.Post("/backup", middleware.RequirePrivilege(middleware.PrivilegeStockRestore), sh.CreateBackup)
	st.Post("/restore", middleware.RequirePrivilege(middleware.PrivilegeStockRestore), sh.RestoreBackup)
	st.Post("/bulk", sh.GetBulkStockBalance)
	st.Get("/:code", sh.GetStockBalance)

	// Master Data Routes
	router.Get("/items", mh.GetItems)
	router.Put("/items", middleware.RequirePrivilege(middleware.PrivilegeMasterWrite), mh.ReplaceItems)
	router.Get("/conversion-ratios", mh.GetConversionRatios)
	router.Put("/conversion-ratios", middleware.RequirePrivilege(middleware.PrivilegeMasterWrite), mh.ReplaceConversionRatios)
}
