package api

import (
	_ "proofchest/docs"
	"proofchest/internal/api/handlers"
	"proofchest/pkg/auth"
	"proofchest/pkg/config"
	"proofchest/pkg/middleware"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/swagger"
	"go.uber.org/zap"
)

type Handlers struct {
	Auth          *handlers.AuthHandler
	Documents     *handlers.DocumentHandler
	Announcements *handlers.AnnouncementHandler
}

func SetupRouter(
	cfg *config.Config,
	h Handlers,
	resolver middleware.IdentityResolver,
	jwtManager *auth.JWTManager,
	appLogger *zap.Logger,
) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:      "proofchest",
		BodyLimit:    cfg.Server.BodyLimit,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"error": err.Error(),
			})
		},
	})

	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept,Authorization",
	}))
	app.Use(logger.New())

	app.Get("/swagger/*", swagger.HandlerDefault)

	appLogger.Info("Serving uploads", zap.String("path", cfg.Storage.UploadDir))
	app.Static("/uploads", cfg.Storage.UploadDir)

	api := app.Group("/api/v1")

	authRoutes := api.Group("/auth")
	authRoutes.Post("/signup", h.Auth.SignUp)
	authRoutes.Post("/login", h.Auth.Login)

	protected := api.Group("", middleware.JWT(jwtManager, appLogger), middleware.Identity(resolver, appLogger))
	protected.Get("/auth/me", h.Auth.Me)
	protected.Post("/auth/logout", h.Auth.Logout)

	documents := protected.Group("/documents")
	documents.Post("/preview", h.Documents.PreviewDocument)
	documents.Post("", h.Documents.UploadDocument)
	documents.Get("/:category", h.Documents.ListDocuments)
	documents.Delete("/:id", h.Documents.DeleteDocument)

	protected.Get("/announcements", h.Announcements.ListPublished)

	admin := protected.Group("/admin", middleware.RequireAdmin(appLogger))
	admin.Get("/announcements", h.Announcements.List)
	admin.Post("/announcements", h.Announcements.Create)
	admin.Put("/announcements/:id", h.Announcements.Update)
	admin.Delete("/announcements/:id", h.Announcements.Delete)

	return app
}
