package main

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/communityconnect/backend/internal/config"
	"github.com/communityconnect/backend/internal/database"
	"github.com/communityconnect/backend/internal/handlers"
	"github.com/communityconnect/backend/internal/middleware"
	"github.com/communityconnect/backend/pkg/logger"
	"github.com/communityconnect/backend/pkg/utils"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
)

func main() {
	logger.Init()

	cfg := config.Load()
	utils.ConfigureJWT(cfg.JWT.Secret, cfg.JWT.ExpirationHours)

	db, err := database.Connect(cfg.DB)
	if err != nil {
		log.Fatalf("database connection failed: %v", err)
	}

	authHandler := handlers.NewAuthHandler(db)
	usersHandler := handlers.NewUsersHandler(db)
	postsHandler := handlers.NewPostsHandler(db)
	groupsHandler := handlers.NewGroupsHandler(db)
	groupEventsHandler := handlers.NewGroupEventsHandler(db)
	eventsHandler := handlers.NewEventsHandler(db)

	authMiddleware := middleware.NewAuthMiddleware(db)

	app := fiber.New()
	app.Use(recover.New(recover.Config{EnableStackTrace: true}))
	app.Use(middleware.CORS(cfg.Server.ClientOrigin))
	app.Use(middleware.RequestLogger())
	app.Use(middleware.SecurityLogger())

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"status": "ok"})
	})

	api := app.Group("/api")

	authRoutes := api.Group("/auth")
	authRoutes.Post("/register", authHandler.Register)
	authRoutes.Post("/login", authHandler.Login)

	userRoutes := api.Group("/users", authMiddleware.RequireAuth)
	userRoutes.Get("/me", usersHandler.Me)
	userRoutes.Put("/me", usersHandler.UpdateMe)

	postRoutes := api.Group("/posts")
	postRoutes.Get("/", postsHandler.List)
	postRoutes.Post("/", authMiddleware.RequireAuth, postsHandler.Create)
	postRoutes.Post("/:postId/comments", authMiddleware.RequireAuth, postsHandler.AddComment)
	postRoutes.Delete("/:postId/comments/:commentId", authMiddleware.RequireAuth, postsHandler.DeleteComment)
	postRoutes.Delete("/:postId", authMiddleware.RequireAuth, postsHandler.Delete)

	groupRoutes := api.Group("/groups")
	groupRoutes.Get("/", groupsHandler.List)
	groupRoutes.Post("/", authMiddleware.RequireAuth, groupsHandler.Create)
	// "/mine" must register before "/:groupId" or fiber would swallow it
	// as a group id.
	groupRoutes.Get("/mine", authMiddleware.RequireAuth, groupsHandler.Mine)
	groupRoutes.Get("/:groupId", groupsHandler.Get)
	groupRoutes.Post("/:groupId/join", authMiddleware.RequireAuth, groupsHandler.Join)
	groupRoutes.Post("/:groupId/leave", authMiddleware.RequireAuth, groupsHandler.Leave)

	groupEventRoutes := api.Group("/groups/:groupId/events",
		authMiddleware.RequireAuth, groupEventsHandler.RequireGroupMember)
	groupEventRoutes.Get("/", groupEventsHandler.List)
	groupEventRoutes.Post("/", groupEventsHandler.Create)
	groupEventRoutes.Delete("/:eventId", groupEventsHandler.Delete)
	groupEventRoutes.Post("/:eventId/comments", groupEventsHandler.AddComment)
	groupEventRoutes.Delete("/:eventId/comments/:commentId", groupEventsHandler.DeleteComment)

	eventRoutes := api.Group("/events", authMiddleware.RequireAuth)
	eventRoutes.Get("/mine", eventsHandler.Mine)
	eventRoutes.Get("/joinable", eventsHandler.Joinable)
	eventRoutes.Post("/:eventId/join", eventsHandler.Join)
	eventRoutes.Post("/:eventId/leave", eventsHandler.Leave)

	listenAddr := fmt.Sprintf(":%s", cfg.Server.Port)

	logger.Info("server_starting", map[string]interface{}{
		"port":    cfg.Server.Port,
		"address": listenAddr,
	})

	errCh := make(chan error, 1)
	go func() {
		errCh <- app.Listen(listenAddr)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		log.Printf("shutting down server due to signal: %s", sig)
		shutdownDone := make(chan struct{})
		go func() {
			_ = app.Shutdown()
			close(shutdownDone)
		}()
		select {
		case <-shutdownDone:
		case <-time.After(10 * time.Second):
			log.Print("forced shutdown timeout reached")
		}
	case err := <-errCh:
		if err != nil {
			log.Fatalf("server error: %v", err)
		}
	}
}
