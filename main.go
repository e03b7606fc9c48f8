package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/maelcorre/bibliotheque/config"
	"github.com/maelcorre/bibliotheque/handlers"
	"github.com/maelcorre/bibliotheque/middleware"
	"github.com/maelcorre/bibliotheque/store"
	"github.com/maelcorre/bibliotheque/validation"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("config:", err)
	}

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatal("logger:", err)
	}
	defer logger.Sync()

	ctx := context.Background()
	db, err := store.NewMongoDB(ctx, cfg.MongoURI, cfg.DBName, logger)
	if err != nil {
		logger.Fatal("mongodb", zap.Error(err))
	}
	defer func() {
		if err := db.Disconnect(context.Background()); err != nil {
			logger.Error("mongodb disconnect", zap.Error(err))
		}
	}()

	if err := db.EnsureIndexes(ctx); err != nil {
		logger.Fatal("create indexes", zap.Error(err))
	}

	validate := validation.New()
	booksHandler := &handlers.BooksHandler{Books: db, Loans: db, Validate: validate, Logger: logger}
	usersHandler := &handlers.UsersHandler{Users: db, Loans: db, Validate: validate, Logger: logger}
	librariesHandler := &handlers.LibrariesHandler{Libraries: db, Loans: db, Validate: validate, Logger: logger}
	loansHandler := &handlers.LoansHandler{
		Loans:     db,
		Books:     db,
		Users:     db,
		Libraries: db,
		Validate:  validate,
		Logger:    logger,
	}
	statsHandler := &handlers.StatsHandler{Stats: db, Logger: logger}

	r := chi.NewRouter()
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.CORSOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))
	r.Use(middleware.RequestLogger(logger))
	r.Use(chimw.Recoverer)
	r.Use(chimw.RealIP)
	r.NotFound(handlers.NotFoundRoute(logger))

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"message":"welcome to the library API."}`))
	})
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/books", func(r chi.Router) {
		r.Get("/", booksHandler.List)
		r.Post("/", booksHandler.Create)
		r.Get("/search/query", booksHandler.Search)
		r.Get("/type/{type}", booksHandler.ByType)
		r.Get("/language/{language}", booksHandler.ByLanguage)
		r.Get("/isbn/{isbn}", booksHandler.ByISBN)
		r.Get("/{id}", booksHandler.Get)
		r.Put("/{id}", booksHandler.Update)
		r.Delete("/{id}", booksHandler.Delete)
		r.Get("/{id}/loans", booksHandler.BookLoans)
		r.Get("/{id}/availability", booksHandler.Availability)
	})

	r.Route("/book-stats", func(r chi.Router) {
		r.Get("/", statsHandler.General)
		r.Get("/language/{language}", statsHandler.ByLanguage)
		r.Get("/type/{type}", statsHandler.ByType)
	})

	r.Route("/users", func(r chi.Router) {
		r.Get("/", usersHandler.List)
		r.Post("/", usersHandler.Create)
		r.Get("/{id}", usersHandler.Get)
		r.Put("/{id}", usersHandler.Update)
		r.Delete("/{id}", usersHandler.Delete)
		r.Get("/{id}/loans", usersHandler.UserLoans)
	})

	r.Route("/libraries", func(r chi.Router) {
		r.Get("/", librariesHandler.List)
		r.Post("/", librariesHandler.Create)
		r.Get("/{id}", librariesHandler.Get)
		r.Put("/{id}", librariesHandler.Update)
		r.Delete("/{id}", librariesHandler.Delete)
	})

	r.Route("/loans", func(r chi.Router) {
		r.Get("/", loansHandler.List)
		r.Post("/", loansHandler.Create)
		r.Get("/overdue/list", loansHandler.Overdue)
		r.Get("/{id}", loansHandler.Get)
		r.Put("/{id}", loansHandler.Update)
		r.Delete("/{id}", loansHandler.Delete)
		r.Patch("/{id}/return", loansHandler.Return)
	})

	server := &http.Server{Addr: ":" + cfg.Port, Handler: r}
	go func() {
		logger.Info("server listening", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("listen", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown", zap.Error(err))
	}
}
