// Command seed wipes the library collections and loads the sample data set:
// books, users, libraries and a handful of loans in various states.
package main

import (
	"context"
	"log"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/maelcorre/bibliotheque/config"
	"github.com/maelcorre/bibliotheque/models"
	"github.com/maelcorre/bibliotheque/store"
)

func date(value string) time.Time {
	t, err := models.ParseDate(value)
	if err != nil {
		panic(err)
	}
	return t
}

var books = []models.Book{
	{
		Title:         "Harry Potter et la Pierre Philosophale",
		Author:        "J.K. Rowling",
		Publisher:     "Gallimard Jeunesse",
		Types:         models.TypeFantaisie,
		Language:      models.LanguageFR,
		PublishedDate: date("1998-10-09"),
		ISBN:          9782070541270,
		PageNumber:    305,
	},
	{
		Title:         "La grandeur des incas",
		Author:        "National Geographic",
		Publisher:     "National Geographic",
		Language:      models.LanguageFR,
		PublishedDate: date("2010-01-01"),
		PageNumber:    256,
	},
	{
		Title:         "The Lord of the Rings",
		Author:        "J.R.R. Tolkien",
		Publisher:     "HarperCollins",
		Types:         models.TypeFantaisie,
		Language:      models.LanguageEN,
		PublishedDate: date("1954-07-29"),
		ISBN:          9780261103252,
		PageNumber:    1216,
	},
	{
		Title:         "Le Petit Prince",
		Author:        "Antoine de Saint-Exupéry",
		Publisher:     "Gallimard",
		Types:         models.TypeFantaisie,
		Language:      models.LanguageFR,
		PublishedDate: date("1943-04-06"),
		ISBN:          9782070612758,
		PageNumber:    96,
	},
	{
		Title:         "Sherlock Holmes: A Study in Scarlet",
		Author:        "Arthur Conan Doyle",
		Publisher:     "Ward Lock & Co",
		Types:         models.TypePolicier,
		Language:      models.LanguageEN,
		PublishedDate: date("1887-11-01"),
		ISBN:          9780755334476,
		PageNumber:    176,
	},
	{
		Title:         "Dune",
		Author:        "Frank Herbert",
		Publisher:     "Robert Laffont",
		Types:         models.TypeSF,
		Language:      models.LanguageFR,
		PublishedDate: date("1965-08-01"),
		ISBN:          9782221252055,
		PageNumber:    696,
	},
}

var users = []models.User{
	{FirstName: "Jean", LastName: "Dupont", Email: "jean.dupont@example.fr"},
	{FirstName: "Marie", LastName: "Martin", Email: "marie.martin@example.fr"},
	{FirstName: "Pierre", LastName: "Bernard"},
	{FirstName: "Sophie", LastName: "Petit", Phone: "+33 6 12 34 56 78"},
	{FirstName: "Thomas", LastName: "Dubois"},
	{FirstName: "Emma", LastName: "Leroy"},
}

var libraries = []models.Library{
	{Name: "Bibliothèque Nationale de France", Localisation: "Paris, France"},
	{Name: "Médiathèque Centrale", Localisation: "Lyon, France"},
	{Name: "Bibliothèque Municipale", Localisation: "Bordeaux, France"},
	{Name: "Centre Culturel et Littéraire", Localisation: "Marseille, France"},
	{Name: "Maison du Livre", Localisation: "Strasbourg, France"},
}

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("config:", err)
	}
	logger, err := zap.NewDevelopment()
	if err != nil {
		log.Fatal("logger:", err)
	}
	defer logger.Sync()
	logger = logger.With(zap.String("run", uuid.NewString()))

	ctx := context.Background()
	db, err := store.NewMongoDB(ctx, cfg.MongoURI, cfg.DBName, logger)
	if err != nil {
		logger.Fatal("mongodb", zap.Error(err))
	}
	defer db.Disconnect(context.Background())

	for _, c := range []string{"loans", "books", "users", "libraries"} {
		if _, err := db.Database.Collection(c).DeleteMany(ctx, bson.M{}); err != nil {
			logger.Fatal("wipe collection", zap.String("collection", c), zap.Error(err))
		}
	}
	logger.Info("old data deleted")

	if err := db.EnsureIndexes(ctx); err != nil {
		logger.Fatal("create indexes", zap.Error(err))
	}

	bookIDs := make([]primitive.ObjectID, len(books))
	for i := range books {
		if bookIDs[i], err = db.InsertBook(ctx, &books[i]); err != nil {
			logger.Fatal("insert book", zap.Error(err))
		}
	}
	logger.Info("seed books inserted", zap.Int("count", len(books)))

	now := time.Now()
	userIDs := make([]primitive.ObjectID, len(users))
	for i := range users {
		users[i].MembershipDate = now
		if userIDs[i], err = db.InsertUser(ctx, &users[i]); err != nil {
			logger.Fatal("insert user", zap.Error(err))
		}
	}
	logger.Info("seed users inserted", zap.Int("count", len(users)))

	libraryIDs := make([]primitive.ObjectID, len(libraries))
	for i := range libraries {
		if libraryIDs[i], err = db.InsertLibrary(ctx, &libraries[i]); err != nil {
			logger.Fatal("insert library", zap.Error(err))
		}
	}
	logger.Info("seed libraries inserted", zap.Int("count", len(libraries)))

	// Four returned historical loans, one active loan still inside its
	// period, and one active loan already overdue. Active loans sit on
	// distinct books so the one-active-loan-per-book index holds.
	loans := make([]models.Loan, 0, 6)
	for i := 0; i < 4; i++ {
		loanDate := now.AddDate(0, 0, -rand.Intn(90)-30)
		loans = append(loans, models.Loan{
			Book:       bookIDs[rand.Intn(len(bookIDs))],
			User:       userIDs[rand.Intn(len(userIDs))],
			Library:    libraryIDs[rand.Intn(len(libraryIDs))],
			LoanDate:   loanDate,
			ReturnDate: loanDate.Add(models.DefaultLoanPeriod),
			Returned:   true,
		})
	}
	loans = append(loans,
		models.Loan{
			Book:       bookIDs[0],
			User:       userIDs[0],
			Library:    libraryIDs[0],
			LoanDate:   now.AddDate(0, 0, -3),
			ReturnDate: now.AddDate(0, 0, 11),
		},
		models.Loan{
			Book:       bookIDs[5],
			User:       userIDs[1],
			Library:    libraryIDs[1],
			LoanDate:   now.AddDate(0, 0, -20),
			ReturnDate: now.AddDate(0, 0, -6),
		},
	)
	for i := range loans {
		if _, err := db.InsertLoan(ctx, &loans[i]); err != nil {
			logger.Fatal("insert loan", zap.Error(err))
		}
	}
	logger.Info("seed loans inserted", zap.Int("count", len(loans)))

	logger.Info("all seeds completed")
}
