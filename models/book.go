package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Book genres and languages are fixed vocabularies; values outside them are
// rejected before any query runs.
const (
	TypeFantaisie = "Fantaisie"
	TypePolicier  = "Policier"
	TypeSF        = "SF"

	LanguageFR = "fr"
	LanguageEN = "en"
)

var (
	BookTypes = []string{TypeFantaisie, TypePolicier, TypeSF}
	Languages = []string{LanguageFR, LanguageEN}
)

func ValidBookType(s string) bool {
	for _, t := range BookTypes {
		if s == t {
			return true
		}
	}
	return false
}

func ValidLanguage(s string) bool {
	for _, l := range Languages {
		if s == l {
			return true
		}
	}
	return false
}

type Book struct {
	ID            primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Title         string             `bson:"title" json:"title"`
	Author        string             `bson:"author" json:"author"`
	Publisher     string             `bson:"publisher,omitempty" json:"publisher,omitempty"`
	Description   string             `bson:"description,omitempty" json:"description,omitempty"`
	Types         string             `bson:"types,omitempty" json:"types,omitempty"`
	Language      string             `bson:"language" json:"language"`
	PublishedDate time.Time          `bson:"publishedDate" json:"publishedDate"`
	ISBN          int64              `bson:"isbn,omitempty" json:"isbn,omitempty"`
	PageNumber    int                `bson:"pageNumber,omitempty" json:"pageNumber,omitempty"`
	// Score is only set on text-search results (relevance projection).
	Score float64 `bson:"score,omitempty" json:"score,omitempty"`
}

type CreateBookInput struct {
	Title         string `json:"title" validate:"required,max=200"`
	Author        string `json:"author" validate:"required"`
	Publisher     string `json:"publisher" validate:"omitempty,max=200"`
	Description   string `json:"description" validate:"omitempty,max=1000"`
	Types         string `json:"types" validate:"omitempty,oneof=Fantaisie Policier SF"`
	Language      string `json:"language" validate:"omitempty,oneof=fr en"`
	PublishedDate string `json:"publishedDate" validate:"required"`
	ISBN          int64  `json:"isbn" validate:"omitempty,gt=0"`
	PageNumber    int    `json:"pageNumber" validate:"omitempty,gt=0"`
}

// Book converts validated input into a persistable document.
// The published date must already be parsed by the caller.
func (in *CreateBookInput) Book(publishedDate time.Time) *Book {
	language := in.Language
	if language == "" {
		language = LanguageFR
	}
	return &Book{
		Title:         in.Title,
		Author:        in.Author,
		Publisher:     in.Publisher,
		Description:   in.Description,
		Types:         in.Types,
		Language:      language,
		PublishedDate: publishedDate,
		ISBN:          in.ISBN,
		PageNumber:    in.PageNumber,
	}
}

// UpdateBookInput is a partial merge; nil fields are left untouched.
type UpdateBookInput struct {
	Title         *string `json:"title" validate:"omitempty,min=1,max=200"`
	Author        *string `json:"author" validate:"omitempty,min=1"`
	Publisher     *string `json:"publisher" validate:"omitempty,max=200"`
	Description   *string `json:"description" validate:"omitempty,max=1000"`
	Types         *string `json:"types" validate:"omitempty,oneof=Fantaisie Policier SF"`
	Language      *string `json:"language" validate:"omitempty,oneof=fr en"`
	PublishedDate *string `json:"publishedDate"`
	ISBN          *int64  `json:"isbn" validate:"omitempty,gt=0"`
	PageNumber    *int    `json:"pageNumber" validate:"omitempty,gt=0"`
}
