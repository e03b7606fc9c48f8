package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// DefaultLoanPeriod is applied when a loan is created without a due date.
const DefaultLoanPeriod = 14 * 24 * time.Hour

type Loan struct {
	ID       primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Book     primitive.ObjectID `bson:"book" json:"book"`
	User     primitive.ObjectID `bson:"user" json:"user"`
	Library  primitive.ObjectID `bson:"library" json:"library"`
	LoanDate time.Time          `bson:"loanDate" json:"loanDate"`
	// ReturnDate is the due date, not the actual return timestamp.
	ReturnDate time.Time `bson:"returnDate" json:"returnDate"`
	Returned   bool      `bson:"returned" json:"returned"`
}

type CreateLoanInput struct {
	Book       string `json:"book" validate:"required"`
	User       string `json:"user" validate:"required"`
	Library    string `json:"library" validate:"required"`
	ReturnDate string `json:"returnDate"`
}

// UpdateLoanInput covers the two mutable loan fields. Re-pointing a loan at
// another book, user, or library is not supported.
type UpdateLoanInput struct {
	Returned   *bool   `json:"returned"`
	ReturnDate *string `json:"returnDate"`
}

// Summaries embedded in joined loan views. Field sets match what list and
// detail endpoints expose for each referenced entity.

type BookSummary struct {
	ID         primitive.ObjectID `bson:"_id" json:"id"`
	Title      string             `bson:"title" json:"title"`
	Author     string             `bson:"author" json:"author"`
	ISBN       int64              `bson:"isbn,omitempty" json:"isbn,omitempty"`
	PageNumber int                `bson:"pageNumber,omitempty" json:"pageNumber,omitempty"`
}

type UserSummary struct {
	ID        primitive.ObjectID `bson:"_id" json:"id"`
	FirstName string             `bson:"firstName" json:"firstName"`
	LastName  string             `bson:"lastName" json:"lastName"`
	Email     string             `bson:"email,omitempty" json:"email,omitempty"`
	Phone     string             `bson:"phone,omitempty" json:"phone,omitempty"`
}

type LibrarySummary struct {
	ID           primitive.ObjectID `bson:"_id" json:"id"`
	Name         string             `bson:"name" json:"name"`
	Localisation string             `bson:"localisation" json:"localisation"`
}

// LoanView is a loan with its three references expanded for display.
type LoanView struct {
	ID         primitive.ObjectID `bson:"_id" json:"id"`
	Book       BookSummary        `bson:"book" json:"book"`
	User       UserSummary        `bson:"user" json:"user"`
	Library    LibrarySummary     `bson:"library" json:"library"`
	LoanDate   time.Time          `bson:"loanDate" json:"loanDate"`
	ReturnDate time.Time          `bson:"returnDate" json:"returnDate"`
	Returned   bool               `bson:"returned" json:"returned"`
}

// OverdueLoan annotates a joined loan with how many whole days past due it is.
type OverdueLoan struct {
	LoanView    `bson:",inline"`
	DaysOverdue int `bson:"-" json:"daysOverdue"`
}

// DaysOverdue computes the whole days elapsed since the due date.
func DaysOverdue(returnDate, now time.Time) int {
	if !now.After(returnDate) {
		return 0
	}
	return int(now.Sub(returnDate).Hours() / 24)
}
