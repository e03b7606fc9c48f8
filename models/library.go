package models

import "go.mongodb.org/mongo-driver/bson/primitive"

type Library struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name         string             `bson:"name" json:"name"`
	Localisation string             `bson:"localisation" json:"localisation"`
}

type CreateLibraryInput struct {
	Name         string `json:"name" validate:"required"`
	Localisation string `json:"localisation" validate:"required"`
}

func (in *CreateLibraryInput) Library() *Library {
	return &Library{Name: in.Name, Localisation: in.Localisation}
}

type UpdateLibraryInput struct {
	Name         *string `json:"name" validate:"omitempty,min=1"`
	Localisation *string `json:"localisation" validate:"omitempty,min=1"`
}
