package models

import (
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"helpdesk-app/internal/utils"
)

type Category struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name        string             `bson:"name" json:"name" validate:"required,min=2,max=50"`
	Description string             `bson:"description" json:"description" validate:"max=500"`
	Color       string             `bson:"color" json:"color" validate:"required,hexcolor"`
	Active      bool               `bson:"active" json:"active"`
	CreatedBy   primitive.ObjectID `bson:"created_by" json:"created_by"`
	CreatedAt   time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt   time.Time          `bson:"updated_at" json:"updated_at"`
}

func (c *Category) Validate() error {
	validate := utils.GetValidator()
	if err := validate.Struct(c); err != nil {
		errs := utils.ParseErrors(err)
		return fmt.Errorf("%w: %s", ErrValidation, strings.Join(errs, " // "))
	}
	return nil
}

// Normalize stores the color with a leading '#' so the frontend can use it as-is.
func (c *Category) Normalize() {
	c.Name = strings.TrimSpace(c.Name)
	c.Description = strings.TrimSpace(c.Description)
	if c.Color != "" && !strings.HasPrefix(c.Color, "#") {
		c.Color = "#" + c.Color
	}
}
