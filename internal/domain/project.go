package domain

import (
	"strings"
	"time"
)

// Project is a portfolio entry shown on the site. JSON names match the
// wire format the frontend already consumes.
type Project struct {
	ID          string    `json:"_id" db:"id" dynamodbav:"id"`
	ImageURL    string    `json:"profilePicture" db:"image_url" dynamodbav:"image_url"`
	Title       string    `json:"projectTitle" db:"title" dynamodbav:"title"`
	Description string    `json:"projectDescription" db:"description" dynamodbav:"description"`
	Link        string    `json:"projectLink" db:"link" dynamodbav:"link"`
	CreatedAt   time.Time `json:"createdAt" db:"created_at" dynamodbav:"created_at"`
	UpdatedAt   time.Time `json:"updatedAt" db:"updated_at" dynamodbav:"updated_at"`
}

// MissingProjectFields is returned when an upload lacks a field or the image.
const MissingProjectFields = "All fields are required, including the image"

// Validate checks the business fields required at creation.
func (p *Project) Validate() error {
	for _, f := range []struct{ name, val string }{
		{"projectTitle", p.Title},
		{"projectDescription", p.Description},
		{"projectLink", p.Link},
		{"profilePicture", p.ImageURL},
	} {
		if strings.TrimSpace(f.val) == "" {
			return &ValidationError{Field: f.name, Message: MissingProjectFields}
		}
	}
	return nil
}
