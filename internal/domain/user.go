package domain

import "time"

// UserAccount is an operator login record. No endpoint reads or writes it
// yet; the type is kept so stored documents keep a schema.
type UserAccount struct {
	ID        string    `json:"_id" db:"id" dynamodbav:"id"`
	Name      string    `json:"name" db:"name" dynamodbav:"name"`
	Email     string    `json:"email" db:"email" dynamodbav:"email"`
	Password  string    `json:"-" db:"password" dynamodbav:"password"`
	CreatedAt time.Time `json:"createdAt" db:"created_at" dynamodbav:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at" dynamodbav:"updated_at"`
}
