package entity

import "github.com/google/uuid"

type Course struct {
	Base
	TutorID  uuid.UUID `db:"tutor_id"`
	Title    string    `db:"title"`
	Price    int64     `db:"price"`
	IsActive bool      `db:"is_active"`
}
