package ontology

import (
	"time"
)

type Pack struct {
	PackID    string    `json:"pack_id" db:"pack_id"`
	Name      string    `json:"name" db:"name"`
	Territory string    `json:"territory,omitempty" db:"territory"`
	Metadata  string    `json:"metadata,omitempty" db:"metadata"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

type CreatePackRequest struct {
	Name      string                 `json:"name" validate:"required,min=1,max=255"`
	Territory string                 `json:"territory,omitempty"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
}
