package model

import "time"

// Document is the local registry record of one versioned content object held
// in the remote content store.
// This is a pure domain model with no database-specific dependencies or tags.
// StoreObjectID stays nil until the object has been materialized in the store;
// it is only written back after a successful store create.
type Document struct {
	ID              string     `json:"id"`
	Identifier      string     `json:"identifier"`
	StoreObjectID   *string    `json:"store_object_id,omitempty"`
	Title           string     `json:"title"`
	Description     string     `json:"description"`
	Author          string     `json:"author"`
	Language        string     `json:"language"`
	Confidentiality string     `json:"confidentiality"`
	CreationDate    *time.Time `json:"creation_date,omitempty"`
	ReceiptDate     *time.Time `json:"receipt_date,omitempty"`
	SendDate        *time.Time `json:"send_date,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// Materialized reports whether the document already has a backing store object.
func (d *Document) Materialized() bool {
	return d.StoreObjectID != nil && *d.StoreObjectID != ""
}
