// Package models defines the domain types shared by storage, index and the
// document service.
package models

import "time"

// DocumentMetadata is a lightweight representation returned by list operations.
type DocumentMetadata struct {
	Path      string    `json:"path"`
	Checksum  string    `json:"checksum"`
	Size      int64     `json:"size"`
	UpdatedAt time.Time `json:"updated_at"`
}

// BlockRow is one block of an indexed document.
type BlockRow struct {
	Position int    `json:"position"`
	Type     string `json:"type"`
	Content  string `json:"content"`
}
