package models

import (
	"io"
	"time"
)

// UploadedFile is one part of an incoming multipart batch, not yet written anywhere.
type UploadedFile struct {
	FileName string
	Size     int64
	Open     func() (io.ReadCloser, error)
}

// TempFile represents an uploaded document written to the transient directory.
type TempFile struct {
	FileName   string    `json:"file_name"`
	StoredPath string    `json:"stored_path"`
	MimeType   string    `json:"mime_type"`
	Size       int64     `json:"size"`
	CreatedAt  time.Time `json:"created_at"`
}
