package model

import "io"

// UploadSession holds the short-lived write credential for one direct upload.
// It exists only for the duration of a single upload call and is never
// persisted.
type UploadSession struct {
	ContentType string `json:"content_type"`
	UploadURL   string `json:"upload_url"`
	FinalURL    string `json:"avatar_url"`
}

// UploadFile describes the binary payload handed to the upload pipeline.
type UploadFile struct {
	Name        string
	ContentType string
	Size        int64
	Body        io.Reader
}

type UploadPhase string

const (
	PhaseAcquire  UploadPhase = "acquire"
	PhaseTransfer UploadPhase = "transfer"
	PhaseCommit   UploadPhase = "commit"
)
