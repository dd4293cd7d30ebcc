package models

import "errors"

// Errors shared by the fetch strategies. Packages wrap them with context
// and the HTTP layer maps them to a status code with errors.Is.
var (
	ErrValidation       = errors.New("validation failed")
	ErrFetchFailed      = errors.New("fetch failed")
	ErrArtifactNotFound = errors.New("artifact not found")
	ErrNoDownloadURL    = errors.New("no download url")
	ErrMetadataParse    = errors.New("metadata parse failed")
)
