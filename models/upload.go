package models

import "io"

// ImageUpload is an image received from a client, not yet stored.
type ImageUpload struct {
	Reader   io.Reader
	Size     int64
	Filename string
}
