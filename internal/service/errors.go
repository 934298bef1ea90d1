package service

import "errors"

// ErrImageUnavailable marks an image that exists but is soft-deleted along
// with its uploader's account and therefore cannot be attached.
var ErrImageUnavailable = errors.New("image unavailable")
