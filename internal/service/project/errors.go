package project

import "errors"

// Sentinel errors for the project service layer.
var (
	ErrNotFound    = errors.New("project not found")
	ErrImageUpload = errors.New("image upload failed")
)
