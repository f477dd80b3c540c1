// Package domain defines domain-level errors for the widgets feature.
package domain

import "errors"

var (
	// ErrInvalidKey indicates a payload key with an unknown kind or an invalid parameter.
	ErrInvalidKey = errors.New("invalid widget key")

	// ErrNoPost indicates that an upstream listing contained no usable post.
	ErrNoPost = errors.New("no post available")
)
