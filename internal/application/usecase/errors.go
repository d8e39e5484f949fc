package usecase

import "errors"

// Sentinel errors the presentation layers map to transport status codes.
var (
	ErrInvalidTarget      = errors.New("invalid target")
	ErrInvalidFeedback    = errors.New("invalid feedback")
	ErrAssessmentNotFound = errors.New("assessment not found")
)
