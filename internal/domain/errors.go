package domain

import "errors"

// Sentinel errors used across layers.
var (
	ErrNotFound            = errors.New("not found")
	ErrClosed              = errors.New("engine is closed")
	ErrUnknownVoice        = errors.New("unknown voice")
	ErrInvalidAnnouncement = errors.New("invalid announcement")
	ErrRender              = errors.New("template render failed")
	ErrNotImplemented      = errors.New("not implemented")
)
