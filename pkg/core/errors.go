package core

import "errors"

// Sentinel errors shared by the store implementations and HTTP handlers.
var (
	ErrRepoNotFound = errors.New("repo not found")
	ErrRepoExists   = errors.New("repo already exists")
	ErrInvalidRepo  = errors.New("both name and app are required")
)
