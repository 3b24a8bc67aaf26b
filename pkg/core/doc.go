// Package core defines the shared language of deployhook.
//
// This package contains:
//   - Domain entities (Repo, App, Release, Job)
//   - Service interfaces (Store)
//   - Sentinel errors shared by storage and transport layers
//
// The Golden Rule: pkg/core imports ONLY stdlib.
// All other packages depend on core, not the reverse.
package core
