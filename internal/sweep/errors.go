package sweep

import (
	"errors"
	"fmt"
)

var (
	// ErrDirectoryCreation matches every *DirectoryError.
	ErrDirectoryCreation = errors.New("sweep: directory creation failed")

	// ErrModelBuild matches every *ModelBuildError.
	ErrModelBuild = errors.New("sweep: model build failed")

	// ErrNotFound indicates a missing, unreadable or incompatible sweep state.
	ErrNotFound = errors.New("sweep: state not found")

	// ErrAlreadyBuilt is returned by a second call to Build.
	ErrAlreadyBuilt = errors.New("sweep: already built")

	// ErrNotInitialized is returned when saving a sweep that has no directory.
	ErrNotInitialized = errors.New("sweep: not initialized")
)

// DirectoryError reports a directory that could not be created. Sweep
// directories are never overwritten, so an existing path is also an error.
type DirectoryError struct {
	Path string
	Err  error
}

func (e *DirectoryError) Error() string {
	return fmt.Sprintf("sweep: cannot create directory %s: %v", e.Path, e.Err)
}

func (e *DirectoryError) Unwrap() []error { return []error{ErrDirectoryCreation, e.Err} }

// ModelBuildError reports the sample whose model could not be built.
type ModelBuildError struct {
	Index      int
	Parameters []float64
	Err        error
}

func (e *ModelBuildError) Error() string {
	return fmt.Sprintf("sweep: build model for sample %d %v: %v", e.Index, e.Parameters, e.Err)
}

func (e *ModelBuildError) Unwrap() []error { return []error{ErrModelBuild, e.Err} }
