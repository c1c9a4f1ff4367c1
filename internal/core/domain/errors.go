package domain

import "go.trai.ch/zerr"

var (
	// ErrUnitAlreadyExists is returned when adding a unit whose ID is already registered.
	ErrUnitAlreadyExists = zerr.New("unit already exists")

	// ErrCorruptState is returned when persisted unit-graph state cannot be decoded.
	ErrCorruptState = zerr.New("corrupt state")

	// ErrCorruptCache is returned when the persisted cache file cannot be decoded.
	ErrCorruptCache = zerr.New("corrupt cache")

	// ErrNoFilesSpecified is returned when a build is requested without any files.
	ErrNoFilesSpecified = zerr.New("no files specified")

	// ErrFileNotConfigured is returned when a build names a file absent from the configuration.
	ErrFileNotConfigured = zerr.New("file not configured")

	// ErrCompilationFailed is returned when the external compiler fails for a unit.
	ErrCompilationFailed = zerr.New("compilation failed")
)
