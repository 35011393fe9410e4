package scenario

import "errors"

var (
	// ErrMissingName indicates no scenario name was given by the file or
	// the command line.
	ErrMissingName = errors.New("scenario: name is mandatory (file field or -n flag)")

	// ErrUnsupportedType indicates an unknown scenario type.
	ErrUnsupportedType = errors.New("scenario: unsupported type")

	// ErrMissingCommand indicates neither command nor command-file was set.
	ErrMissingCommand = errors.New("scenario: command or command-file is required")

	// ErrBadRange indicates a malformed range expression in a parameter list.
	ErrBadRange = errors.New("scenario: invalid range expression")
)
