package source

import "errors"

var (
	// ErrEmptyDomain is returned for an empty or whitespace-only domain.
	ErrEmptyDomain = errors.New("domain is empty")

	// ErrSourceRepositoryRequired is returned when a Resolver is built without a repository.
	ErrSourceRepositoryRequired = errors.New("source repository is required")

	// ErrNoSourceID is returned when the store accepts a Source without assigning an ID.
	ErrNoSourceID = errors.New("store returned a source without an id")

	// ErrCompleterRequired is returned when a Summarizer is built without a completer.
	ErrCompleterRequired = errors.New("completer is required")
)
