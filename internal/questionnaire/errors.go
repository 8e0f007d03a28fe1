package questionnaire

import "errors"

var (
	// ErrUnknownPool is returned when a pool name is not in the catalog
	ErrUnknownPool = errors.New("questionnaire: unknown pool")

	// ErrEmptyCatalog is returned when a catalog declares no pools
	ErrEmptyCatalog = errors.New("questionnaire: catalog has no pools")

	// ErrInvalidCondition is returned when a visibility condition cannot be evaluated
	ErrInvalidCondition = errors.New("questionnaire: invalid condition")
)
