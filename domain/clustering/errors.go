package clustering

import "errors"

// Input errors returned by the engine. Callers classify them with errors.Is.
var (
	ErrEmptyDataset      = errors.New("dataset is empty")
	ErrInvalidK          = errors.New("k must be at least 1")
	ErrCentroidCount     = errors.New("number of centroids must equal k")
	ErrInvalidPointCount = errors.New("number of points must be at least 1")
	ErrUnknownSeedMethod = errors.New("unknown seeding method")
	ErrMalformedPoint    = errors.New("point must be an array of two numbers")
)

// IsInputError reports whether err was caused by invalid caller input
func IsInputError(err error) bool {
	return errors.Is(err, ErrEmptyDataset) ||
		errors.Is(err, ErrInvalidK) ||
		errors.Is(err, ErrCentroidCount) ||
		errors.Is(err, ErrInvalidPointCount) ||
		errors.Is(err, ErrUnknownSeedMethod) ||
		errors.Is(err, ErrMalformedPoint)
}
