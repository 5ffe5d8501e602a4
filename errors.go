package gotransit

import "errors"

var (
	// ErrUnknownModel is returned for a model name outside the supported set.
	ErrUnknownModel = errors.New("unknown transit model")
	// ErrLDCCount is returned when the limb darkening coefficient count does not fit the model.
	ErrLDCCount = errors.New("wrong number of limb darkening coefficients")
	// ErrRadiusRatioOutOfRange is returned when k falls outside the interpolation table limits.
	ErrRadiusRatioOutOfRange = errors.New("radius ratio outside interpolation table limits")
	// ErrNotConfigured is returned when evaluating before SetData.
	ErrNotConfigured = errors.New("model data not set")
	ErrInvalidData   = errors.New("invalid dataset")
	ErrInvalidOrbit  = errors.New("invalid orbit")
	ErrInvalidTable  = errors.New("invalid interpolation table")
	ErrInvalidParams = errors.New("invalid parameters")
	ErrTableNotFound = errors.New("interpolation table not found")
)
