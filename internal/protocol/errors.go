package protocol

const (
	// Report validation.
	ErrBadRequest = "E_BAD_REQUEST"

	// Resource layer.
	ErrNoResource = "E_NO_RESOURCE"

	// Production gate.
	ErrCapacity     = "E_CAPACITY"
	ErrInsufficient = "E_INSUFFICIENT"

	ErrInternal = "E_INTERNAL"
)

var knownCodes = map[string]struct{}{
	ErrBadRequest:   {},
	ErrNoResource:   {},
	ErrCapacity:     {},
	ErrInsufficient: {},
	ErrInternal:     {},
}

// IsKnownCode reports whether code is empty (success) or a defined code.
func IsKnownCode(code string) bool {
	if code == "" {
		return true
	}
	_, ok := knownCodes[code]
	return ok
}
