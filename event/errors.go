package event

import "errors"

// ErrStopPropagation stops delivery to later listeners without being
// treated as a failure.
var ErrStopPropagation = errors.New("event: stop propagation")
