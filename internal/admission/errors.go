package admission

import "errors"

var ErrCounterUnavailable = errors.New("admission counter unavailable")
