package object

import "errors"

// ErrNotFound reports a read of a hash the store does not contain.
var ErrNotFound = errors.New("object not found")

// ErrIntegrity reports an object whose stored bytes no longer hash to its
// name. It is fatal: the store never repairs or masks corruption.
var ErrIntegrity = errors.New("object integrity violation")
