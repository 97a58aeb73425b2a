/*
Package errors provides semantic error types for contentguard.

The package defines common error scenarios with specific types that can be
checked using the standard errors.Is() function or the provided helper functions.

Common Errors:

	var (
	    ErrNotFound          = errors.New("not found")
	    ErrAlreadyExists     = errors.New("already exists")
	    ErrInvalidInput      = errors.New("invalid input")
	    ErrConditionFailed   = errors.New("condition check failed")
	    ErrMalformedEnvelope = errors.New("malformed envelope")
	    ErrClassification    = errors.New("classification failed")
	    ErrEnforcement       = errors.New("enforcement failed")
	)

Usage:

	result, err := adapter.Classify(ctx, ev)
	if err != nil {
	    if errors.IsClassification(err) {
	        // leave the object untouched, acknowledge, log
	    }
	}

	err := errors.NewEnvelopeError("missing message.data", nil)
	err := errors.NewEnforcementError("bucket/key", cause)

The error types implement the error interface and support wrapping,
making them compatible with Go's standard error handling patterns.
*/
package errors
