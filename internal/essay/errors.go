package essay

import "errors"

// UpstreamError marks a failure of the completion service.
type UpstreamError struct {
	nested error
}

func (e *UpstreamError) Error() string {
	return "completion service failed: " + e.nested.Error()
}

func (e *UpstreamError) Unwrap() error {
	return e.nested
}

func IsUpstream(err error) bool {
	upstream := &UpstreamError{}
	return errors.As(err, &upstream)
}
