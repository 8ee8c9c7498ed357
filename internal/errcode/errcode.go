package errcode

// Error code conventions:
// - 0: no error
// - 4xxx: recoverable business warnings (a missing resource the flow can survive)
// - 5xxx: system errors that must interrupt the flow
const (
	OK              = 0
	ResourceMissing = 4004
	SystemError     = 5000
)
