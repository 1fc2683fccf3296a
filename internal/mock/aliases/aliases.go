package aliases

// This file contains interfaces for function types that are passed
// around as callbacks. Mocks are generated for these interfaces, so
// that tests can set expectations on the callbacks being invoked by
// passing a method value like mock.Call.

// CompletionHandler is called when a simulated device request
// completes.
type CompletionHandler interface {
	Call()
}
