package testutil_test

// Note: Mocks generated using testify/mock generally follow a standard pattern
// and encapsulate minimal logic themselves. Their primary purpose is to act as
// configurable test doubles for dependency injection.
//
// Therefore, dedicated unit tests for the mock implementations themselves
// (`mocks.go`) are usually not necessary unless a mock contains complex
// internal logic beyond simply recording calls and returning configured values.
//
// The correctness of mock usage is typically verified within the unit tests
// of the components that *consume* these mocks (e.g., testing `Processor`
// logic by injecting `MockParser`, `MockEncodingHandler`, etc., and asserting
// that the `Processor` interacts with the mocks as expected).
