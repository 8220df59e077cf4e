package main

// Build-time variables 'version', 'commit', and 'date' are declared in
// root.go and populated via -ldflags.

// main invokes Execute (defined in root.go), which sets up and runs the
// root Cobra command. Error printing and the exit code are handled by
// Cobra based on the error returned from RunE.
func main() {
	Execute()
}
