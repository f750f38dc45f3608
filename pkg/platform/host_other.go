//go:build !unix

package platform

// Host returns the platform described by the Go toolchain constants.
func Host() Info {
	return Go()
}
