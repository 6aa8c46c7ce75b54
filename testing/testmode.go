// Package testing switches the process into test mode on import so binaries
// under test skip network side effects.
package testing

import (
	"os"
	"sync"
)

var once sync.Once

// EnsureTestMode sets ODYSSEY_TEST_MODE once per process.
func EnsureTestMode() {
	once.Do(func() {
		_ = os.Setenv("ODYSSEY_TEST_MODE", "1")
	})
}

func init() {
	EnsureTestMode()
}
