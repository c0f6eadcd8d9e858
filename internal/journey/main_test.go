package journey

import (
	"testing"

	"go.uber.org/goleak"
)

// TestMain checks that closing the repository leaves no goroutines behind
func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}
