package practice

import (
	"testing"

	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	// The genai client's opencensus dependency starts a stats worker in init.
	goleak.VerifyTestMain(m, goleak.IgnoreTopFunction("go.opencensus.io/stats/view.(*worker).start"))
}
