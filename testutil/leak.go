package testutil

import (
	"testing"

	"go.uber.org/goleak"
)

// VerifyNoLeaks fails the test if goroutines outlive it. Register with
// defer at the top of tests that start goroutine-owning components.
func VerifyNoLeaks(t *testing.T) {
	t.Helper()
	goleak.VerifyNone(t,
		// opencensus-style background samplers from OTel SDKs are not ours
		goleak.IgnoreTopFunction("go.opencensus.io/stats/view.(*worker).start"),
		// ants starts a package-level default pool on import; its purge and
		// clock goroutines live for the whole process and are not ours
		goleak.IgnoreTopFunction("github.com/panjf2000/ants/v2.(*poolCommon).purgeStaleWorkers"),
		goleak.IgnoreTopFunction("github.com/panjf2000/ants/v2.(*poolCommon).ticktock"),
	)
}
