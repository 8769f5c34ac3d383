// Package testing switches the process into test mode when blank-imported
// from a test, so entry points return before touching printers or the
// network.
package testing

import (
	"os"
	"sync"
	stdtesting "testing"
)

// testEnv fills variables the config loader requires. Values already set by
// the caller are kept, except POS_TEST_MODE which is always forced on.
var testEnv = []struct {
	key, value string
	force      bool
}{
	{key: "POS_TEST_MODE", value: "1", force: true},
	{key: "LEDGER_BASE_URL", value: "http://127.0.0.1:0"},
	{key: "GOTENBERG_URL", value: "http://127.0.0.1:0"},
	{key: "CATALOG_STORE", value: "memory"},
}

var once sync.Once

func ensureTestMode() {
	once.Do(func() {
		for _, kv := range testEnv {
			if _, set := os.LookupEnv(kv.key); set && !kv.force {
				continue
			}
			_ = os.Setenv(kv.key, kv.value)
		}
	})
}

func init() {
	ensureTestMode()
}

func TestMain(m *stdtesting.M) {
	ensureTestMode()
	os.Exit(m.Run())
}
