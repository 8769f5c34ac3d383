package app

import (
	"os"
	"strconv"
	"sync"
	"sync/atomic"
)

const testModeEnv = "POS_TEST_MODE"

var testMode struct {
	once sync.Once
	on   atomic.Bool
}

func loadTestMode() {
	on, _ := strconv.ParseBool(os.Getenv(testModeEnv))
	testMode.on.Store(on)
}

// InTestMode reports whether entry points should return before touching
// printers, Redis or the ledger. POS_TEST_MODE accepts any strconv.ParseBool
// value and is read once.
func InTestMode() bool {
	testMode.once.Do(loadTestMode)
	return testMode.on.Load()
}

// RefreshTestMode re-reads POS_TEST_MODE.
func RefreshTestMode() {
	testMode.once.Do(func() {})
	loadTestMode()
}
