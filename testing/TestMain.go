package testing

import (
	"os"
	"sync"
	stdtesting "testing"
)

var once sync.Once

func ensureTestMode() {
	once.Do(func() {
		_ = os.Setenv("WMS_CONSOLE_TEST_MODE", "1")
		if os.Getenv("WMS_API_URL") == "" {
			_ = os.Setenv("WMS_API_URL", "http://127.0.0.1:0")
		}
		if os.Getenv("AUDIT_MODE") == "" {
			_ = os.Setenv("AUDIT_MODE", "off")
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
