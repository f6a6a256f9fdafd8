package integration

import (
	"fmt"
	"time"
)

// TestCredentials generates unique employee credentials using timestamp
func TestCredentials(suffix string) (badge, username, email, password string) {
	ts := time.Now().UnixNano()
	badge = fmt.Sprintf("EMP-%d-%s", ts, suffix)
	username = fmt.Sprintf("user-%d-%s", ts, suffix)
	email = fmt.Sprintf("test-%d-%s@example.com", ts, suffix)
	password = "TestPassword123!"
	return
}
