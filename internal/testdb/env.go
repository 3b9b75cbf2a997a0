package testdb

import (
	"net/url"
	"os"
)

// EnvTestDatabaseURL names the variable that points tests at a database.
const EnvTestDatabaseURL = "LITPOSTER_TEST_DATABASE_URL"

// envDatabaseURL is consulted when EnvTestDatabaseURL is unset, as CI
// services usually export it.
const envDatabaseURL = "DATABASE_URL"

// DatabaseURL returns the configured test database URL, or "" when none is set.
func DatabaseURL() string {
	if u := os.Getenv(EnvTestDatabaseURL); u != "" {
		return u
	}
	return os.Getenv(envDatabaseURL)
}

// ShouldSkipDatabaseTest reports whether no test database is configured.
func ShouldSkipDatabaseTest() bool {
	return DatabaseURL() == ""
}

// MaskURL hides the password of a database URL for logging.
func MaskURL(dbURL string) string {
	u, err := url.Parse(dbURL)
	if err != nil || u.User == nil {
		return dbURL
	}
	if _, ok := u.User.Password(); ok {
		u.User = url.UserPassword(u.User.Username(), "REDACTED")
	}
	return u.String()
}
