package store

import (
	"fmt"
	"strings"
)

// URLSeparator joins the driver name and the connection string.
const URLSeparator = ":///"

// MemoryConnString selects an in-memory database.
const MemoryConnString = ":memory:"

// URL is a parsed store address.
type URL struct {
	Driver     string
	ConnString string
}

// ComposeURL builds the store address for driver and connstring.
func ComposeURL(driver, connstring string) string {
	return driver + URLSeparator + connstring
}

// ParseURL splits a composed address at the first separator.
func ParseURL(raw string) (URL, error) {
	driver, conn, ok := strings.Cut(raw, URLSeparator)
	if !ok || driver == "" {
		return URL{}, fmt.Errorf("malformed store url %q: want <driver>%s<connstring>", raw, URLSeparator)
	}

	return URL{Driver: driver, ConnString: conn}, nil
}

// String recomposes u.
func (u URL) String() string {
	return ComposeURL(u.Driver, u.ConnString)
}

// InMemory reports whether u addresses a private in-memory database.
func (u URL) InMemory() bool {
	return u.ConnString == "" || u.ConnString == MemoryConnString
}
