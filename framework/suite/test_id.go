package suite

import (
	"strings"
)

// TestID identifies a test scope by the names of the multitest, suite, case and, for a
// parametrized case, the generated case name.
type TestID []string

func (t TestID) String() string {
	return strings.Join(t, "/")
}

func (t TestID) Plus(name string) TestID {
	return append(append(TestID(nil), t...), name)
}

func (t TestID) key() string {
	return strings.Join(t, "\x00")
}
