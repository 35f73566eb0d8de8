// Package gomegax contains Gomega matchers.
package gomegax

import (
	"fmt"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/onsi/gomega/format"
	"github.com/onsi/gomega/types"
)

// EqualX returns a matcher that succeeds if the actual value is equal to
// expected according to cmp.Equal().
//
// If no options are given, nil and empty slices and maps are equal.
func EqualX(expected any, opts ...cmp.Option) types.GomegaMatcher {
	if len(opts) == 0 {
		opts = []cmp.Option{cmpopts.EquateEmpty()}
	}

	return &cmpMatcher{expected, opts}
}

type cmpMatcher struct {
	expected any
	opts     cmp.Options
}

func (m *cmpMatcher) Match(actual any) (bool, error) {
	return cmp.Equal(actual, m.expected, m.opts), nil
}

func (m *cmpMatcher) FailureMessage(actual any) string {
	return m.message(actual, "to equal")
}

func (m *cmpMatcher) NegatedFailureMessage(actual any) string {
	return m.message(actual, "not to equal")
}

func (m *cmpMatcher) message(actual any, relation string) string {
	return fmt.Sprintf(
		"%s\n\nDiff (-expected +actual):\n%s",
		format.Message(actual, relation, m.expected),
		format.IndentString(cmp.Diff(m.expected, actual, m.opts), 1),
	)
}
