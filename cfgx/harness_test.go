package cfgx

import "testing"

// testCase is the shared shape for table-driven tests in this package.
type testCase struct {
	name string
	run  func(t *testing.T)
}

// runTestCases runs each case under t.Run, skipping entries with no body.
func runTestCases(t *testing.T, cases []testCase) {
	t.Helper()
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			if tc.run == nil {
				t.Skip("no-op test case")
				return
			}
			tc.run(t)
		})
	}
}
