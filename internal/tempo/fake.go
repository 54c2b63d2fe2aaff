package tempo

import "context"

// FakeClient returns a canned result for test assertions.
type FakeClient struct {
	// Result is returned by TomorrowColor when Err is nil.
	Result Result

	// Err, if set, is returned by TomorrowColor.
	Err error

	// Calls counts TomorrowColor invocations.
	Calls int
}

// TomorrowColor returns the canned result.
func (f *FakeClient) TomorrowColor(ctx context.Context) (Result, error) {
	f.Calls++
	if f.Err != nil {
		return Result{}, f.Err
	}
	return f.Result, nil
}
