package fetcher

// Result represents the outcome of running the retry policy for one ticker.
type Result struct {
	// Ticker is the symbol that was fetched
	Ticker string

	// Value is the fetched metric; nil when the upstream has no data or every attempt failed
	Value *float64

	// Attempts is the number of upstream requests issued
	Attempts int

	// Err is the last attempt's error when the policy ended without success.
	// If Err is not nil, Value is nil.
	Err error
}

// OK reports whether an attempt succeeded.
func (r Result) OK() bool {
	return r.Err == nil
}
