// Package company holds the company roster and the records produced by enriching it.
package company

// Company is a roster entry.
type Company struct {
	Name   string `yaml:"name" json:"name"`
	Ticker string `yaml:"ticker" json:"ticker"`
}

// Record is a company augmented with its ATFCF figure.
// A nil ATFCF means no data is available for the ticker.
type Record struct {
	Name   string   `json:"name"`
	Ticker string   `json:"ticker"`
	ATFCF  *float64 `json:"atfcf"`
}

// NewRecord builds the record for c. The value is copied so the record
// does not alias the caller's memory.
func NewRecord(c Company, atfcf *float64) Record {
	r := Record{Name: c.Name, Ticker: c.Ticker}
	if atfcf != nil {
		v := *atfcf
		r.ATFCF = &v
	}
	return r
}

// HasData reports whether the record carries a figure.
func (r Record) HasData() bool {
	return r.ATFCF != nil
}

// CountWithData returns how many records carry a figure.
func CountWithData(records []Record) int {
	n := 0
	for _, r := range records {
		if r.HasData() {
			n++
		}
	}
	return n
}
