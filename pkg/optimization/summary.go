// Package optimization provides shared data structures for optimization results.
package optimization

// Summary reports how a solver adjusted one simulation field against a
// monthly budget.
type Summary struct {
	Scope      string  `json:"scope"`
	TargetName string  `json:"targetName"`
	Field      string  `json:"field"`
	Original   float64 `json:"original"`
	Value      float64 `json:"value"`
	Budget     float64 `json:"budget"`

	// PeakOutflow is the largest monthly outflow of the chosen value, found
	// in PeakMonth.
	PeakOutflow float64 `json:"peakOutflow"`
	PeakMonth   string  `json:"peakMonth,omitempty"`

	// Headroom is Budget minus PeakOutflow; negative when no candidate fits.
	Headroom   float64  `json:"headroom"`
	Iterations int      `json:"iterations"`
	Converged  bool     `json:"converged"`
	Notes      []string `json:"notes,omitempty"`

	OriginalDisplay string `json:"originalDisplay,omitempty"`
	ValueDisplay    string `json:"valueDisplay,omitempty"`
}

// Status describes whether the chosen value fits the budget.
func (s Summary) Status() string {
	if s.Converged {
		return "within budget"
	}
	return "over budget"
}

// Changed reports whether the solver moved the field away from its original
// value.
func (s Summary) Changed() bool {
	return s.Value != s.Original
}
