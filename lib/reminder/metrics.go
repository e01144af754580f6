package reminder

import "encoding/json"

type passMetrics struct {
	total  int
	sent   int
	pruned int
	failed int
}

func (m *passMetrics) Report() *Report {
	return &Report{
		Sent:   m.sent,
		Pruned: m.pruned,
		Total:  m.total,
	}
}

// Report is the outcome of one reminder pass. Exactly one of three shapes is
// rendered: {skipped}, {sent: 0, reason} or {sent, pruned, total}.
type Report struct {
	Sent   int
	Pruned int
	Total  int

	// Skipped is set when the pass ran on a non-reminder day.
	Skipped string
	// Reason is set when the pass had no work, e.g. no subscriptions exist.
	Reason string
}

func (r *Report) MarshalJSON() ([]byte, error) {
	switch {
	case r.Skipped != "":
		return json.Marshal(map[string]string{"skipped": r.Skipped})
	case r.Reason != "":
		return json.Marshal(map[string]any{"sent": 0, "reason": r.Reason})
	default:
		return json.Marshal(map[string]int{
			"sent":   r.Sent,
			"pruned": r.Pruned,
			"total":  r.Total,
		})
	}
}
