package crm

// StageList returns the distinct pipeline-stage labels observed across
// records, in first-seen order. The stage is taken from the first status
// entry per record; records lacking a stage, a stage ID, or a stage title
// are excluded.
func StageList(records []Record) []string {
	seen := make(map[string]bool, len(records))
	var stages []string
	for _, r := range records {
		st := r.Stage()
		if st == nil || st.ID.StatusID == "" || st.Title == "" {
			continue
		}
		if seen[st.ID.StatusID] {
			continue
		}
		seen[st.ID.StatusID] = true
		stages = append(stages, st.Title)
	}
	return stages
}

// StageSummary aggregates the deals within one pipeline stage.
type StageSummary struct {
	Count      int         `json:"count"`
	TotalValue float64     `json:"total_value"`
	Deals      []DealBrief `json:"deals"`
}

// DealBrief is the name/value pair listed per deal in a summary.
type DealBrief struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
}

// Summarize buckets records by stage title and totals their monetary
// values. Records lacking a stage are bucketed under "Unknown"; records
// lacking a name are listed as "Unknown".
func Summarize(records []Record) map[string]*StageSummary {
	summary := make(map[string]*StageSummary)
	for _, r := range records {
		label := unknownLabel
		if st := r.Stage(); st != nil && st.Title != "" {
			label = st.Title
		}

		bucket, ok := summary[label]
		if !ok {
			bucket = &StageSummary{}
			summary[label] = bucket
		}

		value := r.Amount()
		bucket.Count++
		bucket.TotalValue += value
		bucket.Deals = append(bucket.Deals, DealBrief{Name: r.Name(), Value: value})
	}
	return summary
}
