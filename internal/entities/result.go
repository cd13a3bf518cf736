package entities

// CandidateRow is one row returned by an executed filter query.
type CandidateRow struct {
	CandidateKey string
	MatchCount   *int
	Values       []any
}

type QueryResult struct {
	Columns []string
	Rows    []CandidateRow
}

func (r QueryResult) Keys() []string {
	keys := make([]string, 0, len(r.Rows))
	for _, row := range r.Rows {
		keys = append(keys, row.CandidateKey)
	}
	return keys
}
