package weather

// Assemble joins the aggregate with the records it was computed from. The
// records are copied and ordered most recent year first.
func Assemble(agg Aggregate, records []HistoricalRecord) PredictionResult {
	history := make([]HistoricalRecord, len(records))
	copy(history, records)
	SortByYearDesc(history)

	return PredictionResult{
		Prediction:     agg.Prediction,
		Confidence:     agg.Confidence,
		HistoricalData: history,
		Statistics:     agg.Statistics,
		Analysis:       agg.Analysis,
	}
}
