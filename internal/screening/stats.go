package screening

import (
	"strings"

	"abstractscreen/internal/domain"
)

// Stats summarizes a run for progress reporting and the final log line.
type Stats struct {
	Succeeded   int
	Failed      int
	Pending     int
	Included    int
	Excluded    int
	NeedsReview int
}

// InclusionRate is the share of screened (non-Error) decisions that were
// Include, as a percentage.
func (s Stats) InclusionRate() float64 {
	screened := s.Included + s.Excluded
	if screened == 0 {
		return 0
	}
	return float64(s.Included) / float64(screened) * 100
}

// ErrorRate is the share of decided items that ended in a processing error,
// as a percentage.
func (s Stats) ErrorRate() float64 {
	decided := s.Succeeded + s.Failed
	if decided == 0 {
		return 0
	}
	return float64(s.Failed) / float64(decided) * 100
}

func computeStats(decisions []domain.Decision, total int) Stats {
	stats := Stats{Pending: total - len(decisions)}
	for _, d := range decisions {
		switch d.Outcome {
		case domain.OutcomeInclude:
			stats.Included++
			stats.Succeeded++
		case domain.OutcomeExclude:
			stats.Excluded++
			stats.Succeeded++
		case domain.OutcomeError:
			stats.Failed++
		}
		if d.NeedsReview {
			stats.NeedsReview++
		}
	}
	return stats
}

// GroundTruthReport compares model decisions with expert decisions carried
// on the input records. Records without a ground truth are skipped; Error
// decisions never count as agreement.
type GroundTruthReport struct {
	Compared      int
	Agreements    int
	Disagreements int
	Accuracy      float64
}

// CompareGroundTruth builds the accuracy report for a finished run. The
// ground truth is reporting-only input; nothing in the pipeline reads it.
func CompareGroundTruth(decisions []domain.Decision, abstracts []domain.Abstract) GroundTruthReport {
	truth := make(map[string]string, len(abstracts))
	for _, a := range abstracts {
		if gt := strings.TrimSpace(a.GroundTruth); gt != "" {
			truth[strings.TrimSpace(a.ReferenceID)] = gt
		}
	}

	var report GroundTruthReport
	for _, d := range decisions {
		expected, ok := truth[d.ReferenceID]
		if !ok || d.Failed() {
			continue
		}
		report.Compared++
		if strings.EqualFold(expected, string(d.Outcome)) {
			report.Agreements++
		}
	}
	report.Disagreements = report.Compared - report.Agreements
	if report.Compared > 0 {
		report.Accuracy = float64(report.Agreements) / float64(report.Compared) * 100
	}
	return report
}
