package csvio

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"abstractscreen/internal/domain"
)

// WriteDecisions emits the screening output in the export shape: one row per
// decision, in decision order, joined with the input titles by reference id.
func WriteDecisions(w io.Writer, abstracts []domain.Abstract, decisions []domain.Decision) error {
	titles := make(map[string]string, len(abstracts))
	for _, a := range abstracts {
		titles[strings.TrimSpace(a.ReferenceID)] = a.Title
	}

	writer := csv.NewWriter(w)
	if err := writer.Write([]string{"reference_id", "title", "decision", "reasoning", "needs_review"}); err != nil {
		return fmt.Errorf("csvio: write header: %w", err)
	}

	for _, d := range decisions {
		row := []string{
			d.ReferenceID,
			titles[d.ReferenceID],
			string(d.Outcome),
			d.Reasoning,
			strconv.FormatBool(d.NeedsReview),
		}
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("csvio: write decision %s: %w", d.ReferenceID, err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("csvio: flush: %w", err)
	}
	return nil
}
