// Package csvio adapts spreadsheet exports to and from the screening domain.
package csvio

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"abstractscreen/internal/domain"
)

// Header aliases accepted for each column, lowercased. Reference managers
// disagree on naming, so the reader maps by meaning rather than position.
var (
	idHeaders          = []string{"reference_id", "referenceid", "ref_id", "id"}
	titleHeaders       = []string{"title", "article_title"}
	abstractHeaders    = []string{"abstract_text", "abstract", "abstracttext"}
	groundTruthHeaders = []string{"ground_truth", "ground_truth_decision", "expert_decision"}
)

// ReadAbstracts parses a CSV export into abstract records. The first row
// must be a header containing at least a reference id, title, and abstract
// column; ground truth is optional. Records are validated as a batch so
// duplicates surface before any screening starts.
func ReadAbstracts(r io.Reader) ([]domain.Abstract, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("csvio: input is empty")
	}
	if err != nil {
		return nil, fmt.Errorf("csvio: read header: %w", err)
	}

	idx := struct{ id, title, abstract, truth int }{
		id:       findColumn(header, idHeaders),
		title:    findColumn(header, titleHeaders),
		abstract: findColumn(header, abstractHeaders),
		truth:    findColumn(header, groundTruthHeaders),
	}
	if idx.id < 0 {
		return nil, fmt.Errorf("csvio: no reference id column found (want one of %s)", strings.Join(idHeaders, ", "))
	}
	if idx.title < 0 {
		return nil, fmt.Errorf("csvio: no title column found")
	}
	if idx.abstract < 0 {
		return nil, fmt.Errorf("csvio: no abstract column found")
	}

	var abstracts []domain.Abstract
	for line := 2; ; line++ {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("csvio: line %d: %w", line, err)
		}

		record := domain.Abstract{
			ReferenceID:  field(row, idx.id),
			Title:        field(row, idx.title),
			AbstractText: field(row, idx.abstract),
			GroundTruth:  field(row, idx.truth),
		}
		if err := record.Validate(); err != nil {
			return nil, fmt.Errorf("csvio: line %d: %w", line, err)
		}
		abstracts = append(abstracts, record)
	}

	if len(abstracts) == 0 {
		return nil, fmt.Errorf("csvio: input contains no records")
	}
	if err := domain.ValidateBatch(abstracts); err != nil {
		return nil, fmt.Errorf("csvio: %w", err)
	}
	return abstracts, nil
}

func findColumn(header []string, aliases []string) int {
	for i, name := range header {
		name = strings.ToLower(strings.TrimSpace(name))
		for _, alias := range aliases {
			if name == alias {
				return i
			}
		}
	}
	return -1
}

func field(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}
