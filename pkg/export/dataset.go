package export

import "fmt"

// Dataset is tabular report content shared by every renderer.
type Dataset struct {
	Title    string
	Subtitle []string
	Headers  []string
	Rows     [][]string
}

// Validate checks that the dataset has headers and that no row is wider than them.
func (d Dataset) Validate() error {
	if len(d.Headers) == 0 {
		return fmt.Errorf("dataset requires at least one header")
	}
	for i, row := range d.Rows {
		if len(row) > len(d.Headers) {
			return fmt.Errorf("row %d has %d cells for %d headers", i, len(row), len(d.Headers))
		}
	}
	return nil
}

func (d Dataset) cell(row []string, i int) string {
	if i < len(row) {
		return row[i]
	}
	return ""
}
