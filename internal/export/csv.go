package export

import (
	"encoding/csv"
	"io"

	"github.com/boddenberg/donations-ledger-go/internal/domain"
)

// WriteCSV writes a header row and one row per record. Fields containing the
// delimiter, a quote or a line break are quoted with embedded quotes doubled.
func WriteCSV(w io.Writer, records []domain.Donation, labels FrequencyLabels) error {
	return writeCSV(w, Columns, records, labels)
}

// WriteDonorHistory writes one donor's records without the donor columns.
func WriteDonorHistory(w io.Writer, records []domain.Donation, labels FrequencyLabels) error {
	return writeCSV(w, HistoryColumns, records, labels)
}

func writeCSV(w io.Writer, cols []Column, records []domain.Donation, labels FrequencyLabels) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(headers(cols)); err != nil {
		return err
	}
	for i := range records {
		if err := cw.Write(fields(&records[i], cols, labels)); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
