package export

import (
	"bufio"
	"html"
	"io"

	"github.com/boddenberg/donations-ledger-go/internal/domain"
)

// WriteTable writes an HTML table that spreadsheet applications open as a
// worksheet. Every cell is HTML-escaped.
func WriteTable(w io.Writer, records []domain.Donation, labels FrequencyLabels) error {
	bw := bufio.NewWriter(w)

	bw.WriteString("<html><head><meta charset=\"utf-8\"></head><body>\n")
	bw.WriteString("<table border=\"1\">\n")
	writeTableRow(bw, "th", headers(Columns))
	for i := range records {
		writeTableRow(bw, "td", fields(&records[i], Columns, labels))
	}
	bw.WriteString("</table>\n</body></html>\n")

	return bw.Flush()
}

func writeTableRow(bw *bufio.Writer, cell string, values []string) {
	bw.WriteString("<tr>")
	for _, v := range values {
		bw.WriteString("<" + cell + ">")
		bw.WriteString(html.EscapeString(v))
		bw.WriteString("</" + cell + ">")
	}
	bw.WriteString("</tr>\n")
}
