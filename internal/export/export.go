// Package export renders donation records as downloadable tabular files.
// Output depends only on the records and labels passed in, so the same
// input always yields the same bytes.
package export

import (
	"bytes"
	"fmt"
	"strconv"

	"github.com/boddenberg/donations-ledger-go/internal/domain"
)

// TimeLayout formats created_at in every export.
const TimeLayout = "2006-01-02 15:04:05"

// Column is one exported field: its stable key and its header text.
type Column struct {
	Key    string
	Header string
}

// Columns is the fixed column order shared by the CSV and table formats.
var Columns = []Column{
	{"id", "ID"},
	{"created_at", "Fecha"},
	{"donor_name", "Donante"},
	{"donor_email", "Email"},
	{"donor_country", "País"},
	{"amount", "Monto"},
	{"frequency_label", "Frecuencia"},
	{"payment_method", "Método de Pago"},
	{"status", "Estado"},
	{"message", "Mensaje"},
	{"order_reference", "ID Pedido"},
}

// HistoryColumns is the column order of a single donor's history export.
var HistoryColumns = []Column{
	{"created_at", "Fecha"},
	{"amount", "Monto"},
	{"frequency_label", "Frecuencia"},
	{"payment_method", "Método de Pago"},
	{"status", "Estado"},
	{"message", "Mensaje"},
	{"order_reference", "ID Pedido"},
}

// FrequencyLabels maps the stored frequency onto its display text.
type FrequencyLabels struct {
	Monthly string
	Once    string
}

// DefaultLabels are used when no settings are available.
var DefaultLabels = FrequencyLabels{Monthly: "Mensual", Once: "Única"}

// Label returns the display text for f.
func (l FrequencyLabels) Label(f domain.Frequency) string {
	if f == domain.FrequencyMonthly {
		return l.Monthly
	}
	return l.Once
}

// Serialize renders records in the requested format.
func Serialize(records []domain.Donation, format domain.ExportFormat, labels FrequencyLabels) ([]byte, error) {
	var buf bytes.Buffer
	var err error
	switch format {
	case domain.ExportCSV:
		err = WriteCSV(&buf, records, labels)
	case domain.ExportTable:
		err = WriteTable(&buf, records, labels)
	default:
		return nil, &domain.ErrValidation{Field: "format", Message: fmt.Sprintf("unsupported export format %q", format)}
	}
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func headers(cols []Column) []string {
	out := make([]string, len(cols))
	for i, c := range cols {
		out[i] = c.Header
	}
	return out
}

// fields renders d in the order of cols. Absent optional values are empty.
func fields(d *domain.Donation, cols []Column, labels FrequencyLabels) []string {
	out := make([]string, len(cols))
	for i, c := range cols {
		switch c.Key {
		case "id":
			out[i] = strconv.FormatInt(d.ID, 10)
		case "created_at":
			out[i] = d.CreatedAt.UTC().Format(TimeLayout)
		case "donor_name":
			out[i] = d.DonorName
		case "donor_email":
			out[i] = d.DonorEmail
		case "donor_country":
			out[i] = d.DonorCountry
		case "amount":
			out[i] = d.Amount.StringFixed(2)
		case "frequency_label":
			out[i] = labels.Label(d.Frequency)
		case "payment_method":
			out[i] = string(d.PaymentMethod)
		case "status":
			out[i] = string(d.Status)
		case "message":
			out[i] = d.Message
		case "order_reference":
			if d.OrderReference != nil {
				out[i] = strconv.FormatInt(*d.OrderReference, 10)
			}
		}
	}
	return out
}
