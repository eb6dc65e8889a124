package export_test

import (
	"bytes"
	"encoding/csv"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/boddenberg/donations-ledger-go/internal/domain"
	"github.com/boddenberg/donations-ledger-go/internal/export"

	"github.com/shopspring/decimal"
)

func sampleRecords() []domain.Donation {
	ref := int64(1042)
	return []domain.Donation{
		{
			ID:             2,
			OrderReference: &ref,
			DonorEmail:     "a@x.com",
			DonorName:      "Ana",
			DonorCountry:   "ES",
			Amount:         decimal.RequireFromString("25.5"),
			Frequency:      domain.FrequencyMonthly,
			PaymentMethod:  domain.PaymentCard,
			Status:         domain.StatusCompleted,
			Message:        "Hola, \"amigos\"\nseguid así",
			CreatedAt:      time.Date(2026, 5, 2, 9, 30, 0, 0, time.UTC),
		},
		{
			ID:            1,
			DonorEmail:    "b@x.com",
			DonorName:     "Bea <script>",
			Amount:        decimal.RequireFromString("10"),
			Frequency:     domain.FrequencyOnce,
			PaymentMethod: domain.PaymentPayPal,
			Status:        domain.StatusPending,
			CreatedAt:     time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC),
		},
	}
}

func TestWriteCSV_RoundTrip(t *testing.T) {
	records := sampleRecords()
	var buf bytes.Buffer
	if err := export.WriteCSV(&buf, records, export.DefaultLabels); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	rows, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("csv parse failed: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected header + 2 rows, got %d", len(rows))
	}
	if len(rows[0]) != len(export.Columns) || rows[0][0] != "ID" || rows[0][10] != "ID Pedido" {
		t.Errorf("unexpected header: %v", rows[0])
	}

	first := rows[1]
	if first[9] != records[0].Message {
		t.Errorf("message did not round-trip: %q", first[9])
	}
	if first[5] != "25.50" {
		t.Errorf("expected amount 25.50, got %q", first[5])
	}
	if first[6] != "Mensual" {
		t.Errorf("expected label Mensual, got %q", first[6])
	}
	if first[1] != "2026-05-02 09:30:00" {
		t.Errorf("unexpected created_at %q", first[1])
	}
	if first[10] != "1042" {
		t.Errorf("expected order reference 1042, got %q", first[10])
	}

	second := rows[2]
	if second[4] != "" || second[9] != "" || second[10] != "" {
		t.Errorf("expected empty optional fields, got country=%q message=%q order=%q", second[4], second[9], second[10])
	}
	if second[6] != "Única" {
		t.Errorf("expected label Única, got %q", second[6])
	}
}

func TestWriteCSV_NoNullLiteral(t *testing.T) {
	var buf bytes.Buffer
	export.WriteCSV(&buf, sampleRecords()[1:], export.DefaultLabels)

	if strings.Contains(buf.String(), "null") {
		t.Errorf("output must not contain null literal: %s", buf.String())
	}
}

func TestSerialize_Deterministic(t *testing.T) {
	for _, format := range []domain.ExportFormat{domain.ExportCSV, domain.ExportTable} {
		a, err := export.Serialize(sampleRecords(), format, export.DefaultLabels)
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", format, err)
		}
		b, _ := export.Serialize(sampleRecords(), format, export.DefaultLabels)
		if !bytes.Equal(a, b) {
			t.Errorf("%s: output differs between runs", format)
		}
	}
}

func TestSerialize_UnknownFormat(t *testing.T) {
	_, err := export.Serialize(sampleRecords(), domain.ExportFormat("pdf"), export.DefaultLabels)
	var valErr *domain.ErrValidation
	if !errors.As(err, &valErr) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

func TestWriteTable_EscapesCells(t *testing.T) {
	var buf bytes.Buffer
	if err := export.WriteTable(&buf, sampleRecords(), export.DefaultLabels); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	out := buf.String()

	if strings.Contains(out, "<script>") {
		t.Error("expected donor name to be escaped")
	}
	if !strings.Contains(out, "Bea &lt;script&gt;") {
		t.Error("expected escaped donor name in output")
	}
	if !strings.Contains(out, "<th>Método de Pago</th>") {
		t.Error("expected header row")
	}
	if got := strings.Count(out, "<tr>"); got != 3 {
		t.Errorf("expected 3 rows, got %d", got)
	}
}

func TestWriteDonorHistory_Columns(t *testing.T) {
	var buf bytes.Buffer
	labels := export.FrequencyLabels{Monthly: "Monthly", Once: "One-off"}
	if err := export.WriteDonorHistory(&buf, sampleRecords(), labels); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	rows, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("csv parse failed: %v", err)
	}
	if len(rows[0]) != 7 {
		t.Fatalf("expected 7 columns, got %d", len(rows[0]))
	}
	if rows[1][2] != "Monthly" || rows[2][2] != "One-off" {
		t.Errorf("expected custom labels, got %q and %q", rows[1][2], rows[2][2])
	}
}
