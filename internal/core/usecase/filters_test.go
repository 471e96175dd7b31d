package usecase

import (
	"testing"

	"github.com/emontoro/finance-ai-assistant/internal/core/domain"
)

func TestExtractFiltersCategories(t *testing.T) {
	cases := []struct {
		query string
		want  string
	}{
		{"monthly software subscriptions", "Software"},
		{"pagos de nómina de mayo", "Payroll"},
		{"gastos de marketing del último mes", "Marketing"},
		{"material de oficina", "Office"},
		{"consulting services invoices", "Services"},
		{"compra de equipos", "Hardware"},
		{"viajes del equipo comercial", "Travel"},
		{"facturas del abogado", "Legal"},
		{"pago de impuestos trimestral", "Taxes"},
		{"ventas de junio", "Revenue"},
		{"alquiler de la nave", "Rent"},
		{"something unrelated", ""},
	}
	for _, tc := range cases {
		got := extractFilters(tc.query)
		if got.Category != tc.want {
			t.Errorf("extractFilters(%q).Category = %q, want %q", tc.query, got.Category, tc.want)
		}
	}
}

func TestExtractFiltersCategoryOrderWins(t *testing.T) {
	// Software precedes marketing in the vocabulary, so it wins regardless
	// of word order in the query.
	got := extractFilters("marketing software licences")
	if got.Category != "Software" {
		t.Fatalf("got %q, want Software", got.Category)
	}
}

func TestExtractFiltersType(t *testing.T) {
	if got := extractFilters("ingresos de este mes"); got.Type != domain.TypeIncome {
		t.Fatalf("got %q, want income", got.Type)
	}
	if got := extractFilters("gastos de viaje"); got.Type != domain.TypeExpense {
		t.Fatalf("got %q, want expense", got.Type)
	}
	// When both readings appear, the expense one wins.
	if got := extractFilters("ingresos y gastos de marzo"); got.Type != domain.TypeExpense {
		t.Fatalf("got %q, want expense when both are present", got.Type)
	}
	if got := extractFilters("facturas de marzo"); got.Type != "" {
		t.Fatalf("got %q, want empty type", got.Type)
	}
}

func TestExtractFiltersTokenBoundaries(t *testing.T) {
	// "rent" must not fire inside "current".
	if got := extractFilters("current account movements"); got.Category != "" {
		t.Fatalf("got %q, want no category", got.Category)
	}
}

func TestMergeFiltersNeverOverwrites(t *testing.T) {
	seed := domain.FilterSet{Type: domain.TypeIncome, Category: "Payroll"}
	derived := domain.FilterSet{Type: domain.TypeExpense, Category: "Marketing"}
	got := mergeFilters(seed, derived)
	if got.Type != domain.TypeIncome || got.Category != "Payroll" {
		t.Fatalf("seed fields were overwritten: %+v", got)
	}

	empty := mergeFilters(domain.FilterSet{}, derived)
	if empty.Type != domain.TypeExpense || empty.Category != "Marketing" {
		t.Fatalf("gaps were not filled: %+v", empty)
	}
}
