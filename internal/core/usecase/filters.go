package usecase

import (
	"strings"

	"github.com/emontoro/finance-ai-assistant/internal/core/domain"
)

// categoryVocabulary associates query keywords with canonical category
// labels. Scan order is significant: the first matching keyword decides the
// category when a query names several, so the ordering below is part of the
// contract and must stay stable.
var categoryVocabulary = []struct {
	keyword  string
	category string
}{
	{"software", "Software"},
	{"saas", "Software"},
	{"suscripción", "Software"},
	{"suscripcion", "Software"},
	{"payroll", "Payroll"},
	{"nómina", "Payroll"},
	{"nomina", "Payroll"},
	{"salario", "Payroll"},
	{"sueldo", "Payroll"},
	{"marketing", "Marketing"},
	{"publicidad", "Marketing"},
	{"anuncios", "Marketing"},
	{"office", "Office"},
	{"oficina", "Office"},
	{"services", "Services"},
	{"servicios", "Services"},
	{"consulting", "Services"},
	{"consultoría", "Services"},
	{"consultoria", "Services"},
	{"hardware", "Hardware"},
	{"equipos", "Hardware"},
	{"travel", "Travel"},
	{"viaje", "Travel"},
	{"viajes", "Travel"},
	{"vuelo", "Travel"},
	{"hotel", "Travel"},
	{"legal", "Legal"},
	{"abogado", "Legal"},
	{"notario", "Legal"},
	{"taxes", "Taxes"},
	{"tax", "Taxes"},
	{"impuestos", "Taxes"},
	{"impuesto", "Taxes"},
	{"iva", "Taxes"},
	{"revenue", "Revenue"},
	{"ventas", "Revenue"},
	{"venta", "Revenue"},
	{"facturación", "Revenue"},
	{"facturacion", "Revenue"},
	{"rent", "Rent"},
	{"alquiler", "Rent"},
	{"renta", "Rent"},
}

var incomeTokens = []string{"income", "earnings", "ingreso", "ingresos", "cobro", "cobros"}

var expenseTokens = []string{"expense", "expenses", "spend", "spending", "gasto", "gastos", "pago", "pagos"}

// extractFilters derives structured filters from free text. Only the
// category and transaction type are keyword driven; temporal terms are
// handled by resolveDateRange and amounts come from the intent classifier.
//
// Income tokens are checked before expense tokens on purpose: when a query
// mentions both, the expense reading overwrites the income one.
func extractFilters(text string) domain.FilterSet {
	lower := strings.ToLower(text)
	var out domain.FilterSet

	for _, entry := range categoryVocabulary {
		if containsToken(lower, entry.keyword) {
			out.Category = entry.category
			break
		}
	}

	for _, token := range incomeTokens {
		if containsToken(lower, token) {
			out.Type = domain.TypeIncome
			break
		}
	}
	for _, token := range expenseTokens {
		if containsToken(lower, token) {
			out.Type = domain.TypeExpense
			break
		}
	}

	return out
}

// mergeFilters fills gaps in seed from derived without ever overwriting a
// field the caller already set.
func mergeFilters(seed, derived domain.FilterSet) domain.FilterSet {
	if seed.Type == "" {
		seed.Type = derived.Type
	}
	if seed.Category == "" {
		seed.Category = derived.Category
	}
	if seed.DateRange == nil {
		seed.DateRange = derived.DateRange
	}
	if seed.MinAmount == nil {
		seed.MinAmount = derived.MinAmount
	}
	if seed.MaxAmount == nil {
		seed.MaxAmount = derived.MaxAmount
	}
	return seed
}
