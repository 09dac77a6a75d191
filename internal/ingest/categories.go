package ingest

// Category codes used by the market source, mapped to display labels.
var categoryLabels = map[string]string{
	"100": "food crops",
	"200": "vegetables",
	"300": "specialty crops",
	"400": "fruits",
	"500": "livestock",
	"600": "fishery",
}

// categoryOrder fixes sweep ordering for deterministic reports.
var categoryOrder = []string{"100", "200", "300", "400", "500", "600"}

// Categories returns every known category code in sweep order.
func Categories() []string {
	out := make([]string, len(categoryOrder))
	copy(out, categoryOrder)
	return out
}

// CategoryLabel returns the display label for a category code.
func CategoryLabel(code string) string {
	if label, ok := categoryLabels[code]; ok {
		return label
	}
	return "unknown"
}
