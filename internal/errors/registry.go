package errors

import "sort"

// Template defines a registered error code.
type Template struct {
	Category Category
	Message  string
}

// registry maps error codes to their templates.
var registry = map[string]Template{
	// Config (W100-W119)
	"W100": {Category: CategoryConfig, Message: "Config file not found"},
	"W101": {Category: CategoryConfig, Message: "Config file unreadable"},
	"W102": {Category: CategoryConfig, Message: "Invalid config value"},
	"W103": {Category: CategoryConfig, Message: "Unsupported config format"},

	// Route table (W200-W219)
	"W200": {Category: CategoryTable, Message: "Route table file unreadable"},
	"W201": {Category: CategoryTable, Message: "Unknown guard reference"},
	"W202": {Category: CategoryTable, Message: "Unknown resolver reference"},
	"W203": {Category: CategoryTable, Message: "Unknown view reference"},
	"W204": {Category: CategoryTable, Message: "Invalid route definition"},
	"W205": {Category: CategoryTable, Message: "Route table rejected"},

	// Navigation (W300-W319)
	"W300": {Category: CategoryNavigation, Message: "Navigation failed"},
	"W301": {Category: CategoryNavigation, Message: "Redirect loop detected"},

	// Host (W400-W419)
	"W400": {Category: CategoryHost, Message: "Host failed to start"},

	// CLI (W500-W519)
	"W500": {Category: CategoryCLI, Message: "Invalid arguments"},
}

// Codes returns all registered codes in sorted order.
func Codes() []string {
	codes := make([]string, 0, len(registry))
	for code := range registry {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

// Lookup returns the template for a code.
func Lookup(code string) (Template, bool) {
	t, ok := registry[code]
	return t, ok
}
