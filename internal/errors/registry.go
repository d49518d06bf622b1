package errors

import "sort"

// ErrorTemplate defines a registered error type.
type ErrorTemplate struct {
	Category Category
	Message  string
	Detail   string
}

// registry maps error codes to their templates.
var registry = map[string]ErrorTemplate{
	// ============================================
	// Runtime Errors (E001-E099)
	// ============================================

	"E001": {
		Category: CategoryRuntime,
		Message:  "Event loop stopped",
		Detail:   "The event loop exited before the command finished. Pending debounced updates were cancelled.",
	},
	"E002": {
		Category: CategoryRuntime,
		Message:  "Dispatch queue full",
		Detail:   "Callbacks were discarded because the event loop queue was full. Raise queue_size or slow the producer.",
	},

	// ============================================
	// Config Errors (E120-E149)
	// ============================================

	"E120": {
		Category: CategoryConfig,
		Message:  "Invalid config file",
		Detail:   "The configuration file could not be parsed.",
	},
	"E121": {
		Category: CategoryConfig,
		Message:  "Invalid delay",
		Detail:   "The delay must be a non-negative Go duration such as 300ms or 1.5s.",
	},
	"E122": {
		Category: CategoryConfig,
		Message:  "Invalid queue size",
		Detail:   "The event loop queue size must be a positive integer.",
	},
	"E123": {
		Category: CategoryConfig,
		Message:  "Invalid log level",
		Detail:   "The log level must be one of debug, info, warn or error.",
	},
	"E124": {
		Category: CategoryConfig,
		Message:  "Invalid metrics namespace",
		Detail:   "Metric namespaces may contain only letters, digits and underscores, and must not start with a digit.",
	},
	"E141": {
		Category: CategoryConfig,
		Message:  "Config file not found",
		Detail:   "The configuration file does not exist at the given path.",
	},

	// ============================================
	// CLI Errors (E150-E169)
	// ============================================

	"E150": {
		Category: CategoryCLI,
		Message:  "Unsupported config format",
		Detail:   "Config files must end in .json, .yaml or .yml.",
	},
	"E151": {
		Category: CategoryCLI,
		Message:  "Watch failed",
		Detail:   "The path could not be watched for changes.",
	},
}

// GetAllCodes returns all registered error codes in ascending order.
func GetAllCodes() []string {
	codes := make([]string, 0, len(registry))
	for code := range registry {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

// GetTemplate returns the template for an error code.
func GetTemplate(code string) (ErrorTemplate, bool) {
	t, ok := registry[code]
	return t, ok
}

// Register adds a new error template to the registry.
func Register(code string, template ErrorTemplate) {
	registry[code] = template
}
