package errors

// Template defines a registered error type.
type Template struct {
	Category   Category
	Message    string
	Detail     string
	Suggestion string
}

// registry maps error codes to their templates.
var registry = map[string]Template{
	// Configuration (L100-L199)

	"L100": {
		Category:   CategoryConfig,
		Message:    "Configuration file not found",
		Detail:     "No locsync.json was found at the given path.",
		Suggestion: "Create one with `locsync config init` or pass --config.",
	},
	"L101": {
		Category:   CategoryConfig,
		Message:    "Invalid configuration file",
		Detail:     "The configuration file is not valid JSON or has a value of the wrong type.",
		Suggestion: `Durations use Go syntax such as "30s" or "5m".`,
	},
	"L102": {
		Category: CategoryConfig,
		Message:  "Invalid configuration value",
		Detail:   "A configuration value is out of range or not one of the allowed choices.",
	},
	"L103": {
		Category: CategoryConfig,
		Message:  "Cannot write configuration file",
	},

	// Server (L200-L299)

	"L200": {
		Category:   CategoryServer,
		Message:    "Cannot listen on address",
		Detail:     "The server could not bind its listening socket.",
		Suggestion: "Check that nothing else is using the port, or pass --addr.",
	},
	"L201": {
		Category: CategoryServer,
		Message:  "Shutdown did not finish in time",
		Detail:   "Some sessions were still open when the shutdown timeout expired.",
	},

	// Protocol (L300-L399)

	"L300": {
		Category: CategoryProtocol,
		Message:  "Protocol version mismatch",
		Detail:   "The client script and the server speak different protocol major versions.",
	},

	// Journal (L400-L499)

	"L400": {
		Category:   CategoryJournal,
		Message:    "Unknown journal backend",
		Suggestion: `Use "memory", "s3" or "none".`,
	},
	"L401": {
		Category:   CategoryJournal,
		Message:    "S3 journal is not configured",
		Detail:     "The s3 journal backend needs a bucket name.",
		Suggestion: `Set "journal.bucket" in locsync.json.`,
	},
	"L402": {
		Category:   CategoryJournal,
		Message:    "Cannot load AWS configuration",
		Suggestion: "Check AWS_REGION and credentials in the environment or shared config.",
	},

	// CLI (L500-L599)

	"L500": {
		Category: CategoryCLI,
		Message:  "Invalid flag value",
	},
}

// Lookup returns the template registered for code.
func Lookup(code string) (Template, bool) {
	t, ok := registry[code]
	return t, ok
}

// Codes returns all registered codes in a category.
func Codes(category Category) []string {
	var codes []string
	for code, t := range registry {
		if t.Category == category {
			codes = append(codes, code)
		}
	}
	return codes
}
