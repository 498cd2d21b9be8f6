package errors

// ErrorTemplate defines a registered error type.
type ErrorTemplate struct {
	Category Category
	Message  string
	Detail   string
	DocURL   string
}

// Detail returns the registered long explanation for code, or "".
func Detail(code string) string {
	return registry[code].Detail
}

// Codes returns every registered code.
func Codes() []string {
	codes := make([]string, 0, len(registry))
	for code := range registry {
		codes = append(codes, code)
	}
	return codes
}

// registry maps error codes to their templates.
var registry = map[string]ErrorTemplate{
	// ============================================
	// Invariant Errors (E100-E109)
	// ============================================

	"E100": {
		Category: CategoryInvariant,
		Message:  "Coordinate out of bounds",
		Detail:   "A staged operation addresses a section or element that does not exist in the snapshot it applies to. This is a bug in the diff engine, not in the input.",
		DocURL:   "https://vango.dev/docs/listdiff/errors/E100",
	},
	"E101": {
		Category: CategoryInvariant,
		Message:  "Stage result mismatch",
		Detail:   "Applying a stage's operations to the previous snapshot did not produce the snapshot stored for that stage.",
		DocURL:   "https://vango.dev/docs/listdiff/errors/E101",
	},
	"E102": {
		Category: CategoryInvariant,
		Message:  "Conflicting operations in stage",
		Detail:   "Two operations in one stage target the same position or have overlapping move ranges.",
		DocURL:   "https://vango.dev/docs/listdiff/errors/E102",
	},
	"E103": {
		Category: CategoryInvariant,
		Message:  "Unknown item in workspace",
		Detail:   "The stage splitter referenced an item that is not present in its working snapshot.",
		DocURL:   "https://vango.dev/docs/listdiff/errors/E103",
	},

	// ============================================
	// Apply Errors (E110-E119)
	// ============================================

	"E110": {
		Category: CategoryApply,
		Message:  "Stage rejected by consumer",
		Detail:   "The consumer failed to apply a stage. Fall back to a full reload with the final snapshot; partial stage replay is not supported.",
		DocURL:   "https://vango.dev/docs/listdiff/errors/E110",
	},
	"E111": {
		Category: CategoryApply,
		Message:  "Staged apply interrupted",
		Detail:   "The consumer requested an interrupt between stages. Remaining stages were not applied; reload to the final snapshot.",
		DocURL:   "https://vango.dev/docs/listdiff/errors/E111",
	},

	// ============================================
	// Document Errors (E120-E129)
	// ============================================

	"E120": {
		Category: CategoryDocument,
		Message:  "Snapshot document could not be decoded",
		Detail:   "The document is not valid JSON or YAML, or does not follow the sections/elements layout.",
		DocURL:   "https://vango.dev/docs/listdiff/errors/E120",
	},
	"E121": {
		Category: CategoryDocument,
		Message:  "Unsupported document format",
		Detail:   "Snapshot documents must be JSON (.json) or YAML (.yaml, .yml).",
		DocURL:   "https://vango.dev/docs/listdiff/errors/E121",
	},
	"E122": {
		Category: CategoryDocument,
		Message:  "Missing identifier",
		Detail:   "Every section and element needs an id so it can be matched across snapshots.",
		DocURL:   "https://vango.dev/docs/listdiff/errors/E122",
	},
	"E123": {
		Category: CategoryDocument,
		Message:  "Invalid kind registration",
		Detail:   "A kind needs a non-empty name that is not registered yet.",
		DocURL:   "https://vango.dev/docs/listdiff/errors/E123",
	},

	// ============================================
	// Config Errors (E130-E139)
	// ============================================

	"E130": {
		Category: CategoryConfig,
		Message:  "Invalid configuration",
		Detail:   "A value in listdiff.json is out of range or malformed.",
		DocURL:   "https://vango.dev/docs/listdiff/errors/E130",
	},
	"E131": {
		Category: CategoryConfig,
		Message:  "Configuration file could not be parsed",
		Detail:   "listdiff.json must be a valid JSON object.",
		DocURL:   "https://vango.dev/docs/listdiff/errors/E131",
	},

	// ============================================
	// Store Errors (E140-E149)
	// ============================================

	"E140": {
		Category: CategoryStore,
		Message:  "Unsupported snapshot location",
		Detail:   "Snapshots can be loaded from local paths or s3://bucket/key URIs.",
		DocURL:   "https://vango.dev/docs/listdiff/errors/E140",
	},
	"E141": {
		Category: CategoryStore,
		Message:  "Snapshot could not be fetched",
		Detail:   "Reading the snapshot from its source failed.",
		DocURL:   "https://vango.dev/docs/listdiff/errors/E141",
	},
	"E142": {
		Category: CategoryStore,
		Message:  "Snapshot too large",
		Detail:   "The snapshot exceeds the configured maximum size.",
		DocURL:   "https://vango.dev/docs/listdiff/errors/E142",
	},

	// ============================================
	// Protocol Errors (E150-E159)
	// ============================================

	"E150": {
		Category: CategoryProtocol,
		Message:  "Unexpected frame",
		Detail:   "The peer sent a frame type that is not valid at this point of the staged apply.",
		DocURL:   "https://vango.dev/docs/listdiff/errors/E150",
	},
	"E151": {
		Category: CategoryProtocol,
		Message:  "Invalid hello",
		Detail:   "The first frame of a staged apply session must be a hello carrying both snapshot documents.",
		DocURL:   "https://vango.dev/docs/listdiff/errors/E151",
	},
	"E152": {
		Category: CategoryProtocol,
		Message:  "Remote error",
		Detail:   "The server reported an error during the staged apply.",
		DocURL:   "https://vango.dev/docs/listdiff/errors/E152",
	},

	// ============================================
	// CLI Errors (E160-E169)
	// ============================================

	"E160": {
		Category: CategoryCLI,
		Message:  "Invalid arguments",
		Detail:   "The command received arguments it cannot use.",
		DocURL:   "https://vango.dev/docs/listdiff/errors/E160",
	},
}
