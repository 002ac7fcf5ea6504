package pipeline

// Default values for extraction and reconciliation.
// These can be overridden via configuration.
const (
	// DefaultModelName is the default Gemini model used for extraction.
	DefaultModelName = "gemini-2.5-flash"

	// DefaultDuplicateTolerance is the relative amount difference under which
	// two transactions are still considered the same (1%).
	DefaultDuplicateTolerance = "0.01"

	// jsonMIMEType is requested from the model on the strict attempt.
	jsonMIMEType = "application/json"
)

// Input field names shared by the model response and the CSV columns.
const (
	fieldDate        = "date"
	fieldDescription = "description"
	fieldAmount      = "amount"
	fieldType        = "type"
	fieldCategory    = "category"
	fieldSubCategory = "subCategory"
	fieldAccount     = "accountNameMatch"
	fieldUnitDetails = "unitDetails"
	fieldRemarks     = "remarks"
)
