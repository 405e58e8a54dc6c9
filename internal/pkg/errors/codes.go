package errors

// Error code constants. Errors carry code + params; log text stays English.

// Intake error codes.
const (
	CodeEmailMismatch = "EMAIL_MISMATCH"
	CodeInvalidSecret = "INVALID_SECRET"
	CodeInvalidBody   = "INVALID_REQUEST_BODY"
)

// Pipeline error codes.
const (
	CodeGenerationFailed = "GENERATION_FAILED"
	CodePublishFailed    = "PUBLISH_FAILED"
)

// Fault taxonomy codes for the validation core. Faults are contained at the
// smallest boundary (one check, one stage) and surface as report entries,
// never as pipeline aborts.
const (
	CodeEvidenceFault      = "EVIDENCE_FAULT"
	CodeEvaluationFault    = "EVALUATION_FAULT"
	CodeNetworkFault       = "NETWORK_FAULT"
	CodeConfigurationFault = "CONFIGURATION_FAULT"
)
