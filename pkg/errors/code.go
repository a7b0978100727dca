package errors

// ErrorCode represents a unique error identifier
type ErrorCode int

// Error code ranges allocation:
// 10000-10999: System & Common errors
// 13000-13999: Submission & Judge module errors

const (
	// ========== System & Common Errors (10000-10999) ==========

	// Success
	Success ErrorCode = 10000

	// Generic errors (10000-10099)
	InternalServerError ErrorCode = 10001
	InvalidParams       ErrorCode = 10002
	NotFound            ErrorCode = 10003
	TooManyRequests     ErrorCode = 10006
	ServiceUnavailable  ErrorCode = 10007
	Timeout             ErrorCode = 10008

	// Validation errors (10300-10399)
	ValidationFailed   ErrorCode = 10300
	InvalidFormat      ErrorCode = 10301
	InvalidValue       ErrorCode = 10302
	RequiredFieldEmpty ErrorCode = 10303

	// ========== Submission & Judge Module Errors (13000-13999) ==========

	// Submission (13000-13099)
	CodeTooLarge         ErrorCode = 13002
	LanguageNotSupported ErrorCode = 13003

	// Judge (13100-13199)
	JudgeQueueFull      ErrorCode = 13100
	JudgeSystemError    ErrorCode = 13101
	CompilationError    ErrorCode = 13102
	RuntimeError        ErrorCode = 13103
	TimeLimitExceeded   ErrorCode = 13104
	MemoryLimitExceeded ErrorCode = 13105
	OutputLimitExceeded ErrorCode = 13106

	// Harness (13300-13399)
	NoEntryPointFound     ErrorCode = 13300
	UnsupportedValueShape ErrorCode = 13301
	OutputParseFailed     ErrorCode = 13302
	SandboxUnavailable    ErrorCode = 13303
)

// errorMessages maps error codes to their default English messages
var errorMessages = map[ErrorCode]string{
	// System & Common
	Success:             "Success",
	InternalServerError: "Internal server error",
	InvalidParams:       "Invalid parameters",
	NotFound:            "Resource not found",
	TooManyRequests:     "Too many requests, please try again later",
	ServiceUnavailable:  "Service temporarily unavailable",
	Timeout:             "Request timeout",

	// Validation
	ValidationFailed:   "Validation failed",
	InvalidFormat:      "Invalid format",
	InvalidValue:       "Invalid value",
	RequiredFieldEmpty: "Required field is empty",

	// Submission
	CodeTooLarge:         "Code is too large",
	LanguageNotSupported: "Programming language not supported",

	// Judge
	JudgeQueueFull:      "Judge queue is full, please try again later",
	JudgeSystemError:    "Judge system error",
	CompilationError:    "Compilation error",
	RuntimeError:        "Runtime error",
	TimeLimitExceeded:   "Time limit exceeded",
	MemoryLimitExceeded: "Memory limit exceeded",
	OutputLimitExceeded: "Output limit exceeded",

	// Harness
	NoEntryPointFound:     "No callable entry point found in submission",
	UnsupportedValueShape: "Value shape cannot be expressed in the target language",
	OutputParseFailed:     "Harness output could not be parsed",
	SandboxUnavailable:    "Sandbox is unavailable",
}

// Message returns the default message for the error code
func (c ErrorCode) Message() string {
	if msg, ok := errorMessages[c]; ok {
		return msg
	}
	return "Unknown error"
}

// HTTPStatus returns the recommended HTTP status code for the error code
func (c ErrorCode) HTTPStatus() int {
	switch {
	case c == Success:
		return 200
	case c == NotFound:
		return 404
	case c == TooManyRequests, c == JudgeQueueFull:
		return 429
	case c == ServiceUnavailable, c == SandboxUnavailable:
		return 503
	case c == Timeout:
		return 504
	case c >= 10300 && c < 10400: // Validation errors
		return 400
	case c == InvalidParams, c == LanguageNotSupported, c == CodeTooLarge, c == UnsupportedValueShape:
		return 400
	default:
		return 500
	}
}
