package errors

// JSON-RPC 2.0 standard error codes
const (
	CodeParseError     int = -32700
	CodeInvalidRequest int = -32600
	CodeMethodNotFound int = -32601
	CodeInvalidParams  int = -32602
	CodeInternalError  int = -32603
)

// Engine-specific error codes, namespaced by concern within the
// application-defined range.
const (
	// Session and lifecycle errors (-32000 to -32099)
	CodeResourceNotFound    int = -32002
	CodeNotInitialized      int = -32003
	CodeSessionClosed       int = -32004
	CodeIncompatibleVersion int = -32005

	// Capability errors (-32100 to -32199)
	CodeCapabilityNotNegotiated int = -32100

	// Correlation errors (-32200 to -32299)
	CodeDuplicateIdentifier int = -32200
	CodeUnknownIdentifier   int = -32201
	CodeAlreadySettled      int = -32202

	// Operation outcomes (-32300 to -32399)
	CodeCancelled int = -32300
	CodeTimeout   int = -32301

	// Registry errors (-32400 to -32499)
	CodeDuplicateName      int = -32400
	CodeEntryNotFound      int = -32401
	CodeInvalidCursor      int = -32402
	CodeArgumentValidation int = -32403
	CodeUnknownReference   int = -32404
)

// codeNames maps error codes to stable names for logs and error data.
var codeNames = map[int]string{
	CodeParseError:     "ParseError",
	CodeInvalidRequest: "InvalidRequest",
	CodeMethodNotFound: "MethodNotFound",
	CodeInvalidParams:  "InvalidParams",
	CodeInternalError:  "InternalError",

	CodeResourceNotFound:    "ResourceNotFound",
	CodeNotInitialized:      "NotInitialized",
	CodeSessionClosed:       "SessionClosed",
	CodeIncompatibleVersion: "IncompatibleVersion",

	CodeCapabilityNotNegotiated: "CapabilityNotNegotiated",

	CodeDuplicateIdentifier: "DuplicateIdentifier",
	CodeUnknownIdentifier:   "UnknownIdentifier",
	CodeAlreadySettled:      "AlreadySettled",

	CodeCancelled: "Cancelled",
	CodeTimeout:   "Timeout",

	CodeDuplicateName:      "DuplicateName",
	CodeEntryNotFound:      "EntryNotFound",
	CodeInvalidCursor:      "InvalidCursor",
	CodeArgumentValidation: "ArgumentValidationFailed",
	CodeUnknownReference:   "UnknownReference",
}

// CodeName returns the stable name of an error code.
func CodeName(code int) string {
	if name, ok := codeNames[code]; ok {
		return name
	}
	return "UnknownError"
}

// IsStandardJSONRPCCode checks if a code is in the JSON-RPC reserved range.
func IsStandardJSONRPCCode(code int) bool {
	return code >= -32768 && code <= -32600
}
