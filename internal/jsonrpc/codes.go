package jsonrpc

import "github.com/flyctl-dev/flymcp/internal/mcperr"

// Standard JSON-RPC 2.0 and MCP-specific error codes (spec §4.2).
const (
	CodeParseError          = -32700
	CodeInvalidRequest      = -32600
	CodeMethodNotFound      = -32601
	CodeInvalidParams       = -32602
	CodeInternalError       = -32603
	CodeCanceled            = -32800
	CodeTimeout             = -32801
	CodeTooLarge            = -32802
	CodePermissionDenied    = -32803
	CodeNotFound            = -32804
)

// codeTable maps the domain taxonomy (internal/mcperr) to wire codes.
var codeTable = map[mcperr.Code]int{
	mcperr.CodeParse:              CodeParseError,
	mcperr.CodeInvalidRequest:     CodeInvalidRequest,
	mcperr.CodeMethodNotFound:     CodeMethodNotFound,
	mcperr.CodeInvalidParams:      CodeInvalidParams,
	mcperr.CodeInternal:           CodeInternalError,
	mcperr.CodeCanceled:           CodeCanceled,
	mcperr.CodeTimeout:            CodeTimeout,
	mcperr.CodeTooLarge:           CodeTooLarge,
	mcperr.CodePermissionDenied:   CodePermissionDenied,
	mcperr.CodeNotFound:           CodeNotFound,
	mcperr.CodeBusy:               CodeInvalidRequest,
	mcperr.CodeTemplateIncompat:   CodeInvalidParams,
	mcperr.CodeTemplateCorrupted:  CodeInternalError,
	mcperr.CodeOfflineUnavailable: CodeInternalError,
	mcperr.CodeNetworkRetryable:   CodeInternalError,
	mcperr.CodeNetworkFatal:       CodeInternalError,
}

// FromError converts any error into a wire ErrorObject, translating
// *mcperr.Error via the taxonomy table and falling back to internal_error
// for anything else (spec §7: "a panic or uncaught error ... becomes
// internal").
func FromError(err error) *ErrorObject {
	if rich, ok := mcperr.As(err); ok {
		code, known := codeTable[rich.Code]
		if !known {
			code = CodeInternalError
		}
		return &ErrorObject{Code: code, Message: rich.Message, Data: rich.Data}
	}
	return &ErrorObject{Code: CodeInternalError, Message: err.Error()}
}
