package mcperr

// ParseError wraps a JSON framing/decode failure.
func ParseError(cause error) *Error {
	return New().Code(CodeParse).Severity(SeverityLow).
		Message("failed to parse request").Cause(cause).WithLocation().Build()
}

// InvalidParamsError reports schema validation failures against a tool's
// input_schema; fieldErrors is the dotted-path error list from the
// validator (see internal/registry/schema.go).
func InvalidParamsError(toolName string, fieldErrors []string) *Error {
	return New().Code(CodeInvalidParams).Severity(SeverityMedium).
		Messagef("invalid arguments for tool %q", toolName).
		Data("errors", fieldErrors).WithLocation().Build()
}

// MissingVariablesError reports a prompts/get call missing required
// variables.
func MissingVariablesError(promptID string, missing []string) *Error {
	return New().Code(CodeInvalidParams).Severity(SeverityMedium).
		Messagef("prompt %q is missing required variables", promptID).
		Data("variablesNeeded", missing).WithLocation().Build()
}

// MethodNotFoundError reports an unroutable JSON-RPC method.
func MethodNotFoundError(method string) *Error {
	return New().Code(CodeMethodNotFound).Severity(SeverityLow).
		Messagef("method not found: %s", method).WithLocation().Build()
}

// NotFoundError reports a missing tool, resource, prompt, or template.
func NotFoundError(kind, name string) *Error {
	return New().Code(CodeNotFound).Severity(SeverityLow).
		Messagef("%s not found: %s", kind, name).WithLocation().Build()
}

// PermissionDeniedError reports a sandbox escape or other access refusal.
func PermissionDeniedError(reason string) *Error {
	return New().Code(CodePermissionDenied).Severity(SeverityHigh).
		Message(reason).WithLocation().Build()
}

// TooLargeError reports a message or read exceeding a configured cap.
func TooLargeError(what string, limit int) *Error {
	return New().Code(CodeTooLarge).Severity(SeverityMedium).
		Messagef("%s exceeds limit of %d bytes", what, limit).
		Data("limit", limit).WithLocation().Build()
}

// TimeoutError reports a handler exceeding its per-method timeout.
func TimeoutError(method string) *Error {
	return New().Code(CodeTimeout).Severity(SeverityMedium).
		Messagef("method %q timed out", method).WithLocation().Build()
}

// CanceledError reports cooperative cancellation via $/cancelRequest.
func CanceledError(id interface{}) *Error {
	return New().Code(CodeCanceled).Severity(SeverityLow).
		Messagef("request %v canceled", id).WithLocation().Build()
}

// BusyError reports admission backpressure (global permit exhaustion).
func BusyError(waited string) *Error {
	return New().Code(CodeBusy).Severity(SeverityMedium).
		Messagef("server busy, admission wait exceeded after %s", waited).
		Data("reason", "busy").WithLocation().Build()
}

// InternalError wraps an unexpected handler failure or panic recovery.
func InternalError(cause error) *Error {
	return New().Code(CodeInternal).Severity(SeverityHigh).
		Message("internal error").Cause(cause).WithLocation().Build()
}

// TemplateIncompatibleError reports a compatibility gate failure.
func TemplateIncompatibleError(reason string) *Error {
	return New().Code(CodeTemplateIncompat).Severity(SeverityMedium).
		Message(reason).WithLocation().Build()
}

// TemplateCorruptedError reports checksum/parse failure on a cache entry.
// Never surfaced to clients directly (spec §7); used internally to trigger
// eviction and fall back to a miss.
func TemplateCorruptedError(key string, cause error) *Error {
	return New().Code(CodeTemplateCorrupted).Severity(SeverityLow).
		Messagef("cache entry %q is corrupted", key).Cause(cause).WithLocation().Build()
}

// OfflineUnavailableError reports an offline-mode cache miss.
func OfflineUnavailableError(name, version string) *Error {
	return New().Code(CodeOfflineUnavailable).Severity(SeverityMedium).
		Messagef("offline and no cache entry for %s@%s", name, version).WithLocation().Build()
}

// NetworkRetryableError wraps a transient upstream failure.
func NetworkRetryableError(cause error) *Error {
	return New().Code(CodeNetworkRetryable).Severity(SeverityLow).
		Message("transient network error").Cause(cause).WithLocation().Build()
}

// NetworkFatalError wraps a terminal upstream failure with no cache
// fallback available.
func NetworkFatalError(cause error) *Error {
	return New().Code(CodeNetworkFatal).Severity(SeverityHigh).
		Message("download_failed_no_cache").Cause(cause).WithLocation().Build()
}
