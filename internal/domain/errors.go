package domain

import "fmt"

// ErrCode identifies the category of a core failure, per the error
// taxonomy: compile, validation, expression/template rendering, action,
// scheduler safety bounds, and built-in logic actions.
type ErrCode string

const (
	ErrCodeCompile            ErrCode = "compile_error"
	ErrCodeValidation         ErrCode = "validation_error"
	ErrCodeExpression         ErrCode = "expression_error"
	ErrCodeTemplate           ErrCode = "template_error"
	ErrCodeAction             ErrCode = "action_error"
	ErrCodeIterationLimit     ErrCode = "iteration_limit_exceeded"
	ErrCodeNoMatchingCase     ErrCode = "no_matching_case"
	ErrCodeMissingCollection  ErrCode = "missing_collection"
	ErrCodeSubWorkflowSetup   ErrCode = "sub_workflow_setup_error"
)

// Error is the core's structured error: code + message + details, with
// an optional cause for Unwrap chains. Actions populate Details["error_type"]
// with their own classification (timeout, network_error, rate_limit, ...)
// so it survives into NodeExecution.ErrorData for host-side routing.
type Error struct {
	Code    ErrCode
	Message string
	Details map[string]any
	Cause   error
}

func NewError(code ErrCode, message string, cause error) *Error {
	return &Error{Code: code, Message: message, Cause: cause}
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// WithDetails returns a copy of e with details merged in.
func (e *Error) WithDetails(details map[string]any) *Error {
	merged := make(map[string]any, len(e.Details)+len(details))
	for k, v := range e.Details {
		merged[k] = v
	}
	for k, v := range details {
		merged[k] = v
	}
	return &Error{Code: e.Code, Message: e.Message, Details: merged, Cause: e.Cause}
}

// ErrorType returns Details["error_type"] as a string, or "" if absent.
func (e *Error) ErrorType() string {
	if e.Details == nil {
		return ""
	}
	if v, ok := e.Details["error_type"].(string); ok {
		return v
	}
	return ""
}

// ToMap renders the error into the {code, message, details} shape used
// as NodeExecution.ErrorData and as `{:error, ...}` action result payloads.
func (e *Error) ToMap() map[string]any {
	m := map[string]any{
		"code":    string(e.Code),
		"message": e.Message,
	}
	if e.Details != nil {
		m["details"] = e.Details
	}
	return m
}
