package executor

import (
	"github.com/bluzky/prana/internal/action"
	"github.com/bluzky/prana/internal/domain"
)

// applyFailurePolicy implements §4.7: on action failure, suspend for
// retry if eligible, otherwise apply on_error. Retry is modeled purely
// as a returned Suspend result — never an in-process sleep (§9
// "Retry via scheduled suspension"); the host is responsible for
// waiting delay_ms and calling Resume. attemptNumber is 1-based: the
// attempt that just failed.
func applyFailurePolicy(node *domain.Node, attemptNumber int, failErr *domain.Error) action.Result {
	settings := node.Settings
	if settings.RetryOnFailed && attemptNumber < settings.MaxRetries {
		return action.Suspend(domain.SuspensionRetry, map[string]any{
			"delay_ms":       settings.RetryDelayMs,
			"attempt":        attemptNumber,
			"max":            settings.MaxRetries,
			"original_error": failErr.ToMap(),
		})
	}
	return applyOnError(node, failErr)
}

// applyOnError is also the direct path for resume failures, which skip
// retry entirely per §4.7.
func applyOnError(node *domain.Node, failErr *domain.Error) action.Result {
	switch node.Settings.OnError {
	case domain.OnErrorContinue:
		return action.SuccessPort(continuedErrorData(failErr, "continue"), domain.MainPort)
	case domain.OnErrorContinueErrorOutput:
		return action.SuccessPort(continuedErrorData(failErr, "continue_error_output"), domain.ErrorPort)
	default: // stop_workflow
		return action.Failure(failErr)
	}
}

func continuedErrorData(failErr *domain.Error, behavior string) map[string]any {
	details := map[string]any{"on_error_behavior": behavior}
	for k, v := range failErr.Details {
		details[k] = v
	}
	details["error"] = failErr.Message
	return map[string]any{
		"code":    string(domain.ErrCodeAction),
		"message": failErr.Message,
		"details": details,
	}
}
