package testrunner

import "errors"

// ErrWorkflowInvalid is returned by Start when the graph fails validation.
// The validation report is wrapped alongside it.
var ErrWorkflowInvalid = errors.New("workflow is not runnable")
