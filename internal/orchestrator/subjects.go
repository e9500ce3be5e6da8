package orchestrator

const (
	StreamName   = "VALIDATION_EVENTS"
	StreamMaxAge = "720h" // 30 days
)

func SubjectRunResume(executionID string) string {
	return "validation.run." + executionID + ".resume"
}

func SubjectGateDecided(projectID string) string {
	return "validation.gate." + projectID + ".decided"
}

func SubjectApprovalRequested(requestID string) string {
	return "validation.approval." + requestID + ".requested"
}

func SubjectApprovalDecided(requestID string) string {
	return "validation.approval." + requestID + ".decided"
}
