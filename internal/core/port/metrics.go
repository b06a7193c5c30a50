package port

// AccessCodeMetrics records access code issuance and validation outcomes.
type AccessCodeMetrics interface {
	ObserveIssued(trigger string)
	ObserveValidation(outcome string)
}
