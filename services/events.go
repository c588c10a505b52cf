package services

// Event names pushed to a user's live sessions after a commit.
const (
	EventBalanceUpdated = "balance.updated"
	EventChecksAtRisk   = "checks.at_risk"
	EventCheckCleared   = "check.cleared"
	EventCheckBounced   = "check.bounced"
	EventBillPaid       = "bill.paid"
)

// EventPublisher fans out committed ledger changes. Publishing is fire and
// forget; implementations must not block the caller for long.
type EventPublisher interface {
	Publish(userID, event string, payload interface{})
}

type noopPublisher struct{}

func (noopPublisher) Publish(string, string, interface{}) {}

func publisherOrNoop(p EventPublisher) EventPublisher {
	if p == nil {
		return noopPublisher{}
	}
	return p
}
