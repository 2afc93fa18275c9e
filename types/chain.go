package types

// ChainID identifies a supported ledger.
type ChainID string

// RoutePriority selects the scoring strategy used when ranking candidate routes.
type RoutePriority string

const (
	PrioritySpeed   RoutePriority = "speed"
	PriorityCost    RoutePriority = "cost"
	PriorityPrivacy RoutePriority = "privacy"
)

// ValidPriority returns true if p is one of the supported route priorities.
func ValidPriority(p RoutePriority) bool {
	switch p {
	case PrioritySpeed, PriorityCost, PriorityPrivacy:
		return true
	}
	return false
}
