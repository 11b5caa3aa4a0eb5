// Package entitlements resolves a subscription type into the concrete
// limits the quota tracker and chat service enforce.
package entitlements

import "slices"

// MessageLimit is the daily message ceiling as a tagged value, so the
// storage sentinel -1 is never compared as a finite number.
type MessageLimit struct {
	n         int
	unlimited bool
}

func Unlimited() MessageLimit {
	return MessageLimit{unlimited: true}
}

func LimitOf(n int) MessageLimit {
	return MessageLimit{n: n}
}

// FromCeiling converts the storage representation, where -1 (or any
// negative value) means no ceiling.
func FromCeiling(raw int) MessageLimit {
	if raw < 0 {
		return Unlimited()
	}
	return LimitOf(raw)
}

func (l MessageLimit) IsUnlimited() bool {
	return l.unlimited
}

// N is the finite ceiling. Only meaningful when IsUnlimited is false.
func (l MessageLimit) N() int {
	return l.n
}

// Ceiling converts back to the edge representation: -1 for unlimited.
func (l MessageLimit) Ceiling() int {
	if l.unlimited {
		return -1
	}
	return l.n
}

// Entitlements is the resolved, ephemeral view of a tier. It is computed
// on demand and never persisted, so it cannot drift from the registry.
type Entitlements struct {
	Limit    MessageLimit
	ModelIDs []string
}

func (e Entitlements) AllowsModel(modelID string) bool {
	return slices.Contains(e.ModelIDs, modelID)
}
