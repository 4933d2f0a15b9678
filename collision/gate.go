package collision

// pairKey is an unordered pair of part names.
type pairKey struct {
	a, b string
}

func newPairKey(first, second string) pairKey {
	if second < first {
		first, second = second, first
	}
	return pairKey{a: first, b: second}
}

// AllowanceGate answers whether a pair of parts is exempt from distance
// checking. It fails closed: a pair with no explicit always-allow entry must
// be checked.
type AllowanceGate struct {
	allowed map[pairKey]bool
}

// NewAllowanceGate builds a gate from the model's declared pairwise policy.
func NewAllowanceGate(policy []PairAllowance) *AllowanceGate {
	allowed := make(map[pairKey]bool, len(policy))
	for _, entry := range policy {
		allowed[newPairKey(entry.First, entry.Second)] = entry.Allowed
	}
	return &AllowanceGate{allowed: allowed}
}

// IsAllowed returns true only when the policy has an explicit entry for the
// unordered pair marked always-allow.
func (g *AllowanceGate) IsAllowed(first, second string) bool {
	return g.allowed[newPairKey(first, second)]
}
