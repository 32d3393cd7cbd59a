package datastructure

import "math"

const (
	UnlimitedTransitions uint32  = math.MaxUint32
	MaxExpansionDistance float64 = 1e9 // meters
)

// HierarchyLimits bounds expansion of one hierarchy level. UpTransitionCount is search state and
// starts at zero for every pass.
type HierarchyLimits struct {
	UpTransitionCount   uint32
	MaxUpTransitions    uint32
	ExpansionWithinDist float64 // meters
}

func NewHierarchyLimits(maxUp uint32, within float64) HierarchyLimits {
	return HierarchyLimits{MaxUpTransitions: maxUp, ExpansionWithinDist: within}
}

// StopExpanding is true once the search is farther than ExpansionWithinDist from its target and has
// moved up from this level more than MaxUpTransitions times.
func (h *HierarchyLimits) StopExpanding(dist float64) bool {
	return dist > h.ExpansionWithinDist && h.UpTransitionCount > h.MaxUpTransitions
}

func (h *HierarchyLimits) AllowUpTransition() bool {
	return h.MaxUpTransitions > 0
}

func (h *HierarchyLimits) Relax(factor, withinFactor float64) {
	if h.MaxUpTransitions != UnlimitedTransitions {
		relaxed := float64(h.MaxUpTransitions) * factor
		if relaxed >= float64(UnlimitedTransitions) {
			h.MaxUpTransitions = UnlimitedTransitions
		} else {
			h.MaxUpTransitions = uint32(relaxed)
		}
	}
	h.ExpansionWithinDist = math.Min(h.ExpansionWithinDist*withinFactor, MaxExpansionDistance)
}

// Unlimit lifts both the transition cap and the expansion distance of this level.
func (h *HierarchyLimits) Unlimit() {
	h.ExpansionWithinDist = MaxExpansionDistance
	h.MaxUpTransitions = UnlimitedTransitions
}

// DisableUpTransitions keeps the search from leaving this level upward. Expansion on the level
// itself is unbounded.
func (h *HierarchyLimits) DisableUpTransitions() {
	h.ExpansionWithinDist = MaxExpansionDistance
	h.MaxUpTransitions = 0
}

func (h *HierarchyLimits) Reset() {
	h.UpTransitionCount = 0
}

// DefaultHierarchyLimits for vehicle modes. Index is the hierarchy level.
func DefaultHierarchyLimits() []HierarchyLimits {
	return []HierarchyLimits{
		NewHierarchyLimits(UnlimitedTransitions, MaxExpansionDistance),
		NewHierarchyLimits(400, 100000),
		NewHierarchyLimits(100, 5000),
		NewHierarchyLimits(UnlimitedTransitions, MaxExpansionDistance),
	}
}

func UnlimitedHierarchyLimits() []HierarchyLimits {
	limits := make([]HierarchyLimits, 4)
	for i := range limits {
		limits[i] = NewHierarchyLimits(UnlimitedTransitions, MaxExpansionDistance)
	}
	return limits
}
