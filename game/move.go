package game

// Placement is the resolved outcome of one step.
type Placement struct {
	Player   int  `json:"player"`
	Region   int  `json:"region"`
	Value    int  `json:"value"`
	Troops   int  `json:"troops"` // soldiers actually placed, after capping
	Forced   bool `json:"forced,omitempty"`
	Rerolled bool `json:"rerolled,omitempty"`
}

// ActionIndex encodes a region and troop offset as a raw action.
func ActionIndex(region, troop int) int {
	return region*TroopOffsets + troop
}

// SplitAction decodes a raw action.
func SplitAction(action int) (region, troop int) {
	if action < 0 || action >= NumActions {
		panic("raw action out of range")
	}
	return action / TroopOffsets, action % TroopOffsets
}

// OptionAction maps a dice option to the raw action it plays for a player
// holding the given number of soldiers.
func (m *Map) OptionAction(o Option, soldiers int) int {
	troop := o.Troop
	if soldiers-1 < troop {
		troop = max(soldiers-1, 0)
	}
	return ActionIndex(m.ValueToRegion(o.Offset), troop)
}
