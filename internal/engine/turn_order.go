package engine

// Slot is a numbered seat in a session. Numbering starts at 1 with the owner and then
// follows join order; it never changes once assigned because members cannot leave.
type Slot struct {
	Number   int
	Identity string
	Owner    bool
}

func Slots(s State) []Slot {
	members := s.Members()
	slots := make([]Slot, len(members))
	for i, id := range members {
		slots[i] = Slot{Number: i + 1, Identity: id, Owner: i == 0}
	}
	return slots
}

// OpenSlots is the number of seats still free, never negative.
func OpenSlots(s State) int {
	free := s.Config.Capacity - len(s.Members())
	if free < 0 {
		return 0
	}
	return free
}
