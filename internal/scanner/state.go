package scanner

// State is the coordinator's position in its loop.
type State int

const (
	StateNew State = iota
	StateCatchingUpUndo
	StateCatchingUpScan
	StateIdlePoll
	StateFatal
	StateStopped
)

var stateNames = map[State]string{
	StateNew:            "new",
	StateCatchingUpUndo: "catching_up_undo",
	StateCatchingUpScan: "catching_up_scan",
	StateIdlePoll:       "idle_poll",
	StateFatal:          "fatal",
	StateStopped:        "stopped",
}

// AllStates lists the state names in declaration order.
func AllStates() []string {
	names := make([]string, 0, len(stateNames))
	for s := StateNew; s <= StateStopped; s++ {
		names = append(names, stateNames[s])
	}

	return names
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}

	return "unknown"
}

// MarshalText implements encoding.TextMarshaler.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}
