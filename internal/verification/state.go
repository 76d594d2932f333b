package verification

import (
	"fmt"
	"strings"
)

// State is a participant's identity-verification state. Values are persisted.
type State int

const (
	StateDefault          State = 0
	StateVerified         State = 1
	StateNoLongerVerified State = 2
)

var stateNames = map[State]string{
	StateDefault:          "default",
	StateVerified:         "verified",
	StateNoLongerVerified: "no-longer-verified",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// IsValid reports whether s is one of the defined states.
func (s State) IsValid() bool {
	_, ok := stateNames[s]
	return ok
}

// ParseState parses the String form of a state. "unverified" is accepted as
// an alias for no-longer-verified.
func ParseState(s string) (State, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "default":
		return StateDefault, nil
	case "verified":
		return StateVerified, nil
	case "no-longer-verified", "unverified":
		return StateNoLongerVerified, nil
	}
	return 0, fmt.Errorf("unknown verification state %q", s)
}

// MarshalText encodes the state by name.
func (s State) MarshalText() ([]byte, error) {
	if !s.IsValid() {
		return nil, fmt.Errorf("invalid verification state %d", int(s))
	}
	return []byte(s.String()), nil
}

// UnmarshalText decodes a state name.
func (s *State) UnmarshalText(text []byte) error {
	parsed, err := ParseState(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}
