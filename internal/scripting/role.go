package scripting

import (
	"errors"
	"fmt"
	"strings"
)

// Role identifies which side of a match a competitor program plays.
type Role string

const (
	RoleMazeMaster  Role = "maze-master"
	RoleAdventurers Role = "adventurers"
)

// ErrInvalidRole is returned when a role string names neither side.
var ErrInvalidRole = errors.New("invalid competitor role")

var roleSeparators = strings.NewReplacer(" ", "", "_", "", "-", "")

// ParseRole accepts the loose spellings competitors register with:
// separators and case are ignored, and "adventurer" is accepted as singular.
func ParseRole(s string) (Role, error) {
	switch roleSeparators.Replace(strings.ToLower(strings.TrimSpace(s))) {
	case "adventurer", "adventurers":
		return RoleAdventurers, nil
	case "mazemaster":
		return RoleMazeMaster, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidRole, s)
}

// Source is a competitor registration: which side, a display name, and the
// program text.
type Source struct {
	Role Role   `json:"role"`
	Name string `json:"name"`
	Code string `json:"source"`
}

// entryPoints lists the methods each role's program must expose.
var entryPoints = map[Role][]string{
	RoleMazeMaster:  {"generateMaze", "takeTurn"},
	RoleAdventurers: {"startRound", "takeTurn"},
}
