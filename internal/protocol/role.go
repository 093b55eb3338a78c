package protocol

// Role is one of the two paddles a player controls in a match.
type Role string

const (
	RoleBottom Role = "bottom"
	RoleTop    Role = "top"
)

// RoleForPosition maps a zero-based arrival position to a role: the first
// arrival plays bottom, the second plays top.
func RoleForPosition(pos int) Role {
	if pos == 0 {
		return RoleBottom
	}
	return RoleTop
}
