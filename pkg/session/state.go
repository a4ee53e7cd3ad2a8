package session

import (
	"fmt"
)

type State int

const (
	StateIdle = State(iota)
	StateCapturing
	StateDenoising
	StateSaving
	StatePlaying
	StateTerminated
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateCapturing:
		return "capturing"
	case StateDenoising:
		return "denoising"
	case StateSaving:
		return "saving"
	case StatePlaying:
		return "playing"
	case StateTerminated:
		return "terminated"
	default:
		return fmt.Sprintf("<unexpected_value_%d>", int(s))
	}
}
