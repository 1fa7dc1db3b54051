package session

import "errors"

// Session bootstrap errors.
var (
	ErrAgentParse = errors.New("could not parse ssh-agent output")
)
