package session

import (
	"errors"

	"github.com/iksnae/synapse-chat/internal"
)

// Assistant messages recorded in place of a reply when the chat call fails
const (
	FailureNetwork      = "Error: the chat service could not be reached. Please try again."
	FailureUnauthorized = "Error: your session has expired. Please sign in again."
	FailureServer       = "Error: the chat service failed to answer. Please try again."
	FailureMalformed    = "Error: the chat service sent an unreadable reply. Please try again."
)

// FailureMessage renders a transport failure as the text of an assistant turn
func FailureMessage(err error) string {
	if errors.Is(err, internal.ErrUnauthorized) {
		return FailureUnauthorized
	}
	var te *internal.TransportError
	if !errors.As(err, &te) {
		return FailureNetwork
	}
	switch {
	case te.Network():
		return FailureNetwork
	case te.Malformed():
		return FailureMalformed
	case te.Message != "":
		return "Error: " + te.Message
	default:
		return FailureServer
	}
}
