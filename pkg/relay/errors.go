package relay

import "errors"

var (
	// ErrAlreadyLinked is returned when requesting a forward for a pair that
	// already has a confirmed rule.
	ErrAlreadyLinked = errors.New("forwarding rule already exists for this pair")

	// ErrNoPendingRequest is returned by Confirm when no live pending
	// request matches the invoking session.
	ErrNoPendingRequest = errors.New("no pending bind request for this session")

	// ErrUnauthorized is returned when a session tries to delete a rule it
	// does not participate in.
	ErrUnauthorized = errors.New("only a participant of a rule may delete it")
)
