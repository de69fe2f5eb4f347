package datakey

import "fmt"

// transitions maps (state, action) -> next state for the six-state key
// lifecycle graph: disabled/enabled are the stable states; revoke and
// delete both go through a pending state that the compactor promotes
// once enough distinct requesters have asked for it, or that a
// cancel_* action reverts.
var transitions = map[KeyState]map[KeyAction]KeyState{
	StateDisabled: {
		ActionEnable: StateEnabled,
		ActionDelete: StatePendingDelete,
	},
	StateEnabled: {
		ActionDisable: StateDisabled,
		ActionRevoke:  StatePendingRevoke,
		ActionDelete:  StatePendingDelete,
		ActionSign:    StateEnabled,
		ActionRead:    StateEnabled,
	},
	StatePendingRevoke: {
		ActionCancelRevoke: StateEnabled,
	},
	StatePendingDelete: {
		ActionCancelDelete: StateEnabled,
	},
}

// Transition returns the state a key moves to when action is applied
// from current, or an error if the action is not valid from that state.
// previous is the state the key held just before it entered current;
// it is consulted only by cancel_delete, which must restore a key
// deleted from disabled back to disabled rather than always
// re-enabling it. The PendingRevoke -> Revoked and PendingDelete ->
// Deleted edges are not reachable through Transition: only the
// compactor may promote a pending operation, once its approval
// threshold is met.
func Transition(current KeyState, action KeyAction, previous KeyState) (KeyState, error) {
	if current == StatePendingDelete && action == ActionCancelDelete && previous == StateDisabled {
		return StateDisabled, nil
	}
	next, ok := transitions[current][action]
	if !ok {
		return "", fmt.Errorf("datakey: action %q is not valid from state %q", action, current)
	}
	return next, nil
}

// Promote moves a pending state to its terminal counterpart once the
// compactor's approval threshold has been met. It is the only path to
// Revoked or Deleted.
func Promote(current KeyState) (KeyState, error) {
	switch current {
	case StatePendingRevoke:
		return StateRevoked, nil
	case StatePendingDelete:
		return StateDeleted, nil
	default:
		return "", fmt.Errorf("datakey: state %q has no pending promotion", current)
	}
}

// Usable reports whether a key in the given state is still alive in
// any sense: readable, exportable, chainable as a parent. A key
// pending revoke or delete is still Usable by this definition, but is
// never allowed to sign — Service.Sign tests KeyState == StateEnabled
// directly rather than calling Usable.
func Usable(state KeyState) bool {
	return state == StateEnabled || state == StatePendingRevoke || state == StatePendingDelete
}
