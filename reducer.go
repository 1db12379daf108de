package goSession

type actionKind uint8

const (
	actRestoreHit actionKind = iota
	actRestoreMiss
	actLoadingStart
	actOTPSent
	actOTPFailed
	actLoginSucceeded
	actLoginFailed
	actLoggedOut
	actAuthExpired
	actClearError
)

type action struct {
	kind actionKind
	user *User
	err  error
}

// reduce maps the current snapshot and one action to the next snapshot. It is
// pure: every state change in the manager flows through here, serialized under
// the manager mutex, so no interleaving can produce a snapshot reduce cannot.
func reduce(cur Snapshot, act action) Snapshot {
	switch act.kind {
	case actRestoreHit:
		return Snapshot{
			State:         StateAuthenticated,
			User:          act.user,
			Authenticated: true,
		}

	case actRestoreMiss:
		return Snapshot{State: StateUnauthenticated}

	case actLoadingStart:
		cur.Loading = true
		cur.Err = nil
		return cur

	case actOTPSent:
		return Snapshot{State: StateOTPPending}

	case actOTPFailed:
		// A failed send keeps the user on the identity screen.
		cur.Loading = false
		cur.Err = act.err
		return cur

	case actLoginSucceeded:
		return Snapshot{
			State:         StateAuthenticated,
			User:          act.user,
			Authenticated: true,
		}

	case actLoginFailed:
		cur.Loading = false
		cur.Err = act.err
		return cur

	case actLoggedOut:
		return Snapshot{State: StateUnauthenticated}

	case actAuthExpired:
		return Snapshot{
			State: StateUnauthenticated,
			Err:   act.err,
		}

	case actClearError:
		cur.Err = nil
		return cur

	default:
		return cur
	}
}
