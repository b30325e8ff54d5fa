package arena

import (
	"github.com/rotisserie/eris"

	"petalarena.io/internal/sim/loadout"
)

// Command failures. None of them is fatal to the simulation; callers decide
// whether to surface them to the client.
var (
	// ErrValidation: malformed or out-of-range command; no state changed.
	ErrValidation = eris.New("validation failure")
	// ErrAuth: bad credentials or a duplicate active session.
	ErrAuth = eris.New("auth failure")
	// ErrCapacity: inventory full; item and slot unchanged.
	ErrCapacity = eris.New("capacity failure")
	// ErrConcurrencyLoss: another command claimed the target first.
	ErrConcurrencyLoss = eris.New("concurrency loss")

	ErrAlreadyRunning = eris.New("tick driver already running")
)

func fromLoadout(err error) error {
	switch {
	case err == nil:
		return nil
	case eris.Is(err, loadout.ErrFull):
		return eris.Wrap(ErrCapacity, err.Error())
	case eris.Is(err, loadout.ErrClaimed):
		return eris.Wrap(ErrConcurrencyLoss, err.Error())
	default:
		return eris.Wrap(ErrValidation, err.Error())
	}
}
