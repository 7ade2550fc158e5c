package fastview

import (
	"time"

	channerics "github.com/niceyeti/channerics/channels"
)

// DefaultCoalesceRate bounds how often merged ele-updates are offered downstream.
const DefaultCoalesceRate = time.Millisecond * 50

// Coalesce merges updates from source, keeping only the latest ops per ele-id,
// and offers the pending batch downstream at most once per rate. It never blocks
// the source on a slow or absent reader: pending updates simply accumulate
// (bounded by the number of distinct elements) until someone receives them.
// Batches preserve the order in which ele-ids were first seen.
func Coalesce(
	done <-chan struct{},
	source <-chan []EleUpdate,
	rate time.Duration,
) <-chan []EleUpdate {
	output := make(chan []EleUpdate)

	go func() {
		defer close(output)

		pending := map[string]EleUpdate{}
		order := []string{}
		ticker := channerics.NewTicker(done, rate)
		ready := false

		for {
			var out chan<- []EleUpdate
			var batch []EleUpdate
			if ready && len(order) > 0 {
				out = output
				batch = make([]EleUpdate, 0, len(order))
				for _, id := range order {
					batch = append(batch, pending[id])
				}
			}

			select {
			case <-done:
				return
			case updates, ok := <-source:
				if !ok {
					if len(order) == 0 {
						return
					}
					source = nil
					continue
				}
				for _, update := range updates {
					if _, seen := pending[update.EleId]; !seen {
						order = append(order, update.EleId)
					}
					pending[update.EleId] = update
				}
			case <-ticker:
				ready = true
			case out <- batch:
				pending = map[string]EleUpdate{}
				order = order[:0]
				ready = false
				if source == nil {
					return
				}
			}
		}
	}()

	return output
}
