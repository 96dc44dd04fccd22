package scanner

import (
	"context"
	"sync"
	"time"
)

// fakeRadio emits a scripted batch of discoveries each time discovery starts.
type fakeRadio struct {
	mu sync.Mutex

	initErr  error
	startErr []error // per StartDiscovery call; missing entries mean success
	stopErr  []error // per StopDiscovery call made from a cycle
	batches  [][]Discovery

	starts int
	stops  int
	opts   DiscoveryOptions
	handle func(Discovery)
}

func (r *fakeRadio) Init(context.Context) error {
	return r.initErr
}

func (r *fakeRadio) StartDiscovery(_ context.Context, opts DiscoveryOptions, handle func(Discovery)) error {
	r.mu.Lock()
	call := r.starts
	r.starts++
	r.opts = opts
	var err error
	if call < len(r.startErr) {
		err = r.startErr[call]
	}
	if err != nil {
		r.mu.Unlock()
		return err
	}
	r.handle = handle
	var batch []Discovery
	if len(r.batches) > 0 {
		if call < len(r.batches) {
			batch = r.batches[call]
		} else {
			batch = r.batches[len(r.batches)-1]
		}
	}
	r.mu.Unlock()

	for _, d := range batch {
		handle(d)
	}
	return nil
}

func (r *fakeRadio) StopDiscovery(context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	call := r.stops
	r.stops++
	if call < len(r.stopErr) {
		return r.stopErr[call]
	}
	return nil
}

// emit delivers a discovery through the most recent handler, as a late
// callback from the radio would.
func (r *fakeRadio) emit(d Discovery) {
	r.mu.Lock()
	h := r.handle
	r.mu.Unlock()
	if h != nil {
		h(d)
	}
}

func (r *fakeRadio) setBatches(b ...[]Discovery) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.batches = b
}

func (r *fakeRadio) startCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.starts
}

func (r *fakeRadio) stopCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stops
}

func seen(id string, rssi int) Discovery {
	return Discovery{ID: id, RSSI: rssi, HasRSSI: true, Seen: time.Now()}
}

// recorder collects controller callbacks.
type recorder struct {
	mu       sync.Mutex
	cycles   []CycleResult
	statuses []Status
}

func (r *recorder) onCycle(res CycleResult) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cycles = append(r.cycles, res)
}

func (r *recorder) onStatus(s Status) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.statuses = append(r.statuses, s)
}

func (r *recorder) cycleCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.cycles)
}

func (r *recorder) cycle(i int) CycleResult {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.cycles[i]
}

func (r *recorder) messages() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.statuses))
	for i, s := range r.statuses {
		out[i] = s.Message
	}
	return out
}
