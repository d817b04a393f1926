package registry

import "sync"

// DriverTrips tracks which request ids are currently "em viagem" for each
// driver, keyed by the driver's display name. It is the only state shared
// between concurrently running monitors, so every read-modify-write holds
// the lock for its whole duration.
type DriverTrips struct {
	mu    sync.Mutex
	trips map[string]map[string]struct{}
}

func New() *DriverTrips {
	return &DriverTrips{trips: make(map[string]map[string]struct{})}
}

// AddTrip flags requestID as an active trip for driver. No-op on empty args.
func (d *DriverTrips) AddTrip(driver, requestID string) {
	if driver == "" || requestID == "" {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	set := d.trips[driver]
	if set == nil {
		set = make(map[string]struct{})
		d.trips[driver] = set
	}
	set[requestID] = struct{}{}
}

// RemoveTrip clears requestID for driver. Idempotent; the driver's entry is
// deleted once its set is empty so the map never holds dangling keys.
func (d *DriverTrips) RemoveTrip(driver, requestID string) {
	if driver == "" || requestID == "" {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	set := d.trips[driver]
	if set == nil {
		return
	}
	delete(set, requestID)
	if len(set) == 0 {
		delete(d.trips, driver)
	}
}

// ActiveOthersFor returns the ids of trips currently active for driver,
// excluding the given request id. Returns nil when there are none.
func (d *DriverTrips) ActiveOthersFor(driver, excludingRequestID string) []string {
	if driver == "" {
		return nil
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	set := d.trips[driver]
	if len(set) == 0 {
		return nil
	}
	others := make([]string, 0, len(set))
	for id := range set {
		if id != excludingRequestID {
			others = append(others, id)
		}
	}
	if len(others) == 0 {
		return nil
	}
	return others
}

// Len returns the number of drivers with at least one active trip.
func (d *DriverTrips) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.trips)
}
