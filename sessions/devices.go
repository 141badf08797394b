package sessions

// deviceSet tracks device identities that have claimed attendance for one
// session. Reservations cover the gap between validation and the persistence
// write: a reserved device blocks concurrent claims but can be released if the
// write fails, so a rejected submission never leaves partial state.
//
// All methods assume the owning session's mutex is held.
type deviceSet struct {
	claimed  map[string]struct{}
	reserved map[string]struct{}
}

func newDeviceSet() *deviceSet {
	return &deviceSet{
		claimed:  make(map[string]struct{}),
		reserved: make(map[string]struct{}),
	}
}

func (d *deviceSet) has(deviceID string) bool {
	if _, ok := d.claimed[deviceID]; ok {
		return true
	}
	_, ok := d.reserved[deviceID]
	return ok
}

// reserve marks the device as pending. It fails if the device already claimed
// or holds a reservation.
func (d *deviceSet) reserve(deviceID string) bool {
	if d.has(deviceID) {
		return false
	}
	d.reserved[deviceID] = struct{}{}
	return true
}

// confirm promotes a reservation to a claim. Recording an unreserved device
// directly is also valid (durable-check hits).
func (d *deviceSet) confirm(deviceID string) {
	delete(d.reserved, deviceID)
	d.claimed[deviceID] = struct{}{}
}

// release drops a reservation without claiming, so a later retry can succeed.
func (d *deviceSet) release(deviceID string) {
	delete(d.reserved, deviceID)
}
