package leave

// HeldLocks reports how many employees currently have a lock entry.
func (v *Validator) HeldLocks() int {
	v.locksMu.Lock()
	defer v.locksMu.Unlock()
	return len(v.locks)
}
