package syncx

// Len returns the number of mutexes in the namespace.
func (ns *MutexNamespace) Len() int {
	return ns.len()
}
