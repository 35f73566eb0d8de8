package stream

import "github.com/dogmatiq/eventcore/event"

// Resolver is an interface for determining which partition of a stream an
// event belongs to.
type Resolver interface {
	Resolve(ev event.CommittedEvent, d Definition) PartitionID
}

// ResolverFunc is an adaptor that allows a function to be used as a Resolver.
type ResolverFunc func(ev event.CommittedEvent, d Definition) PartitionID

// Resolve returns the partition that ev belongs to.
func (fn ResolverFunc) Resolve(ev event.CommittedEvent, d Definition) PartitionID {
	return fn(ev, d)
}

// EventSourceResolver is a Resolver that partitions events by their event
// source.
//
// Events in unpartitioned streams are always in the NotSet partition.
type EventSourceResolver struct{}

// Resolve returns the partition that ev belongs to.
func (EventSourceResolver) Resolve(ev event.CommittedEvent, d Definition) PartitionID {
	if !d.Partitioned {
		return NotSet
	}

	return PartitionID(ev.EventSource)
}

// resolve returns the partition of ev using r, or EventSourceResolver if r is
// nil.
func resolve(r Resolver, ev event.CommittedEvent, d Definition) PartitionID {
	if r == nil {
		r = EventSourceResolver{}
	}

	return r.Resolve(ev, d)
}
