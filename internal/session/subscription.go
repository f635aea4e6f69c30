package session

// Intersector decides whether two expanded key expressions overlap. It
// is supplied externally (key-expression syntax is out of scope for this
// core) and is assumed pure and symmetric.
type Intersector func(a, b string) bool

// Sample is handed to a subscription callback for each matching inbound
// data sample.
type Sample struct {
	Timestamp  Timestamp
	Attachment []byte
	KeyExpr    string
	Payload    []byte
	Encoding   string
	Kind       uint8
}

// SampleCallback is invoked once per matching subscription, synchronously
// from DispatchSample, with the session lock released.
type SampleCallback func(sample Sample, arg any)

// Dropper is invoked exactly once, on every removal path (explicit
// unregister or a registry-wide flush), before the subscription's key
// expression is released, so callers can always rely on cleanup running
// regardless of which path removed the subscription.
type Dropper func(arg any)

// Subscription is an immutable registry record: every field is fixed at
// registration time and never mutated afterward.
type Subscription struct {
	Callback SampleCallback
	Dropper  Dropper
	Arg      any
	KeyExpr  KeyExpr
	expanded string
	ID       uint64
}

// subscriptionRegistry stores subscriptions partitioned into local and
// remote sets, keyed by subscription id. Every method assumes the
// caller holds the session mutex.
type subscriptionRegistry struct {
	local      map[uint64]*Subscription
	remote     map[uint64]*Subscription
	intersects Intersector
	nextID     uint64
}

func newSubscriptionRegistry(intersects Intersector) *subscriptionRegistry {
	return &subscriptionRegistry{
		local:      make(map[uint64]*Subscription),
		remote:     make(map[uint64]*Subscription),
		intersects: intersects,
	}
}

func (r *subscriptionRegistry) partition(isLocal bool) map[uint64]*Subscription {
	if isLocal {
		return r.local
	}
	return r.remote
}

// register allocates a stable handle and inserts sub into the given
// partition, but only if no existing subscription in that partition
// already covers the same key expression (dedup by coverage, not by
// id — protocol declarations are emitted only on first coverage). It
// returns nil if a covering subscription already exists.
func (r *subscriptionRegistry) register(isLocal bool, expanded string, key KeyExpr, cb SampleCallback, arg any, drop Dropper) *Subscription {
	part := r.partition(isLocal)
	for _, existing := range part {
		if r.intersects(existing.expanded, expanded) {
			return nil
		}
	}

	r.nextID++
	sub := &Subscription{
		ID:       r.nextID,
		KeyExpr:  key,
		expanded: expanded,
		Callback: cb,
		Arg:      arg,
		Dropper:  drop,
	}
	part[sub.ID] = sub
	return sub
}

// byID performs a lookup within one partition.
func (r *subscriptionRegistry) byID(isLocal bool, id uint64) *Subscription {
	return r.partition(isLocal)[id]
}

// matching returns a freshly allocated slice of subscriptions in the
// given partition whose key expression intersects key. Entries are
// shared references into registry-owned records; callers must consume
// the slice before the registry is next mutated.
func (r *subscriptionRegistry) matching(isLocal bool, key string) []*Subscription {
	var out []*Subscription
	for _, sub := range r.partition(isLocal) {
		if r.intersects(sub.expanded, key) {
			out = append(out, sub)
		}
	}
	return out
}

// unregister removes one subscription and invokes its dropper, if any.
func (r *subscriptionRegistry) unregister(isLocal bool, id uint64) {
	part := r.partition(isLocal)
	sub, ok := part[id]
	if !ok {
		return
	}
	delete(part, id)
	if sub.Dropper != nil {
		sub.Dropper(sub.Arg)
	}
}

// flush unregisters every subscription in both partitions, invoking
// every dropper.
func (r *subscriptionRegistry) flush() {
	for _, part := range []map[uint64]*Subscription{r.local, r.remote} {
		for id, sub := range part {
			delete(part, id)
			if sub.Dropper != nil {
				sub.Dropper(sub.Arg)
			}
		}
	}
}
