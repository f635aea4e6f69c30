// Package session implements the in-session coordination core of a
// lightweight pub/sub/query client: resource resolution, subscription
// matching, and per-query reply consolidation. It holds no transport,
// codec, or discovery logic — those are external collaborators that
// feed decoded frames in through DispatchSample, OnPartialReply and
// OnFinalReply, and consume declarations/frames back out through the
// caller's own plumbing.
package session

import "go.uber.org/zap"

// Session is the explicit, owned handle every operation is threaded
// through — never a package-level global, so a process can host more
// than one independently. A single coarse mutex guards all four
// components' mutable state: subscription lists, pending-query table,
// resource tables and id counters all share one lock.
type Session struct {
	mu           locker
	resolver     *resourceResolver
	subs         *subscriptionRegistry
	queries      *queryRegistry
	consolidator *consolidator
	log          *zap.Logger
	metricsHook  MetricsHook
}

// MetricsHook lets a caller observe registry size and drop counts
// without the core depending on any particular metrics library. nil is
// valid and means "don't bother" (see internal/metrics.Collector for a
// Prometheus-backed implementation).
type MetricsHook interface {
	SetPendingQueries(n int)
	SetSubscriptions(n int)
	IncReplyDropped(reason string)
}

type noopMetricsHook struct{}

func (noopMetricsHook) SetPendingQueries(int) {}
func (noopMetricsHook) SetSubscriptions(int)  {}
func (noopMetricsHook) IncReplyDropped(string) {}

// Option configures a Session at construction time using the standard
// functional-options pattern, so new configuration knobs can be added
// without breaking existing callers of New.
type Option func(*Session)

// WithLogger attaches a zap logger used for Debug-level trace lines on
// every dropped reply. The default is a no-op logger.
func WithLogger(log *zap.Logger) Option {
	return func(s *Session) { s.log = log }
}

// WithMetrics attaches a MetricsHook. The default is a no-op hook.
func WithMetrics(hook MetricsHook) Option {
	return func(s *Session) {
		if hook != nil {
			s.metricsHook = hook
		}
	}
}

// New creates an empty Session. intersects is the externally supplied
// key-expression intersection predicate: it must be pure and symmetric,
// since it is called with the session lock held and its result is never
// cached.
func New(intersects Intersector, opts ...Option) *Session {
	s := &Session{
		mu:          newLocker(),
		resolver:    newResourceResolver(),
		subs:        newSubscriptionRegistry(intersects),
		queries:     newQueryRegistry(),
		log:         zap.NewNop(),
		metricsHook: noopMetricsHook{},
	}
	s.consolidator = newConsolidator(s)
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// logDrop implements dropLogger so *consolidator can emit structured
// trace lines without importing zap itself.
func (s *Session) logDrop(op string, reason dropReason, queryID uint64) {
	s.log.Debug("dropped inbound frame",
		zap.String("op", op),
		zap.String("reason", string(reason)),
		zap.Uint64("query_id", queryID),
	)
	s.metricsHook.IncReplyDropped(string(reason))
}

// DeclareResource records a resource declaration in the given
// partition. Expanding key eagerly is not required: the resolver
// expands lazily on demand.
func (s *Session) DeclareResource(isLocal bool, id uint64, key KeyExpr) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resolver.declare(isLocal, id, key)
}

// ForgetResource removes a resource declaration.
func (s *Session) ForgetResource(isLocal bool, id uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resolver.forget(isLocal, id)
}

// ExpandKeyExpr resolves key to its fully expanded string form under
// the session lock.
func (s *Session) ExpandKeyExpr(isLocal bool, key KeyExpr) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.resolver.expand(isLocal, key)
}

// RegisterSubscription allocates and inserts a subscription, returning
// nil if an existing subscription in the same partition already covers
// the new key expression.
func (s *Session) RegisterSubscription(isLocal bool, key KeyExpr, cb SampleCallback, arg any, drop Dropper) (*Subscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	expanded, err := s.resolver.expand(isLocal, key)
	if err != nil {
		return nil, err
	}

	sub := s.subs.register(isLocal, expanded, key, cb, arg, drop)
	s.metricsHook.SetSubscriptions(len(s.subs.local) + len(s.subs.remote))
	return sub, nil
}

// SubscriptionByID looks up a subscription by id within one partition.
func (s *Session) SubscriptionByID(isLocal bool, id uint64) *Subscription {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.subs.byID(isLocal, id)
}

// UnregisterSubscription removes one subscription, invoking its
// dropper if set, on every call path.
func (s *Session) UnregisterSubscription(isLocal bool, id uint64) {
	s.mu.Lock()
	s.subs.unregister(isLocal, id)
	count := len(s.subs.local) + len(s.subs.remote)
	s.mu.Unlock()
	s.metricsHook.SetSubscriptions(count)
}

// DispatchSample expands keyexpr, snapshots every local subscription
// whose key intersects it, releases the lock, then invokes each
// callback in turn. Releasing the lock before invoking callbacks lets a
// callback safely call back into the session — e.g. to register another
// subscription or declare a resource — without deadlocking.
func (s *Session) DispatchSample(key KeyExpr, payload []byte, encoding string, kind uint8, ts Timestamp, attachment []byte) error {
	s.mu.Lock()
	expanded, err := s.resolver.expand(true, key)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	matches := s.subs.matching(true, expanded)
	s.mu.Unlock()

	sample := Sample{
		KeyExpr:    expanded,
		Payload:    payload,
		Encoding:   encoding,
		Kind:       kind,
		Timestamp:  ts,
		Attachment: attachment,
	}
	for _, sub := range matches {
		sub.Callback(sample, sub.Arg)
	}
	return nil
}

// NextQueryID returns the next value from the session's monotonic,
// process-local query id counter.
func (s *Session) NextQueryID() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.queries.nextQueryID()
}

// RegisterQuery inserts query into the pending registry, rejecting it
// if the id is already occupied.
func (s *Session) RegisterQuery(query *PendingQuery) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.queries.register(query); err != nil {
		return err
	}
	s.metricsHook.SetPendingQueries(len(s.queries.pending))
	return nil
}

// QueryByID looks up a pending query by id.
func (s *Session) QueryByID(id uint64) *PendingQuery {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.queries.byID(id)
}

// UnregisterQuery removes a pending query, e.g. because a surrounding
// timeout scheduler abandoned it. No callback is invoked.
func (s *Session) UnregisterQuery(id uint64) {
	s.mu.Lock()
	s.queries.unregister(id)
	count := len(s.queries.pending)
	s.mu.Unlock()
	s.metricsHook.SetPendingQueries(count)
}

// OnPartialReply is the decoder's entry point for an intermediate reply
// in a query's response stream. Note: unlike DispatchSample, the reply
// callback fires with the session lock held.
func (s *Session) OnPartialReply(rc ReplyContext, reskey KeyExpr, payload []byte, info DataInfo) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.consolidator.onPartialReply(s.queries, s.resolver, rc, reskey, payload, info)
}

// OnFinalReply is the decoder's entry point for the terminal reply
// marking no more replies for a query id.
func (s *Session) OnFinalReply(rc ReplyContext) {
	s.mu.Lock()
	s.consolidator.onFinalReply(s.queries, rc)
	count := len(s.queries.pending)
	s.mu.Unlock()
	s.metricsHook.SetPendingQueries(count)
}

// Flush tears down every subscription and pending query. Droppers fire
// for subscriptions; pending queries are released without synthesizing
// any callback.
func (s *Session) Flush() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subs.flush()
	s.queries.flush()
	s.metricsHook.SetSubscriptions(0)
	s.metricsHook.SetPendingQueries(0)
}
