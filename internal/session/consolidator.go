package session

// ReplyContext carries the header fields of an inbound reply frame that
// are independent of whether it is partial or final.
type ReplyContext struct {
	ReplierID   []byte
	QueryID     uint64
	ReplierKind ReplierKind
	Final       bool
}

// DataInfo carries the optional timestamp attached to a partial reply.
type DataInfo struct {
	Timestamp    Timestamp
	HasTimestamp bool
}

// consolidator applies the NONE/LAZY/FULL reception policies to inbound
// query replies. It holds no state of its own — all state lives on the
// PendingQuery and queryRegistry it is handed — so it is safe to share
// across sessions, though in practice one is owned per Session.
type consolidator struct {
	log dropLogger
}

// dropLogger receives a reason whenever a reply or query is dropped
// without reaching a callback. It is implemented by *Session (via zap)
// so the consolidator stays independent of the logging library.
type dropLogger interface {
	logDrop(op string, reason dropReason, queryID uint64)
}

func newConsolidator(log dropLogger) *consolidator {
	return &consolidator{log: log}
}

// onPartialReply handles one intermediate reply in a query's response
// stream: validates it, resolves its key, and applies the query's
// consolidation policy. The caller must hold the session mutex.
func (c *consolidator) onPartialReply(queries *queryRegistry, resolver *resourceResolver, rc ReplyContext, reskey KeyExpr, payload []byte, info DataInfo) {
	if rc.Final {
		c.log.logDrop("partial_reply", dropShape, rc.QueryID)
		return
	}

	q := queries.byID(rc.QueryID)
	if q == nil {
		c.log.logDrop("partial_reply", dropUnknownQuery, rc.QueryID)
		return
	}

	if q.TargetKind != AllKinds && q.TargetKind&rc.ReplierKind == 0 {
		c.log.logDrop("partial_reply", dropTargetKind, rc.QueryID)
		return
	}

	ts := Timestamp{}
	if info.HasTimestamp {
		ts = info.Timestamp
	}

	var expandedKey string
	if reskey.ID == NoResourceID {
		expandedKey = reskey.Suffix
	} else {
		expanded, err := resolver.expand(false, reskey)
		if err != nil {
			// Resolver failures on an inbound reply are local drops,
			// same as any other shape/target mismatch.
			c.log.logDrop("partial_reply", dropUnknownKeyExpr, rc.QueryID)
			return
		}
		expandedKey = expanded
	}

	reply := Reply{
		Tag:         ReplyData,
		KeyExpr:     expandedKey,
		Payload:     payload,
		ReplierID:   rc.ReplierID,
		ReplierKind: rc.ReplierKind,
	}

	switch q.Consolidation {
	case ConsolidationNone:
		q.Callback(reply, q.Arg)
		return

	case ConsolidationLazy, ConsolidationFull:
		c.applyKeyedConsolidation(q, reply, ts)
	}
}

// applyKeyedConsolidation applies the LAZY and FULL policies: per-key
// supersession (a reply only replaces what is stored for the same key if
// its timestamp is strictly newer) followed by install.
func (c *consolidator) applyKeyedConsolidation(q *PendingQuery, reply Reply, ts Timestamp) {
	idx := q.findReply(reply.KeyExpr)
	if idx >= 0 {
		stored := q.replies[idx]
		// Strict inequality: equal timestamps are stale. First writer
		// wins on ties; tie-breaking by timestamp.id is deliberately
		// not performed (see Timestamp's doc comment).
		if ts.Time <= stored.timestamp.Time {
			return
		}
		// Strictly newer: the slot is reused below.
	}

	switch q.Consolidation {
	case ConsolidationFull:
		payload := append([]byte(nil), reply.Payload...)
		replierID := append([]byte(nil), reply.ReplierID...)
		stored := &pendingReply{
			keyExpr: reply.KeyExpr,
			reply: Reply{
				Tag:         ReplyData,
				KeyExpr:     reply.KeyExpr,
				Payload:     payload,
				ReplierID:   replierID,
				ReplierKind: reply.ReplierKind,
			},
			timestamp: ts,
		}
		if idx >= 0 {
			q.replies[idx] = stored
		} else {
			q.replies = append(q.replies, stored)
		}

	case ConsolidationLazy:
		stored := &pendingReply{
			keyExpr:   reply.KeyExpr,
			timestamp: ts,
		}
		if idx >= 0 {
			q.replies[idx] = stored
		} else {
			q.replies = append(q.replies, stored)
		}
		// Trigger the callback immediately; the stored slot keeps only
		// the timestamp so later replies can still be compared for
		// staleness without holding onto a payload nobody will re-read.
		q.Callback(reply, q.Arg)
	}
}

// onFinalReply handles the terminal reply marking no more replies will
// arrive for a query. The caller must hold the session mutex. It drains
// buffered replies, emits the synthetic FINAL, and unregisters the query.
func (c *consolidator) onFinalReply(queries *queryRegistry, rc ReplyContext) {
	if !rc.Final {
		c.log.logDrop("final_reply", dropShape, rc.QueryID)
		return
	}

	q := queries.byID(rc.QueryID)
	if q == nil {
		c.log.logDrop("final_reply", dropUnknownQuery, rc.QueryID)
		return
	}

	if q.TargetKind != AllKinds && q.TargetKind&rc.ReplierKind == 0 {
		c.log.logDrop("final_reply", dropTargetKind, rc.QueryID)
		return
	}

	// Drain in insertion order: the supersession step in
	// applyKeyedConsolidation keeps only the newest reply per key, so
	// ordering across keys reflects first-insertion order observed
	// after the last supersession.
	for _, pr := range q.replies {
		if q.Consolidation == ConsolidationFull {
			q.Callback(pr.reply, q.Arg)
		}
	}
	q.replies = nil

	q.Callback(Reply{Tag: ReplyFinal}, q.Arg)

	queries.unregister(q.QueryID)
}
