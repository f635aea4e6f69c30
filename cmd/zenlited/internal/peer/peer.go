// Package peer wires internal/session to internal/wire, giving
// cmd/zenlited's subcommands a single thing to put/get/subscribe
// against. It is demo plumbing, not part of the specified core.
package peer

import (
	"context"
	"errors"
	"net"
	"strings"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/joshuafuller/zenlite/internal/session"
	"github.com/joshuafuller/zenlite/internal/wire"
)

// Peer owns one Session plus the transport it reads decoded frames
// from and writes encoded frames to. It runs a single background
// receive loop: application goroutines call into the session directly,
// while the receive loop is the only goroutine that ever feeds it
// inbound network data, so the two never race on the socket itself
// (the session's own mutex still guards everything downstream of that).
type Peer struct {
	session   *session.Session
	transport wire.Transport
	dest      net.Addr
	replierID string
	log       *zap.Logger

	mu          sync.Mutex
	lastSamples map[string][]byte
}

// New builds a Peer bound to a UDP multicast transport and starts its
// receive loop. Call Close to stop it.
func New(log *zap.Logger, metrics session.MetricsHook) (*Peer, error) {
	transport, err := wire.NewUDPv4Transport()
	if err != nil {
		return nil, err
	}

	dest, err := net.ResolveUDPAddr("udp4", wire.MulticastAddrIPv4+":7447")
	if err != nil {
		_ = transport.Close()
		return nil, err
	}

	opts := []session.Option{session.WithLogger(log)}
	if metrics != nil {
		opts = append(opts, session.WithMetrics(metrics))
	}

	p := &Peer{
		session:     session.New(keyExprIntersects, opts...),
		transport:   transport,
		dest:        dest,
		replierID:   uuid.NewString(),
		log:         log,
		lastSamples: make(map[string][]byte),
	}

	go p.receiveLoop(context.Background())
	return p, nil
}

// keyExprIntersects is the simplest predicate satisfying "pure and
// symmetric": prefix-or-equal on '/'-separated segments. Full
// key-expression wildcard syntax is a layer this core deliberately
// doesn't own; callers supply whatever predicate matches their syntax.
func keyExprIntersects(a, b string) bool {
	if a == b {
		return true
	}
	return strings.HasPrefix(a, b+"/") || strings.HasPrefix(b, a+"/")
}

// receiveLoop decodes inbound frames and hands them to the session
// core, or answers queries addressed to this peer. It runs for the
// lifetime of the Peer.
func (p *Peer) receiveLoop(ctx context.Context) {
	for {
		frame, _, _, err := p.transport.Receive(ctx)
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return
			}
			p.log.Debug("receive failed", zap.Error(err))
			continue
		}
		p.dispatch(ctx, frame)
	}
}

func (p *Peer) dispatch(ctx context.Context, frame wire.Frame) {
	switch {
	case frame.Sample != nil:
		f := frame.Sample
		p.mu.Lock()
		p.lastSamples[f.KeyExpr] = append([]byte(nil), f.Payload...)
		p.mu.Unlock()
		_ = p.session.DispatchSample(session.KeyExpr{Suffix: f.KeyExpr}, f.Payload, f.Encoding, f.Kind, session.Timestamp{Time: f.Time}, nil)

	case frame.Reply != nil:
		f := frame.Reply
		rc := session.ReplyContext{
			QueryID:     f.QueryID,
			ReplierID:   []byte(f.ReplierID),
			ReplierKind: session.ReplierKind(f.ReplierKind),
			Final:       frame.ReplyFinal,
		}
		if frame.ReplyFinal {
			p.session.OnFinalReply(rc)
			return
		}
		info := session.DataInfo{HasTimestamp: f.HasTime, Timestamp: session.Timestamp{Time: f.Time}}
		p.session.OnPartialReply(rc, session.KeyExpr{Suffix: f.KeyExpr}, f.Payload, info)

	case frame.Query != nil:
		p.answerQuery(ctx, *frame.Query)
	}
}

// answerQuery replies to an inbound query from the last sample this
// peer has locally stored for the queried key expression, if any, using
// replierID to identify this peer as the source on the wire. A peer with
// nothing stored for the key answers with only the final marker.
func (p *Peer) answerQuery(ctx context.Context, q wire.QueryFrame) {
	p.mu.Lock()
	payload, ok := p.lastSamples[q.KeyExpr]
	p.mu.Unlock()

	if ok {
		reply := wire.ReplyFrame{
			KeyExpr:     q.KeyExpr,
			Payload:     payload,
			ReplierID:   p.replierID,
			QueryID:     q.QueryID,
			ReplierKind: 1,
		}
		if err := p.transport.Send(ctx, wire.Frame{Reply: &reply}, p.dest); err != nil {
			p.log.Debug("failed to send reply", zap.Error(err))
			return
		}
	}

	final := wire.ReplyFrame{ReplierID: p.replierID, QueryID: q.QueryID, ReplierKind: 1}
	if err := p.transport.Send(ctx, wire.Frame{Reply: &final, ReplyFinal: true}, p.dest); err != nil {
		p.log.Debug("failed to send final reply", zap.Error(err))
	}
}

// Put publishes a sample on keyExpr and dispatches it to local
// subscribers (the multicast send also lets other zenlited peers on
// the network observe it, and answer future queries against it).
func (p *Peer) Put(ctx context.Context, keyExpr string, payload []byte) error {
	p.mu.Lock()
	p.lastSamples[keyExpr] = append([]byte(nil), payload...)
	p.mu.Unlock()

	sample := wire.SampleFrame{KeyExpr: keyExpr, Payload: payload, Encoding: "application/octet-stream"}
	if err := p.transport.Send(ctx, wire.Frame{Sample: &sample}, p.dest); err != nil {
		return err
	}
	return p.session.DispatchSample(session.KeyExpr{Suffix: keyExpr}, payload, "application/octet-stream", 0, session.Timestamp{}, nil)
}

// Subscribe registers cb against keyExpr until ctx is done.
func (p *Peer) Subscribe(ctx context.Context, keyExpr string, cb func(session.Sample)) error {
	sub, err := p.session.RegisterSubscription(true, session.KeyExpr{Suffix: keyExpr}, func(s session.Sample, _ any) { cb(s) }, nil, nil)
	if err != nil {
		return err
	}
	if sub == nil {
		return nil // a covering subscription already exists
	}
	<-ctx.Done()
	p.session.UnregisterSubscription(true, sub.ID)
	return nil
}

// Get issues a query over keyExpr, consolidating replies per policy,
// and returns once the final reply (or ctx's deadline) arrives.
func (p *Peer) Get(ctx context.Context, keyExpr string, consolidation session.Consolidation, onReply func(session.Reply)) error {
	id := p.session.NextQueryID()
	done := make(chan struct{})

	q := &session.PendingQuery{
		QueryID:       id,
		KeyExpr:       session.KeyExpr{Suffix: keyExpr},
		TargetKind:    session.AllKinds,
		Consolidation: consolidation,
		Callback: func(r session.Reply, _ any) {
			onReply(r)
			if r.Tag == session.ReplyFinal {
				close(done)
			}
		},
	}
	if err := p.session.RegisterQuery(q); err != nil {
		return err
	}

	query := wire.QueryFrame{QueryID: id, KeyExpr: keyExpr, TargetKind: uint32(session.AllKinds)}
	if err := p.transport.Send(ctx, wire.Frame{Query: &query}, p.dest); err != nil {
		p.session.UnregisterQuery(id)
		return err
	}

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		p.session.UnregisterQuery(id)
		return ctx.Err()
	}
}

// Close tears down the session and its transport.
func (p *Peer) Close() error {
	p.session.Flush()
	return p.transport.Close()
}
