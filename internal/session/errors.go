package session

import "fmt"

// UnknownKeyExprError is returned when a resource id chain cannot be
// fully expanded because some id along the chain was never declared.
type UnknownKeyExprError struct {
	ID uint64
}

func (e *UnknownKeyExprError) Error() string {
	return fmt.Sprintf("session: unknown key expression id %d", e.ID)
}

// DuplicateQueryIDError is returned by RegisterQuery when the query id
// is already occupied by a pending query.
type DuplicateQueryIDError struct {
	QueryID uint64
}

func (e *DuplicateQueryIDError) Error() string {
	return fmt.Sprintf("session: query id %d already pending", e.QueryID)
}

// dropReason names why an inbound reply was silently dropped. Shape,
// target and unknown-id errors never propagate to callbacks or the
// caller — they are local to the dispatch path.
type dropReason string

const (
	dropShape          dropReason = "shape_error"
	dropTargetKind     dropReason = "target_mismatch"
	dropUnknownQuery   dropReason = "unknown_query_id"
	dropUnknownKeyExpr dropReason = "unknown_key_expr"
)
