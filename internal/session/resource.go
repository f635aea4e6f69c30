package session

// NoResourceID is the distinguished sentinel meaning "no declaration":
// the key expression's suffix is a literal string with nothing to expand.
const NoResourceID uint64 = 0

// maxResourceChainDepth bounds id-chain expansion. Well-formed peers never
// emit a cyclic declaration chain, but a malformed or adversarial one
// would otherwise loop forever; this turns that into an error instead.
const maxResourceChainDepth = 64

// KeyExpr is the opaque (id, suffix) pair from the wire: if ID is
// NoResourceID, Suffix is already the full literal key; otherwise Suffix
// is appended to the expansion of the declaration named by ID.
type KeyExpr struct {
	Suffix string
	ID     uint64
}

// resourceTable holds one partition (local or remote) of declared
// resources: resource id -> the key expression it was declared with.
type resourceTable map[uint64]KeyExpr

// resourceResolver resolves (id, suffix) pairs against the local and
// remote declaration tables. All methods assume the caller holds the
// session's mutex; resourceResolver has no locking of its own.
type resourceResolver struct {
	local  resourceTable
	remote resourceTable
}

func newResourceResolver() *resourceResolver {
	return &resourceResolver{
		local:  make(resourceTable),
		remote: make(resourceTable),
	}
}

func (r *resourceResolver) table(isLocal bool) resourceTable {
	if isLocal {
		return r.local
	}
	return r.remote
}

// declare registers a resource id against a key expression in the given
// partition, overwriting any prior declaration for that id.
func (r *resourceResolver) declare(isLocal bool, id uint64, key KeyExpr) {
	r.table(isLocal)[id] = key
}

// forget removes a resource declaration.
func (r *resourceResolver) forget(isLocal bool, id uint64) {
	delete(r.table(isLocal), id)
}

// expand walks the id-chain for key and returns the fully expanded
// string. isLocal selects which partition ids in the chain are looked
// up against: remote replies resolve resource ids against the remote
// table, since a peer's declarations are only meaningful in its own
// id space.
func (r *resourceResolver) expand(isLocal bool, key KeyExpr) (string, error) {
	if key.ID == NoResourceID {
		return key.Suffix, nil
	}

	table := r.table(isLocal)
	visited := 0
	id := key.ID
	suffix := key.Suffix
	for {
		decl, ok := table[id]
		if !ok {
			return "", &UnknownKeyExprError{ID: id}
		}

		visited++
		if visited > maxResourceChainDepth {
			return "", &UnknownKeyExprError{ID: id}
		}

		if decl.ID == NoResourceID {
			return decl.Suffix + suffix, nil
		}

		suffix = decl.Suffix + suffix
		id = decl.ID
	}
}
