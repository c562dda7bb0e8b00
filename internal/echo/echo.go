package echo

import "github.com/kittclouds/m3a/internal/store"

// Echo is the L3 layer, backed by a *store.Store. Its three indices share
// one struct because they are always opened together. The write pipeline
// records a separate status for each of them (L3 vector, L3 lexical and
// L3 graph).
type Echo struct {
	store *store.Store
}

// New wraps s as the L3 Echo layer.
func New(s *store.Store) *Echo {
	return &Echo{store: s}
}
