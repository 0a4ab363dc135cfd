package pipeline

import "github.com/agchaparroh/noticias-pipeline/internal/model"

// Allocator issues dense sequential identifiers per element kind,
// starting at 1, scoped to a single coordinator run. One allocator is
// exclusively owned by one run; that ownership is the concurrency
// guarantee, so there is no lock here.
type Allocator struct {
	counts map[model.IDKind]int
}

// NewAllocator creates an empty allocator.
func NewAllocator() *Allocator {
	return &Allocator{counts: make(map[model.IDKind]int, len(model.IDKinds))}
}

// Next returns the next unused identifier for the kind. It is strictly
// increasing per kind and never fails.
func (a *Allocator) Next(kind model.IDKind) int {
	a.counts[kind]++
	return a.counts[kind]
}

// Counts reports how many identifiers were issued per kind. Kinds that
// never issued an identifier report zero.
func (a *Allocator) Counts() map[model.IDKind]int {
	out := make(map[model.IDKind]int, len(model.IDKinds))
	for _, k := range model.IDKinds {
		out[k] = a.counts[k]
	}
	return out
}
