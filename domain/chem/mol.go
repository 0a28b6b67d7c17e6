// Package chem provides SMILES parsing and substructure matching for
// the molecule search engine. The parser covers the organic subset,
// bracket atoms, branches, ring closures and disconnected fragments;
// matching is subgraph monomorphism over the parsed molecular graph,
// not string containment.
package chem

// Atom is a node in the molecular graph.
type Atom struct {
	Symbol   string // element symbol, normalized to its periodic-table casing
	Aromatic bool
	Charge   int
	Isotope  int
	HCount   int // explicit hydrogen count from a bracket atom, -1 when unspecified
}

// Bond is an edge in the molecular graph. Aromatic bonds keep Order 1;
// matching treats aromaticity as its own bond class.
type Bond struct {
	From     int
	To       int
	Order    int
	Aromatic bool
}

// other returns the bond endpoint that is not atom i.
func (b Bond) other(i int) int {
	if b.From == i {
		return b.To
	}
	return b.From
}

// Mol is a parsed molecular graph.
type Mol struct {
	Atoms []Atom
	Bonds []Bond
	adj   [][]int // per-atom indices into Bonds
}

func (m *Mol) addAtom(a Atom) int {
	m.Atoms = append(m.Atoms, a)
	m.adj = append(m.adj, nil)
	return len(m.Atoms) - 1
}

func (m *Mol) addBond(b Bond) {
	m.Bonds = append(m.Bonds, b)
	idx := len(m.Bonds) - 1
	m.adj[b.From] = append(m.adj[b.From], idx)
	m.adj[b.To] = append(m.adj[b.To], idx)
}

// bondBetween returns the bond connecting atoms a and b, or nil.
func (m *Mol) bondBetween(a, b int) *Bond {
	for _, bi := range m.adj[a] {
		if m.Bonds[bi].other(a) == b {
			return &m.Bonds[bi]
		}
	}
	return nil
}

// HasSubstructMatch reports whether query occurs as a substructure of
// m: an injective mapping of query atoms onto atoms of m under which
// every query bond exists in m with a compatible type. Extra bonds of
// m between mapped atoms are allowed. Both molecules are read-only;
// the method is safe for concurrent use.
func (m *Mol) HasSubstructMatch(query *Mol) bool {
	if len(query.Atoms) == 0 || len(query.Atoms) > len(m.Atoms) {
		return false
	}

	order := query.traversalOrder()
	mapping := make([]int, len(query.Atoms))
	for i := range mapping {
		mapping[i] = -1
	}
	used := make([]bool, len(m.Atoms))

	var match func(k int) bool
	match = func(k int) bool {
		if k == len(order) {
			return true
		}
		qi := order[k]

		// Restrict candidates to neighbors of an already-mapped query
		// neighbor when one exists; a fresh fragment scans all atoms.
		anchor := -1
		for _, bi := range query.adj[qi] {
			if other := query.Bonds[bi].other(qi); mapping[other] >= 0 {
				anchor = mapping[other]
				break
			}
		}

		try := func(t int) bool {
			if used[t] || !atomsMatch(query.Atoms[qi], m.Atoms[t]) {
				return false
			}
			for _, bi := range query.adj[qi] {
				qb := query.Bonds[bi]
				other := qb.other(qi)
				if mapping[other] < 0 {
					continue
				}
				tb := m.bondBetween(mapping[other], t)
				if tb == nil || !bondsMatch(qb, *tb) {
					return false
				}
			}
			mapping[qi] = t
			used[t] = true
			if match(k + 1) {
				return true
			}
			mapping[qi] = -1
			used[t] = false
			return false
		}

		if anchor >= 0 {
			for _, bi := range m.adj[anchor] {
				if try(m.Bonds[bi].other(anchor)) {
					return true
				}
			}
			return false
		}
		for t := range m.Atoms {
			if try(t) {
				return true
			}
		}
		return false
	}

	return match(0)
}

// traversalOrder returns the atom visit order for matching: a BFS over
// every connected component, so each atom after the first in a
// component has a previously-visited neighbor to anchor on.
func (m *Mol) traversalOrder() []int {
	order := make([]int, 0, len(m.Atoms))
	seen := make([]bool, len(m.Atoms))
	for start := range m.Atoms {
		if seen[start] {
			continue
		}
		seen[start] = true
		queue := []int{start}
		for len(queue) > 0 {
			v := queue[0]
			queue = queue[1:]
			order = append(order, v)
			for _, bi := range m.adj[v] {
				if nb := m.Bonds[bi].other(v); !seen[nb] {
					seen[nb] = true
					queue = append(queue, nb)
				}
			}
		}
	}
	return order
}

// atomsMatch decides whether query atom qa can map onto target atom ta.
// The wildcard atom matches anything; otherwise element, aromaticity
// and charge must agree, and an isotope label constrains only when the
// query specifies one.
func atomsMatch(qa, ta Atom) bool {
	if qa.Symbol == "*" {
		return true
	}
	if qa.Symbol != ta.Symbol || qa.Aromatic != ta.Aromatic || qa.Charge != ta.Charge {
		return false
	}
	if qa.Isotope != 0 && qa.Isotope != ta.Isotope {
		return false
	}
	return true
}

// bondsMatch decides whether query bond qb can map onto target bond tb.
func bondsMatch(qb, tb Bond) bool {
	if qb.Aromatic || tb.Aromatic {
		return qb.Aromatic && tb.Aromatic
	}
	return qb.Order == tb.Order
}
