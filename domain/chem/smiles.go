package chem

import (
	"fmt"
)

// pendingBond carries an explicit bond symbol until the next atom or
// ring closure consumes it.
type pendingBond struct {
	set      bool
	order    int
	aromatic bool
}

// ringOpen records the first endpoint of a ring-closure digit.
type ringOpen struct {
	atom int
	bond pendingBond
}

type parser struct {
	input string
	pos   int
	mol   *Mol
	prev  int   // previous atom index, -1 after a dot or at the start
	stack []int // branch return points
	bond  pendingBond
	rings map[int]ringOpen
}

// Parse builds a molecular graph from a SMILES string. A malformed
// string yields an error value; Parse never panics on bad input.
//
// The accepted dialect: organic-subset atoms (B, C, N, O, P, S, F, Cl,
// Br, I, plus bare H and the * wildcard), aromatic lowercase forms,
// bracket atoms with isotope, chirality, hydrogen count, charge and
// atom class, bond symbols - = # $ : / \, branches, ring closures
// (single digit and %nn) and dot-separated fragments. Directional
// bonds are read as single bonds; stereo descriptors are parsed and
// dropped.
func Parse(s string) (*Mol, error) {
	if s == "" {
		return nil, fmt.Errorf("empty SMILES string")
	}
	p := &parser{
		input: s,
		mol:   &Mol{},
		prev:  -1,
		rings: map[int]ringOpen{},
	}
	if err := p.run(); err != nil {
		return nil, err
	}
	return p.mol, nil
}

func (p *parser) run() error {
	for p.pos < len(p.input) {
		c := p.input[p.pos]
		switch {
		case c == '[':
			atom, err := p.parseBracketAtom()
			if err != nil {
				return err
			}
			p.placeAtom(atom)
		case c >= 'A' && c <= 'Z':
			atom, err := p.parseOrganicAtom()
			if err != nil {
				return err
			}
			p.placeAtom(atom)
		case c == 'b' || c == 'c' || c == 'n' || c == 'o' || c == 'p' || c == 's':
			p.pos++
			p.placeAtom(Atom{Symbol: upper(c), Aromatic: true, HCount: -1})
		case c == '*':
			p.pos++
			p.placeAtom(Atom{Symbol: "*", HCount: -1})
		case c >= '1' && c <= '9':
			p.pos++
			if err := p.ringClosure(int(c - '0')); err != nil {
				return err
			}
		case c == '%':
			p.pos++
			if p.pos+1 >= len(p.input) || !isDigit(p.input[p.pos]) || !isDigit(p.input[p.pos+1]) {
				return p.errorf("%%nn ring closure needs two digits")
			}
			n := int(p.input[p.pos]-'0')*10 + int(p.input[p.pos+1]-'0')
			p.pos += 2
			if err := p.ringClosure(n); err != nil {
				return err
			}
		case c == '-' || c == '/' || c == '\\':
			p.pos++
			if err := p.setBond(1, false); err != nil {
				return err
			}
		case c == '=':
			p.pos++
			if err := p.setBond(2, false); err != nil {
				return err
			}
		case c == '#':
			p.pos++
			if err := p.setBond(3, false); err != nil {
				return err
			}
		case c == '$':
			p.pos++
			if err := p.setBond(4, false); err != nil {
				return err
			}
		case c == ':':
			p.pos++
			if err := p.setBond(1, true); err != nil {
				return err
			}
		case c == '(':
			p.pos++
			if p.prev < 0 {
				return p.errorf("branch opened before any atom")
			}
			if p.bond.set {
				return p.errorf("bond symbol before branch open")
			}
			p.stack = append(p.stack, p.prev)
		case c == ')':
			p.pos++
			if len(p.stack) == 0 {
				return p.errorf("unmatched branch close")
			}
			if p.bond.set {
				return p.errorf("dangling bond at branch close")
			}
			p.prev = p.stack[len(p.stack)-1]
			p.stack = p.stack[:len(p.stack)-1]
		case c == '.':
			p.pos++
			if p.bond.set {
				return p.errorf("bond symbol before fragment separator")
			}
			p.prev = -1
		default:
			return p.errorf("unexpected character %q", c)
		}
	}

	if p.bond.set {
		return p.errorf("dangling bond at end of input")
	}
	if len(p.stack) != 0 {
		return p.errorf("unclosed branch")
	}
	if len(p.rings) != 0 {
		return p.errorf("unclosed ring closure")
	}
	return nil
}

// placeAtom appends atom and bonds it to the previous atom, consuming
// any pending bond symbol.
func (p *parser) placeAtom(a Atom) {
	idx := p.mol.addAtom(a)
	if p.prev >= 0 {
		p.mol.addBond(p.resolveBond(p.bond, p.prev, idx))
	}
	p.bond = pendingBond{}
	p.prev = idx
}

// resolveBond turns an optional explicit bond into a concrete one. The
// default bond between two aromatic atoms is aromatic, otherwise single.
func (p *parser) resolveBond(b pendingBond, from, to int) Bond {
	if b.set {
		return Bond{From: from, To: to, Order: b.order, Aromatic: b.aromatic}
	}
	if p.mol.Atoms[from].Aromatic && p.mol.Atoms[to].Aromatic {
		return Bond{From: from, To: to, Order: 1, Aromatic: true}
	}
	return Bond{From: from, To: to, Order: 1}
}

func (p *parser) setBond(order int, aromatic bool) error {
	if p.bond.set {
		return p.errorf("two bond symbols in a row")
	}
	if p.prev < 0 {
		return p.errorf("bond symbol before any atom")
	}
	p.bond = pendingBond{set: true, order: order, aromatic: aromatic}
	return nil
}

// ringClosure opens ring number n on the current atom, or closes it if
// already open. A bond symbol before either digit fixes the ring bond;
// conflicting symbols on the two ends are an error.
func (p *parser) ringClosure(n int) error {
	if p.prev < 0 {
		return p.errorf("ring closure digit before any atom")
	}
	open, ok := p.rings[n]
	if !ok {
		p.rings[n] = ringOpen{atom: p.prev, bond: p.bond}
		p.bond = pendingBond{}
		return nil
	}
	delete(p.rings, n)
	if open.atom == p.prev {
		return p.errorf("ring closure %d bonds an atom to itself", n)
	}
	spec := open.bond
	if p.bond.set {
		if spec.set && (spec.order != p.bond.order || spec.aromatic != p.bond.aromatic) {
			return p.errorf("conflicting bond symbols on ring closure %d", n)
		}
		spec = p.bond
	}
	p.mol.addBond(p.resolveBond(spec, open.atom, p.prev))
	p.bond = pendingBond{}
	return nil
}

// parseOrganicAtom reads a bare organic-subset atom. Two-letter
// symbols are tried first so Cl is never read as carbon.
func (p *parser) parseOrganicAtom() (Atom, error) {
	rest := p.input[p.pos:]
	for _, sym := range [...]string{"Cl", "Br"} {
		if len(rest) >= 2 && rest[:2] == sym {
			p.pos += 2
			return Atom{Symbol: sym, HCount: -1}, nil
		}
	}
	switch rest[0] {
	case 'B', 'C', 'N', 'O', 'P', 'S', 'F', 'I', 'H':
		p.pos++
		return Atom{Symbol: string(rest[0]), HCount: -1}, nil
	}
	return Atom{}, p.errorf("unknown atom symbol %q", rest[0])
}

// parseBracketAtom reads a [..] atom specification.
func (p *parser) parseBracketAtom() (Atom, error) {
	p.pos++ // consume '['
	atom := Atom{HCount: -1}

	// isotope
	for p.pos < len(p.input) && isDigit(p.input[p.pos]) {
		atom.Isotope = atom.Isotope*10 + int(p.input[p.pos]-'0')
		p.pos++
	}

	// element symbol, aromatic lowercase or wildcard
	if p.pos >= len(p.input) {
		return atom, p.errorf("unterminated bracket atom")
	}
	switch c := p.input[p.pos]; {
	case c == '*':
		atom.Symbol = "*"
		p.pos++
	case c >= 'A' && c <= 'Z':
		atom.Symbol = string(c)
		p.pos++
		if p.pos < len(p.input) && p.input[p.pos] >= 'a' && p.input[p.pos] <= 'z' {
			// two-letter element; the closing bracket grammar catches nonsense
			atom.Symbol += string(p.input[p.pos])
			p.pos++
		}
	case c == 'b' || c == 'c' || c == 'n' || c == 'o' || c == 'p':
		atom.Symbol = upper(c)
		atom.Aromatic = true
		p.pos++
	case c == 's':
		atom.Aromatic = true
		p.pos++
		if p.pos < len(p.input) && p.input[p.pos] == 'e' {
			atom.Symbol = "Se"
			p.pos++
		} else {
			atom.Symbol = "S"
		}
	case c == 'a':
		p.pos++
		if p.pos >= len(p.input) || p.input[p.pos] != 's' {
			return atom, p.errorf("unknown aromatic symbol in bracket atom")
		}
		atom.Symbol = "As"
		atom.Aromatic = true
		p.pos++
	default:
		return atom, p.errorf("missing element symbol in bracket atom")
	}

	// chirality, parsed and dropped
	for p.pos < len(p.input) && p.input[p.pos] == '@' {
		p.pos++
	}

	// explicit hydrogen count
	if p.pos < len(p.input) && p.input[p.pos] == 'H' {
		p.pos++
		atom.HCount = 1
		if p.pos < len(p.input) && isDigit(p.input[p.pos]) {
			atom.HCount = int(p.input[p.pos] - '0')
			p.pos++
		}
	}

	// charge: +, -, ++, --, +2, -2 ...
	if p.pos < len(p.input) && (p.input[p.pos] == '+' || p.input[p.pos] == '-') {
		sign := 1
		if p.input[p.pos] == '-' {
			sign = -1
		}
		mark := p.input[p.pos]
		count := 1
		p.pos++
		for p.pos < len(p.input) && p.input[p.pos] == mark {
			count++
			p.pos++
		}
		if count == 1 && p.pos < len(p.input) && isDigit(p.input[p.pos]) {
			count = int(p.input[p.pos] - '0')
			p.pos++
		}
		atom.Charge = sign * count
	}

	// atom class, parsed and dropped
	if p.pos < len(p.input) && p.input[p.pos] == ':' {
		p.pos++
		if p.pos >= len(p.input) || !isDigit(p.input[p.pos]) {
			return atom, p.errorf("atom class needs digits")
		}
		for p.pos < len(p.input) && isDigit(p.input[p.pos]) {
			p.pos++
		}
	}

	if p.pos >= len(p.input) || p.input[p.pos] != ']' {
		return atom, p.errorf("unterminated bracket atom")
	}
	p.pos++
	return atom, nil
}

func (p *parser) errorf(format string, args ...interface{}) error {
	return fmt.Errorf("smiles: %s at position %d in %q",
		fmt.Sprintf(format, args...), p.pos, p.input)
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func upper(c byte) string {
	return string(c - 'a' + 'A')
}
