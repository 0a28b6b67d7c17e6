// Package search implements substructure search over the stored
// molecule pool: a lazy matching engine plus the cache-assisted
// orchestration the HTTP and task layers consume.
package search

import (
	"encoding/json"
	"iter"

	"github.com/molsearch/molsearch/domain/chem"
	"github.com/molsearch/molsearch/pkg/apperrors"
)

// Substructure returns a lazy sequence of the candidates that contain
// query as a substructure, in their original order. The sequence does
// no work past the point the consumer stops pulling, so a caller
// enforcing a result cap never pays for unexamined candidates.
//
// A query that fails to parse yields an empty sequence; malformed
// queries are not search errors. Candidates that fail to parse are
// skipped silently and never abort the scan.
func Substructure(candidates []string, query string) iter.Seq[string] {
	return func(yield func(string) bool) {
		q, err := chem.Parse(query)
		if err != nil {
			return
		}
		for _, s := range candidates {
			c, err := chem.Parse(s)
			if err != nil {
				continue
			}
			if c.HasSubstructMatch(q) && !yield(s) {
				return
			}
		}
	}
}

// DecodeCandidates deserializes a cached candidate pool, rejecting
// any JSON value that is not an array of strings. This is the runtime
// shape check at the system boundary: a bare string or a mixed array
// smuggled into the snapshot key must fail loudly here, never inside
// the matching loop.
func DecodeCandidates(raw []byte) ([]string, error) {
	var candidates []string
	if err := json.Unmarshal(raw, &candidates); err != nil {
		return nil, apperrors.NewValidationError(
			"an input value does not match the expected data type").WithCause(err)
	}
	return candidates, nil
}
