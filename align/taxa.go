// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package align

import (
	"github.com/antzucaro/matchr"
	"v.io/x/lib/vlog"
)

// SimilarTaxaThreshold is the Jaro-Winkler similarity above which two
// distinct taxon names are flagged as likely duplicates.
const SimilarTaxaThreshold = 0.92

// SimilarTaxonPair names two taxa whose names are suspiciously close.
type SimilarTaxonPair struct {
	NameA, NameB   string
	IndexA, IndexB int
	Similarity     float64
}

// WarnSimilarTaxa scans taxa for near-duplicate names using Jaro-Winkler
// similarity and logs a warning for every pair above SimilarTaxaThreshold,
// flagging likely data-entry duplicates before the (out-of-scope)
// tree-search collaborator maps tips to tree leaves. Generalized from
// util/distance.go's edit-distance machinery to the similarity library the
// rest of the pack carries.
func WarnSimilarTaxa(taxa []string) []SimilarTaxonPair {
	var pairs []SimilarTaxonPair
	for i := 0; i < len(taxa); i++ {
		for j := i + 1; j < len(taxa); j++ {
			if taxa[i] == taxa[j] {
				continue
			}
			sim := matchr.JaroWinkler(taxa[i], taxa[j], true)
			if sim >= SimilarTaxaThreshold {
				pairs = append(pairs, SimilarTaxonPair{
					NameA: taxa[i], NameB: taxa[j],
					IndexA: i, IndexB: j,
					Similarity: sim,
				})
				vlog.Infof("align: taxa %q (#%d) and %q (#%d) are %.3f similar, possible duplicate",
					taxa[i], i, taxa[j], j, sim)
			}
		}
	}
	return pairs
}
