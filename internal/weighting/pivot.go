package weighting

// Normalize computes the pivoted-cosine-normalized TF-IDF vector for one
// document.
//
// Raw weights are count * IDF per term; terms the model never saw are
// dropped. The divisor is (1-slope)*pivot + slope*||raw||, so slope 1 is
// plain cosine normalization and slope 0 divides every document by the
// constant pivot. A document with no recognized terms normalizes to the
// empty vector; no division happens in that case.
func Normalize(doc CountVector, m *Model, pivot, slope float64) WeightVector {
	raw := make(WeightVector, len(doc))
	for termID, count := range doc {
		idf := m.IDF(termID)
		if idf == 0 || count <= 0 {
			continue
		}
		raw[termID] = float64(count) * idf
	}

	oldNorm := raw.Norm()
	if oldNorm == 0 {
		return WeightVector{}
	}

	pivotedNorm := (1-slope)*pivot + slope*oldNorm
	out := make(WeightVector, len(raw))
	for termID, w := range raw {
		out[termID] = w / pivotedNorm
	}
	return out
}
