package media

// transitions lists the kinds each kind may derive in strict mode. Merging
// audio yields an Original, so Original -> Original is the remux case.
var transitions = map[Kind][]Kind{
	KindOriginal:     {KindSubclip, KindWithoutAudio, KindOriginal},
	KindWithoutAudio: {KindOriginal},
	KindSubclip:      {KindCropped},
	KindCropped:      {KindFinal},
}

// CanTransition reports whether an artifact of kind from may produce kind to.
func CanTransition(from, to Kind) bool {
	for _, k := range transitions[from] {
		if k == to {
			return true
		}
	}
	return false
}
