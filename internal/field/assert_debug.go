//go:build metaballs_debug

package field

import "fmt"

// Debug builds fail loudly on corrupted state.

func assertFinite(b *Metaball) {
	if !finiteVec(b.Position) || !finiteVec(b.Velocity) {
		panic(fmt.Errorf("%w: pos=%v vel=%v", ErrNonFinite, b.Position, b.Velocity))
	}
}

func assertCount(n int) {
	panic(fmt.Sprintf("field: snapshot count %d exceeds capacity %d", n, MaxBalls))
}
