package midi

// debugAssert flags a violated invariant. It panics in builds tagged
// rteventsdebug and does nothing otherwise, so the audio path never stops on
// a recoverable condition in production.
func debugAssert(cond bool, msg string) {
	if assertionsEnabled && !cond {
		panic("midi: " + msg)
	}
}
