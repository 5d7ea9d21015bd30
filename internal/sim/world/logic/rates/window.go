package rates

// Window counts events in fixed tick windows. The zero value is an empty window starting at
// tick 0.
type Window struct {
	Start uint64
	Count int
}

// Allow records one event at nowTick. It reports false once more than max events fall in the
// current window, together with the ticks left until the window resets. A zero window or
// non-positive max disables the limit.
func (w *Window) Allow(nowTick, window uint64, max int) (ok bool, cooldownTicks uint64) {
	if window == 0 || max <= 0 {
		return true, 0
	}
	if nowTick < w.Start || nowTick-w.Start >= window {
		w.Start = nowTick
		w.Count = 0
	}
	w.Count++
	if w.Count <= max {
		return true, 0
	}
	return false, (w.Start + window) - nowTick
}
