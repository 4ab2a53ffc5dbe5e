package session

import "shadowswap/wire"

type staleKey struct {
	tag    wire.Tag
	entity uint8
}

// stalenessFilter remembers the last applied tick per (category, entity). A tick that is not
// strictly newer is rejected, which also drops the repeated copies of a swap or reset press.
type stalenessFilter struct {
	last map[staleKey]uint32
}

func newStalenessFilter() *stalenessFilter {
	return &stalenessFilter{last: make(map[staleKey]uint32)}
}

func (f *stalenessFilter) Accept(msg wire.Message) bool {
	key := staleKey{tag: msg.GetTag(), entity: entityOf(msg)}
	tick := msg.GetTick()
	if prev, seen := f.last[key]; seen && !wire.TickNewer(tick, prev) {
		return false
	}
	f.last[key] = tick
	return true
}
