package reminder

import (
	"container/list"
	"fmt"
	"time"
)

// markSet remembers which reminder slots already fired so a slot is
// delivered at most once. It is bounded; when full the oldest mark is
// evicted, which at worst re-fires a reminder long after its slot.
type markSet struct {
	capacity int
	order    *list.List
	index    map[string]*list.Element
}

func newMarkSet(capacity int) *markSet {
	if capacity <= 0 {
		capacity = 100
	}
	return &markSet{
		capacity: capacity,
		order:    list.New(),
		index:    make(map[string]*list.Element),
	}
}

// markKey identifies one reminder slot: the agent, the idle interval it
// belongs to, and the minute multiple within it
func markKey(code string, idleSince time.Time, minutesIdle int) string {
	return fmt.Sprintf("%s:%d:%d", code, idleSince.Unix(), minutesIdle)
}

// Seen reports whether the slot already fired
func (ms *markSet) Seen(key string) bool {
	_, ok := ms.index[key]
	return ok
}

// Add records a fired slot, evicting the oldest mark when full
func (ms *markSet) Add(key string) {
	if _, ok := ms.index[key]; ok {
		return
	}
	for ms.order.Len() >= ms.capacity {
		oldest := ms.order.Front()
		ms.order.Remove(oldest)
		delete(ms.index, oldest.Value.(string))
	}
	ms.index[key] = ms.order.PushBack(key)
}

// Len returns the number of stored marks
func (ms *markSet) Len() int {
	return ms.order.Len()
}
