package mesh

// Handle indexes an arena slot. NoHandle is never allocated.
type Handle uint16

const NoHandle Handle = 0

type arena[T any] struct {
	slots []T
	used  []bool
	free  []Handle
}

func (a *arena[T]) alloc(v T) Handle {
	if n := len(a.free); n > 0 {
		h := a.free[n-1]
		a.free = a.free[:n-1]
		a.slots[h] = v
		a.used[h] = true
		return h
	}
	if len(a.slots) == 0 {
		// Slot 0 backs NoHandle.
		var zero T
		a.slots = append(a.slots, zero)
		a.used = append(a.used, false)
	}
	a.slots = append(a.slots, v)
	a.used = append(a.used, true)
	return Handle(len(a.slots) - 1)
}

func (a *arena[T]) get(h Handle) *T {
	if h == NoHandle || int(h) >= len(a.slots) || !a.used[h] {
		return nil
	}
	return &a.slots[h]
}

func (a *arena[T]) release(h Handle) {
	if a.get(h) == nil {
		return
	}
	var zero T
	a.slots[h] = zero
	a.used[h] = false
	a.free = append(a.free, h)
}

func (a *arena[T]) live() int {
	n := 0
	for _, u := range a.used {
		if u {
			n++
		}
	}
	return n
}
