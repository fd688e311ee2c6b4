package usecase

// Navigator keeps the current page index inside [0, count). It is not safe
// for concurrent use; PlaybackEngine guards it.
type Navigator struct {
	index int
	count int
}

func NewNavigator(count int) *Navigator {
	return &Navigator{count: count}
}

// GoTo moves to target and reports whether the index changed. Out-of-range
// targets and the current index are no-ops.
func (n *Navigator) GoTo(target int) bool {
	if target < 0 || target >= n.count || target == n.index {
		return false
	}
	n.index = target
	return true
}

func (n *Navigator) Next() bool { return n.GoTo(n.index + 1) }

func (n *Navigator) Previous() bool { return n.GoTo(n.index - 1) }

func (n *Navigator) Index() int { return n.index }

func (n *Navigator) Count() int { return n.count }

func (n *Navigator) IsFirst() bool { return n.index == 0 }

func (n *Navigator) IsLast() bool { return n.index == n.count-1 }
