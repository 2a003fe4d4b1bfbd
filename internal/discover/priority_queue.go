package discover

// priorityQueue is the teacher's binary max-heap on Priority
// (pavuk5_refactored.go's PriorityQueue), repointed from the teacher's
// blog/comment URL heuristic to C4's legal-label composite score. No
// concurrency guard is needed here: Discover builds and drains one
// instance within a single goroutine call.
type urlItem struct {
	url      string
	priority float64
}

type priorityQueue struct {
	items []urlItem
}

func newPriorityQueue() *priorityQueue {
	return &priorityQueue{items: make([]urlItem, 0)}
}

func (pq *priorityQueue) push(item urlItem) {
	pq.items = append(pq.items, item)
	pq.heapifyUp(len(pq.items) - 1)
}

func (pq *priorityQueue) pop() (urlItem, bool) {
	if len(pq.items) == 0 {
		return urlItem{}, false
	}
	item := pq.items[0]
	last := len(pq.items) - 1
	pq.items[0] = pq.items[last]
	pq.items = pq.items[:last]
	if len(pq.items) > 0 {
		pq.heapifyDown(0)
	}
	return item, true
}

func (pq *priorityQueue) heapifyUp(idx int) {
	for idx > 0 {
		parent := (idx - 1) / 2
		if pq.items[idx].priority <= pq.items[parent].priority {
			break
		}
		pq.items[idx], pq.items[parent] = pq.items[parent], pq.items[idx]
		idx = parent
	}
}

func (pq *priorityQueue) heapifyDown(idx int) {
	n := len(pq.items)
	for {
		largest := idx
		left, right := 2*idx+1, 2*idx+2
		if left < n && pq.items[left].priority > pq.items[largest].priority {
			largest = left
		}
		if right < n && pq.items[right].priority > pq.items[largest].priority {
			largest = right
		}
		if largest == idx {
			break
		}
		pq.items[idx], pq.items[largest] = pq.items[largest], pq.items[idx]
		idx = largest
	}
}
