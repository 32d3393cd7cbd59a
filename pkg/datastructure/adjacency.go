package datastructure

import (
	"math"

	"github.com/lintang-b-s/tiledroute/pkg"
)

// AdjacencyList. open set of a search holding label indices ordered by sort cost.
type AdjacencyList interface {
	Add(labelIdx uint32, sortCost float64)
	// Decrease moves a queued label to newSortCost. Call it before the label itself is updated.
	Decrease(labelIdx uint32, newSortCost float64)
	// Pop removes a label with (approximately) the lowest sort cost.
	Pop() (uint32, bool)
	// MinCost is a lower bound on the sort cost of every queued label, 2*INF_WEIGHT when empty.
	MinCost() float64
	Size() int
	Clear()
}

type AdjacencyType uint8

const (
	BUCKET_ADJACENCY AdjacencyType = iota
	HEAP_ADJACENCY
)

func ParseAdjacencyType(s string) AdjacencyType {
	if s == "heap" {
		return HEAP_ADJACENCY
	}
	return BUCKET_ADJACENCY
}

type AdjacencyOptions struct {
	Type        AdjacencyType
	BucketSize  float64
	BucketRange float64
}

func DefaultAdjacencyOptions() AdjacencyOptions {
	return AdjacencyOptions{Type: BUCKET_ADJACENCY, BucketSize: 1, BucketRange: 20000}
}

// NewAdjacencyList. sortCost looks up the current sort cost of a label.
func NewAdjacencyList(opts AdjacencyOptions, minCost float64, sortCost func(uint32) float64) AdjacencyList {
	if opts.Type == HEAP_ADJACENCY {
		return NewHeapQueue(4)
	}
	return NewBucketQueue(minCost, opts.BucketRange, opts.BucketSize, sortCost)
}

/*
BucketQueue. approximate double bucket priority queue. Costs in [minCost, minCost+range) go to fixed
width buckets, anything above to one overflow bucket. Labels inside a bucket pop in arbitrary order, so
popped costs are non-decreasing up to the bucket width. Insert and pop are O(1) amortized.
*/
type BucketQueue struct {
	bucketSize    float64
	bucketRange   float64
	minCost       float64
	maxCost       float64
	currentCost   float64
	currentBucket int
	lowest        float64

	buckets  [][]uint32
	overflow []uint32
	size     int

	sortCost func(uint32) float64
}

func NewBucketQueue(minCost, bucketRange, bucketSize float64, sortCost func(uint32) float64) *BucketQueue {
	if bucketSize <= 0 {
		bucketSize = 1
	}
	if bucketRange < bucketSize {
		bucketRange = bucketSize
	}
	count := int(math.Ceil(bucketRange / bucketSize))
	q := &BucketQueue{
		bucketSize:  bucketSize,
		bucketRange: float64(count) * bucketSize,
		buckets:     make([][]uint32, count),
		overflow:    make([]uint32, 0),
		sortCost:    sortCost,
	}
	q.reset(minCost)
	return q
}

func (q *BucketQueue) reset(minCost float64) {
	q.minCost = math.Floor(minCost/q.bucketSize) * q.bucketSize
	q.maxCost = q.minCost + q.bucketRange
	q.currentBucket = 0
	q.currentCost = q.minCost
	q.lowest = q.minCost
}

func (q *BucketQueue) bucketIndex(cost float64) int {
	if cost < q.currentCost {
		return q.currentBucket
	}
	if cost >= q.maxCost {
		return -1
	}
	return int((cost - q.minCost) / q.bucketSize)
}

func (q *BucketQueue) Add(labelIdx uint32, sortCost float64) {
	b := q.bucketIndex(sortCost)
	if b < 0 {
		q.overflow = append(q.overflow, labelIdx)
	} else {
		q.buckets[b] = append(q.buckets[b], labelIdx)
		if sortCost < q.lowest {
			q.lowest = sortCost
		}
	}
	q.size++
}

func remove(bucket []uint32, labelIdx uint32) ([]uint32, bool) {
	for i, l := range bucket {
		if l == labelIdx {
			bucket[i] = bucket[len(bucket)-1]
			return bucket[:len(bucket)-1], true
		}
	}
	return bucket, false
}

func (q *BucketQueue) Decrease(labelIdx uint32, newSortCost float64) {
	old := q.bucketIndex(q.sortCost(labelIdx))
	var found bool
	if old < 0 {
		q.overflow, found = remove(q.overflow, labelIdx)
	} else {
		q.buckets[old], found = remove(q.buckets[old], labelIdx)
	}
	if !found {
		return
	}
	q.size--
	q.Add(labelIdx, newSortCost)
}

// refill moves the overflow into a fresh bucket window starting at its lowest cost.
func (q *BucketQueue) refill() bool {
	if len(q.overflow) == 0 {
		return false
	}
	min := math.Inf(1)
	for _, l := range q.overflow {
		min = math.Min(min, q.sortCost(l))
	}
	q.reset(min)

	pending := q.overflow
	q.overflow = make([]uint32, 0, len(pending))
	q.size -= len(pending)
	for _, l := range pending {
		q.Add(l, q.sortCost(l))
	}
	return true
}

func (q *BucketQueue) Pop() (uint32, bool) {
	if q.size == 0 {
		return InvalidLabel, false
	}
	for len(q.buckets[q.currentBucket]) == 0 {
		q.currentBucket++
		q.currentCost += q.bucketSize
		q.lowest = q.currentCost
		if q.currentBucket == len(q.buckets) {
			if !q.refill() {
				return InvalidLabel, false
			}
		}
	}
	bucket := q.buckets[q.currentBucket]
	labelIdx := bucket[len(bucket)-1]
	q.buckets[q.currentBucket] = bucket[:len(bucket)-1]
	q.size--
	return labelIdx, true
}

func (q *BucketQueue) MinCost() float64 {
	if q.size == 0 {
		return 2 * pkg.INF_WEIGHT
	}
	return q.lowest
}

func (q *BucketQueue) Size() int {
	return q.size
}

func (q *BucketQueue) Clear() {
	for i := range q.buckets {
		q.buckets[i] = q.buckets[i][:0]
	}
	q.overflow = q.overflow[:0]
	q.size = 0
	q.reset(q.minCost)
}

// HeapQueue. exact d-ary min heap over label indices.
type HeapQueue struct {
	heap []heapItem
	pos  []int // label index -> heap position, -1 when not queued
	d    int
}

type heapItem struct {
	rank     float64
	labelIdx uint32
}

func NewHeapQueue(d int) *HeapQueue {
	if d < 2 {
		d = 2
	}
	return &HeapQueue{
		heap: make([]heapItem, 0),
		pos:  make([]int, 0),
		d:    d,
	}
}

func (h *HeapQueue) parent(index int) int {
	return (index - 1) / h.d
}

func (h *HeapQueue) swap(i, j int) {
	h.heap[i], h.heap[j] = h.heap[j], h.heap[i]
	h.pos[h.heap[i].labelIdx] = i
	h.pos[h.heap[j].labelIdx] = j
}

func (h *HeapQueue) heapifyUp(index int) {
	for index != 0 && h.heap[index].rank < h.heap[h.parent(index)].rank {
		h.swap(index, h.parent(index))
		index = h.parent(index)
	}
}

func (h *HeapQueue) heapifyDown(index int) {
	for {
		leftMostChild := index*h.d + 1
		if leftMostChild >= len(h.heap) {
			return
		}
		sentinel := min(leftMostChild+h.d, len(h.heap))

		smallest := leftMostChild
		for i := leftMostChild + 1; i < sentinel; i++ {
			if h.heap[i].rank < h.heap[smallest].rank {
				smallest = i
			}
		}
		if h.heap[smallest].rank >= h.heap[index].rank {
			return
		}
		h.swap(index, smallest)
		index = smallest
	}
}

func (h *HeapQueue) Add(labelIdx uint32, sortCost float64) {
	for int(labelIdx) >= len(h.pos) {
		h.pos = append(h.pos, -1)
	}
	h.heap = append(h.heap, heapItem{rank: sortCost, labelIdx: labelIdx})
	index := len(h.heap) - 1
	h.pos[labelIdx] = index
	h.heapifyUp(index)
}

func (h *HeapQueue) Decrease(labelIdx uint32, newSortCost float64) {
	if int(labelIdx) >= len(h.pos) || h.pos[labelIdx] < 0 {
		return
	}
	index := h.pos[labelIdx]
	h.heap[index].rank = newSortCost
	h.heapifyUp(index)
}

func (h *HeapQueue) Pop() (uint32, bool) {
	if len(h.heap) == 0 {
		return InvalidLabel, false
	}
	root := h.heap[0]
	h.swap(0, len(h.heap)-1)
	h.heap = h.heap[:len(h.heap)-1]
	h.pos[root.labelIdx] = -1
	if len(h.heap) > 0 {
		h.heapifyDown(0)
	}
	return root.labelIdx, true
}

func (h *HeapQueue) MinCost() float64 {
	if len(h.heap) == 0 {
		return 2 * pkg.INF_WEIGHT
	}
	return h.heap[0].rank
}

func (h *HeapQueue) Size() int {
	return len(h.heap)
}

func (h *HeapQueue) Clear() {
	h.heap = h.heap[:0]
	h.pos = h.pos[:0]
}
