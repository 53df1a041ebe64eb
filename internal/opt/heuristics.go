package opt

import "canvassplan/internal/geo"

// Order is a permutation of point indices describing an open path: the first
// index is the start, the last is the end, and there is no edge back.
type Order []int

// Identity returns the order 0..n-1.
func Identity(n int) Order {
	o := make(Order, n)
	for i := range o {
		o[i] = i
	}
	return o
}

// Clone returns a copy that does not share storage with o.
func (o Order) Clone() Order { return append(Order(nil), o...) }

// Construct builds an open path with multi-start nearest neighbor. Every index
// is tried as the start; at each step the nearest unvisited point is taken
// (ties go to the lowest index). The start whose path has the smallest raw
// distance wins, ties going to the earlier start.
func Construct(m geo.Matrix) Order {
	n := m.Len()
	if n <= 1 {
		return Identity(n)
	}
	var best Order
	bestTotal := -1
	visited := make([]bool, n)
	for start := 0; start < n; start++ {
		for i := range visited {
			visited[i] = false
		}
		order := make(Order, 0, n)
		order = append(order, start)
		visited[start] = true
		total := 0
		for len(order) < n {
			cur := order[len(order)-1]
			next, nextDist := -1, 0
			for j := 0; j < n; j++ {
				if visited[j] {
					continue
				}
				if next < 0 || m[cur][j] < nextDist {
					next, nextDist = j, m[cur][j]
				}
			}
			order = append(order, next)
			visited[next] = true
			total += nextDist
		}
		if bestTotal < 0 || total < bestTotal {
			best, bestTotal = order, total
		}
	}
	return best
}

// Improve applies open-path 2-opt under cost. Each pass scans edge pairs
// (i,i+1) and (k,k+1) with k > i+1; the first reversal of order[i+1..k] that
// beats the current cost by more than t.ImproveTolerance is applied and the
// scan restarts. Improve stops after a pass without a move or after
// t.MaxTwoOptPasses passes, and returns the order with the number of passes
// used. Paths shorter than four points are returned unchanged.
func Improve(order Order, cost CostModel, t Tuning) (Order, int) {
	best := order.Clone()
	n := len(best)
	if n < 4 {
		return best, 0
	}
	bestCost := cost.Cost(best)
	scorer, local := cost.(reversalScorer)
	passes := 0
	for passes < t.MaxTwoOptPasses {
		passes++
		improved := false
	scan:
		for i := 0; i < n-3; i++ {
			for k := i + 2; k < n-1; k++ {
				var proposed float64
				var cand Order
				if local {
					proposed = bestCost + scorer.ReversalDelta(best, i, k)
				} else {
					cand = twoOptSwap(best, i+1, k)
					proposed = cost.Cost(cand)
				}
				if proposed+t.ImproveTolerance < bestCost {
					if cand == nil {
						cand = twoOptSwap(best, i+1, k)
					}
					best, bestCost = cand, proposed
					improved = true
					break scan
				}
			}
		}
		if !improved {
			break
		}
	}
	return best, passes
}

// twoOptSwap returns a copy of ord with ord[i..k] reversed.
func twoOptSwap(ord Order, i, k int) Order {
	out := make(Order, len(ord))
	copy(out, ord[:i])
	pos := i
	for j := k; j >= i; j-- {
		out[pos] = ord[j]
		pos++
	}
	copy(out[pos:], ord[k+1:])
	return out
}
