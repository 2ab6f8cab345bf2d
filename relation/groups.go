package relation

import "sort"

// minGroupSplit is the smallest connected cast that is further split by
// modularity.
const minGroupSplit = 6

// maxGroupNodes caps the modularity pass; larger casts stay whole.
const maxGroupNodes = 200

// Group is a cluster of characters that interact more with each other than
// with the rest of the cast.
type Group struct {
	Characters    []string     `json:"characters"`
	Relationships int          `json:"relationships"`
	Types         map[Type]int `json:"types"`
}

type link struct {
	to     int
	weight float64
}

// Groups partitions the characters of r into social circles. Connected
// components come first; components of minGroupSplit or more characters
// are split further by greedy modularity optimisation. Characters without
// relationships are left out. Groups and their members are in order of
// first appearance in r.Characters.
func Groups(r Result) []Group {
	index := make(map[string]int, len(r.Characters))
	for i, c := range r.Characters {
		index[c] = i
	}

	// Repeated pairs add weight.
	n := len(r.Characters)
	weights := make(map[[2]int]float64)
	for _, e := range r.Relationships {
		a, okA := index[e.Character1]
		b, okB := index[e.Character2]
		if !okA || !okB || a == b {
			continue
		}
		if a > b {
			a, b = b, a
		}
		weights[[2]int{a, b}]++
	}
	if len(weights) == 0 {
		return make([]Group, 0)
	}

	adj := make([][]link, n)
	total := 0.0
	for _, k := range sortedPairs(weights) {
		w := weights[k]
		adj[k[0]] = append(adj[k[0]], link{to: k[1], weight: w})
		adj[k[1]] = append(adj[k[1]], link{to: k[0], weight: w})
		total += w
	}

	var clusters [][]int
	for _, comp := range components(adj) {
		if len(comp) < 2 {
			continue
		}
		if len(comp) >= minGroupSplit && len(comp) <= maxGroupNodes {
			clusters = append(clusters, splitByModularity(comp, adj, total)...)
			continue
		}
		clusters = append(clusters, comp)
	}

	for _, c := range clusters {
		sort.Ints(c)
	}
	sort.Slice(clusters, func(i, j int) bool { return clusters[i][0] < clusters[j][0] })

	out := make([]Group, 0, len(clusters))
	for _, c := range clusters {
		g := Group{Characters: make([]string, len(c)), Types: make(map[Type]int)}
		member := make(map[string]bool, len(c))
		for i, idx := range c {
			g.Characters[i] = r.Characters[idx]
			member[r.Characters[idx]] = true
		}
		for _, e := range r.Relationships {
			if member[e.Character1] && member[e.Character2] {
				g.Relationships++
				g.Types[e.Type]++
			}
		}
		out = append(out, g)
	}
	return out
}

func sortedPairs(m map[[2]int]float64) [][2]int {
	keys := make([][2]int, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i][0] != keys[j][0] {
			return keys[i][0] < keys[j][0]
		}
		return keys[i][1] < keys[j][1]
	})
	return keys
}

// components returns the connected components of adj by BFS, in order of
// their lowest node.
func components(adj [][]link) [][]int {
	visited := make([]bool, len(adj))
	var out [][]int
	for i := range adj {
		if visited[i] {
			continue
		}
		comp := []int{}
		queue := []int{i}
		visited[i] = true
		for len(queue) > 0 {
			node := queue[0]
			queue = queue[1:]
			comp = append(comp, node)
			for _, l := range adj[node] {
				if !visited[l.to] {
					visited[l.to] = true
					queue = append(queue, l.to)
				}
			}
		}
		out = append(out, comp)
	}
	return out
}

// splitByModularity moves each node to the neighbouring community with the
// best modularity gain until nothing moves (simplified Louvain, one level).
// Ties go to the lowest community label, so the split is deterministic.
func splitByModularity(comp []int, adj [][]link, total float64) [][]int {
	m2 := 2 * total
	if m2 == 0 {
		return [][]int{comp}
	}

	local := make(map[int]int, len(comp))
	for i, node := range comp {
		local[node] = i
	}
	community := make([]int, len(comp))
	strength := make([]float64, len(comp))
	commStrength := make(map[int]float64, len(comp))
	for i, node := range comp {
		community[i] = i
		for _, l := range adj[node] {
			strength[i] += l.weight
		}
		commStrength[i] = strength[i]
	}

	for pass := 0; pass < 20; pass++ {
		moved := false
		for i, node := range comp {
			toComm := make(map[int]float64)
			for _, l := range adj[node] {
				if li, ok := local[l.to]; ok {
					toComm[community[li]] += l.weight
				}
			}
			labels := make([]int, 0, len(toComm))
			for c := range toComm {
				labels = append(labels, c)
			}
			sort.Ints(labels)

			cur := community[i]
			ki := strength[i]
			remove := toComm[cur]/m2 - ((commStrength[cur]-ki)*ki)/(m2*m2)

			best, bestGain := cur, 0.0
			for _, c := range labels {
				if c == cur {
					continue
				}
				gain := (toComm[c]/m2 - (commStrength[c]*ki)/(m2*m2)) - remove
				if gain > bestGain {
					best, bestGain = c, gain
				}
			}
			if best != cur {
				commStrength[cur] -= ki
				commStrength[best] += ki
				community[i] = best
				moved = true
			}
		}
		if !moved {
			break
		}
	}

	byLabel := make(map[int][]int)
	var order []int
	for i, node := range comp {
		c := community[i]
		if _, ok := byLabel[c]; !ok {
			order = append(order, c)
		}
		byLabel[c] = append(byLabel[c], node)
	}
	if len(order) <= 1 {
		return [][]int{comp}
	}
	out := make([][]int, 0, len(order))
	for _, c := range order {
		out = append(out, byLabel[c])
	}
	return out
}
