package diff3

// span is a maximal run of base lines that one side changed, together with
// the side's replacement lines. A pure insertion has baseStart == baseEnd.
type span struct {
	baseStart, baseEnd int      // half-open [baseStart, baseEnd) in the base
	lines              []string // the side's lines for this run
}

type editKind int

const (
	editKeep editKind = iota
	editDrop
	editAdd
)

type edit struct {
	kind editKind
	line string
}

// changedSpans diffs side against base and returns the changed regions as
// maximal runs over base positions, in base order. Unchanged regions are
// implied by the gaps between spans.
func changedSpans(base, side []string) []span {
	prefix := commonPrefix(base, side)
	a := base[prefix:]
	b := side[prefix:]
	suffix := commonSuffix(a, b)
	a = a[:len(a)-suffix]
	b = b[:len(b)-suffix]

	script := shortestEdits(a, b)

	var spans []span
	basePos := prefix
	i := 0
	for i < len(script) {
		if script[i].kind == editKeep {
			basePos++
			i++
			continue
		}
		run := span{baseStart: basePos, baseEnd: basePos}
		for i < len(script) && script[i].kind != editKeep {
			if script[i].kind == editDrop {
				run.baseEnd++
				basePos++
			} else {
				run.lines = append(run.lines, script[i].line)
			}
			i++
		}
		spans = append(spans, run)
	}
	return spans
}

func commonPrefix(a, b []string) int {
	n := 0
	for n < len(a) && n < len(b) && a[n] == b[n] {
		n++
	}
	return n
}

func commonSuffix(a, b []string) int {
	n := 0
	for n < len(a) && n < len(b) && a[len(a)-1-n] == b[len(b)-1-n] {
		n++
	}
	return n
}

// shortestEdits computes a minimal line edit script from a to b with Myers'
// greedy algorithm, O((N+M)*D) where D is the edit distance.
func shortestEdits(a, b []string) []edit {
	n, m := len(a), len(b)
	if n == 0 && m == 0 {
		return nil
	}
	if n == 0 {
		script := make([]edit, m)
		for i, line := range b {
			script[i] = edit{kind: editAdd, line: line}
		}
		return script
	}
	if m == 0 {
		script := make([]edit, n)
		for i, line := range a {
			script[i] = edit{kind: editDrop, line: line}
		}
		return script
	}

	limit := n + m
	// frontier[k+limit] is the furthest x reached on diagonal k.
	frontier := make([]int, 2*limit+1)
	var history [][]int

	for d := 0; d <= limit; d++ {
		for k := -d; k <= d; k += 2 {
			slot := k + limit
			var x int
			if k == -d || (k != d && frontier[slot-1] < frontier[slot+1]) {
				x = frontier[slot+1]
			} else {
				x = frontier[slot-1] + 1
			}
			y := x - k
			for x < n && y < m && a[x] == b[y] {
				x++
				y++
			}
			frontier[slot] = x

			if x >= n && y >= m {
				snap := make([]int, len(frontier))
				copy(snap, frontier)
				history = append(history, snap)
				return unwindEdits(history, a, b, d)
			}
		}
		snap := make([]int, len(frontier))
		copy(snap, frontier)
		history = append(history, snap)
	}
	return nil
}

// unwindEdits walks the saved frontiers backwards from (len(a), len(b)) and
// reconstructs the edit script in forward order.
func unwindEdits(history [][]int, a, b []string, dFinal int) []edit {
	limit := len(a) + len(b)
	x, y := len(a), len(b)

	var reversed []edit
	for d := dFinal; d > 0; d-- {
		k := x - y
		slot := k + limit
		prev := history[d-1]

		var fromK int
		if k == -d || (k != d && prev[slot-1] < prev[slot+1]) {
			fromK = k + 1
		} else {
			fromK = k - 1
		}
		fromX := prev[fromK+limit]
		fromY := fromX - fromK

		for x > fromX && y > fromY {
			x--
			y--
			reversed = append(reversed, edit{kind: editKeep, line: a[x]})
		}
		if fromK == k-1 {
			x--
			reversed = append(reversed, edit{kind: editDrop, line: a[x]})
		} else {
			y--
			reversed = append(reversed, edit{kind: editAdd, line: b[y]})
		}
	}
	for x > 0 && y > 0 {
		x--
		y--
		reversed = append(reversed, edit{kind: editKeep, line: a[x]})
	}

	script := make([]edit, len(reversed))
	for i, op := range reversed {
		script[len(reversed)-1-i] = op
	}
	return script
}
