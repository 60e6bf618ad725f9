// Package diff3 implements line-oriented two-way diffs and a three-way merge
// over text content. Merge output follows the usual conflict-marker
// convention so unresolved results stay human-editable.
package diff3

import (
	"bytes"
	"strings"
)

// HunkType classifies a section of merge output.
type HunkType int

const (
	HunkClean    HunkType = iota // merged without intervention
	HunkConflict                 // needs manual resolution
)

// Hunk is one contiguous section of the merge output, in document order.
type Hunk struct {
	Type                       HunkType
	Base, Ours, Theirs, Merged []byte
}

// Result is the outcome of a three-way merge. Merged always holds the full
// output; when HasConflicts is set it contains conflict markers.
type Result struct {
	Merged       []byte
	HasConflicts bool
	Hunks        []Hunk
}

// LineKind classifies a line in a two-way diff.
type LineKind = editKind

const (
	LineUnchanged = editKeep
	LineRemoved   = editDrop
	LineAdded     = editAdd
)

// DiffLine is one line of LineDiff output.
type DiffLine struct {
	Kind    LineKind
	Content string
}

// LineDiff computes a minimal line-level diff from a to b.
func LineDiff(a, b []byte) []DiffLine {
	script := shortestEdits(toLines(a), toLines(b))
	out := make([]DiffLine, len(script))
	for i, op := range script {
		out[i] = DiffLine{Kind: op.kind, Content: op.line}
	}
	return out
}

// Merge performs a three-way line merge of ours and theirs against their
// common base. Base regions changed by only one side take that side's lines;
// regions changed identically on both sides merge clean; overlapping
// divergent changes become conflict hunks.
func Merge(base, ours, theirs []byte) Result {
	baseLines := toLines(base)
	oursSpans := changedSpans(baseLines, toLines(ours))
	theirsSpans := changedSpans(baseLines, toLines(theirs))

	regions := groupRegions(oursSpans, theirsSpans)

	var out bytes.Buffer
	var hunks []Hunk
	conflicted := false

	basePos := 0
	for _, reg := range regions {
		if reg.start > basePos {
			keep := baseLines[basePos:reg.start]
			writeLines(&out, keep)
			hunks = append(hunks, Hunk{Type: HunkClean, Base: joinLines(keep), Merged: joinLines(keep)})
		}

		baseRegion := baseLines[reg.start:reg.end]
		oursOut := renderSide(baseLines, reg, reg.ours)
		theirsOut := renderSide(baseLines, reg, reg.theirs)

		switch {
		case len(reg.theirs) == 0:
			writeLines(&out, oursOut)
			hunks = append(hunks, Hunk{Type: HunkClean, Base: joinLines(baseRegion), Ours: joinLines(oursOut), Merged: joinLines(oursOut)})
		case len(reg.ours) == 0:
			writeLines(&out, theirsOut)
			hunks = append(hunks, Hunk{Type: HunkClean, Base: joinLines(baseRegion), Theirs: joinLines(theirsOut), Merged: joinLines(theirsOut)})
		case sameLines(oursOut, theirsOut):
			writeLines(&out, oursOut)
			hunks = append(hunks, Hunk{Type: HunkClean, Base: joinLines(baseRegion), Ours: joinLines(oursOut), Theirs: joinLines(theirsOut), Merged: joinLines(oursOut)})
		default:
			conflicted = true
			writeConflict(&out, oursOut, theirsOut)
			hunks = append(hunks, Hunk{Type: HunkConflict, Base: joinLines(baseRegion), Ours: joinLines(oursOut), Theirs: joinLines(theirsOut)})
		}
		basePos = reg.end
	}

	if basePos < len(baseLines) {
		keep := baseLines[basePos:]
		writeLines(&out, keep)
		hunks = append(hunks, Hunk{Type: HunkClean, Base: joinLines(keep), Merged: joinLines(keep)})
	}

	return Result{Merged: out.Bytes(), HasConflicts: conflicted, Hunks: hunks}
}

// region is a merged group of changed spans from either side covering one
// base interval. Spans from the same side never overlap each other, but a
// region may hold several from one side when the other side's change
// bridges them.
type region struct {
	start, end   int
	ours, theirs []span
}

// groupRegions sweeps both span lists in base order and merges spans whose
// base intervals overlap or touch into shared regions. Touching counts as
// overlap so that insertions at the same base position land in one region
// and surface as a conflict rather than interleaving arbitrarily.
func groupRegions(ours, theirs []span) []region {
	var regions []region
	oi, ti := 0, 0
	for oi < len(ours) || ti < len(theirs) {
		var reg region
		if ti >= len(theirs) || (oi < len(ours) && ours[oi].baseStart <= theirs[ti].baseStart) {
			reg = region{start: ours[oi].baseStart, end: ours[oi].baseEnd, ours: ours[oi : oi+1]}
			oi++
		} else {
			reg = region{start: theirs[ti].baseStart, end: theirs[ti].baseEnd, theirs: theirs[ti : ti+1]}
			ti++
		}

		for {
			grew := false
			if oi < len(ours) && ours[oi].baseStart <= reg.end {
				reg.ours = append(reg.ours, ours[oi])
				if ours[oi].baseEnd > reg.end {
					reg.end = ours[oi].baseEnd
				}
				oi++
				grew = true
			}
			if ti < len(theirs) && theirs[ti].baseStart <= reg.end {
				reg.theirs = append(reg.theirs, theirs[ti])
				if theirs[ti].baseEnd > reg.end {
					reg.end = theirs[ti].baseEnd
				}
				ti++
				grew = true
			}
			if !grew {
				break
			}
		}
		regions = append(regions, reg)
	}
	return regions
}

// renderSide reconstructs one side's content for a region: base lines where
// the side left them alone, replacement lines where it changed them.
func renderSide(baseLines []string, reg region, spans []span) []string {
	if len(spans) == 0 {
		return baseLines[reg.start:reg.end]
	}
	var out []string
	pos := reg.start
	for _, s := range spans {
		out = append(out, baseLines[pos:s.baseStart]...)
		out = append(out, s.lines...)
		pos = s.baseEnd
	}
	out = append(out, baseLines[pos:reg.end]...)
	return out
}

func writeLines(buf *bytes.Buffer, lines []string) {
	for _, l := range lines {
		buf.WriteString(l)
		buf.WriteByte('\n')
	}
}

func writeConflict(buf *bytes.Buffer, oursLines, theirsLines []string) {
	buf.WriteString("<<<<<<< ours\n")
	writeLines(buf, oursLines)
	buf.WriteString("=======\n")
	writeLines(buf, theirsLines)
	buf.WriteString(">>>>>>> theirs\n")
}

// toLines splits text into lines. A trailing newline does not yield an
// extra empty line.
func toLines(content []byte) []string {
	if len(content) == 0 {
		return nil
	}
	lines := strings.Split(string(content), "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}

func joinLines(lines []string) []byte {
	if len(lines) == 0 {
		return nil
	}
	var buf bytes.Buffer
	writeLines(&buf, lines)
	return buf.Bytes()
}

func sameLines(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
