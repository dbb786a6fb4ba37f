package profiler

import (
	"fmt"
	"io"
	"strings"
)

// ticksPerSecond converts seconds to callgrind cost units (100ns ticks).
const ticksPerSecond = 1e7

const (
	boldOn  = "\x1b[1m"
	boldOff = "\x1b[0m"
)

// LineReportOptions tunes LineReport.
type LineReportOptions struct {
	// Highlight wraps the hottest source line of each file in ANSI bold.
	Highlight bool
}

// codeRow aggregates every execution of one instruction address.
type codeRow struct {
	address     uint64
	instruction string
	count       uint64
	time        float64
}

// codeRows groups instruction infos by address, keeping first-seen order.
type codeRows struct {
	rows  []*codeRow
	index map[uint64]*codeRow
}

func (c *codeRows) add(info InstructionInfo) {
	if c.index == nil {
		c.index = make(map[uint64]*codeRow)
	}
	row, ok := c.index[info.Address]
	if !ok {
		row = &codeRow{address: info.Address}
		c.index[info.Address] = row
		c.rows = append(c.rows, row)
	}
	row.instruction = info.Instruction
	row.count += uint64(info.Count)
	row.time += info.Time
}

func (c *codeRows) write(sb *strings.Builder) {
	for _, row := range c.rows {
		sb.WriteString(fmt.Sprintf("            %10d %-7.5f    %s\n", row.count, row.time, row.instruction))
	}
}

// fileProfile collects the instructions of one source file by line.
type fileProfile struct {
	name  string
	lines map[int][]InstructionInfo
}

// ownerProfile collects the instructions of one unit without source lines.
type ownerProfile struct {
	name  string
	codes codeRows
}

// LineReport returns a Reporter writing the mixed source/instruction report:
//
//	LINE TIME SOURCE_TEXT
//	            COUNT TIME INSTRUCTION
//
// followed by the units that have no source lines, listed by owner.
func LineReport(w io.Writer, opts LineReportOptions) Reporter {
	return func(q *Query) error {
		var files []*fileProfile
		fileIndex := make(map[string]*fileProfile)
		var owners []*ownerProfile
		ownerIndex := make(map[string]*ownerProfile)

		ownerOf := func(name string) *ownerProfile {
			o, ok := ownerIndex[name]
			if !ok {
				o = &ownerProfile{name: name}
				ownerIndex[name] = o
				owners = append(owners, o)
			}
			return o
		}

		for id := NodeID(0); int(id) < q.UnitCount(); id++ {
			node, err := q.NodeInfo(id)
			if err != nil {
				return err
			}
			n, err := q.InstructionCount(id)
			if err != nil {
				return err
			}
			for off := 0; off < n; off++ {
				info, err := q.InstructionInfo(id, off)
				if err != nil {
					return err
				}
				if !info.Location.HasFile() || info.Line == 0 {
					ownerOf(node.OwnerType + "#" + node.OwnerName).codes.add(info)
					continue
				}
				f, ok := fileIndex[info.Location.File]
				if !ok {
					f = &fileProfile{name: info.Location.File, lines: make(map[int][]InstructionInfo)}
					fileIndex[f.name] = f
					files = append(files, f)
				}
				f.lines[info.Line] = append(f.lines[info.Line], info)
			}
		}

		var sb strings.Builder
		for _, f := range files {
			text, err := q.ReadLines(f.name)
			if err != nil {
				log.Warningf("line report: %s", err)
				o := ownerOf(f.name)
				for line, end := 0, maxLine(f.lines)+1; line < end; line++ {
					for _, info := range f.lines[line] {
						o.codes.add(info)
					}
				}
				continue
			}
			writeFile(&sb, f, text, opts)
		}

		for _, o := range owners {
			sb.WriteString(o.name + "\n")
			o.codes.write(&sb)
		}

		_, err := io.WriteString(w, sb.String())
		return err
	}
}

func maxLine(lines map[int][]InstructionInfo) int {
	m := 0
	for line := range lines {
		m = max(m, line)
	}
	return m
}

func writeFile(sb *strings.Builder, f *fileProfile, text []string, opts LineReportOptions) {
	hottest, best := 0, 0.0
	if opts.Highlight {
		for line, infos := range f.lines {
			t := 0.0
			for _, info := range infos {
				t += info.Time
			}
			if t > best || (t == best && t > 0 && line < hottest) {
				hottest, best = line, t
			}
		}
	}

	for i, src := range text {
		line := i + 1
		infos := f.lines[line]
		t := 0.0
		for _, info := range infos {
			t += info.Time
		}

		row := fmt.Sprintf("%04d %7.5f %s", line, t, src)
		if line == hottest {
			row = boldOn + row + boldOff
		}
		sb.WriteString(row + "\n")

		if len(infos) > 0 {
			var codes codeRows
			for _, info := range infos {
				codes.add(info)
			}
			codes.write(sb)
		}
	}
}

// CallgrindReport returns a Reporter writing a callgrind profile that
// kcachegrind can load. Positions are "instr line"; costs are 100ns ticks;
// call costs are inclusive of the whole subtree.
func CallgrindReport(w io.Writer) Reporter {
	return func(q *Query) error {
		count := q.UnitCount()
		nodes := make([]NodeInfo, count)
		exclusive := make([]int64, count)
		for id := 0; id < count; id++ {
			info, err := q.NodeInfo(NodeID(id))
			if err != nil {
				return err
			}
			nodes[id] = info
			n, err := q.InstructionCount(NodeID(id))
			if err != nil {
				return err
			}
			for off := 0; off < n; off++ {
				ii, err := q.InstructionInfo(NodeID(id), off)
				if err != nil {
					return err
				}
				exclusive[id] += ticks(ii.Time)
			}
		}

		// Children are always registered after their parent, so a reverse
		// sweep sees every subtree complete before its root.
		inclusive := append([]int64(nil), exclusive...)
		for id := count - 1; id > 0; id-- {
			if p := nodes[id].Parent; p != NoNode {
				inclusive[p] += inclusive[id]
			}
		}

		var sb strings.Builder
		sb.WriteString("version: 1\n")
		sb.WriteString("creator: opprof\n")
		sb.WriteString("positions: instr line\n")
		sb.WriteString("events: Ticks\n\n")

		fileIDs := make(map[string]int)
		fileRef := func(key, name string) string {
			if id, ok := fileIDs[name]; ok {
				return fmt.Sprintf("%s=(%d)\n", key, id)
			}
			id := len(fileIDs)
			fileIDs[name] = id
			return fmt.Sprintf("%s=(%d) %s\n", key, id, name)
		}
		named := make(map[NodeID]bool)
		fnRef := func(key string, n NodeInfo) string {
			if named[n.ID] {
				return fmt.Sprintf("%s=(%d)\n", key, n.ID)
			}
			named[n.ID] = true
			return fmt.Sprintf("%s=(%d) %s#%s\n", key, n.ID, n.OwnerType, n.OwnerName)
		}

		for _, n := range nodes {
			if n.File != "" {
				sb.WriteString(fileRef("fl", n.File))
			}
			sb.WriteString(fnRef("fn", n))

			ilen, err := q.InstructionCount(n.ID)
			if err != nil {
				return err
			}
			var entry InstructionInfo
			for off := 0; off < ilen; off++ {
				ii, err := q.InstructionInfo(n.ID, off)
				if err != nil {
					return err
				}
				if off == 0 {
					entry = ii
				}
				if ii.Count == 0 {
					continue
				}
				sb.WriteString(fmt.Sprintf("0x%x %d %d\n", ii.Address, ii.Line, ticks(ii.Time)))
			}

			for i, cid := range n.Children {
				child := nodes[cid]
				if child.File != "" {
					sb.WriteString(fileRef("cfl", child.File))
				}
				sb.WriteString(fnRef("cfn", child))
				childEntry, err := q.InstructionInfo(cid, 0)
				if err != nil {
					return err
				}
				sb.WriteString(fmt.Sprintf("calls=%d 0x%x %d\n", n.Invocations[i], childEntry.Address, childEntry.Line))
				sb.WriteString(fmt.Sprintf("0x%x %d %d\n", entry.Address, entry.Line, inclusive[cid]))
			}
			sb.WriteString("\n")
		}

		_, err := io.WriteString(w, sb.String())
		return err
	}
}

func ticks(seconds float64) int64 {
	return int64(seconds * ticksPerSecond)
}
