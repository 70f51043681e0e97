// Package cfg implements the CFG Builder (spec.md §4.2): it partitions a
// code block's linear instruction stream into basic blocks keyed by jump
// targets.
package cfg

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/mna/udecomp/lang/ir"
)

// Build partitions cb's instruction stream into basic blocks and stores the
// result in cb.BasicBlocks. It is safe to call on a code block with no
// jumps at all, in which case a single basic block "L0" is produced.
func Build(cb *ir.CodeBlock) error {
	targets, err := jumpTargets(cb.Instructions)
	if err != nil {
		return fmt.Errorf("code block %s: %w", cb.Descriptor, err)
	}

	if len(targets) == 0 {
		cb.BasicBlocks = []*ir.BasicBlock{{Label: "L0", Instructions: cb.Instructions}}
		return nil
	}

	cuts := make([]int, 0, len(targets)+1)
	cuts = append(cuts, 0)
	for t := range targets {
		if t != 0 {
			cuts = append(cuts, t)
		}
	}
	sort.Ints(cuts)

	var blocks []*ir.BasicBlock
	cutIdx := 0
	var cur []ir.Instruction
	for _, insn := range cb.Instructions {
		for cutIdx+1 < len(cuts) && int(insn.Offset) >= cuts[cutIdx+1] {
			blocks = append(blocks, &ir.BasicBlock{Label: label(cuts[cutIdx]), Instructions: cur})
			cur = nil
			cutIdx++
		}
		cur = append(cur, insn)
	}
	blocks = append(blocks, &ir.BasicBlock{Label: label(cuts[cutIdx]), Instructions: cur})

	cb.BasicBlocks = blocks
	return nil
}

func label(offset int) string {
	return "L" + strconv.Itoa(offset)
}

// jumpTargets collects the set of absolute byte offsets targeted by any
// jump-family instruction in insns (spec.md §4.2 step 1). UNWIND_JUMP
// carries two whitespace-separated targets instead of one.
func jumpTargets(insns []ir.Instruction) (map[int]bool, error) {
	targets := make(map[int]bool)
	for _, insn := range insns {
		if !ir.IsJump(insn.OpText) {
			continue
		}

		if insn.Op == ir.UnwindJump {
			fields := strings.Fields(insn.Operands)
			if len(fields) != 2 {
				return nil, fmt.Errorf("UNWIND_JUMP at offset %d: expected two targets, got %q", insn.Offset, insn.Operands)
			}
			for _, f := range fields {
				t, err := strconv.Atoi(f)
				if err != nil {
					return nil, fmt.Errorf("UNWIND_JUMP at offset %d: invalid target %q: %w", insn.Offset, f, err)
				}
				targets[t] = true
			}
			continue
		}

		t, err := strconv.Atoi(strings.TrimSpace(insn.Operands))
		if err != nil {
			return nil, fmt.Errorf("%s at offset %d: invalid jump target %q: %w", insn.OpText, insn.Offset, insn.Operands, err)
		}
		targets[t] = true
	}
	return targets, nil
}
