package compiler

import (
	"fmt"
	"strings"
)

// Disassemble returns a human-readable listing of the program.
func (p *Program) Disassemble() string {
	return p.DisassembleWithName("")
}

// DisassembleWithName returns a listing with a name header.
func (p *Program) DisassembleWithName(name string) string {
	var sb strings.Builder

	if name != "" {
		sb.WriteString(fmt.Sprintf("; === %s ===\n", name))
	}
	sb.WriteString(fmt.Sprintf("; Grid: %dx%d\n", p.Width, p.Height))
	sb.WriteString(fmt.Sprintf("; Instructions: %d\n", len(p.Instructions)))
	if !p.Complete() {
		sb.WriteString(fmt.Sprintf("; Incomplete: %d timeout(s), %d trapped\n", p.Timeouts, p.Trapped))
	}
	sb.WriteString("\n")

	for i := range p.Instructions {
		sb.WriteString(fmt.Sprintf("%04d  %s\n", i, p.Instructions[i].Format()))
	}
	return sb.String()
}

// Format renders a single instruction, e.g. "PUSH 5  [b3 right/left]".
func (in *Instruction) Format() string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%-8s", in.Op))

	switch {
	case in.Op == OpPush:
		sb.WriteString(fmt.Sprintf(" %-6d", in.Operand))
	case len(in.Targets) > 0:
		parts := make([]string, len(in.Targets))
		for i, t := range in.Targets {
			parts[i] = fmt.Sprintf("%04d", t)
		}
		sb.WriteString(" -> " + strings.Join(parts, ","))
	default:
		sb.WriteString("       ")
	}

	block := "  -"
	if in.Block >= 0 {
		block = fmt.Sprintf("b%-2d", in.Block)
	}
	sb.WriteString(fmt.Sprintf("  [%s %s/%s]", block, in.DP, in.CC))
	return strings.TrimRight(sb.String(), " ")
}
