package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/chazu/codel/compiler"
	"github.com/chazu/codel/grid"
	"github.com/chazu/codel/vm"
)

// setBreakpointAt sets (never clears) the breakpoint on the block holding
// (row, col).
func setBreakpointAt(d *vm.DebugSession, row, col int) error {
	set, err := d.ToggleBreakpointAt(row, col)
	if err != nil {
		return err
	}
	if !set {
		_, err = d.ToggleBreakpointAt(row, col)
	}
	return err
}

// runDebugger reads debugger commands from in until EOF or quit.
func runDebugger(ctx context.Context, d *vm.DebugSession, in io.Reader, out io.Writer, maxSteps int) {
	fmt.Fprintln(out, "codel debugger (type 'help' for commands)")
	if prog := d.Program(); prog != nil {
		fmt.Fprintf(out, "%d instructions, %d blocks\n", prog.Len(), d.Context().Blocks.Count())
	}

	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "(codel) ")
		if !scanner.Scan() {
			break
		}
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}
		if fields[0] == "quit" || fields[0] == "q" || fields[0] == "exit" {
			break
		}
		if err := debugCommand(ctx, d, fields, out, maxSteps); err != nil {
			fmt.Fprintf(out, "error: %v\n", err)
		}
	}
	fmt.Fprintln(out)
}

func debugCommand(ctx context.Context, d *vm.DebugSession, fields []string, out io.Writer, maxSteps int) error {
	args := fields[1:]
	switch fields[0] {
	case "help", "h", "?":
		fmt.Fprintln(out, "Debugger commands:")
		fmt.Fprintln(out, "  step [n], s [n]        Execute n instructions (default 1)")
		fmt.Fprintln(out, "  continue, c            Run to the next breakpoint or the end")
		fmt.Fprintln(out, "  break <block|row col>  Set a breakpoint")
		fmt.Fprintln(out, "  delete <block>         Remove a breakpoint")
		fmt.Fprintln(out, "  toggle <row> <col>     Toggle the breakpoint on a codel's block")
		fmt.Fprintln(out, "  breakpoints, bl        List breakpoints")
		fmt.Fprintln(out, "  clear                  Remove all breakpoints")
		fmt.Fprintln(out, "  state, st              Show the run state")
		fmt.Fprintln(out, "  stop                   Reset the run")
		fmt.Fprintln(out, "  input <text>           Set input for the next run")
		fmt.Fprintln(out, "  paint <row> <col> <c>  Bucket-fill with codel character c")
		fmt.Fprintln(out, "  dis                    Show the disassembly")
		fmt.Fprintln(out, "  blocks                 Show block labels")
		fmt.Fprintln(out, "  grid                   Show the grid")
		fmt.Fprintln(out, "  quit, q                Exit")

	case "step", "s":
		n := 1
		if len(args) > 0 {
			v, err := strconv.Atoi(args[0])
			if err != nil || v < 1 {
				return fmt.Errorf("step: bad count %q", args[0])
			}
			n = v
		}
		for i := 0; i < n; i++ {
			snap, ok := d.Step()
			if !ok {
				fmt.Fprintln(out, "program finished")
				break
			}
			printSnapshot(out, snap)
		}

	case "continue", "c":
		res, err := d.Continue(ctx, maxSteps)
		for _, snap := range res.Snapshots {
			if snap.Output != "" {
				fmt.Fprint(out, snap.Output)
			}
		}
		if err != nil {
			return err
		}
		if n := len(res.Snapshots); n > 0 {
			printSnapshot(out, res.Snapshots[n-1])
		}
		fmt.Fprintf(out, "stopped: %s after %d steps\n", res.Reason, len(res.Snapshots))

	case "break", "b":
		switch len(args) {
		case 1:
			block, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("break: bad block %q", args[0])
			}
			return d.SetBreakpoint(block)
		case 2:
			row, col, err := cell(args)
			if err != nil {
				return err
			}
			return setBreakpointAt(d, row, col)
		}
		return fmt.Errorf("usage: break <block> | break <row> <col>")

	case "delete", "del":
		if len(args) != 1 {
			return fmt.Errorf("usage: delete <block>")
		}
		block, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("delete: bad block %q", args[0])
		}
		return d.RemoveBreakpoint(block)

	case "toggle", "t":
		row, col, err := cell(args)
		if err != nil {
			return err
		}
		set, err := d.ToggleBreakpointAt(row, col)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "breakpoint %s\n", map[bool]string{true: "set", false: "cleared"}[set])

	case "breakpoints", "bl":
		fmt.Fprintf(out, "breakpoints: %v\n", d.ListBreakpoints())

	case "clear":
		d.ClearAllBreakpoints()

	case "state", "st":
		printState(out, d.State())

	case "stop", "reset":
		d.Stop()
		fmt.Fprintln(out, "run reset")

	case "input":
		d.SetInput(strings.Join(args, " "))
		fmt.Fprintln(out, "input set for the next run")

	case "paint":
		if len(args) != 3 {
			return fmt.Errorf("usage: paint <row> <col> <codel>")
		}
		row, col, err := cell(args[:2])
		if err != nil {
			return err
		}
		r := []rune(args[2])
		v, ok := grid.CodelValue(r[0])
		if !ok || len(r) != 1 {
			return fmt.Errorf("paint: unknown codel %q", args[2])
		}
		n, err := d.Paint(row, col, grid.Colour(v))
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "painted %d codels; breakpoints cleared\n", n)

	case "dis":
		prog := d.Program()
		if prog == nil {
			return fmt.Errorf("dis: the session is interpreting, not compiled")
		}
		fmt.Fprint(out, prog.Disassemble())

	case "blocks":
		for _, row := range d.Context().Blocks.LabelMap() {
			for i, l := range row {
				if i > 0 {
					fmt.Fprint(out, " ")
				}
				fmt.Fprintf(out, "%3d", l)
			}
			fmt.Fprintln(out)
		}

	case "grid":
		fmt.Fprint(out, d.Context().Grid.Format())

	default:
		return fmt.Errorf("unknown command %q (try 'help')", fields[0])
	}
	return nil
}

func cell(args []string) (row, col int, err error) {
	if len(args) != 2 {
		return 0, 0, fmt.Errorf("want <row> <col>")
	}
	row, err = strconv.Atoi(args[0])
	if err != nil {
		return 0, 0, fmt.Errorf("bad row %q", args[0])
	}
	col, err = strconv.Atoi(args[1])
	if err != nil {
		return 0, 0, fmt.Errorf("bad col %q", args[1])
	}
	return row, col, nil
}

func printSnapshot(out io.Writer, s vm.Snapshot) {
	fmt.Fprintf(out, "%04d  %-8s", s.PC, s.Op)
	if s.Op == compiler.OpPush {
		fmt.Fprintf(out, " %d", s.Operand)
	}
	fmt.Fprintf(out, "  [b%d %s/%s] stack=%v", s.Block, s.DP, s.CC, s.Stack)
	if s.Output != "" {
		fmt.Fprintf(out, " out=%q", s.Output)
	}
	if s.Err != nil {
		fmt.Fprintf(out, " error: %v", s.Err)
	}
	fmt.Fprintln(out)
}

func printState(out io.Writer, s vm.SessionState) {
	status := "idle"
	switch {
	case s.Done:
		status = "finished"
	case s.Running:
		status = "running"
	}
	fmt.Fprintf(out, "status:      %s\n", status)
	fmt.Fprintf(out, "pc:          %d (block %d, next block %d)\n", s.PC, s.Block, s.NextBlock)
	fmt.Fprintf(out, "dp/cc:       %s/%s\n", s.DP, s.CC)
	fmt.Fprintf(out, "stack:       %v\n", s.Stack)
	fmt.Fprintf(out, "output:      %q\n", s.Output)
	fmt.Fprintf(out, "steps:       %d (%d errors)\n", s.Steps, s.Errors)
	if s.LastErr != "" {
		fmt.Fprintf(out, "last error:  %s\n", s.LastErr)
	}
	fmt.Fprintf(out, "breakpoints: %v\n", s.Breakpoints)
}
