package compiler

import "fmt"

// Opcode identifies an instruction. Commands occupy 0x00-0x1F and are
// executed against the stack; markers occupy 0x20 and up and record
// control flow and pointer changes discovered while compiling.
type Opcode byte

const (
	// ========================================================================
	// Commands (0x00-0x1F)
	// ========================================================================

	OpNop     Opcode = 0x00 // No operation
	OpPush    Opcode = 0x01 // Push operand (size of the exited block)
	OpPop     Opcode = 0x02 // Discard top
	OpAdd     Opcode = 0x03 // b + a
	OpSub     Opcode = 0x04 // b - a
	OpMul     Opcode = 0x05 // b * a
	OpDiv     Opcode = 0x06 // floor(b / a)
	OpMod     Opcode = 0x07 // b mod a, sign of a
	OpNot     Opcode = 0x08 // 1 if a == 0 else 0
	OpGreater Opcode = 0x09 // 1 if b > a else 0
	OpPointer Opcode = 0x0A // Rotate DP clockwise a times: branch over DP
	OpSwitch  Opcode = 0x0B // Toggle CC a times: branch over CC
	OpDup     Opcode = 0x0C // Push a copy of a
	OpRoll    Opcode = 0x0D // Roll b deep, a times
	OpInNum   Opcode = 0x0E // Read a number
	OpInChar  Opcode = 0x0F // Read a character
	OpOutNum  Opcode = 0x10 // Pop and write as decimal
	OpOutChar Opcode = 0x11 // Pop and write as a character

	// ========================================================================
	// Markers (0x20-0x2F)
	// ========================================================================

	OpDP      Opcode = 0x20 // DP rotated after a failed exit or during a slide
	OpCC      Opcode = 0x21 // CC toggled after a failed exit or during a slide
	OpJump    Opcode = 0x22 // Branch arm finished: jump to merge point
	OpLoop    Opcode = 0x23 // Path revisits a compiled state: jump back
	OpEnd     Opcode = 0x24 // Program terminates
	OpTimeout Opcode = 0x25 // Transition bound reached before termination
	OpTrapped Opcode = 0x26 // Stuck in a white region
)

// OpcodeInfo describes an opcode.
type OpcodeInfo struct {
	Name      string
	StackPop  int  // values consumed on success
	StackPush int  // values produced on success
	Marker    bool // compiler marker rather than a colour command
}

// opcodeInfoTable maps opcodes to their metadata.
var opcodeInfoTable = map[Opcode]OpcodeInfo{
	// Commands
	OpNop:     {"NOP", 0, 0, false},
	OpPush:    {"PUSH", 0, 1, false},
	OpPop:     {"POP", 1, 0, false},
	OpAdd:     {"ADD", 2, 1, false},
	OpSub:     {"SUB", 2, 1, false},
	OpMul:     {"MUL", 2, 1, false},
	OpDiv:     {"DIV", 2, 1, false},
	OpMod:     {"MOD", 2, 1, false},
	OpNot:     {"NOT", 1, 1, false},
	OpGreater: {"GREATER", 2, 1, false},
	OpPointer: {"POINTER", 1, 0, false},
	OpSwitch:  {"SWITCH", 1, 0, false},
	OpDup:     {"DUP", 1, 2, false},
	OpRoll:    {"ROLL", 2, 0, false},
	OpInNum:   {"IN_NUM", 0, 1, false},
	OpInChar:  {"IN_CHAR", 0, 1, false},
	OpOutNum:  {"OUT_NUM", 1, 0, false},
	OpOutChar: {"OUT_CHAR", 1, 0, false},

	// Markers
	OpDP:      {"DP", 0, 0, true},
	OpCC:      {"CC", 0, 0, true},
	OpJump:    {"JUMP", 0, 0, true},
	OpLoop:    {"LOOP", 0, 0, true},
	OpEnd:     {"END", 0, 0, true},
	OpTimeout: {"TIMEOUT", 0, 0, true},
	OpTrapped: {"TRAPPED", 0, 0, true},
}

// GetOpcodeInfo returns metadata for an opcode.
func GetOpcodeInfo(op Opcode) OpcodeInfo {
	if info, ok := opcodeInfoTable[op]; ok {
		return info
	}
	return OpcodeInfo{Name: fmt.Sprintf("UNKNOWN(0x%02X)", byte(op))}
}

// String returns the mnemonic of an opcode.
func (op Opcode) String() string {
	return GetOpcodeInfo(op).Name
}

// IsMarker reports whether op is a compiler marker.
func (op Opcode) IsMarker() bool {
	return GetOpcodeInfo(op).Marker
}

// IsBranch reports whether op selects among several targets at run time.
func (op Opcode) IsBranch() bool {
	return op == OpPointer || op == OpSwitch
}

// IsTerminal reports whether execution stops after op.
func (op Opcode) IsTerminal() bool {
	return op == OpEnd || op == OpTimeout || op == OpTrapped
}

// OpcodeByName looks up an opcode by mnemonic.
func OpcodeByName(name string) (Opcode, bool) {
	for op, info := range opcodeInfoTable {
		if info.Name == name {
			return op, true
		}
	}
	return 0, false
}
