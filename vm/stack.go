package vm

// Stack is the machine's operand stack. The top is the last element.
type Stack struct {
	values []int64
}

// Push pushes v.
func (s *Stack) Push(v int64) {
	s.values = append(s.values, v)
}

// Pop removes and returns the top value.
func (s *Stack) Pop() (int64, error) {
	if len(s.values) == 0 {
		return 0, ErrStackUnderflow
	}
	v := s.values[len(s.values)-1]
	s.values = s.values[:len(s.values)-1]
	return v, nil
}

// Pop2 removes the top two values, returning the top as a and the one
// below it as b. The stack is untouched if it holds fewer than two.
func (s *Stack) Pop2() (a, b int64, err error) {
	n := len(s.values)
	if n < 2 {
		return 0, 0, ErrStackUnderflow
	}
	a, b = s.values[n-1], s.values[n-2]
	s.values = s.values[:n-2]
	return a, b, nil
}

// Peek returns the top value without removing it.
func (s *Stack) Peek() (int64, error) {
	if len(s.values) == 0 {
		return 0, ErrStackUnderflow
	}
	return s.values[len(s.values)-1], nil
}

// Len returns the number of values.
func (s *Stack) Len() int {
	return len(s.values)
}

// Values returns a copy of the stack, bottom first.
func (s *Stack) Values() []int64 {
	out := make([]int64, len(s.values))
	copy(out, s.values)
	return out
}

// Reset empties the stack.
func (s *Stack) Reset() {
	s.values = s.values[:0]
}

// Roll rotates the top depth values count times. One rotation buries the
// top value depth-1 places down; a negative count rotates the other way.
// depth is clamped to the stack size. A negative depth is an error and
// leaves the stack unchanged.
func (s *Stack) Roll(depth, count int64) error {
	if depth < 0 {
		return ErrNegativeDepth
	}
	if depth > int64(len(s.values)) {
		depth = int64(len(s.values))
	}
	if depth < 2 {
		return nil
	}
	k := int(((count % depth) + depth) % depth)
	if k == 0 {
		return nil
	}

	seg := s.values[len(s.values)-int(depth):]
	rotated := make([]int64, len(seg))
	for i, v := range seg {
		rotated[(i+k)%len(seg)] = v
	}
	copy(seg, rotated)
	return nil
}
