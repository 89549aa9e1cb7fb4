package render

import (
	"fmt"
	"runtime"
)

// stackFrame is a resolved program counter, kept for error annotation.
type stackFrame struct {
	fn   string
	file string
	line int
}

func newStackFrame(pc uintptr) stackFrame {
	frame := stackFrame{fn: "unknown"}
	fn := runtime.FuncForPC(pc)
	if fn == nil {
		return frame
	}
	frame.fn = fn.Name()
	frame.file, frame.line = fn.FileLine(pc)
	return frame
}

func (f stackFrame) String() string {
	return fmt.Sprintf("%s (%s:%d)", f.fn, f.file, f.line)
}
