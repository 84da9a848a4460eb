package output

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
)

type Output interface {
	Section(icon, title string)
	Header(title string)
	Info(format string, args ...interface{})
	Success(format string, args ...interface{})
	Warning(format string, args ...interface{})
	Error(format string, args ...interface{})
	Detail(format string, args ...interface{})
	Debug(format string, args ...interface{})
}

// line prefixes per level
var prefixes = map[string]string{
	"info":    "  ",
	"success": "  ✅ ",
	"warning": "  ⚠️  ",
	"error":   "  ❌ ",
	"detail":  "   ",
	"debug":   "  🔍 [DEBUG] ",
}

func render(level, format string, args []interface{}) string {
	return prefixes[level] + fmt.Sprintf(format, args...)
}

func sectionLine(icon, title string) string {
	return fmt.Sprintf("\n%s %s", icon, title)
}

func headerLine(title string) string {
	return fmt.Sprintf("\n%s\n%s", title, strings.Repeat("=", len(title)))
}

type StreamingOutput struct {
	writer io.Writer
	debug  bool
	mu     sync.Mutex
}

func NewStreamingOutput(writer io.Writer, debug bool) *StreamingOutput {
	if writer == nil {
		writer = os.Stdout
	}
	return &StreamingOutput{writer: writer, debug: debug}
}

func (o *StreamingOutput) writeLine(s string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	fmt.Fprintln(o.writer, s)
}

func (o *StreamingOutput) Section(icon, title string) { o.writeLine(sectionLine(icon, title)) }
func (o *StreamingOutput) Header(title string)        { o.writeLine(headerLine(title)) }

func (o *StreamingOutput) Info(format string, args ...interface{}) {
	o.writeLine(render("info", format, args))
}

func (o *StreamingOutput) Success(format string, args ...interface{}) {
	o.writeLine(render("success", format, args))
}

func (o *StreamingOutput) Warning(format string, args ...interface{}) {
	o.writeLine(render("warning", format, args))
}

func (o *StreamingOutput) Error(format string, args ...interface{}) {
	o.writeLine(render("error", format, args))
}

func (o *StreamingOutput) Detail(format string, args ...interface{}) {
	o.writeLine(render("detail", format, args))
}

func (o *StreamingOutput) Debug(format string, args ...interface{}) {
	if !o.debug {
		return
	}
	o.writeLine(render("debug", format, args))
}

type OutputLine struct {
	Level   string
	Message string
}

// BufferedOutput collects lines in memory, for example to build the text
// of an MCP tool result.
type BufferedOutput struct {
	lines []OutputLine
	debug bool
	mu    sync.Mutex
}

func NewBufferedOutput(debug bool) *BufferedOutput {
	return &BufferedOutput{lines: make([]OutputLine, 0), debug: debug}
}

func (o *BufferedOutput) add(level, message string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.lines = append(o.lines, OutputLine{Level: level, Message: message})
}

func (o *BufferedOutput) Section(icon, title string) { o.add("section", sectionLine(icon, title)) }
func (o *BufferedOutput) Header(title string)        { o.add("header", headerLine(title)) }

func (o *BufferedOutput) Info(format string, args ...interface{}) {
	o.add("info", render("info", format, args))
}

func (o *BufferedOutput) Success(format string, args ...interface{}) {
	o.add("success", render("success", format, args))
}

func (o *BufferedOutput) Warning(format string, args ...interface{}) {
	o.add("warning", render("warning", format, args))
}

func (o *BufferedOutput) Error(format string, args ...interface{}) {
	o.add("error", render("error", format, args))
}

func (o *BufferedOutput) Detail(format string, args ...interface{}) {
	o.add("detail", render("detail", format, args))
}

func (o *BufferedOutput) Debug(format string, args ...interface{}) {
	if !o.debug {
		return
	}
	o.add("debug", render("debug", format, args))
}

func (o *BufferedOutput) Flush(writer io.Writer) {
	o.mu.Lock()
	defer o.mu.Unlock()
	for _, line := range o.lines {
		fmt.Fprintln(writer, line.Message)
	}
}

// String joins all buffered lines.
func (o *BufferedOutput) String() string {
	var b strings.Builder
	o.Flush(&b)
	return b.String()
}

func (o *BufferedOutput) Lines() []OutputLine {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]OutputLine{}, o.lines...)
}
