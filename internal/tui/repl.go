package tui

import (
	"bufio"
	"context"
	"fmt"
	"io"
)

const banner = "=== textsearch ===\nType 'help' for commands."

// RunREPL reads commands line by line from in until exit, EOF or
// cancellation of ctx.
func RunREPL(ctx context.Context, s *Session, in io.Reader, out io.Writer) error {
	fmt.Fprintln(out, banner)
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	fmt.Fprint(out, s.Prompt())
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return nil
		}
		res := s.Execute(ctx, scanner.Text())
		if res.Text != "" {
			fmt.Fprintln(out, res.Text)
		}
		if res.Quit {
			return nil
		}
		fmt.Fprint(out, res.Prompt)
	}
	fmt.Fprintln(out)
	return scanner.Err()
}
