// Package tui implements the interactive front end: a command session shared
// by a Bubble Tea terminal UI and a plain line REPL used when stdin is not a
// terminal.
package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/textsearch/internal/engine"
	"github.com/Adithya-Monish-Kumar-K/textsearch/internal/searcher"
)

// Engine is the part of engine.Engine the session drives.
type Engine interface {
	Index(ctx context.Context, dir string) (int, error)
	Load(ctx context.Context, name string) (int, error)
	Save(ctx context.Context, name string) error
	Search(ctx context.Context, query string, limit int) (*searcher.Response, error)
	Status() engine.Status
}

const helpText = `Commands:
  index [dir]     build an index from a directory
  load [file]     load a saved index
  save [file]     save the current index
  search [query]  run a query
  stats           show the loaded index
  help            show this help
  exit            quit
Any other input is treated as a search query once an index is loaded.`

// Output is what one line of input produced.
type Output struct {
	Text     string
	Response *searcher.Response
	Prompt   string
	Quit     bool
}

// Session interprets commands. A command given without its argument asks
// for it on the next line.
type Session struct {
	engine    Engine
	limit     int
	indexFile string
	pending   string
}

// NewSession creates a Session. indexFile is the default for load and save.
func NewSession(eng Engine, limit int, indexFile string) *Session {
	if limit <= 0 {
		limit = searcher.DefaultLimit
	}
	return &Session{engine: eng, limit: limit, indexFile: indexFile}
}

// Prompt is the prompt for the next line.
func (s *Session) Prompt() string {
	switch s.pending {
	case "index":
		return "Directory: "
	case "load":
		return "Index file: "
	case "search":
		return "Query: "
	default:
		return "> "
	}
}

// Execute runs one line of input.
func (s *Session) Execute(ctx context.Context, line string) Output {
	line = strings.TrimSpace(line)
	if s.pending != "" {
		cmd := s.pending
		s.pending = ""
		if line == "" {
			return s.output(fmt.Sprintf("No argument given for %s.", cmd))
		}
		return s.run(ctx, cmd, line)
	}
	if line == "" {
		return s.output("")
	}
	cmd, arg, _ := strings.Cut(line, " ")
	cmd = strings.ToLower(cmd)
	arg = strings.TrimSpace(arg)

	switch cmd {
	case "exit", "quit":
		return Output{Text: "Bye.", Quit: true}
	case "help":
		return s.output(helpText)
	case "stats":
		return s.output(formatStatus(s.engine.Status()))
	case "save":
		if arg == "" {
			arg = s.indexFile
		}
		return s.run(ctx, cmd, arg)
	case "index", "search":
		if arg == "" {
			s.pending = cmd
			return s.output("")
		}
		return s.run(ctx, cmd, arg)
	case "load":
		if arg == "" {
			if s.indexFile != "" {
				return s.run(ctx, cmd, s.indexFile)
			}
			s.pending = cmd
			return s.output("")
		}
		return s.run(ctx, cmd, arg)
	default:
		if s.engine.Status().Loaded {
			return s.run(ctx, "search", line)
		}
		return s.output("Unknown command. Type 'help' for a list of commands.")
	}
}

func (s *Session) run(ctx context.Context, cmd, arg string) Output {
	switch cmd {
	case "index":
		n, err := s.engine.Index(ctx, arg)
		if err != nil {
			return s.output("Error: " + err.Error())
		}
		return s.output(fmt.Sprintf("Indexing finished. Documents: %d", n))
	case "load":
		n, err := s.engine.Load(ctx, arg)
		if err != nil {
			return s.output("Error: " + err.Error())
		}
		return s.output(fmt.Sprintf("Index loaded. Documents: %d", n))
	case "save":
		if arg == "" {
			return s.output("No index file given.")
		}
		if err := s.engine.Save(ctx, arg); err != nil {
			return s.output("Error: " + err.Error())
		}
		return s.output("Index saved to " + arg)
	case "search":
		resp, err := s.engine.Search(ctx, arg, s.limit)
		if err != nil {
			return s.output("Error: " + err.Error())
		}
		out := s.output(FormatResults(resp, nil))
		out.Response = resp
		return out
	}
	return s.output("")
}

func (s *Session) output(text string) Output {
	return Output{Text: text, Prompt: s.Prompt()}
}

func formatStatus(st engine.Status) string {
	if !st.Loaded {
		return "No index loaded."
	}
	return fmt.Sprintf("Index from %s: %d documents, %d terms, %d postings (installed %s)",
		st.Origin, st.Index.Documents, st.Index.Terms, st.Index.Postings,
		st.InstalledAt.Format("2006-01-02 15:04:05"))
}
