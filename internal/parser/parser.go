// Package parser turns a raw command line into a pipeline of command specs.
// Quoting rules inside a segment are owned by go-shellquote; this package only
// adds quote-aware pipe splitting, redirection extraction and the trailing-&
// background marker.
package parser

import (
	"errors"
	"fmt"
	"strings"

	"github.com/kballard/go-shellquote"
)

// ErrEmptyCommand reports a pipeline segment that yields no arguments, e.g.
// an empty stretch between two pipes or a bare redirection.
var ErrEmptyCommand = errors.New("empty command in pipeline")

// Command is one member of a pipeline: its argument vector plus optional
// file redirections. At most one input and one output file per command.
type Command struct {
	Args    []string
	Infile  string
	Outfile string
	Append  bool
}

// Pipeline is the parsed form of one input line, consumed once by the
// launcher and then discarded.
type Pipeline struct {
	Commands   []Command
	Background bool
	// Line is the command text with the trailing & stripped, kept for display.
	Line string
}

// Parse builds a Pipeline from a single logical command line. It fails with
// ErrEmptyCommand when any pipe segment tokenizes to zero arguments; nothing
// is launched on failure.
func Parse(line string) (*Pipeline, error) {
	line, background := stripBackground(line)

	segments := SplitSegments(line)
	if len(segments) == 0 {
		return nil, ErrEmptyCommand
	}

	p := &Pipeline{Background: background, Line: line}
	for _, seg := range segments {
		cmd, err := parseSegment(seg)
		if err != nil {
			return nil, err
		}
		if len(cmd.Args) == 0 {
			return nil, ErrEmptyCommand
		}
		p.Commands = append(p.Commands, cmd)
	}
	return p, nil
}

// stripBackground trims the line and removes a trailing &, reporting whether
// the pipeline should run detached from the terminal foreground.
func stripBackground(line string) (string, bool) {
	line = strings.TrimSpace(line)
	if !strings.HasSuffix(line, "&") {
		return line, false
	}
	return strings.TrimSpace(strings.TrimSuffix(line, "&")), true
}

// SplitSegments splits a line on unquoted pipe characters. Quote characters
// open a span in which | is literal; the quotes themselves are preserved for
// the tokenizer. Segments are whitespace-trimmed. A trailing empty segment
// (line ending in |) is dropped; interior empty segments are kept so the
// caller can reject them.
func SplitSegments(line string) []string {
	var segments []string
	var cur strings.Builder
	inQuote := false
	var quote byte

	for i := 0; i < len(line); i++ {
		c := line[i]
		switch {
		case !inQuote && (c == '\'' || c == '"'):
			inQuote = true
			quote = c
			cur.WriteByte(c)
		case inQuote && c == quote:
			inQuote = false
			cur.WriteByte(c)
		case !inQuote && c == '|':
			segments = append(segments, strings.TrimSpace(cur.String()))
			cur.Reset()
		default:
			cur.WriteByte(c)
		}
	}
	if s := strings.TrimSpace(cur.String()); s != "" {
		segments = append(segments, s)
	}
	return segments
}

// parseSegment splits one pipe segment into raw tokens with their quotes
// still on, peels off redirection operators, then unquotes what remains.
// Operators are matched against the raw tokens, so a quoted ">" is a literal
// argument, never a redirection. Both the spaced form (> file) and the
// attached form (>file) are accepted; >> selects append mode. A redirection
// operator with no target is ignored.
func parseSegment(seg string) (Command, error) {
	var cmd Command

	toks := splitTokens(seg)
	for i := 0; i < len(toks); i++ {
		t := toks[i]
		target := func() (string, error) {
			if i+1 >= len(toks) {
				return "", nil
			}
			i++
			return unquote(seg, toks[i])
		}

		var err error
		switch {
		case t == "<":
			cmd.Infile, err = target()
		case t == ">" || t == ">>":
			cmd.Outfile, err = target()
			cmd.Append = t == ">>"
		case strings.HasPrefix(t, ">>") && len(t) > 2:
			cmd.Outfile, err = unquote(seg, t[2:])
			cmd.Append = true
		case strings.HasPrefix(t, ">") && len(t) > 1:
			cmd.Outfile, err = unquote(seg, t[1:])
			cmd.Append = false
		case strings.HasPrefix(t, "<") && len(t) > 1:
			cmd.Infile, err = unquote(seg, t[1:])
		default:
			var arg string
			arg, err = unquote(seg, t)
			if err == nil {
				cmd.Args = append(cmd.Args, arg)
			}
		}
		if err != nil {
			return Command{}, err
		}
	}
	return cmd, nil
}

// splitTokens breaks a segment on unquoted whitespace, keeping quote
// characters in place so the caller can tell a quoted ">" from an operator.
func splitTokens(s string) []string {
	var toks []string
	var cur strings.Builder
	inQuote := false
	var quote byte

	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case !inQuote && (c == '\'' || c == '"'):
			inQuote = true
			quote = c
			cur.WriteByte(c)
		case inQuote && c == quote:
			inQuote = false
			cur.WriteByte(c)
		case !inQuote && (c == ' ' || c == '\t'):
			if cur.Len() > 0 {
				toks = append(toks, cur.String())
				cur.Reset()
			}
		default:
			cur.WriteByte(c)
		}
	}
	if cur.Len() > 0 {
		toks = append(toks, cur.String())
	}
	return toks
}

// unquote strips the quoting from a single raw token. Unbalanced quotes
// surface here as a parse failure for the whole segment.
func unquote(seg, tok string) (string, error) {
	parts, err := shellquote.Split(tok)
	if err != nil {
		return "", fmt.Errorf("parse %q: %w", seg, err)
	}
	if len(parts) == 0 {
		return "", nil
	}
	return parts[0], nil
}
