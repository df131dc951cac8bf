package commands

import (
	"context"
	"fmt"
	"io"
	"unicode"

	"josephlewis.net/gosh/core/shell"
)

type wcCount struct {
	bytes int64
	lines int64
	chars int64
	words int64

	inSpace bool
}

func (w *wcCount) Write(data []byte) (int, error) {
	for _, c := range data {
		isFirstByte := w.bytes == 0
		w.bytes++

		// Assume UTF-8 characters. Bytes following the leading byte always
		// have MSB of 0b10 indicating they're part of a previous character.
		if c < 0b10000000 || c > 0b10111111 {
			w.chars++
		}

		if c == '\n' {
			w.lines++
		}

		if unicode.IsSpace(rune(c)) {
			w.inSpace = true
		} else {
			if w.inSpace || isFirstByte {
				w.words++
			}
			w.inSpace = false
		}
	}
	return len(data), nil
}

// Wc counts lines, words and bytes from the input stream. The counts are
// both printed and returned as a list so scripts can pick them apart.
func Wc(_ context.Context, sess *shell.Session, values []interface{}) (interface{}, error) {
	cmd := &SimpleCommand{
		Use:   "wc [-lwc]",
		Short: "Count lines, words and bytes of the input.",
	}

	lines := cmd.Flags().Bool('l', "print only the line count")
	words := cmd.Flags().Bool('w', "print only the word count")
	bytes := cmd.Flags().Bool('c', "print only the byte count")

	return cmd.Run("wc", sess, values, func(_ []string) (interface{}, error) {
		var count wcCount
		if _, err := io.Copy(&count, sess.In()); err != nil {
			return nil, err
		}

		switch {
		case *lines:
			fmt.Fprintln(sess.Out(), count.lines)
			return count.lines, nil
		case *words:
			fmt.Fprintln(sess.Out(), count.words)
			return count.words, nil
		case *bytes:
			fmt.Fprintln(sess.Out(), count.bytes)
			return count.bytes, nil
		default:
			fmt.Fprintf(sess.Out(), "%d %d %d\n", count.lines, count.words, count.bytes)
			return []interface{}{count.lines, count.words, count.bytes}, nil
		}
	})
}

func init() {
	addCmd("wc", shell.FunctionFunc(Wc))
}
