package commands

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"regexp"

	"josephlewis.net/gosh/core/shell"
)

// Grep filters input lines by a regular expression.
func Grep(_ context.Context, sess *shell.Session, values []interface{}) (interface{}, error) {
	cmd := &SimpleCommand{
		Use:   "grep [-ivn] PATTERN",
		Short: "Print input lines matching a pattern.",
	}

	invert := cmd.Flags().Bool('v', "select lines not matching the pattern")
	ignoreCase := cmd.Flags().Bool('i', "match without regard to case")
	showLineNumbers := cmd.Flags().Bool('n', "show line numbers")

	return cmd.Run("grep", sess, values, func(args []string) (interface{}, error) {
		if len(args) == 0 {
			return nil, errors.New("missing argument PATTERN")
		}

		pattern := args[0]
		if *ignoreCase {
			pattern = "(?i)" + pattern
		}
		regex, err := regexp.Compile(pattern)
		if err != nil {
			return nil, err
		}

		matched := int64(0)
		scanner := bufio.NewScanner(sess.In())
		lineNo := 1
		for scanner.Scan() {
			line := scanner.Bytes()
			lineMatches := regex.Match(line)

			if lineMatches != *invert {
				matched++
				if *showLineNumbers {
					fmt.Fprintf(sess.Out(), "%d:", lineNo)
				}
				fmt.Fprintf(sess.Out(), "%s\n", line)
			}
			lineNo++
		}
		if err := scanner.Err(); err != nil {
			return nil, err
		}

		return matched, nil
	})
}

func init() {
	addCmd("grep", shell.FunctionFunc(Grep))
}
