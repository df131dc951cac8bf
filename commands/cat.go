package commands

import (
	"context"
	"io"

	"github.com/spf13/afero"

	"josephlewis.net/gosh/core/shell"
)

// catFs is swapped for a memory filesystem in tests.
var catFs = afero.NewOsFs()

// Cat copies the named files, or the input stream, to the output stream.
func Cat(_ context.Context, sess *shell.Session, values []interface{}) (interface{}, error) {
	cmd := &SimpleCommand{
		Use:   "cat [FILE] ...",
		Short: "Concatenate files to the output.",
	}

	return cmd.Run("cat", sess, values, func(args []string) (interface{}, error) {
		open := func(name string) (io.ReadCloser, error) {
			return catFs.Open(name)
		}
		err := eachInput(sess, args, open, func(_ string, r io.Reader) error {
			_, err := io.Copy(sess.Out(), r)
			return err
		})
		return nil, err
	})
}

func init() {
	addCmd("cat", shell.FunctionFunc(Cat))
}
