package shell

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestShell(t *testing.T) (*Processor, *Session, *bytes.Buffer, *bytes.Buffer) {
	t.Helper()
	p := NewProcessor()
	var out, errOut bytes.Buffer
	s := p.NewSession(strings.NewReader(""), &out, &errOut)
	return p, s, &out, &errOut
}

func registerEcho(p *Processor) {
	p.AddCommand("", "echo", FunctionFunc(func(_ context.Context, _ *Session, values []interface{}) (interface{}, error) {
		parts := make([]string, len(values))
		for i, v := range values {
			parts[i] = toText(v)
		}
		return strings.Join(parts, " "), nil
	}))
}

// registerList returns its arguments as a list so tests can observe the
// exact values a command received.
func registerList(p *Processor) {
	p.AddCommand("", "list", FunctionFunc(func(_ context.Context, _ *Session, values []interface{}) (interface{}, error) {
		return append([]interface{}(nil), values...), nil
	}))
}

func TestLiteralCoercion(t *testing.T) {
	cases := []struct {
		source string
		want   interface{}
	}{
		{"x = 42\n$x", int64(42)},
		{"x = 3.5\n$x", 3.5},
		{"x = true\n$x", true},
		{"x = false\n$x", false},
		{"x = hello\n$x", "hello"},
		{"x = 'true'\n$x", "true"},
		{"x = \"42\"\n$x", "42"},
		{"x = null\n$x", nil},
	}

	for _, tc := range cases {
		t.Run(tc.source, func(t *testing.T) {
			_, s, _, _ := newTestShell(t)
			got, err := s.Execute(context.Background(), tc.source)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestAssignment(t *testing.T) {
	t.Run("simple", func(t *testing.T) {
		_, s, _, _ := newTestShell(t)
		v, err := s.Execute(context.Background(), "x = 42")
		require.NoError(t, err)
		assert.Equal(t, int64(42), v)
		assert.Equal(t, int64(42), s.Get("x"))
	})

	t.Run("empty rhs removes", func(t *testing.T) {
		_, s, _, _ := newTestShell(t)
		s.Put("x", "gone")
		v, err := s.Execute(context.Background(), "x =")
		require.NoError(t, err)
		assert.Equal(t, "gone", v, "removal yields the prior value")
		assert.NotContains(t, s.VariableNames(), "x")
	})

	t.Run("multi rhs invokes", func(t *testing.T) {
		p, s, _, _ := newTestShell(t)
		registerEcho(p)
		v, err := s.Execute(context.Background(), "x = echo a b")
		require.NoError(t, err)
		assert.Equal(t, "a b", v)
		assert.Equal(t, "a b", s.Get("x"))
	})
}

func TestClosureParameters(t *testing.T) {
	p, s, _, _ := newTestShell(t)
	registerEcho(p)

	_, err := s.Execute(context.Background(), "greet = { echo hello $1 }")
	require.NoError(t, err)

	v, err := s.Execute(context.Background(), "greet world")
	require.NoError(t, err)
	assert.Equal(t, "hello world", v)
}

func TestClosureArgsSplice(t *testing.T) {
	p, s, _, _ := newTestShell(t)
	registerList(p)

	_, err := s.Execute(context.Background(), "f = { list $args }")
	require.NoError(t, err)

	v, err := s.Execute(context.Background(), "f a b c")
	require.NoError(t, err)
	assert.Equal(t, []interface{}{"a", "b", "c"}, v)
}

func TestClosurePositionalOutOfRange(t *testing.T) {
	p, s, _, _ := newTestShell(t)
	registerList(p)

	_, err := s.Execute(context.Background(), "f = { list $3 }")
	require.NoError(t, err)

	v, err := s.Execute(context.Background(), "f only")
	require.NoError(t, err)
	assert.Equal(t, []interface{}{nil}, v)
}

func TestClosureInheritsParentParameters(t *testing.T) {
	p, s, _, _ := newTestShell(t)
	registerList(p)

	// The nested execution carries the outer frame's parameters.
	_, err := s.Execute(context.Background(), "f = { (list $1) }")
	require.NoError(t, err)

	v, err := s.Execute(context.Background(), "f inner")
	require.NoError(t, err)
	assert.Equal(t, []interface{}{"inner"}, v)
}

func TestClosureValueInvocation(t *testing.T) {
	p, s, _, _ := newTestShell(t)
	registerEcho(p)

	v, err := s.Execute(context.Background(), "f = { echo $1 }\n$f direct")
	require.NoError(t, err)
	assert.Equal(t, "direct", v)
}

func TestDefaultFallback(t *testing.T) {
	p, s, _, _ := newTestShell(t)

	var got []interface{}
	p.AddCommand("", "default", FunctionFunc(func(_ context.Context, _ *Session, values []interface{}) (interface{}, error) {
		got = append([]interface{}(nil), values...)
		return values, nil
	}))

	v, err := s.Execute(context.Background(), "ls -la")
	require.NoError(t, err)
	assert.Equal(t, []interface{}{"ls", "-la"}, got,
		"the unresolved name is prepended to the arguments")
	assert.Equal(t, []interface{}{"ls", "-la"}, v)
}

func TestDefaultFallbackDoesNotReenter(t *testing.T) {
	p, s, _, _ := newTestShell(t)

	p.AddCommand("", "default", FunctionFunc(func(ctx context.Context, s *Session, values []interface{}) (interface{}, error) {
		// A miss inside the default handler must not recurse into it.
		return s.Execute(ctx, "also-missing")
	}))

	_, err := s.Execute(context.Background(), "missing")
	require.Error(t, err)
	var notFound *CommandNotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, "also-missing", notFound.Name)
}

func TestPipeline(t *testing.T) {
	p, s, _, _ := newTestShell(t)

	p.AddCommand("", "emit", FunctionFunc(func(_ context.Context, s *Session, values []interface{}) (interface{}, error) {
		fmt.Fprint(s.Out(), toText(values[0]))
		return int64(1), nil
	}))
	p.AddCommand("", "slurp", FunctionFunc(func(_ context.Context, s *Session, _ []interface{}) (interface{}, error) {
		b, err := io.ReadAll(s.In())
		if err != nil {
			return nil, err
		}
		return string(b), nil
	}))

	v, err := s.Execute(context.Background(), "emit hi | slurp")
	require.NoError(t, err)
	assert.Equal(t, "hi", v, "the pipeline's value is the last stage's value")
}

func TestPipelineThreeStages(t *testing.T) {
	p, s, _, _ := newTestShell(t)

	p.AddCommand("", "emit", FunctionFunc(func(_ context.Context, s *Session, values []interface{}) (interface{}, error) {
		fmt.Fprint(s.Out(), toText(values[0]))
		return nil, nil
	}))
	p.AddCommand("", "upper", FunctionFunc(func(_ context.Context, s *Session, _ []interface{}) (interface{}, error) {
		b, err := io.ReadAll(s.In())
		if err != nil {
			return nil, err
		}
		fmt.Fprint(s.Out(), strings.ToUpper(string(b)))
		return nil, nil
	}))
	p.AddCommand("", "slurp", FunctionFunc(func(_ context.Context, s *Session, _ []interface{}) (interface{}, error) {
		b, err := io.ReadAll(s.In())
		if err != nil {
			return nil, err
		}
		return string(b), nil
	}))

	v, err := s.Execute(context.Background(), "emit hi | upper | slurp")
	require.NoError(t, err)
	assert.Equal(t, "HI", v)
}

func TestPipelineErrorStash(t *testing.T) {
	p, s, _, errOut := newTestShell(t)

	boom := errors.New("boom")
	p.AddCommand("", "fail", FunctionFunc(func(_ context.Context, _ *Session, _ []interface{}) (interface{}, error) {
		return nil, boom
	}))
	p.AddCommand("", "fine", FunctionFunc(func(_ context.Context, s *Session, _ []interface{}) (interface{}, error) {
		io.Copy(io.Discard, s.In())
		return "fine", nil
	}))

	v, err := s.Execute(context.Background(), "fail | fine")
	require.NoError(t, err, "a non-final stage failure does not fail the pipeline")
	assert.Equal(t, "fine", v)
	assert.Same(t, boom, s.Get(PipeExceptionVar))
	assert.Contains(t, errOut.String(), "pipe: boom")
}

func TestPipelineLastStageErrorRaised(t *testing.T) {
	p, s, _, _ := newTestShell(t)

	boom := errors.New("boom")
	p.AddCommand("", "emit", FunctionFunc(func(_ context.Context, s *Session, _ []interface{}) (interface{}, error) {
		fmt.Fprint(s.Out(), "x")
		return nil, nil
	}))
	p.AddCommand("", "fail", FunctionFunc(func(_ context.Context, s *Session, _ []interface{}) (interface{}, error) {
		io.Copy(io.Discard, s.In())
		return nil, boom
	}))

	_, err := s.Execute(context.Background(), "emit | fail")
	require.ErrorIs(t, err, boom)
}

func TestClosureWritesToPipelineStage(t *testing.T) {
	p, s, _, _ := newTestShell(t)

	p.AddCommand("", "say", FunctionFunc(func(_ context.Context, s *Session, values []interface{}) (interface{}, error) {
		fmt.Fprint(s.Out(), toText(values[0]))
		return nil, nil
	}))
	p.AddCommand("", "slurp", FunctionFunc(func(_ context.Context, s *Session, _ []interface{}) (interface{}, error) {
		b, err := io.ReadAll(s.In())
		if err != nil {
			return nil, err
		}
		return string(b), nil
	}))

	// A closure defined before the pipeline still writes into the pipe
	// when invoked as a stage.
	_, err := s.Execute(context.Background(), "talk = { say piped }")
	require.NoError(t, err)

	v, err := s.Execute(context.Background(), "talk | slurp")
	require.NoError(t, err)
	assert.Equal(t, "piped", v)
}

type chainInvoker struct {
	calls []string
}

func (ci *chainInvoker) Invoke(_ context.Context, _ *Session, target interface{}, method string, args []interface{}) (interface{}, error) {
	ci.calls = append(ci.calls, method)
	return fmt.Sprintf("%v.%s", target, method), nil
}

func TestMethodChaining(t *testing.T) {
	p, s, _, _ := newTestShell(t)

	inv := &chainInvoker{}
	p.SetInvoker(inv)
	p.AddCommand("", "bundle", FunctionFunc(func(_ context.Context, _ *Session, values []interface{}) (interface{}, error) {
		return fmt.Sprintf("bundle%v", values[0]), nil
	}))

	v, err := s.Execute(context.Background(),
		"(bundle 0) . loadClass java.net.InetAddress . localhost . hostname")
	require.NoError(t, err)
	assert.Equal(t, []string{"loadClass", "localhost", "hostname"}, inv.calls)
	assert.Equal(t, "bundle0.loadClass.localhost.hostname", v)
}

func TestArrayLiterals(t *testing.T) {
	_, s, _, _ := newTestShell(t)

	t.Run("list", func(t *testing.T) {
		v, err := s.Execute(context.Background(), "[1 two 3.5]")
		require.NoError(t, err)
		assert.Equal(t, []interface{}{int64(1), "two", 3.5}, v)
	})

	t.Run("splice", func(t *testing.T) {
		v, err := s.Execute(context.Background(), "x = [1 2]\n[0 $x 3]")
		require.NoError(t, err)
		assert.Equal(t, []interface{}{int64(0), int64(1), int64(2), int64(3)}, v)
	})

	t.Run("map", func(t *testing.T) {
		v, err := s.Execute(context.Background(), "[a=1 b=2]")
		require.NoError(t, err)
		d, ok := v.(*Dict)
		require.True(t, ok)
		assert.Equal(t, []string{"a", "b"}, d.Keys())
		assert.Equal(t, int64(1), d.Get("a"))
		assert.Equal(t, int64(2), d.Get("b"))
	})

	t.Run("non-text key fails", func(t *testing.T) {
		_, err := s.Execute(context.Background(), "[1=2]")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "map key null or not String")
	})
}

func TestArrayIndexing(t *testing.T) {
	_, s, _, _ := newTestShell(t)

	_, err := s.Execute(context.Background(), "l = [a b c]")
	require.NoError(t, err)

	v, err := s.Execute(context.Background(), "$l 1")
	require.NoError(t, err)
	assert.Equal(t, "b", v)

	v, err = s.Execute(context.Background(), "$l length")
	require.NoError(t, err)
	assert.Equal(t, int64(3), v)

	_, err = s.Execute(context.Background(), "$l 9")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "out of range")
}

func TestBuiltinInvoker(t *testing.T) {
	_, s, _, _ := newTestShell(t)

	cases := []struct {
		source string
		want   interface{}
	}{
		{"m = [a=1]\n$m get a", int64(1)},
		{"m = [a=1]\n$m size", int64(1)},
		{"l = [x y]\n$l contains y", true},
		{"l = [x y]\n$l contains z", false},
		{"s = hello\n$s toUpperCase", "HELLO"},
		{"s = hello\n$s startsWith he", true},
	}
	for _, tc := range cases {
		t.Run(tc.source, func(t *testing.T) {
			v, err := s.Execute(context.Background(), tc.source)
			require.NoError(t, err)
			assert.Equal(t, tc.want, v)
		})
	}

	t.Run("unknown method", func(t *testing.T) {
		_, err := s.Execute(context.Background(), "s = hi\n$s frobnicate")
		require.Error(t, err)
		var hie *HostInvokeError
		require.ErrorAs(t, err, &hie)
		assert.Equal(t, "frobnicate", hie.Method)
	})
}

func TestExpressionToken(t *testing.T) {
	_, s, _, _ := newTestShell(t)

	v, err := s.Execute(context.Background(), "%(1 + 2 * 3)")
	require.NoError(t, err)
	assert.Equal(t, int64(7), v)

	v, err = s.Execute(context.Background(), "x = 4\n%(x * 2)")
	require.NoError(t, err)
	assert.Equal(t, int64(8), v)
}

func TestCommandNameNull(t *testing.T) {
	_, s, _, _ := newTestShell(t)

	_, err := s.Execute(context.Background(), "$undefined arg")
	require.Error(t, err)
	var cnn *CommandNameNullError
	require.ErrorAs(t, err, &cnn)
	assert.Equal(t, "$undefined", cnn.Source)
}

func TestExecutionTrace(t *testing.T) {
	t.Run("basic", func(t *testing.T) {
		p, s, _, errOut := newTestShell(t)
		registerEcho(p)
		s.Put("echo", true)

		_, err := s.Execute(context.Background(), "echo hi")
		require.NoError(t, err)
		assert.Equal(t, "+ echo hi\n", errOut.String())
	})

	t.Run("verbose shows expansion", func(t *testing.T) {
		p, s, _, errOut := newTestShell(t)
		registerEcho(p)
		s.Put("echo", "verbose")
		s.Put("x", int64(5))

		_, err := s.Execute(context.Background(), "echo $x")
		require.NoError(t, err)
		assert.Contains(t, errOut.String(), "+ echo $x\n")
		assert.Contains(t, errOut.String(), "++ echo 5\n")
	})
}

func TestErrorLocation(t *testing.T) {
	t.Run("points at the failing statement", func(t *testing.T) {
		_, s, _, _ := newTestShell(t)
		_, err := s.Execute(context.Background(), "x = 1\nnope")
		require.Error(t, err)
		assert.Equal(t, "2.1", s.Get(LocationVar))
	})

	t.Run("script name prefixes", func(t *testing.T) {
		_, s, _, _ := newTestShell(t)
		s.Put("0", "boot.gosh")
		_, err := s.Execute(context.Background(), "nope")
		require.Error(t, err)
		assert.Equal(t, "boot.gosh:1.1", s.Get(LocationVar))
	})

	t.Run("cleared by the next execute", func(t *testing.T) {
		_, s, _, _ := newTestShell(t)
		_, err := s.Execute(context.Background(), "nope")
		require.Error(t, err)
		require.NotNil(t, s.Get(LocationVar))

		_, err = s.Execute(context.Background(), "x = 1")
		require.NoError(t, err)
		assert.Nil(t, s.Get(LocationVar))
	})
}

func TestSessionClosed(t *testing.T) {
	_, s, _, _ := newTestShell(t)
	s.Close()
	_, err := s.Execute(context.Background(), "x = 1")
	require.ErrorIs(t, err, ErrSessionClosed)
}

func TestFailedDispatchLeavesVariables(t *testing.T) {
	_, s, _, _ := newTestShell(t)
	s.Put("keep", "me")

	_, err := s.Execute(context.Background(), "nope")
	require.Error(t, err)
	assert.Equal(t, "me", s.Get("keep"))

	names := s.VariableNames()
	assert.Contains(t, names, "keep")
	assert.NotContains(t, names, "nope")
}

func TestScopeResolution(t *testing.T) {
	p, s, _, _ := newTestShell(t)

	mk := func(tag string) Function {
		return FunctionFunc(func(_ context.Context, _ *Session, _ []interface{}) (interface{}, error) {
			return tag, nil
		})
	}
	p.AddCommand("alpha", "foo", mk("alpha"))
	p.AddCommand("beta", "foo", mk("beta"))

	t.Run("scoped name bypasses SCOPE", func(t *testing.T) {
		v, err := s.Execute(context.Background(), "beta:foo")
		require.NoError(t, err)
		assert.Equal(t, "beta", v)
	})

	t.Run("SCOPE orders the search", func(t *testing.T) {
		s.Put(ScopeVar, "beta:alpha")
		v, err := s.Execute(context.Background(), "foo")
		require.NoError(t, err)
		assert.Equal(t, "beta", v)

		s.Put(ScopeVar, "alpha:beta")
		v, err = s.Execute(context.Background(), "foo")
		require.NoError(t, err)
		assert.Equal(t, "alpha", v)
	})
}

func TestHashedFunctionVariable(t *testing.T) {
	_, s, _, _ := newTestShell(t)

	n := int64(0)
	s.Put("#tick", FunctionFunc(func(_ context.Context, _ *Session, _ []interface{}) (interface{}, error) {
		n++
		return n, nil
	}))

	assert.Equal(t, int64(1), s.Get("tick"))
	assert.Equal(t, int64(2), s.Get("tick"))

	v, err := s.Execute(context.Background(), "$tick")
	require.NoError(t, err)
	assert.Equal(t, int64(3), v, "reads through interpolation evaluate too")
}

func TestReservedViews(t *testing.T) {
	p, s, _, _ := newTestShell(t)
	registerEcho(p)
	s.Put("b", int64(1))
	s.Put("a", int64(2))

	assert.Equal(t, []string{"a", "b"}, s.Get(VariablesVar))
	assert.Equal(t, []string{"*:echo"}, s.Get(CommandsVar))
}

func TestConstantsWinOverVariables(t *testing.T) {
	p, s, _, _ := newTestShell(t)
	p.AddConstant("version", "1.0")
	s.Put("version", "shadowed")
	assert.Equal(t, "1.0", s.Get("version"))
}

func TestExecutionListener(t *testing.T) {
	p, s, _, _ := newTestShell(t)

	var events []string
	p.AddListener(listenerFunc(func(kind, source string) {
		events = append(events, kind+":"+source)
	}))

	_, err := s.Execute(context.Background(), "x = 1")
	require.NoError(t, err)
	assert.Equal(t, []string{"before:x = 1", "after:x = 1"}, events)
}

type listenerFunc func(kind, source string)

func (f listenerFunc) BeforeExecute(_ *Session, source string) {
	f("before", source)
}

func (f listenerFunc) AfterExecute(_ *Session, source string, _ interface{}, _ error) {
	f("after", source)
}

func TestContextCancelsPipeline(t *testing.T) {
	p, s, _, _ := newTestShell(t)

	p.AddCommand("", "block", FunctionFunc(func(ctx context.Context, s *Session, _ []interface{}) (interface{}, error) {
		// Blocks on the pipe until the join interrupts it.
		_, err := io.ReadAll(s.In())
		if err != nil {
			return nil, err
		}
		<-ctx.Done()
		return nil, ctx.Err()
	}))
	p.AddCommand("", "forever", FunctionFunc(func(ctx context.Context, _ *Session, _ []interface{}) (interface{}, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.Execute(ctx, "forever | block")
	require.ErrorIs(t, err, context.Canceled)
}
