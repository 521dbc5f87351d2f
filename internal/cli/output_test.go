package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExitError_Message(t *testing.T) {
	bare := NewExitError(ExitFailure, "layers failed")
	assert.Equal(t, "layers failed", bare.Error())

	wrapped := WrapExitError(ExitCommandError, "load configuration", errors.New("no such file"))
	assert.Equal(t, "load configuration: no such file", wrapped.Error())
}

func TestExitError_Unwrap(t *testing.T) {
	cause := errors.New("no such file")
	err := WrapExitError(ExitCommandError, "load configuration", cause)

	assert.ErrorIs(t, err, cause)
}

func TestGetExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{
			name: "command error",
			err:  NewExitError(ExitCommandError, "bad path"),
			want: ExitCommandError,
		},
		{
			name: "failure",
			err:  NewExitError(ExitFailure, "layers failed"),
			want: ExitFailure,
		},
		{
			name: "exit error inside a wrap chain",
			err:  fmt.Errorf("process: %w", NewExitError(ExitCommandError, "bad path")),
			want: ExitCommandError,
		},
		{
			name: "plain error defaults to failure",
			err:  errors.New("boom"),
			want: ExitFailure,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, GetExitCode(tc.err))
		})
	}
}

func TestWriteJSON(t *testing.T) {
	buf := &bytes.Buffer{}
	err := writeJSON(buf, []string{"a", "b"})
	require.NoError(t, err)

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, []any{"a", "b"}, resp.Data)

	assert.Contains(t, buf.String(), "\n  ", "output should be indented")
}

func TestWriteJSON_NoHTMLEscaping(t *testing.T) {
	buf := &bytes.Buffer{}
	require.NoError(t, writeJSON(buf, "a <br /> b"))

	assert.Contains(t, buf.String(), "<br />")
}
