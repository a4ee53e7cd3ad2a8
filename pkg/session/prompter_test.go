package session

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStdioPrompter(t *testing.T) {
	ctx := context.Background()

	var out bytes.Buffer
	prompter := NewStdioPrompter(strings.NewReader("\n\n"), &out)

	require.NoError(t, prompter.WaitForEnter(ctx, "first? "))
	require.NoError(t, prompter.WaitForEnter(ctx, "second? "))
	require.Equal(t, "first? second? ", out.String())

	require.Error(t, prompter.WaitForEnter(ctx, "third? "))
	require.Error(t, prompter.WaitForEnter(ctx, "fourth? "))
}

func TestStdioPrompterCancelled(t *testing.T) {
	ctx, cancelFn := context.WithCancel(context.Background())
	cancelFn()

	prompter := NewStdioPrompter(blockingReader{}, &bytes.Buffer{})
	require.ErrorIs(t, prompter.WaitForEnter(ctx, "? "), context.Canceled)
}

type blockingReader struct{}

func (blockingReader) Read([]byte) (int, error) {
	select {}
}
