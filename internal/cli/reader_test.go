package cli

import (
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLineReader_ReadLine(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{name: "single line", input: "paid 12 for lunch\n", want: []string{"paid 12 for lunch"}},
		{name: "trims whitespace", input: "  taxi  \n", want: []string{"taxi"}},
		{name: "empty line", input: "\n", want: []string{""}},
		{name: "last line without newline", input: "one\ntwo", want: []string{"one", "two"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewLineReader(strings.NewReader(tt.input))
			for _, want := range tt.want {
				got, err := r.ReadLine(context.Background())
				require.NoError(t, err)
				assert.Equal(t, want, got)
			}
			_, err := r.ReadLine(context.Background())
			assert.ErrorIs(t, err, io.EOF)
		})
	}
}

func TestLineReader_CancelKeepsPendingLine(t *testing.T) {
	pr, pw := io.Pipe()
	r := NewLineReader(pr)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := r.ReadLine(ctx)
	require.ErrorIs(t, err, ErrInputCancelled)

	go func() {
		_, _ = pw.Write([]byte("late answer\n"))
	}()

	got, err := r.ReadLine(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "late answer", got)
	_ = pw.Close()
}

func TestNewLineReader_NilPanics(t *testing.T) {
	assert.Panics(t, func() {
		NewLineReader(nil)
	})
}
