package util

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
)

type CancelableIoReader struct {
	ctx context.Context
	r   io.Reader
}

func NewCancelableIoReader(ctx context.Context, r io.Reader) *CancelableIoReader {
	return &CancelableIoReader{
		ctx: ctx,
		r:   r,
	}
}

func (cr *CancelableIoReader) Read(p []byte) (int, error) {
	select {
	case <-cr.ctx.Done():
		return 0, cr.ctx.Err()
	default:
		return cr.r.Read(p)
	}
}

// PromptLine writes prompt to out and returns the next trimmed line read from r.
func PromptLine(r *bufio.Reader, out io.Writer, prompt string) (string, error) {
	if _, err := fmt.Fprint(out, prompt); err != nil {
		return "", err
	}

	line, err := r.ReadString('\n')
	if err != nil && (err != io.EOF || line == "") {
		return "", err
	}
	return strings.TrimSpace(line), nil
}
