package cmd

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// muxFrame builds a Docker multiplexed log frame.
func muxFrame(stream byte, payload string) []byte {
	frame := make([]byte, 8+len(payload))
	frame[0] = stream
	frame[4] = byte(len(payload) >> 24)
	frame[5] = byte(len(payload) >> 16)
	frame[6] = byte(len(payload) >> 8)
	frame[7] = byte(len(payload))
	copy(frame[8:], payload)
	return frame
}

func TestStdCopy(t *testing.T) {
	t.Run("demuxes stdout and stderr", func(t *testing.T) {
		var src bytes.Buffer
		src.Write(muxFrame(1, "out line\n"))
		src.Write(muxFrame(2, "err line\n"))
		src.Write(muxFrame(1, "more out\n"))

		var stdout, stderr bytes.Buffer
		written, err := stdCopy(&stdout, &stderr, &src)
		require.NoError(t, err)
		assert.Equal(t, int64(len("out line\nerr line\nmore out\n")), written)
		assert.Equal(t, "out line\nmore out\n", stdout.String())
		assert.Equal(t, "err line\n", stderr.String())
	})

	t.Run("empty stream", func(t *testing.T) {
		var stdout, stderr bytes.Buffer
		written, err := stdCopy(&stdout, &stderr, bytes.NewReader(nil))
		require.NoError(t, err)
		assert.Zero(t, written)
	})

	t.Run("unknown stream type goes to stdout", func(t *testing.T) {
		var src bytes.Buffer
		src.Write(muxFrame(0, "stdin echo\n"))

		var stdout, stderr bytes.Buffer
		_, err := stdCopy(&stdout, &stderr, &src)
		require.NoError(t, err)
		assert.Equal(t, "stdin echo\n", stdout.String())
	})

	t.Run("truncated header is an error", func(t *testing.T) {
		var stdout, stderr bytes.Buffer
		_, err := stdCopy(&stdout, &stderr, bytes.NewReader([]byte{1, 0, 0}))
		assert.Error(t, err)
	})
}

func TestCopyErrorLines(t *testing.T) {
	t.Run("keeps only error-looking lines", func(t *testing.T) {
		var src bytes.Buffer
		src.Write(muxFrame(1, "starting up\n[ERROR] stream rejected\n"))
		src.Write(muxFrame(2, "panic: oh no\nall good now\n"))

		var dst bytes.Buffer
		require.NoError(t, copyErrorLines(&dst, &src))
		assert.Equal(t, "[ERROR] stream rejected\npanic: oh no\n", dst.String())
	})

	t.Run("case insensitive match", func(t *testing.T) {
		var src bytes.Buffer
		src.Write(muxFrame(1, "Fatal: disk full\nException in handler\nfine\n"))

		var dst bytes.Buffer
		require.NoError(t, copyErrorLines(&dst, &src))
		assert.Contains(t, dst.String(), "Fatal: disk full")
		assert.Contains(t, dst.String(), "Exception in handler")
		assert.NotContains(t, dst.String(), "fine")
	})
}
