package cmd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"regexp"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/bitriver/slipway/internal/docker"
	"github.com/bitriver/slipway/internal/ui"
)

// DefaultLogTailLines is the default number of log lines to show.
const DefaultLogTailLines = 100

var (
	logsTail   int
	logsFollow bool
	logsErrors bool

	errorLineRe = regexp.MustCompile(`(?i)(error|fatal|panic|exception)`)
)

var logsCmd = &cobra.Command{
	Use:     "logs [container]",
	Aliases: []string{"tail"},
	Short:   "Tail container logs",
	Long: `Shows logs from a stack container. Defaults to the OME container.

Use -f to follow, -e to only show error-looking lines.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := "ome"
		if len(args) > 0 {
			name = args[0]
		}

		// Custom context handling: log streaming must stop on Ctrl-C.
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(sigCh)
		go func() {
			<-sigCh
			cancel()
		}()

		return withDockerClientContext(ctx, func(client *docker.Client) error {
			reader, err := client.Logs(ctx, name, logsTail, logsFollow)
			if err != nil {
				return fmt.Errorf("get logs: %w", err)
			}

			if logsFollow {
				ui.Stream("Streaming logs from %s (Ctrl-C to stop)", name)
			}

			var copyErr error
			if logsErrors {
				copyErr = copyErrorLines(os.Stdout, reader)
			} else {
				_, copyErr = stdCopy(os.Stdout, os.Stderr, reader)
			}

			closeErr := reader.Close()

			if copyErr != nil {
				if ctx.Err() != nil {
					return nil
				}
				return fmt.Errorf("read logs: %w", copyErr)
			}
			if closeErr != nil {
				ui.Warning("Failed to close log reader: %v", closeErr)
			}
			return nil
		})
	},
}

func init() {
	logsCmd.Flags().IntVarP(&logsTail, "tail", "n", DefaultLogTailLines, "Number of lines to show")
	logsCmd.Flags().BoolVarP(&logsFollow, "follow", "f", false, "Follow log output")
	logsCmd.Flags().BoolVarP(&logsErrors, "errors", "e", false, "Only show error-looking lines")

	rootCmd.AddCommand(logsCmd)
}

// copyErrorLines demuxes the log stream and writes only lines matching
// the error pattern.
func copyErrorLines(dst io.Writer, src io.Reader) error {
	pr, pw := io.Pipe()
	go func() {
		_, err := stdCopy(pw, pw, src)
		pw.CloseWithError(err)
	}()

	scanner := bufio.NewScanner(pr)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if errorLineRe.MatchString(line) {
			fmt.Fprintln(dst, strings.TrimRight(line, "\r"))
		}
	}
	return scanner.Err()
}

// stdCopy demultiplexes a Docker log stream. Docker multiplexes stdout
// and stderr over one connection with an 8-byte frame header: stream
// type, three reserved bytes, then a big-endian uint32 payload size.
func stdCopy(stdout, stderr io.Writer, src io.Reader) (written int64, err error) {
	buf := make([]byte, 32*1024)
	header := make([]byte, 8)

	for {
		_, err := io.ReadFull(src, header)
		if err != nil {
			if err == io.EOF {
				return written, nil
			}
			return written, err
		}

		size := int64(header[4])<<24 | int64(header[5])<<16 | int64(header[6])<<8 | int64(header[7])

		var dst io.Writer
		switch header[0] {
		case 1:
			dst = stdout
		case 2:
			dst = stderr
		default:
			dst = stdout
		}

		n, err := io.CopyBuffer(dst, io.LimitReader(src, size), buf)
		written += n
		if err != nil {
			return written, err
		}
	}
}
