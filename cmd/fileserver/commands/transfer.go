package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/bert42/fileserver/internal/cli/output"
	"github.com/bert42/fileserver/pkg/client"
	"github.com/bert42/fileserver/pkg/fsrpc"
	"github.com/spf13/cobra"
)

// rangeFlags are the --offset/--length flags of the read commands.
type rangeFlags struct {
	offset uint64
	length uint64
}

func (r *rangeFlags) register(cmd *cobra.Command) {
	cmd.Flags().Uint64Var(&r.offset, "offset", 0, "byte offset to start reading at")
	cmd.Flags().Uint64Var(&r.length, "length", 0, "number of bytes to read (default: to end of file)")
}

func (r *rangeFlags) options(cmd *cobra.Command) client.ReadOptions {
	var opts client.ReadOptions
	if cmd.Flags().Changed("offset") {
		opts.Offset = &r.offset
	}
	if cmd.Flags().Changed("length") {
		opts.Length = &r.length
	}
	return opts
}

func newReadCmd(g *globalOptions) *cobra.Command {
	var (
		rng rangeFlags
		out string
	)

	cmd := &cobra.Command{
		Use:   "read <path>",
		Short: "Download a file",
		Long: `Stream a file from the server. Without --out the data is received and
discarded and only the byte count is reported; --out - writes the raw bytes
to stdout.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return g.run(cmd, func(c *client.Client, p *output.Printer) error {
				var dst io.Writer = io.Discard
				switch out {
				case "":
				case "-":
					n, err := c.Read(cmd.Context(), args[0], rng.options(cmd), cmd.OutOrStdout())
					if err != nil {
						return fmt.Errorf("read failed after %d bytes: %w", n, err)
					}
					return nil
				default:
					f, err := os.Create(out)
					if err != nil {
						return err
					}
					defer func() { _ = f.Close() }()
					dst = f
				}

				n, err := c.Read(cmd.Context(), args[0], rng.options(cmd), dst)
				if err != nil {
					return fmt.Errorf("read failed after %d bytes: %w", n, err)
				}

				if p.Format() != output.FormatTable {
					return p.Print(readView{Path: args[0], BytesRead: n, Output: out})
				}
				p.Printf("Read %d bytes from '%s'\n", n, args[0])
				return nil
			})
		},
	}

	rng.register(cmd)
	cmd.Flags().StringVar(&out, "out", "", "write the file to this path, - for stdout")
	return cmd
}

func newReadTextCmd(g *globalOptions) *cobra.Command {
	var rng rangeFlags

	cmd := &cobra.Command{
		Use:   "read-text <path>",
		Short: "Print a text file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return g.run(cmd, func(c *client.Client, p *output.Printer) error {
				data, err := c.ReadAll(cmd.Context(), args[0], rng.options(cmd))
				if err != nil {
					return err
				}
				if !utf8.Valid(data) {
					return fmt.Errorf("file '%s' contains binary data", args[0])
				}

				p.Printf("File content (%s)\n", args[0])
				p.Printf("%s\n", strings.Repeat("-", 50))
				p.Printf("%s\n", data)
				return nil
			})
		},
	}

	rng.register(cmd)
	return cmd
}

func newWriteCmd(g *globalOptions) *cobra.Command {
	var offset uint64

	cmd := &cobra.Command{
		Use:   "write <path> <content>",
		Short: "Write text to a file",
		Long: `Write the given text to a file, creating or truncating it. With --offset
the text is written into the existing file at that position instead.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return g.run(cmd, func(c *client.Client, p *output.Printer) error {
				return upload(cmd.Context(), c, p, args[0], strings.NewReader(args[1]), offset)
			})
		},
	}

	cmd.Flags().Uint64Var(&offset, "offset", 0, "byte offset to write at")
	return cmd
}

func newWriteFileCmd(g *globalOptions) *cobra.Command {
	var offset uint64

	cmd := &cobra.Command{
		Use:   "write-file <path> <local-file>",
		Short: "Upload a local file",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[1])
			if err != nil {
				return err
			}
			defer func() { _ = f.Close() }()

			return g.run(cmd, func(c *client.Client, p *output.Printer) error {
				return upload(cmd.Context(), c, p, args[0], f, offset)
			})
		},
	}

	cmd.Flags().Uint64Var(&offset, "offset", 0, "byte offset to write at")
	return cmd
}

func upload(ctx context.Context, c *client.Client, p *output.Printer, path string, r io.Reader, offset uint64) error {
	var (
		resp *fsrpc.WriteResponse
		err  error
	)
	if offset > 0 {
		resp, err = c.WriteAt(ctx, path, r, offset)
	} else {
		resp, err = c.Write(ctx, path, r)
	}
	if err != nil {
		return err
	}
	if !resp.Success {
		return errors.New(resp.Message)
	}

	if p.Format() != output.FormatTable {
		return p.Print(writeView{Path: path, BytesWritten: resp.BytesWritten, Message: resp.Message})
	}
	p.Printf("Successfully wrote %d bytes to '%s'\n", resp.BytesWritten, path)
	p.Printf("  Message: %s\n", resp.Message)
	return nil
}
