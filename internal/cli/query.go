package cli

import (
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"
)

func newStatusCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "status <run-id>",
		Short: "Show the current status of a run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.client()
			if err != nil {
				return err
			}
			out, err := c.GetRun(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return a.printer.JSON(out)
		},
	}
}

func newUploadURLCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "upload-url <type> <size>",
		Short: "Request upload credentials for a file",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			size, err := strconv.ParseInt(args[1], 10, 64)
			if err != nil || size < 0 {
				return fmt.Errorf("invalid file size %q", args[1])
			}
			c, err := a.client()
			if err != nil {
				return err
			}
			ticket, err := c.GetUploadURL(cmd.Context(), args[0], size)
			if err != nil {
				return err
			}
			return a.printer.JSON(ticket)
		},
	}
}

func newUploadCommand(a *app) *cobra.Command {
	var fileType string

	cmd := &cobra.Command{
		Use:   "upload <file>",
		Short: "Upload a local file and print its download URL",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("failed to open file: %w", err)
			}
			defer f.Close()

			info, err := f.Stat()
			if err != nil {
				return fmt.Errorf("failed to stat file: %w", err)
			}

			if fileType == "" {
				fileType, err = detectType(f, args[0])
				if err != nil {
					return err
				}
			}

			c, err := a.client()
			if err != nil {
				return err
			}
			ticket, err := c.Upload(cmd.Context(), fileType, f, info.Size())
			if err != nil {
				return err
			}
			a.printer.Success("Uploaded %s as %s", filepath.Base(args[0]), ticket.FileID)
			a.printer.Detail("type: %s, size: %d bytes", fileType, info.Size())
			return a.printer.JSON(ticket)
		},
	}

	cmd.Flags().StringVar(&fileType, "type", "", "MIME type (detected from the file when empty)")
	return cmd
}

// detectType guesses a MIME type from the extension, then from the content
func detectType(f *os.File, name string) (string, error) {
	if t := mime.TypeByExtension(filepath.Ext(name)); t != "" {
		return t, nil
	}

	head := make([]byte, 512)
	n, _ := f.Read(head)
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return "", fmt.Errorf("failed to rewind file: %w", err)
	}
	return http.DetectContentType(head[:n]), nil
}

func newWebsocketURLCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "websocket-url <deployment-id>",
		Short: "Show the live progress endpoint of a deployment",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.client()
			if err != nil {
				return err
			}
			endpoint, err := c.GetWebsocketURL(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return a.printer.JSON(endpoint)
		},
	}
}
