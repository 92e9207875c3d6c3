package cmd

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httputil"
	"os"
	"strings"

	"github.com/jpfielding/cornertext.go/pkg/dicom"
	"github.com/spf13/cobra"
)

// NewDumpCmd prints the header of a DICOM file, stdin or URL
func NewDumpCmd(ctx context.Context) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dump",
		Short: "DICOM header dump",
		Long:  "Parses a DICOM header from a file, '-' for stdin or an http(s) URL and prints it as text or JSON. --out re-emits the header, without pixel data, as a Part 10 file.",
		RunE: func(cmd *cobra.Command, args []string) error {
			uri, _ := cmd.Flags().GetString("uri")
			if uri == "" && len(args) > 0 {
				uri = args[0]
			}
			insecure, _ := cmd.Flags().GetBool("insecure")
			verbose, _ := cmd.Flags().GetBool("verbose")
			in, err := openURI(ctx, uri, insecure, verbose)
			if err != nil {
				return err
			}
			defer in.Close()

			dataset, err := dicom.Parse(in)
			if err != nil {
				return fmt.Errorf("parse: %w", err)
			}
			if path, _ := cmd.Flags().GetString("out"); path != "" {
				n, err := dicom.WriteFile(path, dataset)
				if err != nil {
					return fmt.Errorf("write %s: %w", path, err)
				}
				slog.InfoContext(ctx, "header written", slog.String("path", path), slog.Int64("bytes", n))
			}
			out := cmd.OutOrStdout()
			switch format, _ := cmd.Flags().GetString("format"); format {
			case "text": // Dataset prints one element per line
				fmt.Fprintln(out, dataset)
			default:
				j, err := json.Marshal(dataset)
				if err != nil {
					return err
				}
				fmt.Fprintln(out, string(j))
			}
			return nil
		},
	}
	pf := cmd.PersistentFlags()
	pf.StringP("uri", "u", "", "DICOM file, '-' or URL")
	pf.StringP("format", "f", "json", "output format (text|json)")
	pf.StringP("out", "o", "", "also write the parsed header to this DICOM file")
	pf.Bool("insecure", false, "skip TLS verification for https URLs")
	pf.BoolP("verbose", "v", false, "dump the HTTP exchange to stderr")
	return cmd
}

func openURI(ctx context.Context, uri string, insecure, verbose bool) (io.ReadCloser, error) {
	uri = strings.TrimPrefix(uri, "file://")
	switch {
	case uri == "":
		return nil, fmt.Errorf("a file, '-' or URL is required")
	case uri == "-":
		return io.NopCloser(os.Stdin), nil
	case strings.HasPrefix(uri, "http"):
		cl := &http.Client{
			Transport: &http.Transport{TLSClientConfig: &tls.Config{InsecureSkipVerify: insecure}},
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, uri, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %v", err)
		}
		resp, err := cl.Do(req)
		if err != nil {
			return nil, fmt.Errorf("failed to download: %v", err)
		}
		if verbose {
			reqDump, _ := httputil.DumpRequest(req, true)
			os.Stderr.Write(reqDump)
			resDump, _ := httputil.DumpResponse(resp, false)
			os.Stderr.Write(resDump)
		}
		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			return nil, fmt.Errorf("failed to download: %s", resp.Status)
		}
		return resp.Body, nil
	}
	f, err := os.Open(uri)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %v", err)
	}
	return f, nil
}
