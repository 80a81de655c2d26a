package main

import (
	"fmt"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/tonimelisma/dropbox-go/internal/dropbox"
)

func newPutCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "put <local-path> [remote-path]",
		Short: "Upload a file",
		Long: `Upload a local file. Without a remote path the file goes to the root of
the Dropbox under its own name.

--mode add (default) never overwrites: a conflicting upload is renamed by
Dropbox. --mode overwrite replaces any existing file. --mode update replaces
the file only if its current revision matches --rev.`,
		Args: cobra.RangeArgs(1, 2),
		RunE: runPut,
	}

	cmd.Flags().String("mode", string(dropbox.WriteModeAdd), "write mode: add, overwrite, or update")
	cmd.Flags().String("rev", "", "expected revision for --mode update")

	return cmd
}

func newGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <remote-path> [local-path]",
		Short: "Download a file",
		Args:  cobra.RangeArgs(1, 2),
		RunE:  runGet,
	}
}

func newShareCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "share <remote-path>",
		Short: "Print a shareable URL for a file or folder",
		Args:  cobra.ExactArgs(1),
		RunE:  runShare,
	}
}

func newLsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ls [path]",
		Short: "List files and folders",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runLs,
	}
}

// fileOutput is the JSON schema for put and get.
type fileOutput struct {
	Name           string    `json:"name"`
	Path           string    `json:"path"`
	Size           int64     `json:"size"`
	Rev            string    `json:"rev"`
	ServerModified time.Time `json:"server_modified,omitzero"`
	ContentHash    string    `json:"content_hash,omitempty"`
	Local          string    `json:"local"`
}

func newFileOutput(md *dropbox.FileMetadata, local string) fileOutput {
	return fileOutput{
		Name:           md.Name,
		Path:           md.PathDisplay,
		Size:           md.Size,
		Rev:            md.Rev,
		ServerModified: md.ServerModified,
		ContentHash:    md.ContentHash,
		Local:          local,
	}
}

func runPut(cmd *cobra.Command, args []string) error {
	cc := mustCLIContext(cmd.Context())
	ctx := cmd.Context()

	modeName, err := cmd.Flags().GetString("mode")
	if err != nil {
		return err
	}

	rev, err := cmd.Flags().GetString("rev")
	if err != nil {
		return err
	}

	mode, err := dropbox.ParseWriteMode(modeName, rev)
	if err != nil {
		return err
	}

	localPath := args[0]

	remotePath := dropbox.DefaultRemotePath(localPath)
	if len(args) > 1 {
		remotePath = args[1]
	}

	sess, err := cc.session(ctx)
	if err != nil {
		return err
	}

	md, err := sess.UploadWithMode(ctx, localPath, remotePath, mode)
	if err != nil {
		return err
	}

	if cc.Flags.JSON {
		return printJSON(cc.Stdout(), newFileOutput(md, localPath))
	}

	cc.Statusf("Uploaded %s to %s (%s, rev %s)\n", localPath, md.PathDisplay, formatSize(md.Size), md.Rev)

	return nil
}

func runGet(cmd *cobra.Command, args []string) error {
	cc := mustCLIContext(cmd.Context())
	ctx := cmd.Context()

	remotePath := args[0]

	localPath := defaultLocalPath(remotePath)
	if len(args) > 1 {
		localPath = args[1]
	}

	sess, err := cc.session(ctx)
	if err != nil {
		return err
	}

	md, err := sess.Download(ctx, remotePath, localPath)
	if err != nil {
		return err
	}

	if cc.Flags.JSON {
		return printJSON(cc.Stdout(), newFileOutput(md, localPath))
	}

	cc.Statusf("Downloaded %s to %s (%s)\n", md.PathDisplay, localPath, formatSize(md.Size))

	return nil
}

// defaultLocalPath is the base name of the remote path in the working directory.
func defaultLocalPath(remotePath string) string {
	name := path.Base(path.Clean("/" + remotePath))
	if name == "/" {
		return ""
	}

	return filepath.FromSlash(name)
}

// shareOutput is the JSON schema for `share --json`.
type shareOutput struct {
	Path string `json:"path"`
	URL  string `json:"url"`
}

func runShare(cmd *cobra.Command, args []string) error {
	cc := mustCLIContext(cmd.Context())
	ctx := cmd.Context()

	sess, err := cc.session(ctx)
	if err != nil {
		return err
	}

	url, err := sess.PublicLink(ctx, args[0])
	if err != nil {
		return err
	}

	if cc.Flags.JSON {
		return printJSON(cc.Stdout(), shareOutput{Path: args[0], URL: url})
	}

	fmt.Fprintln(cc.Stdout(), url)

	return nil
}

// lsEntry is the JSON schema for one `ls --json` entry.
type lsEntry struct {
	Name     string    `json:"name"`
	Path     string    `json:"path"`
	Folder   bool      `json:"folder"`
	Size     int64     `json:"size"`
	Rev      string    `json:"rev,omitempty"`
	Modified time.Time `json:"modified,omitzero"`
}

func runLs(cmd *cobra.Command, args []string) error {
	cc := mustCLIContext(cmd.Context())
	ctx := cmd.Context()

	remotePath := ""
	if len(args) > 0 {
		remotePath = args[0]
	}

	sess, err := cc.session(ctx)
	if err != nil {
		return err
	}

	entries, err := sess.List(ctx, remotePath)
	if err != nil {
		return err
	}

	entries = visibleEntries(entries)

	if cc.Flags.JSON {
		out := make([]lsEntry, 0, len(entries))
		for _, e := range entries {
			out = append(out, lsEntry{
				Name:     e.Name,
				Path:     e.PathDisplay,
				Folder:   e.IsFolder,
				Size:     e.Size,
				Rev:      e.Rev,
				Modified: e.Modified,
			})
		}

		return printJSON(cc.Stdout(), out)
	}

	printEntriesTable(cc, entries)

	return nil
}

// visibleEntries drops deleted entries and sorts folders first, then by name.
func visibleEntries(entries []dropbox.EntryMetadata) []dropbox.EntryMetadata {
	out := make([]dropbox.EntryMetadata, 0, len(entries))

	for _, e := range entries {
		if !e.IsDeleted {
			out = append(out, e)
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].IsFolder != out[j].IsFolder {
			return out[i].IsFolder
		}

		return strings.ToLower(out[i].Name) < strings.ToLower(out[j].Name)
	})

	return out
}

func printEntriesTable(cc *CLIContext, entries []dropbox.EntryMetadata) {
	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, entryRow(e))
	}

	printTable(cc.Stdout(), []string{"NAME", "SIZE", "MODIFIED", "REV"}, rows)
}
