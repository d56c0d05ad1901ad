package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/nao1215/matsight/internal/api"
	"github.com/nao1215/matsight/internal/config"
	"github.com/nao1215/matsight/internal/model"
	"github.com/nao1215/matsight/internal/sample"
)

// NewImagesCmd creates the images command and its subcommands.
func NewImagesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "images",
		Short: "Manage the remote image library",
		Long: `Images lists, uploads and deletes images of the remote library.

Keys are object-store paths. Uploads are stored under the user_prefix of
the configuration file.`,
	}

	cmd.AddCommand(
		newImagesListCmd(),
		newImagesURLCmd(),
		newImagesUploadCmd(),
		newImagesDeleteCmd(),
	)
	return cmd
}

func newImagesListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list [prefix]",
		Short: "List images, newest first",
		Long: `List prints the images under prefix, newest first. Without a prefix the
user_prefix of the configuration file is used.`,
		Args: cobra.MaximumNArgs(1),
		RunE: runImagesList,
	}
}

func newImagesURLCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "url <image-key>",
		Short: "Print a presigned download URL",
		Args:  cobra.ExactArgs(1),
		RunE:  runImagesURL,
	}
}

func newImagesUploadCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "upload <file>",
		Short: "Upload an image",
		Long: `Upload stores a local image in the library under
"<user_prefix>/<file name>". The file must be a decodable image.`,
		Args: cobra.ExactArgs(1),
		RunE: runImagesUpload,
	}
	cmd.Flags().String("key", "", "Store the image under this key instead")
	return cmd
}

func newImagesDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <image-key>",
		Short: "Delete an image",
		Args:  cobra.ExactArgs(1),
		RunE:  runImagesDelete,
	}
}

// newClient loads the configuration and builds an API client for cmd.
func newClient(cmd *cobra.Command) (*api.Client, *config.Config, *slog.Logger, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, nil, nil, err
	}
	logger := setupLogger(cmd, cfg.Verbose)
	slog.SetDefault(logger)

	client, err := api.NewFromConfig(cfg, logger)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to create client: %w", err)
	}
	return client, cfg, logger, nil
}

func runImagesList(cmd *cobra.Command, args []string) error {
	client, cfg, logger, err := newClient(cmd)
	if err != nil {
		return err
	}
	ctx, cancel := signalContext(logger)
	defer cancel()

	prefix := cfg.UserPrefix
	if len(args) == 1 {
		prefix = args[0]
	}

	images, err := client.ListImages(ctx, prefix)
	if err != nil {
		return fmt.Errorf("failed to list images: %w", err)
	}
	return printImageTable(cmd.OutOrStdout(), images)
}

// printImageTable prints images as a table with relative times.
func printImageTable(w io.Writer, images []model.ImageObject) error {
	if len(images) == 0 {
		fmt.Fprintln(w, "No images found.")
		fmt.Fprintln(w, "\nUse 'matsight images upload <file>' to add one.")
		return nil
	}

	table := tablewriter.NewWriter(w)
	table.Header("Name", "Key", "Size", "Modified")
	for _, img := range images {
		size := "-"
		if img.Size > 0 {
			size = humanize.Bytes(uint64(img.Size)) //nolint:gosec // checked positive
		}
		modified := "-"
		if !img.LastModified.IsZero() {
			modified = humanize.Time(img.LastModified)
		}
		if err := table.Append([]string{img.Name(), img.Key, size, modified}); err != nil {
			return err
		}
	}
	if err := table.Render(); err != nil {
		return err
	}
	fmt.Fprintf(w, "\n%d image(s)\n", len(images))
	return nil
}

func runImagesURL(cmd *cobra.Command, args []string) error {
	client, _, logger, err := newClient(cmd)
	if err != nil {
		return err
	}
	ctx, cancel := signalContext(logger)
	defer cancel()

	url, err := client.ImageURL(ctx, args[0])
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), url)
	return nil
}

func runImagesUpload(cmd *cobra.Command, args []string) error {
	path := args[0]

	client, cfg, logger, err := newClient(cmd)
	if err != nil {
		return err
	}
	ctx, cancel := signalContext(logger)
	defer cancel()

	data, err := os.ReadFile(path) //nolint:gosec // path is chosen by the user
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}
	// Refuse files the analysis service could not open either.
	s, err := sample.Decode(data)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}

	key, err := cmd.Flags().GetString("key")
	if err != nil {
		return err
	}
	if key == "" {
		key = cfg.UploadKey(path)
	}
	if key == "" || key == "." || key == string(filepath.Separator) {
		return errors.New("cannot derive an image key from the file name")
	}

	if err := client.Upload(ctx, key, data); err != nil {
		return fmt.Errorf("failed to upload %s: %w", path, err)
	}
	b := s.Bounds()
	fmt.Fprintf(cmd.OutOrStdout(), "Uploaded %s as %s (%s, %dx%d, %s)\n",
		filepath.Base(path), key, s.Format, b.Dx(), b.Dy(), humanize.Bytes(uint64(len(data))))
	return nil
}

func runImagesDelete(cmd *cobra.Command, args []string) error {
	client, _, logger, err := newClient(cmd)
	if err != nil {
		return err
	}
	ctx, cancel := signalContext(logger)
	defer cancel()

	if err := client.Delete(ctx, args[0]); err != nil {
		return fmt.Errorf("failed to delete %s: %w", args[0], err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", args[0])
	return nil
}
