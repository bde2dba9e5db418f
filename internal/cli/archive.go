package cli

import (
	"context"
	"path/filepath"
	"time"

	"github.com/sdejongh/duopane/pkg/archive"
	"github.com/sdejongh/duopane/pkg/engine"
	"github.com/sdejongh/duopane/pkg/models"
	"github.com/sdejongh/duopane/pkg/output"
	"github.com/spf13/cobra"
	"gitlab.com/tozd/go/errors"
)

// NewArchiveCommand creates the archive command
func NewArchiveCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "archive",
		Aliases: []string{"ar"},
		Short:   "Create, inspect and extract archives",
		Long: `Create, inspect and extract zip, jar, war, tar, tar.gz, tar.zst and 7z archives.
Zip and 7z support passwords; creating 7z archives needs a 7z executable.`,
	}

	cmd.AddCommand(newArchiveCreateCommand())
	cmd.AddCommand(newArchiveExtractCommand())
	cmd.AddCommand(newArchiveListCommand())
	cmd.AddCommand(newArchiveConflictsCommand())
	cmd.AddCommand(newArchiveCopyCommand())

	return cmd
}

func newArchiveCreateCommand() *cobra.Command {
	var (
		outputPath  string
		format      string
		exclude     []string
		password    string
		askPassword bool
	)

	cmd := &cobra.Command{
		Use:   "create SOURCE...",
		Short: "Create an archive from files and directories",
		Long: `Create an archive from files and directories. Without --file the name is
derived from the sources and placed next to them, in the default format.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := newSession(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			ctx, cancel := interruptible(cmd)
			defer cancel()

			if outputPath == "" {
				if format == "" {
					format = s.cfg.Archive.DefaultFormat
				}
				outputPath, err = suggestOutput(args, format)
				if err != nil {
					return err
				}
			}

			p := newPrompter()
			password, err = resolvePassword(p, password, askPassword)
			if err != nil {
				return err
			}

			w, err := s.engine.StartCreateArchive(ctx, models.ArchiveCreateRequest{
				Sources:    args,
				OutputPath: outputPath,
				Password:   password,
				Exclude:    exclude,
			})
			if err != nil {
				return err
			}
			return s.watch(ctx, w, "Archive create")
		},
	}

	cmd.Flags().StringVarP(&outputPath, "file", "f", "", "archive to create (format from its extension)")
	cmd.Flags().StringVar(&format, "format", "", "format for a derived name: "+archive.SupportedFormats)
	cmd.Flags().StringSliceVar(&exclude, "exclude", []string{}, "glob patterns to exclude")
	addPasswordFlags(cmd, &password, &askPassword)

	return cmd
}

// suggestOutput derives a unique archive path next to the first source
func suggestOutput(sources []string, formatName string) (string, error) {
	format, ok := archive.ParseFormat(formatName)
	if !ok {
		return "", errors.Errorf("%w: %s", archive.ErrUnsupportedFormat, formatName)
	}

	abs, err := filepath.Abs(sources[0])
	if err != nil {
		return "", errors.WithStack(err)
	}
	return archive.SuggestArchiveNameAs(sources, filepath.Dir(abs), format), nil
}

func newArchiveExtractCommand() *cobra.Command {
	var (
		auto        bool
		onConflict  string
		password    string
		askPassword bool
	)

	cmd := &cobra.Command{
		Use:   "extract ARCHIVE [DEST_DIR]",
		Short: "Extract an archive",
		Long: `Extract an archive into DEST_DIR (default: the current directory).

With --auto, an archive holding a single top-level directory is extracted
as is; otherwise a new directory named after the archive is created.
Every conflict is resolved before extraction starts.`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := newSession(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			ctx, cancel := interruptible(cmd)
			defer cancel()

			dest := s.cwd
			if len(args) == 2 {
				dest = args[1]
			}

			p := newPrompter()
			password, err = resolvePassword(p, password, askPassword)
			if err != nil {
				return err
			}

			req := models.ArchiveExtractRequest{ArchivePath: args[0], DestDir: dest, Password: password}
			if auto {
				req, err = archive.AutoExtractRequest(ctx, args[0], dest, password)
				if err != nil {
					s.out.Error(err)
					return err
				}
			}

			var promptErr error
			decide, err := conflictDecider(s.cfg, onConflict, p, &promptErr)
			if err != nil {
				return err
			}

			flow, err := engine.NewExtractFlow(ctx, req)
			if err != nil {
				s.out.Error(err)
				return err
			}
			req, err = flow.ResolveAll(decide)
			if promptErr != nil {
				return promptErr
			}
			if err != nil {
				return err
			}

			w, err := s.engine.StartExtract(ctx, req)
			if err != nil {
				return err
			}
			return s.watch(ctx, w, "Archive extract")
		},
	}

	cmd.Flags().BoolVar(&auto, "auto", false, "pick or create the extraction directory automatically")
	addConflictFlag(cmd, &onConflict)
	addPasswordFlags(cmd, &password, &askPassword)

	return cmd
}

// watch streams worker progress to the formatter until the worker ends.
// Interrupting cancels the worker, which stops before its next entry.
func (s *session) watch(ctx context.Context, w *archive.Worker, operation string) error {
	start := time.Now()
	started := false

	events := w.Progress()
	for events != nil {
		select {
		case <-ctx.Done():
			s.engine.CancelArchive()
			ctx = context.Background()
		case ev, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			if !started {
				s.out.Start(s.stdout, operation, ev.TotalFiles, ev.TotalBytes)
				started = true
			}
			s.out.Progress(output.FromArchive(ev))
		}
	}
	<-w.Done()

	summary, _, err, _ := s.engine.CollectArchive(ctx)
	if err != nil {
		s.out.Error(err)
		return err
	}
	if !started {
		s.out.Start(s.stdout, operation, summary.TotalFiles, summary.TotalBytes)
	}
	s.out.Complete(output.ReportFromArchive(operation, summary, time.Since(start)))
	if summary.ItemsFailed > 0 {
		return errItemsFailed
	}
	return nil
}

func newArchiveListCommand() *cobra.Command {
	var (
		password    string
		askPassword bool
	)

	cmd := &cobra.Command{
		Use:     "list ARCHIVE",
		Aliases: []string{"ls"},
		Short:   "List the entries of an archive",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := newSession(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			password, err = resolvePassword(newPrompter(), password, askPassword)
			if err != nil {
				return err
			}

			preview, err := engine.PreviewArchive(cmd.Context(), args[0], password)
			if err != nil {
				s.out.Error(err)
				return err
			}
			return s.out.Entries(s.stdout, preview.Entries, preview.Truncated)
		},
	}

	addPasswordFlags(cmd, &password, &askPassword)
	return cmd
}

func newArchiveConflictsCommand() *cobra.Command {
	var (
		password    string
		askPassword bool
	)

	cmd := &cobra.Command{
		Use:   "conflicts ARCHIVE DEST_DIR",
		Short: "Show which entries already exist in the destination",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := newSession(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			password, err = resolvePassword(newPrompter(), password, askPassword)
			if err != nil {
				return err
			}

			conflicts, err := archive.ListExtractConflicts(cmd.Context(), args[0], args[1], password)
			if err != nil {
				s.out.Error(err)
				return err
			}
			return s.out.Conflicts(s.stdout, conflicts)
		},
	}

	addPasswordFlags(cmd, &password, &askPassword)
	return cmd
}

func newArchiveCopyCommand() *cobra.Command {
	var (
		onConflict  string
		password    string
		askPassword bool
	)

	cmd := &cobra.Command{
		Use:   "copy ARCHIVE DEST_DIR ENTRY...",
		Short: "Copy selected entries out of an archive",
		Long: `Copy selected entries out of an archive. The archive is unpacked into a
temporary directory, the entries are copied like files and the temporary
directory is removed afterwards.`,
		Args: cobra.MinimumNArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := newSession(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			ctx, cancel := interruptible(cmd)
			defer cancel()

			p := newPrompter()
			password, err = resolvePassword(p, password, askPassword)
			if err != nil {
				return err
			}

			var promptErr error
			decide, err := conflictDecider(s.cfg, onConflict, p, &promptErr)
			if err != nil {
				return err
			}

			op, err := s.engine.CopyFromArchive(ctx, args[0], password, args[2:], args[1])
			if err != nil {
				s.out.Error(err)
				return err
			}
			return s.drive(ctx, op.Progress, decide, &promptErr)
		},
	}

	addConflictFlag(cmd, &onConflict)
	addPasswordFlags(cmd, &password, &askPassword)
	return cmd
}
