package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/sdejongh/duopane/pkg/models"
	"github.com/sdejongh/duopane/pkg/output"
	"github.com/spf13/cobra"
	"gitlab.com/tozd/go/errors"
)

// errItemsFailed makes the process exit non-zero when some items failed
var errItemsFailed = errors.Base("some items failed")

// NewCopyCommand creates the copy command
func NewCopyCommand() *cobra.Command {
	return newTransferCommand(models.OpCopy, "copy", "Copy files and directories into a directory")
}

// NewMoveCommand creates the move command
func NewMoveCommand() *cobra.Command {
	return newTransferCommand(models.OpMove, "move", "Move files and directories into a directory")
}

func newTransferCommand(kind models.OperationKind, use, short string) *cobra.Command {
	var onConflict string

	cmd := &cobra.Command{
		Use:   use + " SOURCE... DEST_DIR",
		Short: short,
		Long: short + `.

Directories are copied recursively, one entry at a time. When a destination
already exists you are asked whether to overwrite or skip it, unless
--on-conflict or operations.on_conflict answers for you.`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTransfer(cmd, kind, args[:len(args)-1], args[len(args)-1], onConflict)
		},
	}

	addConflictFlag(cmd, &onConflict)
	return cmd
}

func runTransfer(cmd *cobra.Command, kind models.OperationKind, sources []string, dest, onConflict string) error {
	s, err := newSession(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	ctx, cancel := interruptible(cmd)
	defer cancel()

	var promptErr error
	decide, err := conflictDecider(s.cfg, onConflict, newPrompter(), &promptErr)
	if err != nil {
		return err
	}

	op, err := s.engine.StartFileOperation(ctx, kind, sources, dest)
	if err != nil {
		s.out.Error(err)
		return err
	}

	return s.drive(ctx, op.Progress, decide, &promptErr)
}

// drive runs the pending operation with progress output and reports the result
func (s *session) drive(ctx context.Context, progress models.OperationProgress, decide func(models.Conflict) models.ConflictDecision, promptErr *error) error {
	start := time.Now()
	s.out.Start(s.stdout, progress.Kind.Name(), progress.ItemsTotal, progress.BytesTotal)

	result, err := s.engine.Drive(ctx, decide, func(p models.OperationProgress) {
		s.out.Progress(output.FromOperation(p))
	})
	if err != nil {
		return err
	}

	s.out.Complete(output.ReportFromOperation(result, time.Since(start)))
	if *promptErr != nil {
		return *promptErr
	}
	if result.HasErrors() {
		return errItemsFailed
	}
	return nil
}

// NewDeleteCommand creates the delete command
func NewDeleteCommand() *cobra.Command {
	var (
		trash     bool
		permanent bool
		yes       bool
	)

	cmd := &cobra.Command{
		Use:   "delete PATH...",
		Short: "Delete files and directories",
		Long: `Delete files and directories, either permanently or by moving them to the
trash (operations.use_trash or --trash).`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := newSession(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			ctx, cancel := interruptible(cmd)
			defer cancel()

			useTrash := (s.cfg.Operations.UseTrash || trash) && !permanent

			if !yes {
				verb := "Permanently delete"
				if useTrash {
					verb = "Move to trash"
				}
				if !newPrompter().confirm(fmt.Sprintf("%s %s?", verb, models.Pluralize(len(args), "item", "items"))) {
					return errors.New("delete not confirmed (use --yes)")
				}
			}

			if useTrash {
				start := time.Now()
				result, err := s.engine.Trash(ctx, args)
				if err != nil {
					s.out.Error(err)
					return err
				}
				s.out.Complete(output.ReportFromOperation(result, time.Since(start)))
				return nil
			}

			op, err := s.engine.StartDelete(ctx, args)
			if err != nil {
				s.out.Error(err)
				return err
			}
			var none error
			return s.drive(ctx, op.Progress, func(models.Conflict) models.ConflictDecision { return models.DecisionCancel }, &none)
		},
	}

	cmd.Flags().BoolVar(&trash, "trash", false, "move to the trash instead of deleting")
	cmd.Flags().BoolVar(&permanent, "permanent", false, "delete permanently even when use_trash is set")
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "do not ask for confirmation")

	return cmd
}
