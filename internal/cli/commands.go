package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/stemsi/quizhub-backend/internal/model"
	"github.com/stemsi/quizhub-backend/internal/repository"
	"github.com/stemsi/quizhub-backend/internal/validator"
	"golang.org/x/term"
)

func newCreateAdminCmd() *cobra.Command {
	var req model.RegisterRequest

	cmd := &cobra.Command{
		Use:   "create-admin",
		Short: "Create an admin account (password is prompted)",
		RunE: withApp(func(cmd *cobra.Command, _ []string, a *app) error {
			password, err := readPassword(cmd.InOrStdin(), cmd.OutOrStdout())
			if err != nil {
				return err
			}
			req.Password = password
			if !validator.StrongPassword(password) || len(password) < 8 {
				return errors.New("password needs 8+ characters with an uppercase letter, a lowercase letter and a digit")
			}

			u, err := a.auth.CreateAdmin(cmd.Context(), req)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Admin %s created (id %s)\n", u.Username, u.ID)
			return nil
		}),
	}

	cmd.Flags().StringVar(&req.Email, "email", "", "admin email (required)")
	cmd.Flags().StringVar(&req.Username, "username", "", "admin username (required)")
	cmd.Flags().StringVar(&req.FullName, "full-name", "", "display name")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("username")
	return cmd
}

// readPassword prompts without echo on a terminal and reads one line otherwise.
func readPassword(in io.Reader, out io.Writer) (string, error) {
	fmt.Fprint(out, "Enter Password: ")
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		raw, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(out)
		if err != nil {
			return "", fmt.Errorf("read password: %w", err)
		}
		return string(raw), nil
	}

	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read password: %w", err)
	}
	return strings.TrimSpace(line), nil
}

func newImportQuizCmd() *cobra.Command {
	var (
		author  string
		publish bool
	)

	cmd := &cobra.Command{
		Use:   "import-quiz <file.yaml>",
		Short: "Create a quiz with its questions from a YAML file",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(func(cmd *cobra.Command, args []string, a *app) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			req, err := ParseQuizFile(f)
			if err != nil {
				return fmt.Errorf("%s: %w", args[0], err)
			}

			admin, err := a.users.GetByLogin(cmd.Context(), author)
			if errors.Is(err, repository.ErrNotFound) {
				return fmt.Errorf("author %q not found", author)
			}
			if err != nil {
				return err
			}
			if admin.Role != model.RoleAdmin {
				return fmt.Errorf("author %q is not an admin", author)
			}

			quiz, err := a.quizzes.Create(cmd.Context(), admin.ID, req)
			if err != nil {
				return err
			}
			if publish {
				if quiz, err = a.quizzes.Publish(cmd.Context(), quiz.ID); err != nil {
					return err
				}
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Imported %q (%s): %d questions, published=%t\n",
				quiz.Title, quiz.ID, len(req.Questions), quiz.IsPublished)
			return nil
		}),
	}

	cmd.Flags().StringVar(&author, "author", "", "username or email of the owning admin (required)")
	cmd.Flags().BoolVar(&publish, "publish", false, "publish right after import")
	_ = cmd.MarkFlagRequired("author")
	return cmd
}

func newSweepExpiredCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sweep-expired",
		Short: "Finalize every attempt past its deadline",
		RunE: withApp(func(cmd *cobra.Command, _ []string, a *app) error {
			n, err := a.attempts.SweepExpired(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Finalized %d expired attempts\n", n)
			return nil
		}),
	}
}

func newSyncRanksCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sync-ranks",
		Short: "Recompute persisted leaderboard ranks",
		RunE: withApp(func(cmd *cobra.Command, _ []string, a *app) error {
			n, err := a.leaderboard.SyncRanks(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Updated %d result ranks\n", n)
			return nil
		}),
	}
}

func newRemindDeadlinesCmd() *cobra.Command {
	var hours int

	cmd := &cobra.Command{
		Use:   "remind-deadlines",
		Short: "Notify assignees whose due date falls within the reminder window",
		RunE: withApp(func(cmd *cobra.Command, _ []string, a *app) error {
			window := a.cfg.DeadlineReminderWindow
			if hours > 0 {
				window = time.Duration(hours) * time.Hour
			}
			n, err := a.quizzes.RemindDueSoon(cmd.Context(), window)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Sent %d deadline reminders\n", n)
			return nil
		}),
	}

	cmd.Flags().IntVar(&hours, "window-hours", 0, "override DEADLINE_REMINDER_HOURS")
	return cmd
}

func newCleanupNotificationsCmd() *cobra.Command {
	var days int

	cmd := &cobra.Command{
		Use:   "cleanup-notifications",
		Short: "Delete notifications older than the retention window",
		RunE: withApp(func(cmd *cobra.Command, _ []string, a *app) error {
			retention := a.cfg.NotificationRetention
			if days > 0 {
				retention = time.Duration(days) * 24 * time.Hour
			}
			n, err := a.notifications.Cleanup(cmd.Context(), retention)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %d notifications\n", n)
			return nil
		}),
	}

	cmd.Flags().IntVar(&days, "retention-days", 0, "override NOTIFICATION_RETENTION_DAYS")
	return cmd
}
