package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/bytedance/sonic"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/Sheulydsp/kanban-dashboard/board"
	"github.com/Sheulydsp/kanban-dashboard/domain"
	"github.com/Sheulydsp/kanban-dashboard/notify"
)

func (c *cli) listCmd() *cobra.Command {
	var (
		status string
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List tasks in stored order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if status != "" && !domain.Status(status).Valid() {
				return fmt.Errorf("unknown status %q", status)
			}
			return c.withStore(cmd.Context(), func(s *board.Store) error {
				tasks := s.Tasks()
				if status != "" {
					filtered := tasks[:0]
					for _, t := range tasks {
						if t.Status == domain.Status(status) {
							filtered = append(filtered, t)
						}
					}
					tasks = filtered
				}
				if asJSON {
					return writeJSON(cmd.OutOrStdout(), tasks)
				}
				return writeTasks(cmd.OutOrStdout(), tasks)
			})
		},
	}
	cmd.Flags().StringVar(&status, "status", "", "only show tasks in this column")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	return cmd
}

func (c *cli) boardCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "board",
		Short: "Show tasks grouped by column",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withStore(cmd.Context(), func(s *board.Store) error {
				out := cmd.OutOrStdout()
				for _, col := range s.Columns() {
					fmt.Fprintf(out, "%s (%d)\n", col.Status, col.Count)
					for _, t := range col.Tasks {
						fmt.Fprintf(out, "  - %s  %s%s\n", t.ID, t.Title, taskSuffix(t))
					}
				}
				return nil
			})
		},
	}
}

// taskFlags binds the TaskInput fields to command flags.
type taskFlags struct {
	title       string
	status      string
	description string
	dueDate     string
	tags        string
	priority    string
}

func (f *taskFlags) bind(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.title, "title", "t", "", "task title")
	cmd.Flags().StringVarP(&f.status, "status", "s", "", "column: Backlog, In Progress, Review or Done")
	cmd.Flags().StringVarP(&f.description, "description", "d", "", "description")
	cmd.Flags().StringVar(&f.dueDate, "due", "", "due date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&f.tags, "tags", "", "comma separated tags")
	cmd.Flags().StringVarP(&f.priority, "priority", "p", "", "Low, Medium or High")
}

func (f *taskFlags) input() domain.TaskInput {
	return domain.TaskInput{
		Title:       f.title,
		Status:      domain.Status(f.status),
		Description: f.description,
		DueDate:     f.dueDate,
		Tags:        domain.TagList(domain.ParseTags(f.tags)),
		Priority:    domain.Priority(f.priority),
	}
}

// overlay returns the input for editing t: fields whose flag was not given
// keep their current value.
func (f *taskFlags) overlay(cmd *cobra.Command, t domain.Task) domain.TaskInput {
	in := domain.TaskInput{
		Title:       t.Title,
		Status:      t.Status,
		Description: t.Description,
		DueDate:     t.DueDate,
		Tags:        domain.TagList(t.Tags),
		Priority:    t.Priority,
	}
	set := cmd.Flags().Changed
	if set("title") {
		in.Title = f.title
	}
	if set("status") {
		in.Status = domain.Status(f.status)
	}
	if set("description") {
		in.Description = f.description
	}
	if set("due") {
		in.DueDate = f.dueDate
	}
	if set("tags") {
		in.Tags = domain.TagList(domain.ParseTags(f.tags))
	}
	if set("priority") {
		in.Priority = domain.Priority(f.priority)
	}
	return in
}

func (c *cli) addCmd() *cobra.Command {
	var (
		flags taskFlags
		id    string
	)
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a task",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if id == "" {
				id = uuid.NewString()
			}
			task, err := domain.NewTask(id, flags.input())
			if err != nil {
				return err
			}
			return c.withStore(cmd.Context(), func(s *board.Store) error {
				if err := s.Add(cmd.Context(), task); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), task.ID)
				return nil
			})
		},
	}
	flags.bind(cmd)
	cmd.Flags().StringVar(&id, "id", "", "task id (generated when empty)")
	return cmd
}

func (c *cli) editCmd() *cobra.Command {
	var flags taskFlags
	cmd := &cobra.Command{
		Use:   "edit ID",
		Short: "Edit a task; unset flags keep their value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withStore(cmd.Context(), func(s *board.Store) error {
				existing, ok := s.Get(args[0])
				if !ok {
					return fmt.Errorf("%w: %s", domain.ErrTaskNotFound, args[0])
				}
				task, err := flags.overlay(cmd, existing).ApplyTo(existing)
				if err != nil {
					return err
				}
				return s.Update(cmd.Context(), task)
			})
		},
	}
	flags.bind(cmd)
	return cmd
}

func (c *cli) reorderCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reorder STATUS SOURCE_ID TARGET_ID",
		Short: "Move SOURCE_ID to TARGET_ID's place within a column",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			status := domain.Status(args[0])
			if !status.Valid() {
				return fmt.Errorf("unknown status %q", args[0])
			}
			return c.withStore(cmd.Context(), func(s *board.Store) error {
				return s.Reorder(cmd.Context(), status, args[1], args[2])
			})
		},
	}
}

func (c *cli) moveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "move ACTIVE_ID OVER_ID",
		Short: "Drop ACTIVE_ID onto OVER_ID, changing column when they differ",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withStore(cmd.Context(), func(s *board.Store) error {
				return s.Move(cmd.Context(), args[0], args[1])
			})
		},
	}
}

func (c *cli) watchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Print board events published on the Redis updates channel",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(c.configPath)
			if err != nil {
				return err
			}
			if cfg.Redis.UpdatesChannel == "" {
				return fmt.Errorf("redis.updates_channel is not configured")
			}
			rc, err := cfg.NewRedisClient()
			if err != nil {
				return err
			}
			if rc == nil {
				return fmt.Errorf("redis.connection_string is not configured")
			}
			defer rc.Close()

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			out := cmd.OutOrStdout()
			notify.SubscribeEvents(ctx, c.logger(), rc, cfg.Redis.UpdatesChannel, func(ev notify.Event) {
				fmt.Fprintf(out, "%s rev=%d op=%s task=%s count=%d\n", ev.At.Format("15:04:05"), ev.Revision, ev.Op, ev.TaskID, ev.Count)
			})
			return nil
		},
	}
}

func writeTasks(w io.Writer, tasks []domain.Task) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSTATUS\tPRIORITY\tDUE\tTITLE\tTAGS")
	for _, t := range tasks {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n", t.ID, t.Status, t.Priority, t.DueDate, t.Title, strings.Join(t.Tags, ","))
	}
	return tw.Flush()
}

func writeJSON(w io.Writer, v any) error {
	enc := sonic.ConfigStd.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func taskSuffix(t domain.Task) string {
	var parts []string
	if t.Priority != "" {
		parts = append(parts, string(t.Priority))
	}
	if t.DueDate != "" {
		parts = append(parts, "due "+t.DueDate)
	}
	if len(t.Tags) > 0 {
		parts = append(parts, "#"+strings.Join(t.Tags, " #"))
	}
	if len(parts) == 0 {
		return ""
	}
	return "  [" + strings.Join(parts, ", ") + "]"
}
