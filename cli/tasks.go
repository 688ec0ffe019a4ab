package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/erntsn/todo-app/models"
	"github.com/erntsn/todo-app/utils"
	"github.com/spf13/cobra"
)

func newListCmd(o *rootOptions) *cobra.Command {
	var f models.Filter
	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List tasks",
		Args:    cobra.NoArgs,
		RunE: withRepo(o, func(cmd *cobra.Command, a *app, args []string) error {
			switch f.Status {
			case "all", "active", "completed":
			default:
				return fmt.Errorf("unknown filter %q (want all, active or completed)", f.Status)
			}
			return showList(cmd.Context(), a, f)
		}),
	}
	cmd.Flags().StringVar(&f.Status, "filter", "all", "all, active or completed")
	cmd.Flags().StringVar(&f.Category, "category", "", "only this category")
	cmd.Flags().StringVar(&f.Tag, "tag", "", "only tasks with this tag")
	cmd.Flags().StringVarP(&f.Search, "search", "s", "", "search text and notes")
	return cmd
}

func showList(ctx context.Context, a *app, f models.Filter) error {
	tasks, err := a.repo.List(ctx, f)
	if err != nil {
		return err
	}
	m := a.msgs()
	renderList(a.out, m, a.theme(), tasks, timeNow())
	return printPending(ctx, a)
}

func printPending(ctx context.Context, a *app) error {
	n, err := a.repo.Pending(ctx)
	if err != nil {
		return err
	}
	if n > 0 {
		fmt.Fprintln(a.out, a.msgs().pending(n))
	}
	return nil
}

// taskFlags are the editable fields shared by add and edit.
type taskFlags struct {
	date     string
	priority string
	category string
	tags     []string
	notes    string
	repeat   string
	every    int
	noRepeat bool
	status   string
	subtasks []string
}

func (f *taskFlags) bind(cmd *cobra.Command, edit bool) {
	cmd.Flags().StringVarP(&f.date, "date", "d", "", "due date (YYYY-MM-DD, today or tomorrow)")
	cmd.Flags().StringVarP(&f.priority, "priority", "p", "", "high, medium or low")
	cmd.Flags().StringVarP(&f.category, "category", "c", "", "work, personal, health, shopping, finance, education or other")
	cmd.Flags().StringSliceVarP(&f.tags, "tags", "t", nil, "comma separated tags")
	cmd.Flags().StringVarP(&f.notes, "notes", "n", "", "free-form notes")
	cmd.Flags().StringVar(&f.repeat, "repeat", "", "daily, weekly, monthly or yearly")
	cmd.Flags().IntVar(&f.every, "every", 1, "repeat interval, with --repeat")
	if edit {
		cmd.Flags().BoolVar(&f.noRepeat, "no-repeat", false, "stop repeating")
	} else {
		cmd.Flags().StringVar(&f.status, "status", "", "backlog, todo, inProgress or done")
		cmd.Flags().StringArrayVar(&f.subtasks, "subtask", nil, "add a subtask (repeatable)")
	}
}

func parseDueDate(s string) (string, error) {
	switch strings.ToLower(s) {
	case "":
		return "", nil
	case "today":
		return utils.Today(timeNow()), nil
	case "tomorrow":
		return utils.Today(timeNow().AddDate(0, 0, 1)), nil
	}
	d, err := utils.ParseDate(s)
	if err != nil {
		return "", fmt.Errorf("bad date %q, want YYYY-MM-DD", s)
	}
	return utils.FormatDate(d), nil
}

func (f *taskFlags) recurrence() *models.Recurrence {
	if f.repeat == "" {
		return nil
	}
	return &models.Recurrence{Type: models.RecurrenceType(f.repeat), Value: f.every}
}

func newAddCmd(o *rootOptions) *cobra.Command {
	var f taskFlags
	cmd := &cobra.Command{
		Use:   "add <text>",
		Short: "Add a task",
		Args:  cobra.MinimumNArgs(1),
		RunE: withRepo(o, func(cmd *cobra.Command, a *app, args []string) error {
			date, err := parseDueDate(f.date)
			if err != nil {
				return err
			}
			task := models.Task{
				Text:      strings.Join(args, " "),
				Date:      date,
				Priority:  models.Priority(f.priority),
				Category:  models.Category(f.category),
				Tags:      f.tags,
				Notes:     f.notes,
				Recurring: f.recurrence(),
			}
			if f.status != "" {
				st, err := models.ParseStatus(f.status)
				if err != nil {
					return err
				}
				if err := task.ApplyStatus(st, timeNow()); err != nil {
					return err
				}
			}
			for _, text := range f.subtasks {
				if _, err := task.AddSubtask("", text); err != nil {
					return err
				}
			}

			res, err := a.repo.Create(cmd.Context(), task)
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "added %s %s\n", shortID(res.Task.ID), res.Task.Text)
			a.report(res)
			return nil
		}),
	}
	f.bind(cmd, false)
	return cmd
}

func newEditCmd(o *rootOptions) *cobra.Command {
	var f taskFlags
	var text string
	cmd := &cobra.Command{
		Use:   "edit <id>",
		Short: "Change a task",
		Args:  cobra.ExactArgs(1),
		RunE: withRepo(o, func(cmd *cobra.Command, a *app, args []string) error {
			id, err := a.resolve(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			var p models.TaskPatch
			flags := cmd.Flags()
			if flags.Changed("text") {
				p.Text = &text
			}
			if flags.Changed("date") {
				date, err := parseDueDate(f.date)
				if err != nil {
					return err
				}
				p.Date = &date
			}
			if flags.Changed("priority") {
				pr := models.Priority(f.priority)
				p.Priority = &pr
			}
			if flags.Changed("category") {
				c := models.Category(f.category)
				p.Category = &c
			}
			if flags.Changed("tags") {
				p.Tags = &f.tags
			}
			if flags.Changed("notes") {
				p.Notes = &f.notes
			}
			if flags.Changed("repeat") {
				p.Recurring = f.recurrence()
			}
			p.ClearRecurring = f.noRepeat
			if p.Empty() {
				return fmt.Errorf("nothing to change")
			}

			res, err := a.repo.Update(cmd.Context(), id, p)
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "updated %s\n", shortID(id))
			a.report(res)
			return nil
		}),
	}
	cmd.Flags().StringVar(&text, "text", "", "new task text")
	f.bind(cmd, true)
	return cmd
}

func newShowCmd(o *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show a task with its notes and subtasks",
		Args:  cobra.ExactArgs(1),
		RunE: withRepo(o, func(cmd *cobra.Command, a *app, args []string) error {
			id, err := a.resolve(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			task, err := a.repo.Get(cmd.Context(), id)
			if err != nil {
				return err
			}
			renderTask(a.out, a.msgs(), a.theme(), task, timeNow())
			return nil
		}),
	}
}

func newDoneCmd(o *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:     "done <id>",
		Aliases: []string{"toggle"},
		Short:   "Toggle a task between done and not done",
		Args:    cobra.ExactArgs(1),
		RunE: withRepo(o, func(cmd *cobra.Command, a *app, args []string) error {
			id, err := a.resolve(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			res, err := a.repo.Toggle(cmd.Context(), id)
			if err != nil {
				return err
			}
			state := "reopened"
			if res.Task != nil && res.Task.Completed {
				state = "completed"
			}
			fmt.Fprintf(a.out, "%s %s\n", state, shortID(id))
			a.report(res)
			return nil
		}),
	}
}

func newStatusCmd(o *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "status <id> <backlog|todo|inProgress|done>",
		Short: "Move a task to a board column",
		Args:  cobra.ExactArgs(2),
		RunE: withRepo(o, func(cmd *cobra.Command, a *app, args []string) error {
			id, err := a.resolve(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			status, err := models.ParseStatus(args[1])
			if err != nil {
				return err
			}
			res, err := a.repo.SetStatus(cmd.Context(), id, status)
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "%s -> %s\n", shortID(id), label(a.msgs().columns, string(status)))
			a.report(res)
			return nil
		}),
	}
}

func newRemoveCmd(o *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:     "rm <id>",
		Aliases: []string{"delete"},
		Short:   "Delete a task",
		Args:    cobra.ExactArgs(1),
		RunE: withRepo(o, func(cmd *cobra.Command, a *app, args []string) error {
			id, err := a.resolve(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			res, err := a.repo.Delete(cmd.Context(), id)
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "deleted %s\n", shortID(id))
			a.report(res)
			return nil
		}),
	}
}

func newSubtaskCmd(o *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "subtask",
		Short: "Manage the checklist of a task",
	}

	add := &cobra.Command{
		Use:   "add <task-id> <text>",
		Short: "Add a subtask",
		Args:  cobra.MinimumNArgs(2),
		RunE: withRepo(o, func(cmd *cobra.Command, a *app, args []string) error {
			id, err := a.resolve(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			res, err := a.repo.AddSubtask(cmd.Context(), id, strings.Join(args[1:], " "))
			if err != nil {
				return err
			}
			return printSubtasks(a, res.Task)
		}),
	}

	toggle := &cobra.Command{
		Use:   "done <task-id> <n>",
		Short: "Toggle subtask n (as numbered by `todo show`)",
		Args:  cobra.ExactArgs(2),
		RunE: withRepo(o, func(cmd *cobra.Command, a *app, args []string) error {
			taskID, subID, err := resolveSubtask(cmd.Context(), a, args[0], args[1])
			if err != nil {
				return err
			}
			res, err := a.repo.ToggleSubtask(cmd.Context(), taskID, subID)
			if err != nil {
				return err
			}
			return printSubtasks(a, res.Task)
		}),
	}

	remove := &cobra.Command{
		Use:   "rm <task-id> <n>",
		Short: "Remove subtask n",
		Args:  cobra.ExactArgs(2),
		RunE: withRepo(o, func(cmd *cobra.Command, a *app, args []string) error {
			taskID, subID, err := resolveSubtask(cmd.Context(), a, args[0], args[1])
			if err != nil {
				return err
			}
			res, err := a.repo.RemoveSubtask(cmd.Context(), taskID, subID)
			if err != nil {
				return err
			}
			return printSubtasks(a, res.Task)
		}),
	}

	cmd.AddCommand(add, toggle, remove)
	return cmd
}

// resolveSubtask accepts a 1-based position or a subtask id.
func resolveSubtask(ctx context.Context, a *app, taskArg, subArg string) (string, string, error) {
	taskID, err := a.resolve(ctx, taskArg)
	if err != nil {
		return "", "", err
	}
	task, err := a.repo.Get(ctx, taskID)
	if err != nil {
		return "", "", err
	}
	var n int
	if _, err := fmt.Sscanf(subArg, "%d", &n); err == nil && n >= 1 && n <= len(task.Subtasks) {
		return taskID, task.Subtasks[n-1].ID, nil
	}
	for _, st := range task.Subtasks {
		if st.ID == subArg {
			return taskID, st.ID, nil
		}
	}
	return "", "", fmt.Errorf("task %s has no subtask %q", shortID(taskID), subArg)
}

func printSubtasks(a *app, task *models.Task) error {
	if task == nil {
		return nil
	}
	renderSubtasks(a.out, task)
	return nil
}

func newTagsCmd(o *rootOptions) *cobra.Command {
	var remote bool
	cmd := &cobra.Command{
		Use:   "tags",
		Short: "List the tags in use",
		Args:  cobra.NoArgs,
		RunE: withRepo(o, func(cmd *cobra.Command, a *app, args []string) error {
			var tags []string
			var err error
			if remote {
				tags, err = a.api.Tags(cmd.Context())
			} else {
				tags, err = a.repo.Tags(cmd.Context())
			}
			if err != nil {
				return err
			}
			for _, t := range tags {
				fmt.Fprintf(a.out, "#%s\n", t)
			}
			return nil
		}),
	}
	cmd.Flags().BoolVar(&remote, "remote", false, "ask the server instead of the local mirror")
	return cmd
}
