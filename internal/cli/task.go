package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/lherron/wrkboard/internal/bulk"
	"github.com/lherron/wrkboard/internal/cli/appctx"
	"github.com/lherron/wrkboard/internal/domain"
	"github.com/lherron/wrkboard/internal/render"
	"github.com/lherron/wrkboard/internal/store"
)

var taskCmd = &cobra.Command{
	Use:   "task",
	Short: "Manage tasks",
}

var taskAddCmd = &cobra.Command{
	Use:   "add <column> <title>",
	Short: "Append a task to a column",
	Args:  cobra.ExactArgs(2),
	RunE:  appctx.WithApp(appctx.WithUser(), runTaskAdd),
}

var taskCatCmd = &cobra.Command{
	Use:   "cat <task>",
	Short: "Show a task",
	Args:  cobra.ExactArgs(1),
	RunE:  appctx.WithApp(appctx.DefaultOptions(), runTaskCat),
}

var taskEditCmd = &cobra.Command{
	Use:   "edit <task>",
	Short: "Change a task's fields",
	Long: `Change a task's title, description, status, priority or assignee.
Use 'wrkboard mv task' to reorder tasks.`,
	Args: cobra.ExactArgs(1),
	RunE: appctx.WithApp(appctx.WithUser(), runTaskEdit),
}

var taskRmCmd = &cobra.Command{
	Use:   "rm <task>...",
	Short: "Delete tasks",
	Long: `Delete one or more tasks. Tasks after each deleted one move up a
position. With several tasks the run stops at the first failure unless
--continue-on-error is set; --if-match only applies to a single task.`,
	Args: cobra.MinimumNArgs(1),
	RunE: appctx.WithApp(appctx.WithUser(), runTaskRm),
}

var (
	taskBoard       string
	taskTitle       string
	taskDescription string
	taskStatus      string
	taskPriority    string
	taskAssignee    string
	taskUnassign    bool
	taskIfMatch     int64
	taskContinue    bool
)

func init() {
	rootCmd.AddCommand(taskCmd)
	taskCmd.AddCommand(taskAddCmd, taskCatCmd, taskEditCmd, taskRmCmd)

	taskAddCmd.Flags().StringVarP(&taskBoard, "board", "b", "", "Board to resolve column titles in")
	taskAddCmd.Flags().StringVarP(&taskDescription, "description", "d", "", "Task description")
	taskAddCmd.Flags().StringVar(&taskStatus, "status", "", "Status: todo, in_progress or done")
	taskAddCmd.Flags().StringVar(&taskPriority, "priority", "", "Priority: low, medium or high")
	taskAddCmd.Flags().StringVar(&taskAssignee, "assignee", "", "Assigned user")

	taskEditCmd.Flags().StringVar(&taskTitle, "title", "", "New title")
	taskEditCmd.Flags().StringVarP(&taskDescription, "description", "d", "", "New description")
	taskEditCmd.Flags().StringVar(&taskStatus, "status", "", "New status")
	taskEditCmd.Flags().StringVar(&taskPriority, "priority", "", "New priority")
	taskEditCmd.Flags().StringVar(&taskAssignee, "assignee", "", "New assignee")
	taskEditCmd.Flags().BoolVar(&taskUnassign, "unassign", false, "Clear the assignee")
	taskEditCmd.Flags().Int64Var(&taskIfMatch, "if-match", 0, "Only update if the task etag matches")

	taskRmCmd.Flags().Int64Var(&taskIfMatch, "if-match", 0, "Only delete if the task etag matches")
	taskRmCmd.Flags().BoolVar(&taskContinue, "continue-on-error", false, "Keep deleting after a failure")
}

func runTaskAdd(app *appctx.App, cmd *cobra.Command, args []string) error {
	boardUUID, err := optionalBoard(app, taskBoard)
	if err != nil {
		return err
	}
	columnUUID, err := resolveColumn(app, boardUUID, args[0])
	if err != nil {
		return err
	}

	params := store.CreateTaskParams{
		Title:       args[1],
		Description: taskDescription,
		Status:      domain.TaskStatus(taskStatus),
		Priority:    domain.TaskPriority(taskPriority),
	}
	if taskAssignee != "" {
		params.AssignedUserID = &taskAssignee
	}
	task, err := app.Store.Tasks.Create(app.User, columnUUID, params)
	if err != nil {
		return err
	}
	return renderTask(app, cmd, task)
}

func runTaskCat(app *appctx.App, cmd *cobra.Command, args []string) error {
	taskUUID, err := resolveTask(app, args[0])
	if err != nil {
		return err
	}
	task, err := app.Store.Tasks.Get(taskUUID)
	if err != nil {
		return err
	}
	return renderTask(app, cmd, task)
}

func renderTask(app *appctx.App, cmd *cobra.Command, task *domain.Task) error {
	if app.Output != render.FormatTable {
		return renderer(app, cmd).Render(task, nil, nil)
	}
	column, err := app.Store.Columns.Get(task.ColumnUUID)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s %s\n", task.ID, task.Title)
	fmt.Fprintf(out, "  column:   %s %s [%d]\n", column.ID, column.Title, task.Position)
	fmt.Fprintf(out, "  status:   %s\n", task.Status)
	fmt.Fprintf(out, "  priority: %s\n", task.Priority)
	if task.AssignedUserID != nil {
		fmt.Fprintf(out, "  assignee: %s\n", *task.AssignedUserID)
	}
	fmt.Fprintf(out, "  etag:     %s\n", strconv.FormatInt(task.ETag, 10))
	if task.Description != "" {
		fmt.Fprintf(out, "\n%s\n", task.Description)
	}
	return nil
}

func runTaskEdit(app *appctx.App, cmd *cobra.Command, args []string) error {
	taskUUID, err := resolveTask(app, args[0])
	if err != nil {
		return err
	}

	var patch domain.TaskPatch
	flags := cmd.Flags()
	if flags.Changed("title") {
		patch.Title = &taskTitle
	}
	if flags.Changed("description") {
		patch.Description = &taskDescription
	}
	if flags.Changed("status") {
		status := domain.TaskStatus(taskStatus)
		patch.Status = &status
	}
	if flags.Changed("priority") {
		priority := domain.TaskPriority(taskPriority)
		patch.Priority = &priority
	}
	if flags.Changed("assignee") {
		patch.AssignedUserID = &taskAssignee
	}
	patch.Unassign = taskUnassign
	if patch.IsEmpty() {
		return exitError(2, fmt.Errorf("nothing to change"))
	}

	task, err := app.Store.Tasks.Update(app.User, taskUUID, patch, taskIfMatch)
	if err != nil {
		return err
	}
	return renderTask(app, cmd, task)
}

func runTaskRm(app *appctx.App, cmd *cobra.Command, args []string) error {
	if len(args) > 1 && taskIfMatch != 0 {
		return exitError(2, fmt.Errorf("--if-match needs exactly one task"))
	}

	// Deletes apply in argument order.
	op := &bulk.Operation{Jobs: 1, ContinueOnError: taskContinue}
	if len(args) > 1 {
		op.Out = cmd.ErrOrStderr()
	}
	result := op.Execute(args, func(selector string) error {
		taskUUID, err := resolveTask(app, selector)
		if err != nil {
			return err
		}
		return app.Store.Tasks.Delete(app.User, taskUUID, taskIfMatch)
	})

	if len(args) == 1 {
		if result.Failed > 0 {
			return result.Errors[0].Error
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Deleted task %s\n", args[0])
		return nil
	}
	result.PrintSummary(cmd.OutOrStdout())
	if code := result.ExitCode(); code != 0 {
		return exitError(code, fmt.Errorf("deleted %d of %d task(s)", result.Succeeded, result.TotalItems))
	}
	return nil
}
