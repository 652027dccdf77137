package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/raphaelgruber/campusdesk/internal/models"
	"github.com/spf13/cobra"
)

var todoCmd = &cobra.Command{
	Use:   "todo",
	Short: "Manage your todos",
	Long: `Manage your todos. Every command acts on the todos of the user the
bearer token belongs to.

Subcommands:
  list   List todos, newest first (default)
  add    Create a todo
  done   Mark a todo as completed
  undo   Mark a todo as not completed
  edit   Replace the text of a todo
  rm     Delete a todo`,
	Args: cobra.NoArgs,
	RunE: runList,
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List your todos, newest first",
	Long: `List your todos, newest first.

Examples:
  campusdesk todo list
  campusdesk todo list -v`,
	Args: cobra.NoArgs,
	RunE: runList,
}

var addCmd = &cobra.Command{
	Use:   "add <text>",
	Short: "Create a todo",
	Long: `Create a todo. All arguments are joined into the todo text.

Examples:
  campusdesk todo add "Submit lab report"
  campusdesk todo add Read chapter 4`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAdd,
}

var doneCmd = &cobra.Command{
	Use:   "done <id>",
	Short: "Mark a todo as completed",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSetCompleted(cmd, args[0], true)
	},
}

var undoCmd = &cobra.Command{
	Use:   "undo <id>",
	Short: "Mark a todo as not completed",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSetCompleted(cmd, args[0], false)
	},
}

var editCmd = &cobra.Command{
	Use:   "edit <id> <text>",
	Short: "Replace the text of a todo",
	Long: `Replace the text of a todo. The completion flag is left unchanged.

Examples:
  campusdesk todo edit 0192f0c4-... "Submit lab report by Friday"`,
	Args: cobra.MinimumNArgs(2),
	RunE: runEdit,
}

var rmCmd = &cobra.Command{
	Use:     "rm <id>",
	Aliases: []string{"delete"},
	Short:   "Delete a todo",
	Args:    cobra.ExactArgs(1),
	RunE:    runRemove,
}

func init() {
	todoCmd.AddCommand(listCmd)
	todoCmd.AddCommand(addCmd)
	todoCmd.AddCommand(doneCmd)
	todoCmd.AddCommand(undoCmd)
	todoCmd.AddCommand(editCmd)
	todoCmd.AddCommand(rmCmd)
}

func runList(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()

	tasks, err := apiClient.ListTodos(cmd.Context())
	if err != nil {
		return fmt.Errorf("list todos: %w", err)
	}

	if len(tasks) == 0 {
		fmt.Fprintln(out, "No todos found.")
		return nil
	}

	fmt.Fprintf(out, "Todos (%d):\n\n", len(tasks))
	for _, task := range tasks {
		printTask(out, task)
	}
	return nil
}

func runAdd(cmd *cobra.Command, args []string) error {
	text := strings.Join(args, " ")

	task, err := apiClient.CreateTodo(cmd.Context(), models.TaskInput{Text: &text})
	if err != nil {
		return fmt.Errorf("create todo: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Created: %s (%s)\n", task.Text, task.ID)
	return nil
}

func runSetCompleted(cmd *cobra.Command, id string, completed bool) error {
	task, err := apiClient.UpdateTodo(cmd.Context(), id, models.TaskPatch{Completed: &completed})
	if err != nil {
		return fmt.Errorf("update todo: %w", err)
	}

	fmt.Fprint(cmd.OutOrStdout(), "Updated: ")
	printTask(cmd.OutOrStdout(), *task)
	return nil
}

func runEdit(cmd *cobra.Command, args []string) error {
	text := strings.Join(args[1:], " ")

	task, err := apiClient.UpdateTodo(cmd.Context(), args[0], models.TaskPatch{Text: &text})
	if err != nil {
		return fmt.Errorf("update todo: %w", err)
	}

	fmt.Fprint(cmd.OutOrStdout(), "Updated: ")
	printTask(cmd.OutOrStdout(), *task)
	return nil
}

func runRemove(cmd *cobra.Command, args []string) error {
	task, err := apiClient.DeleteTodo(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("delete todo: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Deleted: %s (%s)\n", task.Text, task.ID)
	return nil
}

func printTask(w io.Writer, task models.Task) {
	mark := "[ ]"
	if task.Completed {
		mark = "[x]"
	}
	fmt.Fprintf(w, "%s %s  %s\n", mark, task.Text, task.ID)
	if verbose {
		fmt.Fprintf(w, "    created %s, updated %s\n",
			task.CreatedAt.Local().Format("2006-01-02 15:04"),
			task.UpdatedAt.Local().Format("2006-01-02 15:04"))
	}
}
