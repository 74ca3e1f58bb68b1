package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	model "notegrid.app/notegrid/pkg/models"
)

var tasksCmd = &cobra.Command{
	Use:     "tasks",
	Aliases: []string{"task"},
	Short:   "List and change tasks",
}

var tasksListCmd = &cobra.Command{
	Use:   "list",
	Short: "List tasks in order",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		asJSON, _ := cmd.Flags().GetBool("json")
		return withSession(cmd.Context(), func(c *client) error {
			tasks := c.engine.Tasks()
			if asJSON {
				return printJSON(cmd.OutOrStdout(), tasks)
			}
			return printTasks(cmd.OutOrStdout(), tasks)
		})
	},
}

var tasksAddCmd = &cobra.Command{
	Use:   "add <title>",
	Short: "Add a task at the end of the list",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		upd, err := taskUpdateFromFlags(cmd.Flags())
		if err != nil {
			return err
		}
		upd.Title = model.Some(args[0])

		return withSession(cmd.Context(), func(c *client) error {
			task, ok := c.engine.AddTask(upd)
			if !ok {
				return errNoIdentity
			}
			fmt.Fprintln(cmd.OutOrStdout(), task.ID)
			return nil
		})
	},
}

var tasksUpdateCmd = &cobra.Command{
	Use:   "update <id>",
	Short: "Change the given fields of a task",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		upd, err := taskUpdateFromFlags(cmd.Flags())
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("title") {
			title, _ := cmd.Flags().GetString("title")
			upd.Title = model.Some(title)
		}
		if upd.Empty() {
			return fmt.Errorf("nothing to update")
		}
		return updateTask(cmd, args[0], upd)
	},
}

var tasksDoneCmd = &cobra.Command{
	Use:   "done <id>",
	Short: "Mark a task completed",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		undo, _ := cmd.Flags().GetBool("undo")
		return updateTask(cmd, args[0], model.TaskUpdate{Completed: model.Some(!undo)})
	},
}

var tasksDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a task",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSession(cmd.Context(), func(c *client) error {
			if !c.engine.DeleteTask(args[0]) {
				return fmt.Errorf("task %s not found", args[0])
			}
			return nil
		})
	},
}

var tasksMoveCmd = &cobra.Command{
	Use:   "move <id>",
	Short: "Move a task into a column at a position",
	Long: "Moves a task into the column where --group equals --value, at --index within\n" +
		"that column. An empty --value is the column of tasks without that field.",
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		groupName, _ := cmd.Flags().GetString("group")
		value, _ := cmd.Flags().GetString("value")
		value = noneToEmpty(value)
		index, _ := cmd.Flags().GetInt("index")

		field, err := model.ParseGroupField(groupName)
		if err != nil {
			return err
		}
		upd, err := groupUpdate(field, value)
		if err != nil {
			return err
		}

		return withSession(cmd.Context(), func(c *client) error {
			if !c.engine.MoveTask(args[0], upd, index, model.Group{Field: field, Value: value}) {
				return fmt.Errorf("task %s not found", args[0])
			}
			return nil
		})
	},
}

var tasksReorderCmd = &cobra.Command{
	Use:   "reorder <id>...",
	Short: "Put the given tasks first, in the given order",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSession(cmd.Context(), func(c *client) error {
			if !c.engine.ReorderTasks(args) {
				return errNoIdentity
			}
			return printTasks(cmd.OutOrStdout(), c.engine.Tasks())
		})
	},
}

func updateTask(cmd *cobra.Command, id string, upd model.TaskUpdate) error {
	return withSession(cmd.Context(), func(c *client) error {
		if _, ok := c.engine.UpdateTask(id, upd); !ok {
			return fmt.Errorf("task %s not found", id)
		}
		return nil
	})
}

// taskUpdateFromFlags collects the field flags that were given. "none"
// clears quadrant or kanban.
func taskUpdateFromFlags(flags *pflag.FlagSet) (model.TaskUpdate, error) {
	var upd model.TaskUpdate
	if flags.Changed("note") {
		note, _ := flags.GetString("note")
		upd.Note = model.Some(note)
	}
	if flags.Changed("tag") {
		tags, _ := flags.GetStringSlice("tag")
		upd.Tags = model.Some(tags)
	}
	if flags.Changed("color") {
		color, _ := flags.GetString("color")
		if !model.ValidColor(color) {
			return upd, fmt.Errorf("color must be one of %s", strings.Join(model.Palette, ", "))
		}
		upd.Color = model.Some(color)
	}
	if flags.Changed("quadrant") {
		q, _ := flags.GetString("quadrant")
		u, err := groupUpdate(model.GroupQuadrant, noneToEmpty(q))
		if err != nil {
			return upd, err
		}
		upd.Quadrant = u.Quadrant
	}
	if flags.Changed("kanban") {
		k, _ := flags.GetString("kanban")
		u, err := groupUpdate(model.GroupKanban, noneToEmpty(k))
		if err != nil {
			return upd, err
		}
		upd.Kanban = u.Kanban
	}
	return upd, nil
}

// groupUpdate is the field change that puts a task into the column value.
func groupUpdate(field model.GroupField, value string) (model.TaskUpdate, error) {
	var upd model.TaskUpdate
	switch field {
	case model.GroupQuadrant:
		q := model.Quadrant(value)
		if !q.Valid() {
			return upd, fmt.Errorf("unknown quadrant %q", value)
		}
		if q == model.QuadrantNone {
			upd.Quadrant = model.Null[model.Quadrant]()
		} else {
			upd.Quadrant = model.Some(q)
		}
	case model.GroupKanban:
		k := model.KanbanStatus(value)
		if !k.Valid() {
			return upd, fmt.Errorf("unknown kanban status %q", value)
		}
		if k == model.KanbanNone {
			upd.Kanban = model.Null[model.KanbanStatus]()
		} else {
			upd.Kanban = model.Some(k)
		}
	case model.GroupColor:
		if !model.ValidColor(value) {
			return upd, fmt.Errorf("unknown color %q", value)
		}
		upd.Color = model.Some(value)
	}
	return upd, nil
}

func noneToEmpty(s string) string {
	if strings.EqualFold(s, "none") {
		return ""
	}
	return s
}

func addTaskFieldFlags(cmd *cobra.Command) {
	cmd.Flags().String("note", "", "note text")
	cmd.Flags().StringSlice("tag", nil, "tag (repeatable)")
	cmd.Flags().String("color", "", "palette color, e.g. #3b82f6")
	cmd.Flags().String("quadrant", "", "do, decide, delegate, delete or none")
	cmd.Flags().String("kanban", "", "backlog, todo, in-progress, done or none")
}

func init() {
	tasksListCmd.Flags().Bool("json", false, "print JSON")
	addTaskFieldFlags(tasksAddCmd)
	addTaskFieldFlags(tasksUpdateCmd)
	tasksUpdateCmd.Flags().String("title", "", "new title")
	tasksDoneCmd.Flags().Bool("undo", false, "mark not completed")
	tasksMoveCmd.Flags().String("group", "q", "column field: q, kanban or color")
	tasksMoveCmd.Flags().String("value", "", "column value")
	tasksMoveCmd.Flags().Int("index", 0, "position within the column")

	tasksCmd.AddCommand(
		tasksListCmd,
		tasksAddCmd,
		tasksUpdateCmd,
		tasksDoneCmd,
		tasksDeleteCmd,
		tasksMoveCmd,
		tasksReorderCmd,
	)
	rootCmd.AddCommand(tasksCmd)
}
