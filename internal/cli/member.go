package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lherron/wrkboard/internal/cli/appctx"
	"github.com/lherron/wrkboard/internal/domain"
)

var memberCmd = &cobra.Command{
	Use:   "member",
	Short: "Manage who belongs to a board",
}

var memberAddCmd = &cobra.Command{
	Use:   "add <board> <user>",
	Short: "Add a user to a board",
	Args:  cobra.ExactArgs(2),
	RunE:  appctx.WithApp(appctx.WithUser(), runMemberAdd),
}

var memberRmCmd = &cobra.Command{
	Use:   "rm <board> <user>",
	Short: "Remove a user from a board",
	Args:  cobra.ExactArgs(2),
	RunE:  appctx.WithApp(appctx.WithUser(), runMemberRm),
}

var memberLsCmd = &cobra.Command{
	Use:   "ls <board>",
	Short: "List a board's members",
	Args:  cobra.ExactArgs(1),
	RunE:  appctx.WithApp(appctx.DefaultOptions(), runMemberLs),
}

var memberRole string

func init() {
	rootCmd.AddCommand(memberCmd)
	memberCmd.AddCommand(memberAddCmd, memberRmCmd, memberLsCmd)

	memberAddCmd.Flags().StringVar(&memberRole, "role", "member", "Role: member or owner")
}

func runMemberAdd(app *appctx.App, cmd *cobra.Command, args []string) error {
	boardUUID, err := resolveBoard(app, args[0])
	if err != nil {
		return err
	}
	member, err := app.Store.Members.Add(app.User, boardUUID, args[1], domain.MemberRole(memberRole))
	if err != nil {
		return err
	}
	return renderMembers(app, cmd, member, []domain.Member{*member})
}

func runMemberRm(app *appctx.App, cmd *cobra.Command, args []string) error {
	boardUUID, err := resolveBoard(app, args[0])
	if err != nil {
		return err
	}
	if err := app.Store.Members.Remove(app.User, boardUUID, args[1]); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Removed %s from %s\n", args[1], args[0])
	return nil
}

func runMemberLs(app *appctx.App, cmd *cobra.Command, args []string) error {
	boardUUID, err := resolveBoard(app, args[0])
	if err != nil {
		return err
	}
	members, err := app.Store.Members.List(boardUUID)
	if err != nil {
		return err
	}
	if members == nil {
		members = []domain.Member{}
	}
	return renderMembers(app, cmd, members, members)
}

func renderMembers(app *appctx.App, cmd *cobra.Command, data any, members []domain.Member) error {
	rows := make([][]string, 0, len(members))
	for _, m := range members {
		rows = append(rows, []string{m.ID, m.UserID, string(m.Role), m.CreatedAt.Format("2006-01-02")})
	}
	return renderer(app, cmd).Render(data, []string{"ID", "USER", "ROLE", "SINCE"}, rows)
}
