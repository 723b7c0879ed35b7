package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nhle/sprintsync/internal/gateway"
)

var suggestCmd = &cobra.Command{
	Use:   "suggest <title>",
	Short: "Ask the server to draft a description for a task title",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runSuggest,
}

func init() {
	rootCmd.AddCommand(suggestCmd)
}

func runSuggest(cmd *cobra.Command, args []string) error {
	rt, err := openRuntime()
	if err != nil {
		return err
	}
	defer rt.Close()

	if !rt.Sessions.Active() {
		return errNotSignedIn
	}

	ctx, cancel := commandContext(cmd)
	defer cancel()

	text, err := rt.Gateway.Suggest(ctx, strings.Join(args, " "))
	if err != nil {
		return errors.New(gateway.UserMessage(err))
	}
	fmt.Fprintln(cmd.OutOrStdout(), text)
	return nil
}
