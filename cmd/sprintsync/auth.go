package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/nhle/sprintsync/internal/gateway"
	"github.com/nhle/sprintsync/internal/session"
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Sign in and remember the session",
	Args:  cobra.NoArgs,
	RunE:  runLogin,
}

var registerCmd = &cobra.Command{
	Use:   "register",
	Short: "Create an account and sign in",
	Args:  cobra.NoArgs,
	RunE:  runRegister,
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Forget the stored session and offline tasks",
	Args:  cobra.NoArgs,
	RunE:  runLogout,
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the signed-in user",
	Args:  cobra.NoArgs,
	RunE:  runWhoami,
}

var (
	authUsername string
	authPassword string
	authEmail    string
)

func init() {
	rootCmd.AddCommand(loginCmd, registerCmd, logoutCmd, whoamiCmd)

	for _, c := range []*cobra.Command{loginCmd, registerCmd} {
		c.Flags().StringVarP(&authUsername, "username", "u", "", "Username")
		c.Flags().StringVarP(&authPassword, "password", "p", "", "Password (prompted when omitted)")
	}
	registerCmd.Flags().StringVarP(&authEmail, "email", "e", "", "Email address")
}

func runLogin(cmd *cobra.Command, args []string) error {
	rt, err := openRuntime()
	if err != nil {
		return err
	}
	defer rt.Close()

	in := bufio.NewReader(cmd.InOrStdin())
	username, err := promptIfEmpty(cmd, in, authUsername, "Username: ")
	if err != nil {
		return err
	}
	password, err := readSecret(cmd, in, authPassword, "Password: ")
	if err != nil {
		return err
	}

	ctx, cancel := commandContext(cmd)
	defer cancel()
	sess, err := rt.Login(ctx, username, password)
	if err != nil {
		return errors.New(gateway.UserMessage(err))
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Signed in as %s\n", sess.User.Username)
	return nil
}

func runRegister(cmd *cobra.Command, args []string) error {
	rt, err := openRuntime()
	if err != nil {
		return err
	}
	defer rt.Close()

	in := bufio.NewReader(cmd.InOrStdin())
	username, err := promptIfEmpty(cmd, in, authUsername, "Username: ")
	if err != nil {
		return err
	}
	email, err := promptIfEmpty(cmd, in, authEmail, "Email: ")
	if err != nil {
		return err
	}
	password, err := readSecret(cmd, in, authPassword, "Password: ")
	if err != nil {
		return err
	}
	confirm := password
	if authPassword == "" {
		confirm, err = readSecret(cmd, in, "", "Confirm password: ")
		if err != nil {
			return err
		}
	}

	ctx, cancel := commandContext(cmd)
	defer cancel()
	sess, err := rt.Register(ctx, session.Registration{
		Username:        username,
		Email:           email,
		Password:        password,
		ConfirmPassword: confirm,
	})
	if err != nil {
		return errors.New(gateway.UserMessage(err))
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Account created. Signed in as %s\n", sess.User.Username)
	return nil
}

func runLogout(cmd *cobra.Command, args []string) error {
	rt, err := openRuntime()
	if err != nil {
		return err
	}
	defer rt.Close()

	ctx, cancel := commandContext(cmd)
	defer cancel()
	if err := rt.Logout(ctx); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), "Signed out")
	return nil
}

func runWhoami(cmd *cobra.Command, args []string) error {
	rt, err := openRuntime()
	if err != nil {
		return err
	}
	defer rt.Close()

	sess, ok := rt.Sessions.Current()
	if !ok {
		return errNotSignedIn
	}

	u := sess.User
	rows := [][]string{
		{"username", u.Username},
		{"id", u.ID},
		{"email", u.Email},
		{"admin", fmt.Sprintf("%t", u.IsAdmin)},
		{"api", rt.Gateway.BaseURL()},
	}
	fmt.Fprint(cmd.OutOrStdout(), formatTable([]string{"FIELD", "VALUE"}, rows))
	return nil
}

func promptIfEmpty(cmd *cobra.Command, in *bufio.Reader, value, prompt string) (string, error) {
	if value != "" {
		return value, nil
	}
	fmt.Fprint(cmd.ErrOrStderr(), prompt)
	line, err := in.ReadString('\n')
	if err != nil && err != io.EOF {
		return "", fmt.Errorf("reading input: %w", err)
	}
	return strings.TrimSpace(line), nil
}

// readSecret prompts without echo when stdin is a terminal.
func readSecret(cmd *cobra.Command, in *bufio.Reader, value, prompt string) (string, error) {
	if value != "" {
		return value, nil
	}
	if f, ok := cmd.InOrStdin().(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		fmt.Fprint(cmd.ErrOrStderr(), prompt)
		b, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(cmd.ErrOrStderr())
		if err != nil {
			return "", fmt.Errorf("reading password: %w", err)
		}
		return string(b), nil
	}
	return promptIfEmpty(cmd, in, "", prompt)
}
