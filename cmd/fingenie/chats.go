package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/fingenie/assistant/internal/session"
	"github.com/fingenie/assistant/internal/usecase"
)

var (
	chatsUsername string
	chatsAddress  string
	chatsOut      string
)

// chatsCmd groups chat archive commands
var chatsCmd = &cobra.Command{
	Use:   "chats",
	Short: "Export or import a user's chats as JSON",
}

var chatsExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write all chats of a user to a JSON archive",
	RunE:  runChatsExport,
}

var chatsImportCmd = &cobra.Command{
	Use:   "import [file]",
	Short: "Restore chats from a JSON archive",
	Args:  cobra.ExactArgs(1),
	RunE:  runChatsImport,
}

func init() {
	pf := chatsCmd.PersistentFlags()
	pf.StringVarP(&chatsUsername, "username", "u", "", "Username")
	pf.StringVarP(&chatsAddress, "address", "a", "", "Wallet address")
	_ = chatsCmd.MarkPersistentFlagRequired("username")
	_ = chatsCmd.MarkPersistentFlagRequired("address")

	chatsExportCmd.Flags().StringVarP(&chatsOut, "out", "o", "", "Output file (default stdout)")

	chatsCmd.AddCommand(chatsExportCmd, chatsImportCmd)
}

// signIn logs the user in and returns a context carrying the session.
func signIn(ctx context.Context, auth usecase.AuthUseCase, username, address string) (context.Context, error) {
	sess, err := auth.Login(ctx, username, address)
	if err != nil {
		return ctx, fmt.Errorf("sign in %s: %w", username, err)
	}
	return session.WithSession(ctx, sess), nil
}

func runChatsExport(cmd *cobra.Command, args []string) error {
	ctx := commandContext(cmd)

	a, err := loadApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, err = signIn(ctx, a.auth, chatsUsername, chatsAddress)
	if err != nil {
		return err
	}

	data, err := a.chats.Export(ctx)
	if err != nil {
		return err
	}

	if chatsOut == "" {
		_, err = cmd.OutOrStdout().Write(append(data, '\n'))
		return err
	}
	if err := os.WriteFile(chatsOut, data, 0o644); err != nil {
		return fmt.Errorf("write archive: %w", err)
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "Chats exported to %s\n", chatsOut)
	return nil
}

func runChatsImport(cmd *cobra.Command, args []string) error {
	ctx := commandContext(cmd)

	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("read archive: %w", err)
	}

	a, err := loadApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, err = signIn(ctx, a.auth, chatsUsername, chatsAddress)
	if err != nil {
		return err
	}

	n, err := a.chats.Import(ctx, data)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Imported %d chat(s)\n", n)
	return nil
}
