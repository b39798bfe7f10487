package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nhle/buildfast/internal/model"
	"github.com/nhle/buildfast/internal/session"
	"github.com/nhle/buildfast/internal/store"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending database migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		st, err := store.Open(cfg.Database.Driver, cfg.Database.DSN)
		if err != nil {
			return err
		}
		defer st.Close()

		v, err := st.SchemaVersion(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "schema at version %d\n", v)
		return nil
	},
}

var userCmd = &cobra.Command{
	Use:   "user",
	Short: "Manage users",
}

var (
	userEmail string
	userName  string
)

var userAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Create a user",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		st, err := store.Open(cfg.Database.Driver, cfg.Database.DSN)
		if err != nil {
			return err
		}
		defer st.Close()

		u, err := st.CreateUser(cmd.Context(), model.User{Email: userEmail, Name: userName})
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "created user %s (%s)\n", u.Email, u.ID)
		return nil
	},
}

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Manage session tokens",
}

var (
	tokenEmail string
	tokenSave  bool
)

var sessionTokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Mint a session token for a user",
	Long: `Mint a session token signed with server.session_secret. Send it as the
buildfast_session cookie or as "Authorization: Bearer <token>".`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		sessions, err := session.NewProvider(cfg.Server.SessionSecret, false)
		if err != nil {
			return fmt.Errorf("server.session_secret: %w", err)
		}
		st, err := store.Open(cfg.Database.Driver, cfg.Database.DSN)
		if err != nil {
			return err
		}
		defer st.Close()

		u, err := st.GetUserByEmail(cmd.Context(), tokenEmail)
		if err != nil {
			return err
		}
		token, err := sessions.Mint(u.ID)
		if err != nil {
			return err
		}

		if tokenSave {
			cfg.Client.SessionToken = token
			if err := model.SaveConfig(configPath, cfg); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "saved session token for %s to %s\n", u.Email, configPath)
			return nil
		}
		fmt.Fprintln(cmd.OutOrStdout(), token)
		return nil
	},
}

func init() {
	userAddCmd.Flags().StringVar(&userEmail, "email", "", "email address")
	userAddCmd.Flags().StringVar(&userName, "name", "", "display name")
	_ = userAddCmd.MarkFlagRequired("email")
	userCmd.AddCommand(userAddCmd)

	sessionTokenCmd.Flags().StringVar(&tokenEmail, "email", "", "email of the user")
	sessionTokenCmd.Flags().BoolVar(&tokenSave, "save", false, "store the token as client.session_token")
	_ = sessionTokenCmd.MarkFlagRequired("email")
	sessionCmd.AddCommand(sessionTokenCmd)

	rootCmd.AddCommand(migrateCmd, userCmd, sessionCmd)
}

// lookupUserID resolves an email to a user id.
func lookupUserID(cmd *cobra.Command, st store.Store, email string) (string, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return "", nil
	}
	u, err := st.GetUserByEmail(cmd.Context(), email)
	if err != nil {
		return "", err
	}
	return u.ID, nil
}
