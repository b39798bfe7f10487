package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/nhle/buildfast/internal/client"
	"github.com/nhle/buildfast/internal/keys"
	"github.com/nhle/buildfast/internal/ui/chat"
	"github.com/nhle/buildfast/internal/ui/projectform"
)

// newClient builds an API client from the client section of the config.
func newClient() (*client.Client, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	if cfg.Client.SessionToken == "" {
		return nil, client.ErrUnauthorized
	}
	return client.New(cfg.Client.BaseURL, cfg.Client.SessionToken), nil
}

var (
	chatSection int64
	chatTitle   string
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Open the chat and todos of a step section",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}
		title := chatTitle
		if title == "" {
			title = fmt.Sprintf("Section %d", chatSection)
		}

		m := chat.New(c, chatSection, title, keys.DefaultKeyMap(), 100, 30)
		_, err = tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(cmd.Context())).Run()
		return err
	},
}

var projectCmd = &cobra.Command{
	Use:   "project",
	Short: "Create, edit and inspect projects",
}

var projectNewCmd = &cobra.Command{
	Use:   "new",
	Short: "Create a project",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}
		v := &projectform.Values{}
		if err := v.Run("New project"); err != nil {
			return err
		}
		in, err := v.Input()
		if err != nil {
			return err
		}
		p, err := c.CreateProject(cmd.Context(), in)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "created project %d: %s\n", p.ID, p.Name)
		return nil
	},
}

var projectEditCmd = &cobra.Command{
	Use:   "edit <id>",
	Short: "Edit a project",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseIDArg(args[0])
		if err != nil {
			return err
		}
		c, err := newClient()
		if err != nil {
			return err
		}
		p, err := c.GetProject(cmd.Context(), id)
		if err != nil {
			return err
		}

		v := projectform.FromProject(*p)
		if err := v.Run(fmt.Sprintf("Edit %s", p.Name)); err != nil {
			return err
		}
		in, err := v.Input()
		if err != nil {
			return err
		}
		p, err = c.UpdateProject(cmd.Context(), id, in)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "updated project %d: %s\n", p.ID, p.Name)
		return nil
	},
}

var projectShowCmd = &cobra.Command{
	Use:   "show [id]",
	Short: "Print one project, or all of them, as JSON",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}

		var out any
		if len(args) == 0 {
			out, err = c.ListProjects(cmd.Context())
		} else {
			id, perr := parseIDArg(args[0])
			if perr != nil {
				return perr
			}
			out, err = c.GetProject(cmd.Context(), id)
		}
		if err != nil {
			return err
		}

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	},
}

func parseIDArg(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, errors.New("id must be a positive integer")
	}
	return id, nil
}

func init() {
	chatCmd.Flags().Int64Var(&chatSection, "section", 0, "step section id")
	chatCmd.Flags().StringVar(&chatTitle, "title", "", "title shown in the header")
	_ = chatCmd.MarkFlagRequired("section")

	projectCmd.AddCommand(projectNewCmd, projectEditCmd, projectShowCmd)
	rootCmd.AddCommand(chatCmd, projectCmd)
}
