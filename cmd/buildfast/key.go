package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/nhle/buildfast/internal/credential"
)

var keyCmd = &cobra.Command{
	Use:   "key",
	Short: "Manage the OpenRouter API key in the system keyring",
}

var keySetCmd = &cobra.Command{
	Use:   "set",
	Short: "Store the OpenRouter API key",
	RunE: func(cmd *cobra.Command, args []string) error {
		var key string
		err := huh.NewInput().
			Title("OpenRouter API key").
			EchoMode(huh.EchoModePassword).
			Value(&key).
			Validate(func(s string) error {
				if strings.TrimSpace(s) == "" {
					return errors.New("key is required")
				}
				return nil
			}).
			Run()
		if err != nil {
			return err
		}

		if err := credential.Set(credential.OpenRouterKey, strings.TrimSpace(key)); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "API key saved")
		return nil
	},
}

var keyDeleteCmd = &cobra.Command{
	Use:   "delete",
	Short: "Remove the stored OpenRouter API key",
	RunE: func(cmd *cobra.Command, args []string) error {
		err := credential.Delete(credential.OpenRouterKey)
		if errors.Is(err, credential.ErrNotFound) {
			fmt.Fprintln(cmd.OutOrStdout(), "no API key stored")
			return nil
		}
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "API key deleted")
		return nil
	},
}

func init() {
	keyCmd.AddCommand(keySetCmd, keyDeleteCmd)
	rootCmd.AddCommand(keyCmd)
}
