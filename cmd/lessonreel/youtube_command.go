package main

import (
	"bufio"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"lessonreel/internal/services/youtube"
)

func newYouTubeCommand(ctx *commandContext) *cobra.Command {
	ytCmd := &cobra.Command{
		Use:   "youtube",
		Short: "YouTube upload utilities",
	}
	ytCmd.AddCommand(newYouTubeAuthCommand(ctx))
	return ytCmd
}

func newYouTubeAuthCommand(ctx *commandContext) *cobra.Command {
	var code string

	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Authorize uploads and store the refresh token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			oauthCfg, err := youtube.OAuthConfig(cfg.YouTube.ClientSecretsFile)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if strings.TrimSpace(code) == "" {
				fmt.Fprintln(out, "Open this URL in a browser, approve access, then paste the authorization code:")
				fmt.Fprintln(out, youtube.AuthURL(oauthCfg, uuid.NewString()))
				fmt.Fprint(out, "Code: ")
				line, readErr := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				if readErr != nil && strings.TrimSpace(line) == "" {
					return errors.New("no authorization code entered")
				}
				code = line
			}
			if strings.TrimSpace(code) == "" {
				return errors.New("no authorization code entered")
			}

			tok, err := youtube.Exchange(cmd.Context(), oauthCfg, code)
			if err != nil {
				return err
			}
			if err := youtube.SaveToken(cfg.YouTube.TokenFile, tok); err != nil {
				return fmt.Errorf("save token: %w", err)
			}
			fmt.Fprintf(out, "Saved upload token to %s\n", cfg.YouTube.TokenFile)
			return nil
		},
	}
	cmd.Flags().StringVar(&code, "code", "", "Authorization code (prompted when omitted)")
	return cmd
}
