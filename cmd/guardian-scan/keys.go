package main

import (
	"time"

	"github.com/mikey/email-guardian/internal/core"
	"github.com/spf13/cobra"
)

var (
	keyLabel       string
	keyDescription string
)

var createKeyCmd = &cobra.Command{
	Use:   "create-key",
	Short: "Issue a new API key; the secret is shown only once",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return invoke(func(creds *core.CredentialService) error {
			secret, cred, err := creds.Issue(cmd.Context(), keyLabel, keyDescription)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), map[string]interface{}{
				"secret":        secret,
				"credential_id": cred.CredentialID,
				"label":         cred.Label,
				"created_at":    cred.CreatedAt.UTC().Format(time.RFC3339),
			}, true)
		})
	},
}

func init() {
	createKeyCmd.Flags().StringVar(&keyLabel, "label", "", "human readable label for the key")
	createKeyCmd.Flags().StringVar(&keyDescription, "description", "", "optional description")
	_ = createKeyCmd.MarkFlagRequired("label")
}
