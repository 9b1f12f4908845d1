package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"vccadmin/internal/credentials"
)

func newCredentialCommand(root *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "credential",
		Short: "管理系統金鑰圈中的密碼",
		Long:  "密碼保存在系統原生的憑證存放區（macOS Keychain、Windows Credential Manager、Linux Secret Service）。",
	}
	cmd.AddCommand(newCredentialSetCommand(root), newCredentialDeleteCommand(root))
	return cmd
}

// credentialTarget 返回金鑰圈服務名稱與帳號
func credentialTarget(root *rootOptions, prompter credentials.Prompter) (*credentials.KeyringStore, string, error) {
	cfg, _, err := loadSettings(root)
	if err != nil {
		return nil, "", err
	}

	username := root.username
	if username == "" {
		username = cfg.Credentials.Username
	}
	if username == "" && prompter != nil {
		if username, err = prompter.Prompt("Username", false); err != nil {
			return nil, "", err
		}
	}
	if username == "" {
		return nil, "", fmt.Errorf("%w: username is required (use --username)", credentials.ErrMissing)
	}
	return credentials.NewKeyringStore(cfg.Credentials.KeyringService), username, nil
}

func newCredentialSetCommand(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "set",
		Short: "保存密碼",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			prompter := credentials.NewTerminalPrompter()
			store, username, err := credentialTarget(root, prompter)
			if err != nil {
				return err
			}

			password := root.password
			if password == "" {
				if password, err = prompter.Prompt("Password", true); err != nil {
					return err
				}
			}
			if err := store.Set(username, password); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s credential stored for %s\n", okLabel("✓"), username)
			return nil
		},
	}
}

func newCredentialDeleteCommand(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete",
		Short: "移除密碼",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, username, err := credentialTarget(root, nil)
			if err != nil {
				return err
			}
			if err := store.Delete(username); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s credential removed for %s\n", okLabel("✓"), username)
			return nil
		},
	}
}
