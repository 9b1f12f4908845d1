package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

// DefaultConfigPath 預設設定檔，不存在時只使用預設值與環境變數
const DefaultConfigPath = "vccadmin.toml"

// rootOptions 所有子命令共用的全域旗標
type rootOptions struct {
	configPath string
	verbose    bool
	debug      bool
	username   string
	password   string
}

// NewRootCommand 建立完整的命令樹
func NewRootCommand() *cobra.Command {
	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:           "vccadmin",
		Short:         "CLI 工具：自動化 VCC 網域設定",
		Long:          "這是一個透過管理 API 自動化 VCC 網域設定（IVR 腳本、活動、技能與疑難排解）的命令行工具。",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&opts.configPath, "config", DefaultConfigPath, "設定檔路徑 (TOML)")
	flags.BoolVar(&opts.verbose, "verbose", false, "輸出詳細訊息")
	flags.BoolVar(&opts.debug, "debug", false, "輸出除錯訊息")
	flags.StringVar(&opts.username, "username", "", "管理帳號")
	flags.StringVar(&opts.password, "password", "", "管理密碼")

	rootCmd.AddCommand(
		newIVRCommand(opts),
		newCampaignCommand(opts),
		newWhisperCommand(opts),
		newTroubleshootCommand(opts),
		newCredentialCommand(opts),
	)
	return rootCmd
}

// Execute 執行命令，收到 SIGINT/SIGTERM 時取消進行中的操作
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := NewRootCommand().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, errorLabel("Error:"), err)
		stop()
		os.Exit(1)
	}
}
