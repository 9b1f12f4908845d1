package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"vccadmin/internal/services"
)

func newCampaignCommand(root *rootOptions) *cobra.Command {
	var (
		name      string
		parameter string
	)

	cmd := &cobra.Command{
		Use:   "campaign",
		Short: "活動設定操作",
		Long:  "列出活動；指定 --parameter 時為每個 inbound 活動的所有排程加入腳本參數。",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var param services.ScriptParameter
			if parameter != "" {
				p, err := services.ParseScriptParameter(parameter)
				if err != nil {
					return err
				}
				param = p
			}

			sess, err := newSession(cmd, root)
			if err != nil {
				return err
			}
			svc := services.NewCampaignService(sess.client, sess.log)
			out := cmd.OutOrStdout()

			campaigns, err := svc.List(cmd.Context(), name)
			if err != nil {
				return err
			}
			if len(campaigns) == 0 {
				fmt.Fprintln(out, warnLabel("No campaigns found"))
				return nil
			}

			failed := 0
			for _, c := range campaigns {
				if parameter == "" {
					fmt.Fprintf(out, "%s %s\n", c.Name, dim(c.Type))
					continue
				}
				err := svc.AddParameter(cmd.Context(), c, param)
				printStep(out, fmt.Sprintf("add %s to %s", param.Name, c.Name), err)
				if err != nil {
					failed++
				}
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d campaigns were not updated", failed, len(campaigns))
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&name, "name", "n", "", "目標活動名稱")
	cmd.Flags().StringVarP(&parameter, "parameter", "p", "", "加入活動的腳本參數，格式：\"name:value\"")
	return cmd
}
