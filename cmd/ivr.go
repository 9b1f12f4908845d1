package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"vccadmin/internal/script"
	"vccadmin/internal/services"
)

type ivrOptions struct {
	name           string
	clean          bool
	backup         bool
	addVariable    string
	allowDuplicate bool
}

// mutation 依旗標選擇修改
func (o *ivrOptions) mutation() (services.Mutation, error) {
	if o.clean {
		return services.DedupMutation{}, nil
	}
	spec, err := script.ParseVariableSpec(o.addVariable)
	if err != nil {
		return nil, err
	}
	return services.AddVariableMutation{
		Spec:    spec,
		Options: script.AddOptions{AllowDuplicate: o.allowDuplicate},
	}, nil
}

func newIVRCommand(root *rootOptions) *cobra.Command {
	opts := &ivrOptions{}

	cmd := &cobra.Command{
		Use:   "ivr",
		Short: "IVR 腳本設定操作",
		Long: `清理模組名稱或新增使用者變數。

未指定 --name 時處理網域內所有非平台擁有的腳本。`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := opts.mutation()
			if err != nil {
				return err
			}

			sess, err := newSession(cmd, root)
			if err != nil {
				return err
			}
			defer sess.logMetrics()
			svc := services.NewIVRService(sess.client, sess.client, sess.sidecar(), sess.log)
			update := services.UpdateOptions{Backup: opts.backup}
			out := cmd.OutOrStdout()

			if opts.name != "" {
				fmt.Fprintf(out, "%s %s\n", headerLabel(actionLabel(m)), opts.name)
				outcome := svc.Update(cmd.Context(), opts.name, m, update)
				printOutcome(out, outcome)
				if !outcome.Succeeded() {
					return fmt.Errorf("script %q was not updated", opts.name)
				}
				return nil
			}

			fmt.Fprintf(out, "%s all scripts\n", headerLabel(actionLabel(m)))
			outcomes, summary, err := svc.UpdateAll(cmd.Context(), m, update)
			for _, o := range outcomes {
				printOutcome(out, o)
			}
			printSummary(out, summary)
			if err != nil {
				return err
			}
			if summary.Failed > 0 {
				return fmt.Errorf("%d of %d scripts failed", summary.Failed, summary.Total)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&opts.name, "name", "n", "", "目標腳本名稱，省略時處理全部")
	cmd.Flags().BoolVarP(&opts.clean, "clean", "c", false, "移除模組名稱中的 \"Copy of \" 並為重複名稱編號")
	cmd.Flags().BoolVarP(&opts.backup, "backup", "b", false, "修改前保存原始腳本")
	cmd.Flags().StringVarP(&opts.addVariable, "addvariable", "a", "", "新增使用者變數，格式：\"type:name\"")
	cmd.Flags().BoolVar(&opts.allowDuplicate, "allow-duplicate", false, "允許新增已存在的變數名稱")
	cmd.MarkFlagsMutuallyExclusive("clean", "addvariable")
	cmd.MarkFlagsOneRequired("clean", "addvariable")

	cmd.AddCommand(newIVRRestoreCommand(root))
	return cmd
}

func actionLabel(m services.Mutation) string {
	switch m.Name() {
	case services.MutationClean:
		return "Cleaning"
	case services.MutationAddVariable:
		return "Adding variable to"
	default:
		return "Updating"
	}
}

func newIVRRestoreCommand(root *rootOptions) *cobra.Command {
	var name string

	cmd := &cobra.Command{
		Use:   "restore",
		Short: "將備份的腳本送回平台",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := newSession(cmd, root)
			if err != nil {
				return err
			}
			defer sess.logMetrics()
			svc := services.NewIVRService(sess.client, nil, sess.sidecar(), sess.log)

			fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", headerLabel("Restoring"), name)
			outcome := svc.Restore(cmd.Context(), name)
			printOutcome(cmd.OutOrStdout(), outcome)
			if !outcome.Succeeded() {
				return fmt.Errorf("script %q was not restored", name)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&name, "name", "n", "", "要還原的腳本名稱 (必填)")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}
