package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"vccadmin/internal/services"
)

func newWhisperCommand(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "whisper",
		Short: "為每個技能指派 \"Whisper {技能}\" 提示音",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := newSession(cmd, root)
			if err != nil {
				return err
			}
			svc := services.NewSkillService(sess.client, sess.log)
			out := cmd.OutOrStdout()

			results, err := svc.AssignWhisperPrompts(cmd.Context())
			failed := 0
			for _, r := range results {
				printStep(out, fmt.Sprintf("%s -> %s", r.Skill.Name, r.PromptName), r.Err)
				if r.Err != nil {
					failed++
				}
			}
			if err != nil {
				return err
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d skills have no whisper prompt", failed, len(results))
			}
			return nil
		},
	}
}
