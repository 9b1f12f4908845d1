package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"vccadmin/internal/services"
)

func newTroubleshootCommand(root *rootOptions) *cobra.Command {
	var audio bool

	cmd := &cobra.Command{
		Use:   "troubleshoot",
		Short: "協助網域疑難排解",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !audio {
				return cmd.Help()
			}

			sess, err := newSession(cmd, root)
			if err != nil {
				return err
			}
			svc := services.NewTroubleshootService(sess.client, sess.log)
			out := cmd.OutOrStdout()

			fmt.Fprintln(out, headerLabel("Configuring audio issue tracking"))
			steps, err := svc.SetupAudioTracking(cmd.Context())
			for _, s := range steps {
				printStep(out, s.Step, s.Err)
			}
			if err != nil {
				return err
			}
			if n := services.Failed(steps); n > 0 {
				return fmt.Errorf("%d of %d steps failed", n, len(steps))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&audio, "audio", false, "建立音訊問題追蹤所需的名單、欄位與連接器")
	return cmd
}
