package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"vccadmin/internal/models"
)

var (
	okLabel     = color.New(color.FgGreen, color.Bold).SprintFunc()
	warnLabel   = color.New(color.FgYellow, color.Bold).SprintFunc()
	errorLabel  = color.New(color.FgRed, color.Bold).SprintFunc()
	headerLabel = color.New(color.FgBlue, color.Bold).SprintFunc()
	dim         = color.New(color.FgHiBlack).SprintFunc()
)

// printOutcome 輸出單一腳本的結果
func printOutcome(w io.Writer, o *models.ScriptOutcome) {
	if o.Succeeded() {
		var details []string
		if n := len(o.Renamed); n > 0 {
			details = append(details, fmt.Sprintf("%d modules renamed", n))
		}
		if o.BackupWritten {
			details = append(details, "backup saved")
		}
		line := fmt.Sprintf("%s %s", okLabel("✓"), o.Name)
		if len(details) > 0 {
			line += " " + dim("("+strings.Join(details, ", ")+")")
		}
		fmt.Fprintln(w, line)
		for _, r := range o.Renamed {
			fmt.Fprintf(w, "    %s %q -> %q\n", dim(r.ModuleType), r.From, r.To)
		}
		return
	}

	if !o.State.IsTerminal() {
		fmt.Fprintf(w, "%s %s %s\n", warnLabel("!"), o.Name, dim("interrupted while "+o.State.String()))
		return
	}

	fmt.Fprintf(w, "%s %s %s: %s\n", errorLabel("✗"), o.Name, warnLabel(o.State.String()), o.ErrorMessage())
	if o.DumpWritten {
		fmt.Fprintf(w, "    %s\n", dim("submitted XML saved for inspection"))
	}
}

// printSummary 輸出批次統計
func printSummary(w io.Writer, s models.BatchSummary) {
	fmt.Fprintln(w)
	fmt.Fprintf(w, "%s %s confirmed, %s failed, %s skipped (of %d)\n",
		headerLabel("Summary:"),
		okLabel(s.Confirmed),
		errorLabel(s.Failed),
		dim(s.Skipped),
		s.Total+s.Skipped,
	)
}

// printStep 輸出一個設定步驟
func printStep(w io.Writer, step string, err error) {
	if err != nil {
		fmt.Fprintf(w, "%s %s: %v\n", errorLabel("✗"), step, err)
		return
	}
	fmt.Fprintf(w, "%s %s\n", okLabel("✓"), step)
}
