package cli

import (
	"fmt"

	"resumeforensics/internal/common"
	"resumeforensics/internal/errors"
	"resumeforensics/internal/session"

	"github.com/spf13/cobra"
)

var exportCmd = &cobra.Command{
	Use:   "export [history-id]",
	Short: "Export a stored analysis as a PDF dossier or an ATS-optimised DOCX",
	Long: `Export a stored analysis.

  pdf   the full forensic report printed by headless Chrome
  docx  the ideal resume rewritten as a single-column ATS document

Exports require an unlocked report. A locked report is unlocked first with
--method (credit by default, payment when no credits are left).`,
	Args: cobra.ExactArgs(1),
	PreRunE: func(cmd *cobra.Command, args []string) error {
		kinds, err := common.ParseExportKinds(exportOpts.kinds)
		if err != nil {
			return err
		}
		if len(kinds) == 0 {
			return fmt.Errorf("at least one export format is required (--kind pdf,docx)")
		}
		exportOpts.parsed = kinds
		_, err = session.ParseUnlockMethod(exportOpts.method)
		return err
	},
	RunE: runExport,
}

var exportOpts struct {
	kinds  string
	method string
	outDir string
	parsed []string
}

func init() {
	exportCmd.Flags().StringVarP(&exportOpts.kinds, "kind", "k", "pdf", "Comma-separated exports: pdf, docx")
	exportCmd.Flags().StringVarP(&exportOpts.method, "method", "m", string(session.UnlockCredit), "Unlock method if the report is locked: credit or payment")
	exportCmd.Flags().StringVar(&exportOpts.outDir, "out-dir", "", "Directory for exported files (default from config)")
}

func runExport(cmd *cobra.Command, args []string) error {
	rt, err := openRuntime(cmd)
	if err != nil {
		return err
	}
	defer closeRuntime(rt)

	s, err := restoreSession(cmd, rt, args[0])
	if err != nil {
		return err
	}
	for _, kind := range exportOpts.parsed {
		if err := exportSession(cmd, rt, s, kind, exportOpts.outDir); err != nil {
			return err
		}
	}
	return nil
}

// exportSession writes one export of s. A locked report is unlocked with the
// export command's method first.
func exportSession(cmd *cobra.Command, rt *common.Runtime, s *session.Session, kind, outDir string) error {
	ctx := cmd.Context()
	result, err := s.ExportSource()
	if errors.HasCode(err, errors.ErrCodeReportLocked) {
		method := exportOpts.method
		if method == "" {
			method = string(session.UnlockCredit)
		}
		if err := unlockSession(cmd, s, method); err != nil {
			return err
		}
		result, err = s.ExportSource()
	}
	if err != nil {
		return err
	}

	art, err := rt.Exporter.Export(ctx, kind, result)
	if err != nil {
		return err
	}
	if outDir == "" {
		outDir = rt.Config.Export.OutputDir
	}
	path, err := common.NewOutputHandler(rt.Logger).WriteArtifact(art, outDir)
	if err != nil {
		return err
	}
	s.RecordExport(ctx, kind)
	fmt.Fprintf(cmd.ErrOrStderr(), "Exported %s\n", path)
	return nil
}
