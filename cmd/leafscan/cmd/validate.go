package cmd

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/MeKo-Tech/leafscan/internal/batch"
)

var errInvalidUploads = errors.New("one or more files failed validation")

func newValidateCmd(_ *app) *cobra.Command {
	return &cobra.Command{
		Use:   "validate <file...>",
		Short: "Check files against the upload rules",
		Long: `Check files against the upload rules (size limits, supported formats,
extension and content signature) without analyzing them. The report is JSON;
the command fails when any file is invalid.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			reports := batch.ValidateFiles(args)
			bts, err := json.MarshalIndent(reports, "", "  ")
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), string(bts))
			if !batch.AllValid(reports) {
				return errInvalidUploads
			}
			return nil
		},
	}
}
