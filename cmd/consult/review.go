package main

import (
	"os"
	"path/filepath"

	"github.com/lexconsult/consult-client/internal/models"
	"github.com/spf13/cobra"
)

func (c *cli) reviewCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "review",
		Short: "Review contracts",
	}

	var save bool
	file := &cobra.Command{
		Use:   "file <path>",
		Short: "Upload a contract and review it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()
			parsed, err := c.app.Client.ParseFile(ctx, filepath.Base(args[0]), f)
			if err != nil {
				return err
			}
			if parsed.FileName == "" {
				parsed.FileName = filepath.Base(args[0])
			}
			conversationID, err := c.app.Client.ReviewConversationID(ctx)
			if err != nil {
				return err
			}
			result, err := c.app.Client.SubmitReview(ctx, models.ReviewRequest{
				Text:           parsed.Text,
				ConversationID: conversationID,
				FileName:       parsed.FileName,
			})
			if err != nil {
				return err
			}
			if save {
				result.ID, err = c.app.Client.SaveReviewRecord(ctx, models.SaveRecordRequest{
					ReviewContent:  result.Review,
					FileName:       parsed.FileName,
					ConversationID: conversationID,
				}, false)
				if err != nil {
					return err
				}
			}
			return printYAML(c.out, result)
		},
	}
	file.Flags().BoolVar(&save, "save", false, "Keep the review as a record")

	records := &cobra.Command{
		Use:   "records",
		Short: "List the saved reviews",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := c.app.Client.ReviewRecords(cmd.Context())
			if err != nil {
				return err
			}
			return printYAML(c.out, res)
		},
	}

	record := &cobra.Command{
		Use:   "record <record-id>",
		Short: "Show a saved review",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := c.app.Client.ReviewRecord(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printYAML(c.out, res)
		},
	}

	deleteRecord := &cobra.Command{
		Use:   "delete-record <record-id>",
		Short: "Delete a saved review",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.app.Client.DeleteReviewRecord(cmd.Context(), args[0])
		},
	}

	cmd.AddCommand(file, records, record, deleteRecord)
	return cmd
}
