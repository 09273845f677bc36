package main

import (
	"fmt"
	"strings"

	"github.com/lexconsult/consult-client/internal/models"
	"github.com/lexconsult/consult-client/internal/stream"
	"github.com/spf13/cobra"
)

func (c *cli) consultRequest(cmd *cobra.Command, args []string, conversationID string) (models.ChatConsultRequest, error) {
	userType, err := c.app.Store.UserType(cmd.Context())
	if err != nil {
		return models.ChatConsultRequest{}, err
	}
	return models.ChatConsultRequest{
		Question:       strings.Join(args, " "),
		ConversationID: conversationID,
		UserType:       userType.Code(),
	}, nil
}

func (c *cli) askCmd() *cobra.Command {
	var conversationID string
	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: "Ask a question and wait for the whole answer",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := c.consultRequest(cmd, args, conversationID)
			if err != nil {
				return err
			}
			res, err := c.app.Client.Consult(cmd.Context(), req)
			if err != nil {
				return err
			}
			fmt.Fprintln(c.out, res.Data)
			return nil
		},
	}
	cmd.Flags().StringVar(&conversationID, "conversation", "", "Conversation the question belongs to")
	return cmd
}

func (c *cli) chatCmd() *cobra.Command {
	var conversationID string
	cmd := &cobra.Command{
		Use:   "chat <question>",
		Short: "Ask a question and print the answer as it is produced",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := c.consultRequest(cmd, args, conversationID)
			if err != nil {
				return err
			}
			return c.app.Stream.Consume(cmd.Context(), req, stream.Handler{
				OnChunk: func(chunk string) {
					fmt.Fprint(c.out, chunk)
				},
				OnComplete: func() {
					fmt.Fprintln(c.out)
				},
			})
		},
	}
	cmd.Flags().StringVar(&conversationID, "conversation", "", "Conversation the question belongs to")
	return cmd
}

func (c *cli) historyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Manage past conversations",
	}

	var userID string
	list := &cobra.Command{
		Use:   "list",
		Short: "List the conversations of the user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if userID == "" {
				info, err := c.app.Store.UserInfo(cmd.Context())
				if err != nil {
					return err
				}
				if info != nil {
					userID = info.ID
				}
			}
			conversations, err := c.app.Client.Histories(cmd.Context(), userID)
			if err != nil {
				return err
			}
			return printYAML(c.out, conversations)
		},
	}
	list.Flags().StringVar(&userID, "user", "", "User id, defaults to the logged in user")

	show := &cobra.Command{
		Use:   "show <conversation-id>",
		Short: "Show the messages of a conversation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			messages, err := c.app.Client.History(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printYAML(c.out, messages)
		},
	}

	remove := &cobra.Command{
		Use:   "delete <conversation-id>",
		Short: "Delete a conversation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.app.Client.DeleteHistory(cmd.Context(), args[0])
		},
	}

	cmd.AddCommand(list, show, remove)
	return cmd
}
