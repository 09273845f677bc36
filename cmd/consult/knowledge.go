package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
)

func parseRegulationID(arg string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid regulation id %q", arg)
	}
	return id, nil
}

func (c *cli) knowledgeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "knowledge",
		Short: "Search the legal knowledge base",
	}
	query := &cobra.Command{
		Use:   "query <question>",
		Short: "Find the regulations relevant to a question",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := c.app.Client.QueryKnowledge(cmd.Context(), strings.Join(args, " "))
			if err != nil {
				return err
			}
			return printYAML(c.out, res)
		},
	}
	topics := &cobra.Command{
		Use:   "topics",
		Short: "List the hot topics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := c.app.Client.HotTopics(cmd.Context())
			if err != nil {
				return err
			}
			return printYAML(c.out, res)
		},
	}
	cases := &cobra.Command{
		Use:   "cases",
		Short: "List the common cases",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := c.app.Client.CommonCases(cmd.Context())
			if err != nil {
				return err
			}
			return printYAML(c.out, res)
		},
	}
	cmd.AddCommand(query, topics, cases)
	return cmd
}

func (c *cli) favoritesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "favorites",
		Short: "Manage favorite regulations",
	}
	add := &cobra.Command{
		Use:   "add <regulation-id>",
		Short: "Add a regulation to the favorites",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseRegulationID(args[0])
			if err != nil {
				return err
			}
			ok, err := c.app.Client.AddFavorite(cmd.Context(), id)
			if err != nil {
				return err
			}
			return printYAML(c.out, ok)
		},
	}
	remove := &cobra.Command{
		Use:   "remove <regulation-id>",
		Short: "Remove a regulation from the favorites",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseRegulationID(args[0])
			if err != nil {
				return err
			}
			ok, err := c.app.Client.RemoveFavorite(cmd.Context(), id)
			if err != nil {
				return err
			}
			return printYAML(c.out, ok)
		},
	}
	list := &cobra.Command{
		Use:   "list",
		Short: "List the favorite regulations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := c.app.Client.Favorites(cmd.Context())
			if err != nil {
				return err
			}
			return printYAML(c.out, res)
		},
	}
	count := &cobra.Command{
		Use:   "count",
		Short: "Count the favorite regulations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := c.app.Client.FavoriteCount(cmd.Context())
			if err != nil {
				return err
			}
			return printYAML(c.out, res)
		},
	}
	check := &cobra.Command{
		Use:   "check <regulation-id>",
		Short: "Check whether a regulation is a favorite",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseRegulationID(args[0])
			if err != nil {
				return err
			}
			ok, err := c.app.Client.IsFavorite(cmd.Context(), id)
			if err != nil {
				return err
			}
			return printYAML(c.out, ok)
		},
	}
	cmd.AddCommand(add, remove, list, count, check)
	return cmd
}

func (c *cli) lawsCmd() *cobra.Command {
	var page, size int
	cmd := &cobra.Command{
		Use:   "laws",
		Short: "Browse laws by category",
	}
	cmd.PersistentFlags().IntVar(&page, "page", 1, "Page to show, starting at 1")
	cmd.PersistentFlags().IntVar(&size, "size", 10, "Number of categories per page")
	national := &cobra.Command{
		Use:   "national",
		Short: "List the national laws",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := c.app.Client.NationalLaws(cmd.Context(), page, size)
			if err != nil {
				return err
			}
			return printYAML(c.out, res)
		},
	}
	local := &cobra.Command{
		Use:   "local",
		Short: "List the local laws",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := c.app.Client.LocalLaws(cmd.Context(), page, size)
			if err != nil {
				return err
			}
			return printYAML(c.out, res)
		},
	}
	cmd.AddCommand(national, local)
	return cmd
}
