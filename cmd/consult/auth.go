package main

import (
	"fmt"

	"github.com/lexconsult/consult-client/internal/models"
	"github.com/spf13/cobra"
)

func (c *cli) loginCmd() *cobra.Command {
	var (
		phone      string
		password   string
		userType   string
		rememberMe bool
	)
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in with phone number and password",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := c.app.Client.Login(cmd.Context(), models.LoginRequest{
				UserType:   models.UserTypeFromCode(userType),
				Phone:      phone,
				Password:   password,
				RememberMe: rememberMe,
			})
			if err != nil {
				return err
			}
			return printYAML(c.out, res.UserInfo)
		},
	}
	cmd.Flags().StringVarP(&phone, "phone", "p", "", "Phone number of the account")
	cmd.Flags().StringVar(&password, "password", "", "Password of the account")
	cmd.Flags().StringVar(&userType, "user-type", string(models.PersonalUser), "Account type (personal, enterprise)")
	cmd.Flags().BoolVar(&rememberMe, "remember", false, "Keep the login after the session ends")
	_ = cmd.MarkFlagRequired("phone")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

func (c *cli) logoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored login",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.app.Client.Logout(cmd.Context())
		},
	}
}

func (c *cli) whoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the logged in user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			loggedIn, err := c.app.Store.IsLoggedIn(cmd.Context())
			if err != nil {
				return err
			}
			if !loggedIn {
				fmt.Fprintln(c.out, "not logged in")
				return nil
			}
			info, err := c.app.Store.UserInfo(cmd.Context())
			if err != nil {
				return err
			}
			if info == nil {
				info = &models.UserInfo{}
			}
			if info.UserType == "" {
				info.UserType, err = c.app.Store.UserType(cmd.Context())
				if err != nil {
					return err
				}
			}
			return printYAML(c.out, info)
		},
	}
}
