// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/taibuivan/popgate/internal/managerapi"
	"github.com/taibuivan/popgate/internal/platform/sec"
	"github.com/taibuivan/popgate/internal/session"
)

func newLoginCommand(app *app) *cobra.Command {
	var email, password string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and store the session",
		RunE: func(cmd *cobra.Command, args []string) error {
			if password == "" {
				password = os.Getenv("MANAGER_PASSWORD")
			}
			created, err := app.client.Login(cmd.Context(), email, password)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), created.User)
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "Manager email")
	cmd.Flags().StringVar(&password, "password", "", "Password (defaults to $MANAGER_PASSWORD)")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func newSignupCommand(app *app) *cobra.Command {
	var input managerapi.SignupInput
	var role string

	cmd := &cobra.Command{
		Use:   "signup",
		Short: "Register a new owner or manager account",
		RunE: func(cmd *cobra.Command, args []string) error {
			input.Role = sec.NormalizeRole(role)
			result, err := app.client.Signup(cmd.Context(), input)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), result)
		},
	}

	cmd.Flags().StringVar(&input.Email, "email", "", "Account email")
	cmd.Flags().StringVar(&input.Password, "password", "", "Password")
	cmd.Flags().StringVar(&input.PasswordCheck, "password-check", "", "Password confirmation")
	cmd.Flags().StringVar(&input.Name, "name", "", "Display name")
	cmd.Flags().StringVar(&input.Phone, "phone", "", "Phone number, dashes allowed")
	cmd.Flags().StringVar(&role, "role", "", "OWNER (default) or MANAGER")
	return cmd
}

func newLogoutCommand(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored session",
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.client.Logout(cmd.Context())
		},
	}
}

func newWhoamiCommand(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the stored session",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			store := app.client.Store()

			user, err := store.User(ctx)
			if err != nil {
				return err
			}
			token, err := store.AccessToken(ctx)
			if err != nil {
				return err
			}
			if token == "" {
				return fmt.Errorf("not signed in")
			}
			role, err := store.Role(ctx)
			if err != nil {
				return err
			}
			storeID, _ := store.SelectedStoreID(ctx)
			popupID, _ := store.SelectedPopupID(ctx)

			report := map[string]any{
				"user":          user,
				"role":          role,
				"manager":       role.IsManager(),
				"refresh_state": app.client.Refresher().State(),
				"store_id":      storeID,
				"popup_id":      popupID,
				"runtime":       app.client.Endpoint().Runtime.String(),
				"api":           app.client.Endpoint().PublicBaseURL(),
				"backend":       app.cfg.SessionBackend,
			}
			if file, ok := app.kv.(*session.FileKV); ok {
				report["session_file"] = file.Path()
			}
			if expiresAt, ok := sec.ExpiresAt(token); ok {
				report["expires_at"] = expiresAt.Format(time.RFC3339)
				report["expiring_soon"] = sec.IsExpiringSoon(token, time.Now())
			}
			return printJSON(cmd.OutOrStdout(), report)
		},
	}
}

func newRefreshCommand(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "refresh",
		Short: "Renew the access token now",
		RunE: func(cmd *cobra.Command, args []string) error {
			token, err := app.client.Refresher().Refresh(cmd.Context())
			if err != nil {
				return err
			}
			report := map[string]any{"refreshed": true}
			if expiresAt, ok := sec.ExpiresAt(token); ok {
				report["expires_at"] = expiresAt.Format(time.RFC3339)
			}
			return printJSON(cmd.OutOrStdout(), report)
		},
	}
}

func newRequestCommand(app *app) *cobra.Command {
	var (
		data      string
		query     []string
		anonymous bool
	)

	cmd := &cobra.Command{
		Use:     "request METHOD PATH",
		Short:   "Send an API request with the stored session",
		Example: "  managerctl request GET /api/stores/v1/popups --query page=1 --query size=20",
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			options := managerapi.RequestOptions{
				Method:   strings.ToUpper(args[0]),
				SkipAuth: anonymous,
			}

			parsed, err := parseQuery(query)
			if err != nil {
				return err
			}
			options.Query = parsed

			if data != "" {
				var body any
				if err := json.Unmarshal([]byte(data), &body); err != nil {
					return fmt.Errorf("--data is not valid JSON: %w", err)
				}
				options.Body = body
			}

			result, err := app.client.Request(cmd.Context(), args[1], options)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), result)
		},
	}

	cmd.Flags().StringVar(&data, "data", "", "JSON request body")
	cmd.Flags().StringArrayVar(&query, "query", nil, "Query parameter as key=value (repeatable)")
	cmd.Flags().BoolVar(&anonymous, "anonymous", false, "Send without the access token")
	return cmd
}

func newStoresCommand(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "stores",
		Short: "List the stores of the signed-in owner",
		RunE: func(cmd *cobra.Command, args []string) error {
			stores, err := app.client.ListStores(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), stores)
		},
	}
}

func newPopupsCommand(app *app) *cobra.Command {
	var query managerapi.PopupQuery

	cmd := &cobra.Command{
		Use:   "popups",
		Short: "List public popups",
		RunE: func(cmd *cobra.Command, args []string) error {
			popups, err := app.client.ListPublicPopups(cmd.Context(), query)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), popups)
		},
	}

	cmd.Flags().IntVar(&query.Page, "page", 1, "Page number")
	cmd.Flags().IntVar(&query.Size, "size", 100, "Page size (at most 100)")
	cmd.Flags().StringVar(&query.StoreID, "store", "", "Only popups of this store")
	cmd.Flags().StringVar(&query.Category, "category", "", "Popup category")
	cmd.Flags().StringVar(&query.Keyword, "keyword", "", "Search keyword")
	cmd.Flags().StringVar(&query.RegionID, "region", "", "Region ID")
	return cmd
}

func newSelectCommand(app *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "select",
		Short: "Remember the store or popup to work on",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "store ID",
			Short: "Select a store",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return app.client.Store().SetSelectedStoreID(cmd.Context(), args[0])
			},
		},
		&cobra.Command{
			Use:   "popup ID",
			Short: "Select a popup",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return app.client.Store().SetSelectedPopupID(cmd.Context(), args[0])
			},
		},
	)
	return cmd
}

// parseQuery turns repeated key=value flags into a query map.
func parseQuery(pairs []string) (managerapi.Query, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	query := make(managerapi.Query, len(pairs))
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid --query %q, want key=value", pair)
		}
		query[key] = value
	}
	return query, nil
}

func printJSON(out io.Writer, value any) error {
	encoder := json.NewEncoder(out)
	encoder.SetIndent("", "  ")
	encoder.SetEscapeHTML(false)
	return encoder.Encode(value)
}
