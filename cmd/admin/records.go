package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"clinic-manager/internal/app"
	"clinic-manager/internal/domain"
	"clinic-manager/internal/store"
)

func migrateCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update all tables",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := c.config()
			if err != nil {
				return err
			}
			// 建表前 schema 探测会失败，只开连接不走完整装配
			db, err := app.OpenDB(cfg, c.log)
			if err != nil {
				return err
			}
			if sqlDB, err := db.DB(); err == nil {
				defer sqlDB.Close()
			}
			if err := app.Migrate(db); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "migrated")
			return nil
		},
	}
}

func seedRolesCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "seed-roles",
		Short: "Insert the default roles if missing",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := c.open(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()
			ctx := cmd.Context()
			for _, name := range []string{domain.RoleAdmin, domain.RoleDoctor, domain.RoleReception} {
				r, err := roleByName(ctx, a.Store, name)
				if err != nil && !errors.Is(err, store.ErrNotFound) {
					return err
				}
				if r != nil {
					fmt.Fprintf(cmd.OutOrStdout(), "role %s exists (%s)\n", name, r.ID)
					continue
				}
				r, err = store.Create(ctx, a.Store, domain.TableRoles, &domain.Role{Name: name})
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "role %s created (%s)\n", name, r.ID)
			}
			if err := a.Users.InvalidateRoles(ctx); err != nil {
				c.log.Warn("roles cache invalidate failed", zap.Error(err))
			}
			return nil
		},
	}
}

func roleByName(ctx context.Context, a *store.Adapter, name string) (*domain.Role, error) {
	rows, err := store.GetAll[domain.Role](ctx, a, domain.TableRoles, store.ListOptions{
		Filter: map[string]any{"name": name},
		Limit:  1,
	})
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("role %q: %w", name, store.ErrNotFound)
	}
	return &rows[0], nil
}

func accountCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "account",
		Short: "Manage sign-in accounts",
	}
	cmd.AddCommand(accountCreateCmd(c))
	return cmd
}

func accountCreateCmd(c *cli) *cobra.Command {
	var email, password, name, role string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create an account and its user profile",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := c.open(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()
			ctx := cmd.Context()

			var roleID *string
			if role != "" {
				r, err := roleByName(ctx, a.Store, role)
				if err != nil {
					return err
				}
				roleID = &r.ID
			}
			acc, err := a.Identity.CreateAccount(ctx, email, password)
			if err != nil {
				return err
			}
			u := &domain.User{AuthID: &acc.ID, Email: acc.Email, RoleID: roleID}
			if name != "" {
				u.Name = &name
			}
			u, err = store.Create(ctx, a.Store, domain.TableUsers, u)
			if err != nil {
				return fmt.Errorf("account %s created but profile failed: %w", acc.ID, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "account %s user %s\n", acc.ID, u.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "sign-in email")
	cmd.Flags().StringVar(&password, "password", "", "initial password")
	cmd.Flags().StringVar(&name, "name", "", "display name")
	cmd.Flags().StringVar(&role, "role", "", "primary role name")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

func listCmd(c *cli) *cobra.Command {
	var includeInactive bool
	var limit int
	cmd := &cobra.Command{
		Use:   "list <resource>",
		Short: "Print records of a table as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := c.open(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()
			opts := store.ListOptions{OrderBy: store.ColCreatedAt, Descending: true, Limit: limit, IncludeInactive: includeInactive}
			return listTable(cmd.Context(), cmd.OutOrStdout(), a.Store, tableArg(args[0]), opts)
		},
	}
	cmd.Flags().BoolVar(&includeInactive, "include-inactive", false, "include soft-deleted records")
	cmd.Flags().IntVar(&limit, "limit", 0, "max records, 0 for all")
	return cmd
}

func purgeCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "purge <resource> <id>",
		Short: "Physically delete one record",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := c.open(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()
			table := tableArg(args[0])
			if err := purgeRecord(cmd.Context(), a.Store, table, args[1]); err != nil {
				return err
			}
			if table == domain.TableRoles {
				_ = a.Users.InvalidateRoles(cmd.Context())
			}
			fmt.Fprintf(cmd.OutOrStdout(), "purged %s %s\n", table, args[1])
			return nil
		},
	}
}

// tableArg 同时接受 REST 路径写法 user-roles
func tableArg(s string) string { return strings.ReplaceAll(strings.TrimSpace(s), "-", "_") }

func listTable(ctx context.Context, w io.Writer, a *store.Adapter, table string, opts store.ListOptions) error {
	switch table {
	case domain.TablePatients:
		return printRows[domain.Patient](ctx, w, a, table, opts)
	case domain.TableExams:
		opts.OrderBy = "exam_date"
		return printRows[domain.Exam](ctx, w, a, table, opts)
	case domain.TableUsers:
		return printRows[domain.User](ctx, w, a, table, opts)
	case domain.TableRoles:
		return printRows[domain.Role](ctx, w, a, table, opts)
	case domain.TableUserRoles:
		return printRows[domain.UserRole](ctx, w, a, table, opts)
	}
	return fmt.Errorf("%w: %q", store.ErrUnknownTable, table)
}

func printRows[T any](ctx context.Context, w io.Writer, a *store.Adapter, table string, opts store.ListOptions) error {
	rows, err := store.GetAll[T](ctx, a, table, opts)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(rows)
}

func purgeRecord(ctx context.Context, a *store.Adapter, table, id string) error {
	key := store.ByID(id)
	switch table {
	case domain.TablePatients:
		return store.HardDelete[domain.Patient](ctx, a, table, key)
	case domain.TableExams:
		return store.HardDelete[domain.Exam](ctx, a, table, key)
	case domain.TableUsers:
		return store.HardDelete[domain.User](ctx, a, table, key)
	case domain.TableRoles:
		return store.HardDelete[domain.Role](ctx, a, table, key)
	case domain.TableUserRoles:
		return store.HardDelete[domain.UserRole](ctx, a, table, key)
	}
	return fmt.Errorf("%w: %q", store.ErrUnknownTable, table)
}
