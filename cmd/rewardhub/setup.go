package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rewardhub/rewardhub/internal/config"
	"github.com/rewardhub/rewardhub/internal/setup"
	goutils "github.com/jkaninda/go-utils"
)

var setupConfigPath string

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Bootstrap the first tenant and super-admin account",
	Long: `Interactive first-boot wizard. Creates the root tenant, its admin
account, the default role set, and the login page branding. Fails if the
system is already initialized.`,
	RunE: runSetup,
}

func init() {
	setupCmd.Flags().StringVar(&setupConfigPath, "config", config.DefaultConfigPath(), "path to config file")
}

func runSetup(_ *cobra.Command, _ []string) error {
	logger := newLogger()

	cfg, err := config.Load(goutils.Env("REWARDHUB_CONFIG", setupConfigPath))
	if err != nil {
		return err
	}

	ctx := context.Background()
	sc, err := initShared(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer sc.Cleanup()

	if done, err := sc.Setup.Initialized(ctx); err != nil {
		return err
	} else if done {
		return fmt.Errorf("system is already initialized")
	}

	scanner := bufio.NewScanner(os.Stdin)
	fmt.Println("RewardHub Setup Wizard")
	fmt.Println("======================")
	fmt.Println()

	req := setup.Request{
		TenantName: prompt(scanner, "Tenant name", "My Brand"),
		TenantSlug: prompt(scanner, "Tenant slug (URL-safe)", "my-brand"),
		AdminEmail: prompt(scanner, "Admin email", "admin@example.com"),
		AdminName:  prompt(scanner, "Admin name", "Administrator"),
	}

	// The password may come from the environment for scripted installs.
	req.Password = os.Getenv("REWARDHUB_ADMIN_PASSWORD")
	if req.Password == "" {
		req.Password = prompt(scanner, "Admin password", "")
	}
	if req.Password == "" {
		return fmt.Errorf("admin password is required (prompt or REWARDHUB_ADMIN_PASSWORD)")
	}

	result, err := sc.Setup.Initialize(ctx, req)
	if err != nil {
		return err
	}

	fmt.Println()
	fmt.Printf("Tenant created: %s\n", result.TenantID)
	fmt.Printf("Admin account:  %s (%s)\n", req.AdminEmail, result.AdminID)
	fmt.Printf("Roles seeded:   %s\n", strings.Join(result.RolesAdded, ", "))
	fmt.Println()
	fmt.Println("Start the server with `rewardhub serve` and log in.")
	return nil
}

// prompt reads a line from the scanner, returning the fallback on empty input.
func prompt(scanner *bufio.Scanner, label, fallback string) string {
	if fallback != "" {
		fmt.Printf("%s [%s]: ", label, fallback)
	} else {
		fmt.Printf("%s: ", label)
	}
	if !scanner.Scan() {
		return fallback
	}
	value := strings.TrimSpace(scanner.Text())
	if value == "" {
		return fallback
	}
	return value
}
