package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"studyspot-backend/internal/logger"
	"studyspot-backend/internal/middleware"
	"studyspot-backend/internal/search"
	"studyspot-backend/internal/services"
	"studyspot-backend/internal/simulation"
)

// --- store ---

var storeCmd = &cobra.Command{
	Use:   "store",
	Short: "Inspect the durable store",
}

var storeKeysCmd = &cobra.Command{
	Use:   "keys",
	Short: "List keys under the configured prefix",
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore(cmd.Context())
		if err != nil {
			return err
		}
		defer st.Close()

		keys := st.Keys(cmd.Context())
		out := cmd.OutOrStdout()
		if len(keys) == 0 {
			printWarning(out, "No keys under prefix %q", st.Prefix())
			return nil
		}
		for _, k := range keys {
			fmt.Fprintln(out, k)
		}
		return nil
	},
}

var storeGetCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "Print the JSON value of a key",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore(cmd.Context())
		if err != nil {
			return err
		}
		defer st.Close()

		raw, ok := st.GetRaw(cmd.Context(), args[0])
		if !ok {
			return fmt.Errorf("key %q not found", args[0])
		}

		var pretty bytes.Buffer
		if err := json.Indent(&pretty, raw, "", "  "); err != nil {
			return fmt.Errorf("formatting %q: %w", args[0], err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), pretty.String())
		return nil
	},
}

var storeClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete every key under the configured prefix",
	Long: `Delete every key under the configured prefix. Keys of other
applications sharing the medium are left alone.

Examples:
  studyctl store clear --yes
  studyctl store clear --backend redis --prefix staging_ --yes`,
	RunE: func(cmd *cobra.Command, args []string) error {
		yes, _ := cmd.Flags().GetBool("yes")
		if !yes {
			return fmt.Errorf("refusing to clear without --yes")
		}

		st, err := openStore(cmd.Context())
		if err != nil {
			return err
		}
		defer st.Close()

		n := len(st.Keys(cmd.Context()))
		st.Clear(cmd.Context())
		printSuccess(cmd.OutOrStdout(), "Cleared %d keys under %q", n, st.Prefix())
		return nil
	},
}

func init() {
	storeClearCmd.Flags().Bool("yes", false, "confirm deletion")
	storeCmd.AddCommand(storeKeysCmd, storeGetCmd, storeClearCmd)
}

// --- search ---

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Run a catalog search for a role",
	Long: `Run a catalog search for a role, the same way the search endpoint does.

Examples:
  studyctl search homework
  studyctl search "grade" --role teacher`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		role, _ := cmd.Flags().GetString("role")
		query := strings.Join(args, " ")
		out := cmd.OutOrStdout()

		results := search.Search(query, role)
		if len(results) == 0 {
			printWarning(out, "No results for %q (%s)", query, role)
			return nil
		}
		for _, e := range results {
			printStatus(out, e.Title, "%s  %s", e.URL, e.Description)
		}
		return nil
	},
}

func init() {
	searchCmd.Flags().String("role", "student", "role whose catalog is searched")
}

// --- seed ---

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Write the demo homework list and message log",
	RunE: func(cmd *cobra.Command, args []string) error {
		force, _ := cmd.Flags().GetBool("force")

		st, err := openStore(cmd.Context())
		if err != nil {
			return err
		}
		defer st.Close()

		st.EnsureSchema(cmd.Context())
		written := simulation.Seed(cmd.Context(), st, time.Now().UTC(), force)
		out := cmd.OutOrStdout()
		if len(written) == 0 {
			printWarning(out, "Demo data already present (use --force to overwrite)")
			return nil
		}
		printSuccess(out, "Seeded %s", strings.Join(written, ", "))
		return nil
	},
}

func init() {
	seedCmd.Flags().Bool("force", false, "overwrite existing demo data")
}

// --- admin ---

var adminCmd = &cobra.Command{
	Use:   "admin",
	Short: "Manage admin accounts",
}

var adminCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a local admin account",
	Long: `Create a local admin account. Self-registration over HTTP cannot
create admins.

Examples:
  studyctl admin create --name "Ops" --email ops@example.com --password s3cretpass`,
	RunE: func(cmd *cobra.Command, args []string) error {
		name, _ := cmd.Flags().GetString("name")
		email, _ := cmd.Flags().GetString("email")
		password, _ := cmd.Flags().GetString("password")

		st, err := openStore(cmd.Context())
		if err != nil {
			return err
		}
		defer st.Close()

		// Tokens are never issued here, so the signing key is irrelevant.
		auth := services.NewAuthService(st, middleware.NewJWTAuth(""), nil, logger.Nop())
		user, err := auth.CreateAdmin(cmd.Context(), name, email, password)
		if err != nil {
			var ve *services.ValidationError
			if errors.As(err, &ve) {
				for field, msg := range ve.Fields {
					printError(cmd.ErrOrStderr(), "%s: %s", field, msg)
				}
			}
			return fmt.Errorf("creating admin: %w", err)
		}
		printSuccess(cmd.OutOrStdout(), "Created admin %s (%s)", user.Email, user.ID)
		return nil
	},
}

func init() {
	adminCreateCmd.Flags().String("name", "", "full name")
	adminCreateCmd.Flags().String("email", "", "login email")
	adminCreateCmd.Flags().String("password", "", "password (8+ characters with a digit)")
	adminCmd.AddCommand(adminCreateCmd)
}
