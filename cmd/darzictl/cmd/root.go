// Package cmd holds darzictl's cobra commands.
package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/darziflow/console/cmd/darzictl/internal/cliconfig"
	"github.com/darziflow/console/cmd/darzictl/internal/profile"
	"github.com/darziflow/console/internal/infrastructure/apiclient"
	"github.com/darziflow/console/internal/infrastructure/tokenstore"
)

type rootOptions struct {
	server         string
	profilePath    string
	tokenFile      string
	verbose        bool
	nonInteractive bool
}

// NewRootCmd builds the darzictl command tree.
func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:   "darzictl",
		Short: "DarziFlow CLI - production floor client",
		Long: `darzictl talks to the DarziFlow REST backend with the same session
rules as the admin console: the token is rotated when the backend says so and
dropped as soon as the backend answers 401.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if os.Getenv("DARZIFLOW_NON_INTERACTIVE") == "1" {
				opts.nonInteractive = true
			}
			cfg, err := resolveConfig(opts)
			if err != nil {
				return err
			}
			cmd.SetContext(cliconfig.InjectConfig(cmd.Context(), cfg))
			return nil
		},
	}

	root.PersistentFlags().StringVar(&opts.server, "server", "", "DarziFlow API base URL (default from profile, then "+apiclient.DefaultBaseURL+")")
	root.PersistentFlags().StringVar(&opts.profilePath, "profile", "", "Profile file (default ~/.darziflow/config.yaml)")
	root.PersistentFlags().StringVar(&opts.tokenFile, "token-file", "", "Token file (default ~/.darziflow/token)")
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "Log backend calls to stderr")
	root.PersistentFlags().BoolVar(&opts.nonInteractive, "non-interactive", false, "Disable interactive prompts (also set via DARZIFLOW_NON_INTERACTIVE=1)")

	root.AddCommand(newLoginCmd())
	root.AddCommand(newLogoutCmd())
	root.AddCommand(newWhoamiCmd())
	root.AddCommand(newPasswordCmd())
	root.AddCommand(newOrdersCmd())
	root.AddCommand(newDepartmentsCmd())
	return root
}

// Execute runs darzictl and exits non-zero on failure.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := NewRootCmd().ExecuteContext(ctx); err != nil {
		pterm.Error.WithWriter(os.Stderr).Println(err)
		stop()
		os.Exit(1)
	}
}

func resolveConfig(opts *rootOptions) (*cliconfig.GlobalConfig, error) {
	path := opts.profilePath
	if path == "" {
		p, err := profile.DefaultPath()
		if err != nil {
			return nil, err
		}
		path = p
	}
	prof, err := profile.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load profile %s: %w", path, err)
	}

	server := firstNonEmpty(opts.server, prof.Server, apiclient.DefaultBaseURL)
	server = strings.TrimRight(server, "/")

	var store *tokenstore.FileStore
	if tokenFile := firstNonEmpty(opts.tokenFile, prof.TokenFile); tokenFile != "" {
		store, err = tokenstore.NewFileStoreAt(tokenFile)
	} else {
		store, err = tokenstore.NewFileStore()
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create token store: %w", err)
	}

	return &cliconfig.GlobalConfig{
		ServerURL:      server,
		ProfilePath:    path,
		Profile:        prof,
		Store:          store,
		Verbose:        opts.verbose,
		NonInteractive: opts.nonInteractive,
	}, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// sessionClient returns a client that tells the user to log in again when
// the backend drops the session.
func sessionClient(cmd *cobra.Command) (*apiclient.Client, error) {
	cfg := cliconfig.MustFromContext(cmd.Context())
	client, err := cfg.Client(cmd.Context())
	if err != nil {
		return nil, err
	}
	if !client.HasToken() {
		return nil, fmt.Errorf("not logged in, run `darzictl login`")
	}
	client.OnSessionExpired(func() {
		pterm.Warning.WithWriter(cmd.ErrOrStderr()).Println("Session expired. Run `darzictl login` to sign in again.")
	})
	return client, nil
}
