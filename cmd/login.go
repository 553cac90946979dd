package main

import (
	"bufio"
	"fmt"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/profile-enrich/pkg/browser"
)

const loginURL = "https://www.linkedin.com/login"

var loginOutput string

// login opens a visible browser so a human can authenticate, then
// saves the resulting cookies for the fetcher to reuse. Authenticated
// sessions get past walls that block anonymous scraping.
var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Capture an authenticated browser session",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		out := loginOutput
		if out == "" {
			out = cfg.Scrape.SessionStatePath
		}
		if out == "" {
			return eris.New("no output path; pass --output or set scrape.session_state_path")
		}

		b, err := browser.Launch(ctx, browser.Options{
			Headless:  false,
			UserAgent: cfg.Scrape.UserAgent,
		})
		if err != nil {
			return eris.Wrap(err, "launch browser")
		}
		defer b.Close()

		tab, err := b.NewTab(ctx)
		if err != nil {
			return eris.Wrap(err, "open tab")
		}
		defer tab.Close()

		if err := tab.Navigate(ctx, loginURL); err != nil {
			return eris.Wrap(err, "open login page")
		}

		fmt.Println("Log in using the browser window, then press Enter here to save the session.")
		if _, err := bufio.NewReader(os.Stdin).ReadString('\n'); err != nil {
			return eris.Wrap(err, "wait for confirmation")
		}

		if err := tab.SaveSessionState(ctx, out); err != nil {
			return eris.Wrap(err, "save session state")
		}

		zap.L().Info("session state saved", zap.String("path", out))
		fmt.Printf("Session saved to %s\n", out)
		return nil
	},
}

func init() {
	loginCmd.Flags().StringVar(&loginOutput, "output", "", "session state file (default from config)")
	rootCmd.AddCommand(loginCmd)
}
