package main

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/eringen/pressroom"
	"github.com/eringen/pressroom/scaffold"
)

var initSiteURL string

var initCmd = &cobra.Command{
	Use:   "init <dir>",
	Short: "Write a starter config into dir",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dir := args[0]
		abs, err := filepath.Abs(dir)
		if err != nil {
			return err
		}
		data := scaffold.Data{
			SiteName:      scaffold.ToTitle(filepath.Base(abs)),
			SiteURL:       initSiteURL,
			SessionSecret: randomHex(32),
			APIToken:      randomHex(24),
		}
		created, err := scaffold.Write(dir, data)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		for _, p := range created {
			fmt.Fprintf(out, "  created %s\n", p)
		}
		fmt.Fprintln(out)
		fmt.Fprintln(out, "Done! Next steps:")
		fmt.Fprintf(out, "  cd %s\n", dir)
		fmt.Fprintln(out, "  cp .env.example .env   # set the admin password")
		fmt.Fprintln(out, "  pressroom serve")
		return nil
	},
}

func init() {
	initCmd.Flags().StringVar(&initSiteURL, "url", pressroom.DefaultSiteURL, "canonical site URL")
}

func randomHex(n int) string {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		panic(err)
	}
	return hex.EncodeToString(b)
}
