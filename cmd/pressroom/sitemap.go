package main

import (
	"bufio"
	"strings"

	"github.com/spf13/cobra"

	"github.com/eringen/pressroom/contentapi"
	"github.com/eringen/pressroom/sitemap"
)

var sitemapCmd = &cobra.Command{
	Use:   "sitemap",
	Short: "Print the sitemap XML of a running site",
	Long: `sitemap fetches sitemap data from the content API and prints the XML.
If the API cannot be reached the fallback entries are printed instead.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		site := cfg.Site
		api := site.ContentAPIURL
		if api == "" {
			api = strings.TrimRight(site.URL, "/") + "/api"
		}
		gen := sitemap.New(site.URL, contentapi.New(api, contentapi.WithToken(site.APIToken)),
			sitemap.WithLogger(logger.Named("sitemap")))

		w := bufio.NewWriter(cmd.OutOrStdout())
		if err := sitemap.WriteXML(w, gen.Generate(cmd.Context())); err != nil {
			return err
		}
		return w.Flush()
	},
}
