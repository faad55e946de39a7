package main

import (
	"fmt"
	"os"
	"runtime"

	"github.com/spf13/cobra"
)

var (
	// Version information
	version   = "1.0.0"
	gitCommit = "unknown"
	buildDate = "unknown"

	// Global flags
	configFile string
)

// rootCmd archives a community feed when called with a URL
var rootCmd = &cobra.Command{
	Use:   "postarchiver [flags] <url> [amount]",
	Short: "Archive the community posts of a YouTube channel",
	Long: `postarchiver opens a channel's community tab in a headless browser, scrolls
until every post is loaded and writes the posts to a JSON file.

Optionally it also collects image URLs, downloads the images and collects the
comments of every post. Progress is saved every few posts, so an interrupted
run keeps what it already gathered.

The amount limits how many posts are collected; use "max" or leave it out to
collect everything.`,
	Example: `  # Archive every post
  postarchiver https://www.youtube.com/@channel/community

  # First 50 posts with images in high resolution, downloaded
  postarchiver -i -d -q hd https://www.youtube.com/@channel/community 50

  # Everything, with comments, through the stored proxies
  postarchiver -c -i --proxy-vault https://www.youtube.com/@channel/community max`,
	Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, gitCommit, buildDate),
	Args:          cobra.RangeArgs(1, 2),
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runArchive,
}

// Execute runs the root command and exits non-zero on failure
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file (default is ~/.config/postarchiver/config.yaml)")

	rootCmd.SetVersionTemplate(`postarchiver {{.Version}}
Go Version: ` + runtime.Version() + `
OS/Arch: ` + runtime.GOOS + `/` + runtime.GOARCH + `
`)

	rootCmd.CompletionOptions.DisableDefaultCmd = true
}
