package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Version is set during build.
	Version = "0.1.0-dev"

	rootCmd = &cobra.Command{
		Use:   "rfbwld",
		Short: "rfbwld - expose a Wayland compositor session as an RFB/VNC server",
		Long: `rfbwld captures a wlroots-based compositor's output via screencopy or
DMA-BUF export, renders it on the GPU, and serves it to a single VNC viewer
over the RFB 3.8 protocol, injecting the viewer's keyboard and pointer input
back into the compositor through the virtual-keyboard and virtual-pointer
protocols.`,
		SilenceUsage: true,
	}
)

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.Version = Version
	rootCmd.SetVersionTemplate(`{{with .Name}}{{printf "%s " .}}{{end}}{{printf "version %s\n" .Version}}`)

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(setupCmd)
}

func exitError(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
	os.Exit(1)
}
