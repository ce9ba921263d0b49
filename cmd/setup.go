package cmd

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/rfbwld/rfbwld/internal/ui"
	"github.com/rfbwld/rfbwld/internal/wlclient"
)

// requiredProtocols are the interfaces session.NewCore binds; a missing
// required one means serve will fail at startup, a missing optional one
// just means DMA-BUF capture falls back to SHM screencopy.
var requiredProtocols = []string{
	"wl_shm",
	"zwlr_screencopy_manager_v1",
	"zwp_virtual_keyboard_manager_v1",
	"zwlr_virtual_pointer_manager_v1",
}

const optionalDmabufProtocol = "zwlr_export_dmabuf_manager_v1"

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Check compositor support for the protocols rfbwld needs",
	Long: `Connect to the running Wayland compositor and report whether it advertises
the screencopy, virtual-keyboard and virtual-pointer protocols rfbwld
requires, plus the optional export-dmabuf protocol used for zero-copy
capture when available.`,
	RunE: runSetup,
}

func init() {
	rootCmd.AddCommand(setupCmd)
}

func runSetup(cmd *cobra.Command, args []string) error {
	fmt.Println(ui.FormatSetupHeader("rfbwld setup check"))

	wl, err := wlclient.Connect()
	if err != nil {
		fmt.Println(ui.ErrorStyle.Render("✗ could not connect to the Wayland compositor"))
		fmt.Printf("   %v\n", err)
		fmt.Println("   Make sure $WAYLAND_DISPLAY is set and you're running this inside a Wayland session.")
		return fmt.Errorf("wayland connect: %w", err)
	}
	defer wl.Close()

	globals := wl.Globals()
	missing := make([]string, 0)
	for _, iface := range requiredProtocols {
		if _, ok := globals[iface]; ok {
			fmt.Println(ui.FormatSetupResult(true, iface, "advertised"))
		} else {
			fmt.Println(ui.FormatSetupResult(false, iface, "not advertised"))
			missing = append(missing, iface)
		}
	}

	if _, ok := globals[optionalDmabufProtocol]; ok {
		fmt.Println(ui.FormatSetupResult(true, optionalDmabufProtocol, "advertised (zero-copy capture available)"))
	} else {
		fmt.Println(ui.FormatSetupResult(true, optionalDmabufProtocol, "not advertised, will fall back to SHM screencopy"))
	}

	fmt.Println()
	if len(missing) > 0 {
		sort.Strings(missing)
		fmt.Println(ui.ErrorStyle.Render(fmt.Sprintf("✗ missing %d required protocol(s): %v", len(missing), missing)))
		fmt.Println("   This compositor cannot run rfbwld. wlroots-based compositors (Sway,")
		fmt.Println("   Hyprland, and most others built on wlroots) advertise all of these by default.")
		return fmt.Errorf("compositor missing required protocols: %v", missing)
	}

	fmt.Println(ui.SuccessStyle.Render("✓ all required protocols are advertised"))
	fmt.Println("   You can now run: rfbwld serve")
	return nil
}
