package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"github.com/rfbwld/rfbwld/internal/wlclient"
)

// OutputInfo is the JSON-encodable shape of a single advertised wl_output.
type OutputInfo struct {
	Name      uint32 `json:"name"`
	Width     int32  `json:"width"`
	Height    int32  `json:"height"`
	Scale     int32  `json:"scale"`
	Transform int32  `json:"transform"`
}

var jsonOutput bool

var monitorsCmd = &cobra.Command{
	Use:   "monitors",
	Short: "List the outputs advertised by the compositor",
	Long:  `Connect to the Wayland compositor and list the wl_output globals it advertises, including their geometry; a listed name can be set as capture.output_name to pick the output serve captures.`,
	RunE:  runMonitors,
}

func init() {
	monitorsCmd.Flags().BoolVar(&jsonOutput, "json", false, "output in JSON format")
	rootCmd.AddCommand(monitorsCmd)
}

func runMonitors(cmd *cobra.Command, args []string) error {
	wl, err := wlclient.Connect()
	if err != nil {
		return fmt.Errorf("wayland connect: %w", err)
	}
	defer wl.Close()

	outputs := wl.Outputs()
	names := make([]uint32, 0, len(outputs))
	for name := range outputs {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool { return names[i] < names[j] })

	if jsonOutput {
		infos := make([]OutputInfo, 0, len(names))
		for _, name := range names {
			o := outputs[name]
			infos = append(infos, OutputInfo{
				Name:      o.Name,
				Width:     o.Width,
				Height:    o.Height,
				Scale:     o.Scale,
				Transform: o.Transform,
			})
		}
		return json.NewEncoder(os.Stdout).Encode(infos)
	}

	if len(names) == 0 {
		fmt.Println("No outputs advertised")
		return nil
	}

	fmt.Printf("%d output(s):\n\n", len(names))
	for _, name := range names {
		o := outputs[name]
		fmt.Printf("wl_output@%d:\n", o.Name)
		fmt.Printf("  Resolution: %dx%d\n", o.Width, o.Height)
		if o.Scale != 1 {
			fmt.Printf("  Scale:      %dx\n", o.Scale)
		}
		if o.Transform != 0 {
			fmt.Printf("  Transform:  %d\n", o.Transform)
		}
		fmt.Println()
	}

	return nil
}
