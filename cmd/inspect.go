package cmd

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spaghettifunk/character-studio/engine/manifest"
	"github.com/spaghettifunk/character-studio/engine/metadata"
	"github.com/spf13/cobra"
)

func newInspectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "inspect <catalog>",
		Short: "Validate a catalog file and list its groups and options",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			m, err := manifest.Parse(data, manifest.FormatFromPath(args[0]))
			if err != nil {
				return err
			}
			printManifest(cmd, m)
			return nil
		},
	}
}

func printManifest(cmd *cobra.Command, m *manifest.Manifest) {
	out := cmd.OutOrStdout()
	t := newTable("GROUP", "REQUIRED", "OPTIONS", "RESTRICTS")
	for _, g := range m.Groups {
		ids := make([]string, 0, len(g.Options))
		for _, o := range g.Options {
			ids = append(ids, o.ID)
		}
		required := ""
		if g.IsRequired {
			required = "yes"
		}
		t.Row(g.ID, required, strings.Join(ids, ", "), strings.Join(g.RestrictedTraits, ", "))
	}

	fmt.Fprintln(out, titleStyle.Render("Catalog"))
	fmt.Fprintln(out, t.Render())
	fmt.Fprintf(out, "%s %s\n", labelStyle.Render("export scale:"), strconv.FormatFloat(float64(m.ExportScale), 'g', -1, 32))
	fmt.Fprintf(out, "%s %d texture, %d colour\n", labelStyle.Render("collections:"), len(m.TextureCollections), len(m.ColorCollections))
	fmt.Fprintf(out, "%s %s\n", labelStyle.Render("default culling:"), describeHints(m.DefaultCulling))
}

func describeHints(h metadata.CullingHints) string {
	var parts []string
	if h.Layer != nil {
		parts = append(parts, fmt.Sprintf("layer %d", *h.Layer))
	}
	if h.Distance != nil {
		parts = append(parts, fmt.Sprintf("near %g", *h.Distance))
	}
	if h.MaxDistance != nil {
		parts = append(parts, fmt.Sprintf("far %g", *h.MaxDistance))
	}
	if len(parts) == 0 {
		return helpStyle.Render("none")
	}
	return strings.Join(parts, ", ")
}
