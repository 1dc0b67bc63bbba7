package cmd

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spaghettifunk/character-studio/engine"
	"github.com/spaghettifunk/character-studio/engine/avatar"
	"github.com/spaghettifunk/character-studio/engine/core"
	"github.com/spf13/cobra"
)

type composeOptions struct {
	manifest     string
	random       bool
	traits       []string
	removals     []string
	force        bool
	selection    string
	fullReplace  bool
	ignore       []string
	restrictions bool
	seed         uint64
}

func newComposeCmd(root *rootOptions) *cobra.Command {
	opts := &composeOptions{}
	cmd := &cobra.Command{
		Use:   "compose",
		Short: "Load a catalog, apply trait operations and print the resulting avatar",
		Example: `  studio compose --manifest catalog.json
  studio compose --manifest catalog.json --random --seed 7
  studio compose --manifest catalog.json --trait CHEST=hoodie --remove LEGS
  studio compose --manifest catalog.json --selection nft/42.json --full-replace`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runCompose(cmd, root, opts)
		},
	}
	f := cmd.Flags()
	f.StringVarP(&opts.manifest, "manifest", "m", "", "catalog location (overrides the configuration)")
	f.BoolVar(&opts.random, "random", false, "start from a random selection instead of the initial one")
	f.StringSliceVarP(&opts.traits, "trait", "t", nil, "GROUP=OPTION to load, repeatable")
	f.StringSliceVar(&opts.removals, "remove", nil, "group to empty, repeatable")
	f.BoolVar(&opts.force, "force", false, "allow --remove on required groups")
	f.StringVar(&opts.selection, "selection", "", "external metadata document to apply")
	f.BoolVar(&opts.fullReplace, "full-replace", false, "empty optional groups missing from --selection")
	f.StringSliceVar(&opts.ignore, "ignore", nil, "groups of --selection to skip")
	f.BoolVar(&opts.restrictions, "restrictions", false, "drop traits that conflict with loaded ones")
	f.Uint64Var(&opts.seed, "seed", 0, "seed for random selection")
	return cmd
}

func runCompose(cmd *cobra.Command, root *rootOptions, opts *composeOptions) error {
	cfg, err := root.loadConfig()
	if err != nil {
		return err
	}
	if opts.manifest != "" {
		cfg.Manifest = opts.manifest
	}
	if cfg.Manifest == "" {
		return fmt.Errorf("%w: no catalog, use --manifest", core.ErrConfiguration)
	}
	if opts.restrictions {
		cfg.Avatar.EnableRestrictions = true
	}
	if cmd.Flags().Changed("seed") {
		cfg.Avatar.Seed = opts.seed
	}

	ctx := cmd.Context()
	e, err := engine.New(cfg)
	if err != nil {
		return err
	}
	defer e.Shutdown(ctx)
	if err := e.Initialize(ctx); err != nil {
		return err
	}

	cm := e.Characters()
	if opts.random {
		err = cm.LoadRandomTraits(ctx)
	} else {
		err = cm.LoadInitialTraits(ctx)
	}
	if err != nil {
		return err
	}

	for _, t := range opts.traits {
		group, option, ok := strings.Cut(t, "=")
		if !ok {
			return fmt.Errorf("%w: --trait %q, expected GROUP=OPTION", core.ErrConfiguration, t)
		}
		if err := cm.LoadTrait(ctx, group, option); err != nil {
			return err
		}
	}
	if opts.selection != "" {
		src := avatar.ExternalSource{Location: opts.selection}
		if err := cm.LoadTraitsFromExternalSelection(ctx, src, opts.fullReplace, opts.ignore); err != nil {
			return err
		}
	}
	for _, g := range opts.removals {
		if err := cm.RemoveTrait(g, opts.force); err != nil {
			return err
		}
	}

	return printAvatar(cmd.OutOrStdout(), e)
}

func printAvatar(out io.Writer, e *engine.Engine) error {
	cm := e.Characters()
	groups, err := cm.AllCatalogGroups()
	if err != nil {
		return err
	}
	sel := cm.Selection()

	t := newTable("GROUP", "OPTION", "MODELS", "CULLING LAYER")
	for _, g := range groups {
		item, ok := sel[g.ID]
		if !ok {
			t.Row(g.ID, helpStyle.Render("-"), "", "")
			continue
		}
		entry, _ := cm.Entry(g.ID)
		layer := "-"
		if entry.Model != nil && entry.Model.Culling.Layer >= 0 {
			layer = strconv.Itoa(entry.Model.Culling.Layer)
		}
		t.Row(g.ID, item.ID, strconv.Itoa(len(entry.Models)), layer)
	}

	stats := e.Stats()
	fmt.Fprintln(out, titleStyle.Render("Avatar"))
	fmt.Fprintln(out, t.Render())
	fmt.Fprintf(out, "%s %d geometries, %d materials, %d textures\n",
		labelStyle.Render("live:"), stats.Geometries, stats.Materials, stats.Textures)
	fmt.Fprintf(out, "%s %d batches, %d assets loaded, %d failed, %.1fms avg\n",
		labelStyle.Render("loading:"), stats.Batches, stats.AssetsLoaded, stats.AssetsFailed, stats.AvgBatchMs)
	for _, f := range stats.RecentFailures {
		fmt.Fprintln(out, errorStyle.Render("  failed: "+f.Error()))
	}
	return nil
}
