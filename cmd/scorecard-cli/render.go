package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/synaptica-ai/planscore/pkg/common/models"
	"github.com/synaptica-ai/planscore/pkg/population"
	"github.com/synaptica-ai/planscore/pkg/protocol"
	"github.com/synaptica-ai/planscore/pkg/scene/raster"
	"github.com/synaptica-ai/planscore/pkg/scene/svg"
	"github.com/synaptica-ai/planscore/pkg/scorecard"
	"github.com/synaptica-ai/planscore/pkg/selection"
)

type renderFlags struct {
	sourceFlags
	plan     string
	format   string
	scale    float64
	out      string
	selected int
	catalog  string
}

func renderCommand(opts *options) *cobra.Command {
	f := &renderFlags{}
	cmd := &cobra.Command{
		Use:   "render",
		Short: "Render a plan's scorecard to SVG or PNG",
		Long: `Render the daisy chart for one plan, ranked against every other plan
in the population. Plans come from --patients/--dvh exports when given,
otherwise from the configured plan store.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if f.catalog == "" {
				f.catalog = opts.cfg.ProtocolCatalogPath
			}
			svc, closeFn, err := openPlans(cmd.Context(), opts.cfg, f.sourceFlags)
			if err != nil {
				return err
			}
			defer closeFn()
			return runRender(cmd.Context(), svc, f, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVar(&f.patients, "patients", "", "Tab-delimited patient export")
	cmd.Flags().StringVar(&f.dvh, "dvh", "", "Tab-delimited DVH export (needs --patients)")
	cmd.Flags().StringVarP(&f.plan, "plan", "p", "", "Plan key such as 12-Plan1 (default: first plan)")
	cmd.Flags().StringVarP(&f.format, "format", "f", "", "Output format: svg, png (default: from --out, else svg)")
	cmd.Flags().Float64Var(&f.scale, "scale", 1, "PNG scale factor")
	cmd.Flags().StringVarP(&f.out, "out", "o", "-", "Output file, - for stdout")
	cmd.Flags().IntVar(&f.selected, "selected", -1, "Metric index to highlight, -1 for none")
	cmd.Flags().StringVar(&f.catalog, "catalog", "", "Protocol catalog YAML (default: built-in)")
	return cmd
}

func runRender(ctx context.Context, svc *population.Service, f *renderFlags, stdout io.Writer) error {
	format, err := outputFormat(f.format, f.out)
	if err != nil {
		return err
	}
	catalog, err := protocol.Load(f.catalog)
	if err != nil {
		return err
	}

	key, err := pickPlan(ctx, svc, f.plan)
	if err != nil {
		return err
	}
	card, plans, err := svc.Scorecard(ctx, key)
	if err != nil {
		return fmt.Errorf("plan %s: %w", key, err)
	}

	selected := selection.None()
	if f.selected >= 0 {
		selected = selection.At(f.selected)
	}

	w := stdout
	if f.out != "-" {
		file, err := os.Create(filepath.Clean(f.out))
		if err != nil {
			return err
		}
		defer file.Close()
		w = file
	}

	layout := scorecard.DefaultLayout()
	renderer := scorecard.NewRenderer(layout)
	switch format {
	case "png":
		canvas, err := raster.New(int(layout.Width), int(layout.Height), f.scale)
		if err != nil {
			return err
		}
		renderer.Render(canvas, card, plans, catalog, selected, nil)
		return canvas.EncodePNG(w)
	default:
		canvas := svg.New(layout.Width, layout.Height)
		renderer.Render(canvas, card, plans, catalog, selected, nil)
		_, err := canvas.WriteTo(w)
		return err
	}
}

func outputFormat(format, out string) (string, error) {
	if format == "" {
		format = strings.TrimPrefix(strings.ToLower(filepath.Ext(out)), ".")
	}
	switch format {
	case "", "svg":
		return "svg", nil
	case "png":
		return "png", nil
	default:
		return "", fmt.Errorf("unsupported format %q", format)
	}
}

var errNoPlans = errors.New("no plans loaded")

func pickPlan(ctx context.Context, svc *population.Service, raw string) (models.PlanKey, error) {
	if raw != "" {
		return models.ParsePlanKey(raw)
	}
	plans, err := svc.Population(ctx)
	if err != nil {
		return models.PlanKey{}, err
	}
	if len(plans) == 0 {
		return models.PlanKey{}, errNoPlans
	}
	return plans[0].Key(), nil
}
