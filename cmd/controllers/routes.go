package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/gin-gonic/gin"
	"github.com/ranorsolutions/svc-controller-go/pkg/controller"
	"github.com/ranorsolutions/svc-controller-go/pkg/route"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

type routesOptions struct {
	recursive   bool
	plugins     bool
	conventions controller.Conventions
}

func routesCmd() *cobra.Command {
	opts := routesOptions{conventions: controller.DefaultConventions}

	cmd := &cobra.Command{
		Use:   "routes <dir>...",
		Short: "List the routes a scan of the given directories would register",
		Long: `Scan the directories exactly as the server would and print every
route found. Handler names are not resolved, so every named handler is
accepted; files that fail to load are reported on stderr.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRoutes(cmd, opts, args)
		},
	}

	f := cmd.Flags()
	f.BoolVarP(&opts.recursive, "recursive", "r", true, "scan plain subdirectories")
	f.BoolVar(&opts.plugins, "plugins", false, "load compiled Go plugins instead of descriptor files")
	f.StringVar(&opts.conventions.FileSuffix, "suffix", opts.conventions.FileSuffix, "descriptor file suffix")
	f.StringVar(&opts.conventions.DirSuffix, "dir-suffix", opts.conventions.DirSuffix, "descriptor package directory suffix")
	f.StringVar(&opts.conventions.EntryPoint, "entry", opts.conventions.EntryPoint, "descriptor package entry point")
	return cmd
}

func runRoutes(cmd *cobra.Command, opts routesOptions, dirs []string) error {
	log := logrus.New()
	log.SetOutput(cmd.ErrOrStderr())

	var loader controller.Loader
	conventions := opts.conventions
	if opts.plugins {
		loader = &controller.PluginLoader{}
		if !cmd.Flags().Changed("suffix") {
			conventions.FileSuffix = controller.PluginConventions.FileSuffix
		}
		if !cmd.Flags().Changed("entry") {
			conventions.EntryPoint = controller.PluginConventions.EntryPoint
		}
	} else {
		stub := func(c *gin.Context) { c.Status(200) }
		loader = controller.NewFileLoader(controller.NewHandlers().Fallback(func(string) gin.HandlerFunc { return stub }))
	}

	tbl := &route.Table{}
	scanner := controller.NewScanner(loader,
		controller.WithRecursive(opts.recursive),
		controller.WithConventions(conventions),
		controller.WithLogger(log),
	)
	if err := scanner.Scan(tbl, dirs...); err != nil {
		return err
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "METHOD\tPATH\tHANDLERS")
	for _, r := range tbl.Routes {
		fmt.Fprintf(w, "%s\t%s\t%d\n", r.Method, r.Path, len(r.Handler))
	}
	return w.Flush()
}
