package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ShadowJonathan/enscons-soar/internal/backend"
	"github.com/ShadowJonathan/enscons-soar/internal/ctxlog"
	"github.com/ShadowJonathan/enscons-soar/internal/pyproject"
	"github.com/ShadowJonathan/enscons-soar/internal/setupcfg"
	"github.com/ShadowJonathan/enscons-soar/internal/tag"
)

var (
	projectDir  string
	outputDir   string
	settings    []string
	interpreter string
	abi         string
	platform    string
	verbose     bool
	logFormat   string
)

func main() {
	rootCmd := &cobra.Command{
		Use:          "soar",
		Short:        "Build backend turning declarative project metadata into distribution artifacts",
		Long:         "soar assembles wheels, sdists and editable installs from a pyproject.toml manifest, delegating platform-specific builds to an external build tool.",
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVarP(&projectDir, "project-dir", "C", ".", "Project root directory")
	rootCmd.PersistentFlags().StringVarP(&outputDir, "output-dir", "o", "dist", "Directory artifacts are written to")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Debug logging")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "text", "Log format: text or json")

	wheelCmd := &cobra.Command{
		Use:   "wheel",
		Short: "Build a wheel",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBuild(func(ctx context.Context, b *backend.Backend) (string, error) {
				config, err := parseSettings(settings)
				if err != nil {
					return "", err
				}
				return b.BuildWheel(ctx, outputDir, config)
			})
		},
	}
	addBuildFlags(wheelCmd)

	sdistCmd := &cobra.Command{
		Use:   "sdist",
		Short: "Build a source distribution",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBuild(func(ctx context.Context, b *backend.Backend) (string, error) {
				return b.BuildSdist(ctx, outputDir)
			})
		},
	}

	editableCmd := &cobra.Command{
		Use:   "editable",
		Short: "Build an editable wheel that imports from the source tree",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBuild(func(ctx context.Context, b *backend.Backend) (string, error) {
				config, err := parseSettings(settings)
				if err != nil {
					return "", err
				}
				return b.BuildEditable(ctx, outputDir, config)
			})
		},
	}
	addBuildFlags(editableCmd)

	distInfoCmd := &cobra.Command{
		Use:   "dist-info",
		Short: "Write the dist-info directory without building the wheel",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBuild(func(ctx context.Context, b *backend.Backend) (string, error) {
				return b.PrepareMetadataForBuildWheel(ctx, outputDir)
			})
		},
	}
	addBuildFlags(distInfoCmd)

	requiresCmd := &cobra.Command{
		Use:   "requires",
		Short: "Print the extra requirements for a wheel build",
		RunE:  runRequires,
	}

	convertCmd := &cobra.Command{
		Use:   "convert [setup.cfg]",
		Short: "Convert a legacy setup.cfg into a pyproject.toml manifest",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runConvert,
	}
	convertCmd.Flags().BoolP("force", "f", false, "Overwrite an existing manifest")

	rootCmd.AddCommand(wheelCmd, sdistCmd, editableCmd, distInfoCmd, requiresCmd, convertCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func addBuildFlags(cmd *cobra.Command) {
	cmd.Flags().StringArrayVarP(&settings, "setting", "D", nil, "key=value config setting forwarded to the build tool (repeatable)")
	cmd.Flags().StringVar(&interpreter, "interpreter", os.Getenv("SOAR_INTERPRETER"), "Interpreter tag for non-pure builds, e.g. cp312")
	cmd.Flags().StringVar(&abi, "abi", os.Getenv("SOAR_ABI"), "ABI tag for non-pure builds")
	cmd.Flags().StringVar(&platform, "platform", os.Getenv("SOAR_PLATFORM"), "Platform tag for non-pure builds, e.g. linux_x86_64")
}

func newLogger() (*slog.Logger, error) {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}

	switch logFormat {
	case "text":
		return slog.New(slog.NewTextHandler(os.Stderr, opts)), nil
	case "json":
		return slog.New(slog.NewJSONHandler(os.Stderr, opts)), nil
	default:
		return nil, fmt.Errorf("unknown log format %q", logFormat)
	}
}

func newBackend() *backend.Backend {
	return backend.New(backend.Options{
		ProjectDir: projectDir,
		BuildContext: tag.BuildContext{
			Interpreter: interpreter,
			ABI:         abi,
			Platform:    platform,
		},
	})
}

func runBuild(build func(context.Context, *backend.Backend) (string, error)) error {
	logger, err := newLogger()
	if err != nil {
		return err
	}
	ctx := ctxlog.WithLogger(context.Background(), logger)

	name, err := build(ctx, newBackend())
	if err != nil {
		return err
	}
	fmt.Println(name)
	return nil
}

func runRequires(cmd *cobra.Command, args []string) error {
	logger, err := newLogger()
	if err != nil {
		return err
	}
	ctx := ctxlog.WithLogger(context.Background(), logger)

	requires, err := newBackend().GetRequiresForBuildWheel(ctx)
	if err != nil {
		return err
	}
	for _, req := range requires {
		fmt.Println(req)
	}
	return nil
}

func runConvert(cmd *cobra.Command, args []string) error {
	input := "setup.cfg"
	if len(args) == 1 {
		input = args[0]
	} else {
		input = filepath.Join(projectDir, input)
	}

	data, err := os.ReadFile(input)
	if err != nil {
		return fmt.Errorf("reading %s: %w", input, err)
	}

	manifest, err := setupcfg.Convert(data)
	if err != nil {
		return err
	}

	output := filepath.Join(filepath.Dir(input), pyproject.ManifestName)
	force, _ := cmd.Flags().GetBool("force")
	if !force {
		if _, err := os.Stat(output); err == nil {
			return fmt.Errorf("%s already exists, pass --force to overwrite", output)
		}
	}
	if err := os.WriteFile(output, manifest, 0644); err != nil {
		return fmt.Errorf("writing %s: %w", output, err)
	}

	fmt.Println(output)
	return nil
}

// parseSettings turns repeated key=value flags into the settings map
// forwarded to the build tool.
func parseSettings(pairs []string) (map[string]string, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	config := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("setting %q is not key=value form", pair)
		}
		config[key] = value
	}
	return config, nil
}
